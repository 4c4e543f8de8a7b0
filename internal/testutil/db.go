// Package testutil provides an in-memory sqlite database shaped like the
// production schema.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seu-repo/fuel-control/internal/adapter/storage/postgres"
	"github.com/seu-repo/fuel-control/internal/domain"
)

// NewTestDB opens a private in-memory database with a single connection, so
// concurrent transactions queue on the pool the way row locks serialize
// them on Postgres.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	if err := postgres.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func SeedUser(t *testing.T, db *gorm.DB, email string, roles ...domain.UserRole) *domain.User {
	t.Helper()
	u := &domain.User{Name: email, Email: email, Active: true}
	u.SetRoles(roles...)
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedVehicle(t *testing.T, db *gorm.DB, name, plate string, driverID *uint) *domain.Vehicle {
	t.Helper()
	v := &domain.Vehicle{Name: name, LicensePlate: plate, DefaultDriverID: driverID, Active: true}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return v
}

func SeedDriver(t *testing.T, db *gorm.DB, name string) *domain.Driver {
	t.Helper()
	d := &domain.Driver{Name: name}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	return d
}
