//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/fuel-control/internal/adapter/storage/postgres"
	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/mocks"
	"github.com/seu-repo/fuel-control/internal/ports"
	"github.com/seu-repo/fuel-control/internal/service/events"
	"github.com/seu-repo/fuel-control/internal/service/refueling"
	"github.com/seu-repo/fuel-control/internal/service/tank"
	"github.com/seu-repo/fuel-control/pkg/config"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("fuel_test"),
		tcpostgres.WithUsername("fuel"),
		tcpostgres.WithPassword("fuel_test"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.NewConnection(config.DatabaseConfig{
		URL:             dsn,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(db))
	return db
}

func TestConcurrentConfirms_NeverOverdrawTank(t *testing.T) {
	db := startPostgres(t)
	log := zap.NewNop()
	ctx := context.Background()

	tx := postgres.NewTransactor(db, log)
	audit := postgres.NewAuditRepository(db, log)
	tanks := tank.NewService(postgres.NewTankRepository(db, log), audit, tx, tank.DefaultConfig(), log)
	svc := refueling.NewService(refueling.Params{
		Repo:        postgres.NewRefuelingRepository(db, log),
		Tanks:       tanks,
		Vehicles:    postgres.NewVehicleRepository(db, log),
		Drivers:     postgres.NewDriverRepository(db, log),
		Attachments: postgres.NewAttachmentRepository(db, log),
		Audit:       audit,
		Sequence:    postgres.NewSequenceRepository(db, log),
		Tx:          tx,
		Events:      events.NewDispatcher(mocks.NewMockMessageQueue(), &mocks.MockBroadcaster{}, nil, log),
		Notifier:    &mocks.MockStockNotifier{},
		Config:      refueling.Config{Code: "REF", Location: time.UTC},
		Log:         log,
	})

	tk, err := tanks.GetOrCreateDefault(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.Intake{
		Reference: "INT/2026/00001",
		Timestamp: time.Now(),
		TankID:    tk.ID,
		Quantity:  100,
		UnitPrice: 5,
		State:     domain.StateConfirmed,
	}).Error)
	_, err = tanks.Recompute(ctx, tk.ID)
	require.NoError(t, err)

	operator := &domain.User{Name: "operator", Email: "operator@fleet.test", Active: true}
	operator.SetRoles(domain.UserRoleOperator)
	require.NoError(t, db.Create(operator).Error)

	const workers = 10
	drafts := make([]*domain.Refueling, 0, workers)
	for i := 0; i < workers; i++ {
		vehicle := &domain.Vehicle{Name: fmt.Sprintf("Truck %02d", i), LicensePlate: fmt.Sprintf("ABC%04d", i), Active: true}
		require.NoError(t, db.Create(vehicle).Error)
		r, err := svc.Create(ctx, operator, ports.RefuelingInput{
			VehicleID:    vehicle.ID,
			GaugeReading: 1000,
			Quantity:     30,
			UnitPrice:    5.5,
		})
		require.NoError(t, err)
		drafts = append(drafts, r)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		confirmed int
		refused   int
	)
	for _, r := range drafts {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := svc.Confirm(ctx, operator, id)
			mu.Lock()
			defer mu.Unlock()
			var stock *domain.InsufficientStockError
			switch {
			case err == nil:
				confirmed++
			case errors.As(err, &stock):
				refused++
			default:
				t.Errorf("confirm %d: %v", id, err)
			}
		}(r.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, confirmed)
	assert.Equal(t, workers-3, refused)

	final, err := tanks.Recompute(ctx, tk.ID)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, final.CurrentStock, 0.001)
	assert.InDelta(t, 90.0, final.TotalOutflow, 0.001)
}

func TestSequenceRepository_ConcurrentNextOnPostgres(t *testing.T) {
	db := startPostgres(t)
	seq := postgres.NewSequenceRepository(db, zap.NewNop())
	ctx := context.Background()

	const workers = 15
	seen := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(ctx, "INT/2026")
			assert.NoError(t, err)
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int64]bool{}
	for n := range seen {
		unique[n] = true
	}
	assert.Len(t, unique, workers)
	assert.True(t, unique[workers])
}
