package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/fuel-control/internal/domain"
)

type VehicleRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewVehicleRepository(db *gorm.DB, log *zap.Logger) *VehicleRepository {
	return &VehicleRepository{db: db, log: log}
}

func (r *VehicleRepository) Save(ctx context.Context, v *domain.Vehicle) error {
	return conn(ctx, r.db).Save(v).Error
}

func (r *VehicleRepository) FindByID(ctx context.Context, id uint) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := conn(ctx, r.db).First(&v, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *VehicleRepository) FindByIDs(ctx context.Context, ids []uint) ([]domain.Vehicle, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var vehicles []domain.Vehicle
	err := conn(ctx, r.db).Where("id IN ?", ids).Find(&vehicles).Error
	return vehicles, err
}

type DriverRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewDriverRepository(db *gorm.DB, log *zap.Logger) *DriverRepository {
	return &DriverRepository{db: db, log: log}
}

func (r *DriverRepository) Save(ctx context.Context, d *domain.Driver) error {
	return conn(ctx, r.db).Save(d).Error
}

func (r *DriverRepository) FindByID(ctx context.Context, id uint) (*domain.Driver, error) {
	var d domain.Driver
	err := conn(ctx, r.db).First(&d, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}
