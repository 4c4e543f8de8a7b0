package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/fuel-control/internal/domain"
)

type RefuelingRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRefuelingRepository(db *gorm.DB, log *zap.Logger) *RefuelingRepository {
	return &RefuelingRepository{db: db, log: log}
}

func (r *RefuelingRepository) Create(ctx context.Context, ref *domain.Refueling) error {
	return conn(ctx, r.db).Create(ref).Error
}

func (r *RefuelingRepository) Save(ctx context.Context, ref *domain.Refueling) error {
	return conn(ctx, r.db).Save(ref).Error
}

func (r *RefuelingRepository) Delete(ctx context.Context, id uint) error {
	res := conn(ctx, r.db).Delete(&domain.Refueling{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RefuelingRepository) FindByID(ctx context.Context, id uint) (*domain.Refueling, error) {
	var ref domain.Refueling
	err := conn(ctx, r.db).First(&ref, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ref, nil
}

func (r *RefuelingRepository) List(ctx context.Context, filter domain.RefuelingFilter) ([]domain.Refueling, error) {
	q := conn(ctx, r.db).Model(&domain.Refueling{})
	if filter.From != nil {
		q = q.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("timestamp <= ?", *filter.To)
	}
	if filter.VehicleID != nil {
		q = q.Where("vehicle_id = ?", *filter.VehicleID)
	}
	if filter.DriverID != nil {
		q = q.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.TankID != nil {
		q = q.Where("tank_id = ?", *filter.TankID)
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var refs []domain.Refueling
	err := q.Order("timestamp desc").Order("id desc").Find(&refs).Error
	return refs, err
}

func (r *RefuelingRepository) FindPreviousConfirmed(ctx context.Context, vehicleID uint, kind domain.ReadingKind, beforeID uint) (*domain.Refueling, error) {
	var ref domain.Refueling
	err := conn(ctx, r.db).
		Where("vehicle_id = ? AND reading_kind = ? AND state = ? AND id < ?",
			vehicleID, kind, domain.StateConfirmed, beforeID).
		Order("timestamp desc").Order("id desc").
		First(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

func (r *RefuelingRepository) FindLastConfirmed(ctx context.Context) (*domain.Refueling, error) {
	var ref domain.Refueling
	err := conn(ctx, r.db).
		Where("state = ?", domain.StateConfirmed).
		Order("timestamp desc").Order("id desc").
		First(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}
