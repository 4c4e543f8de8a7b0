package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/fuel-control/internal/domain"
)

type TankRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTankRepository(db *gorm.DB, log *zap.Logger) *TankRepository {
	return &TankRepository{db: db, log: log}
}

func (r *TankRepository) FindDefault(ctx context.Context) (*domain.Tank, error) {
	var tank domain.Tank
	err := conn(ctx, r.db).Where("active = ?", true).Order("id asc").First(&tank).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tank, nil
}

func (r *TankRepository) FindByID(ctx context.Context, id uint) (*domain.Tank, error) {
	var tank domain.Tank
	err := conn(ctx, r.db).First(&tank, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &tank, nil
}

// LockByID issues SELECT ... FOR UPDATE; dialects without row locks ignore
// the clause.
func (r *TankRepository) LockByID(ctx context.Context, id uint) (*domain.Tank, error) {
	var tank domain.Tank
	err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&tank, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &tank, nil
}

func (r *TankRepository) Create(ctx context.Context, tank *domain.Tank) error {
	return conn(ctx, r.db).Create(tank).Error
}

func (r *TankRepository) Save(ctx context.Context, tank *domain.Tank) error {
	return conn(ctx, r.db).Save(tank).Error
}

func (r *TankRepository) SumMovements(ctx context.Context, tankID uint) (float64, float64, error) {
	var inflow, outflow float64

	err := conn(ctx, r.db).Model(&domain.Intake{}).
		Where("tank_id = ? AND state = ?", tankID, domain.StateConfirmed).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&inflow).Error
	if err != nil {
		return 0, 0, err
	}

	// Cancelled refuelings that were dispensed keep counting: cancellation
	// never puts fuel back in the tank.
	err = conn(ctx, r.db).Model(&domain.Refueling{}).
		Where("tank_id = ? AND (state = ? OR (state = ? AND dispensed_at IS NOT NULL))",
			tankID, domain.StateConfirmed, domain.StateCancelled).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&outflow).Error
	if err != nil {
		return 0, 0, err
	}

	return inflow, outflow, nil
}
