package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/fuel-control/internal/domain"
)

type IntakeRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewIntakeRepository(db *gorm.DB, log *zap.Logger) *IntakeRepository {
	return &IntakeRepository{db: db, log: log}
}

func (r *IntakeRepository) Create(ctx context.Context, in *domain.Intake) error {
	return conn(ctx, r.db).Create(in).Error
}

func (r *IntakeRepository) Save(ctx context.Context, in *domain.Intake) error {
	return conn(ctx, r.db).Save(in).Error
}

func (r *IntakeRepository) Delete(ctx context.Context, id uint) error {
	res := conn(ctx, r.db).Delete(&domain.Intake{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *IntakeRepository) FindByID(ctx context.Context, id uint) (*domain.Intake, error) {
	var in domain.Intake
	err := conn(ctx, r.db).First(&in, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &in, nil
}

func (r *IntakeRepository) List(ctx context.Context, filter domain.IntakeFilter) ([]domain.Intake, error) {
	q := conn(ctx, r.db).Model(&domain.Intake{})
	if filter.From != nil {
		q = q.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("timestamp <= ?", *filter.To)
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

	var intakes []domain.Intake
	err := q.Order("timestamp desc").Order("id desc").Find(&intakes).Error
	return intakes, err
}
