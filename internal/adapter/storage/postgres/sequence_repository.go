package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sequenceRow struct {
	Code      string `gorm:"primaryKey;size:64"`
	NextValue int64
}

func (sequenceRow) TableName() string { return "sequences" }

// SequenceRepository is the database-backed sequence generator used when
// redis is disabled.
type SequenceRepository struct {
	db  *gorm.DB
	log *zap.Logger
	tx  *Transactor
}

func NewSequenceRepository(db *gorm.DB, log *zap.Logger) *SequenceRepository {
	return &SequenceRepository{db: db, log: log, tx: NewTransactor(db, log)}
}

func (r *SequenceRepository) Next(ctx context.Context, key string) (int64, error) {
	var value int64
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		seed := sequenceRow{Code: key, NextValue: 1}
		if err := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var row sequenceRow
		err := conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "code = ?", key).Error
		if err != nil {
			return err
		}

		value = row.NextValue
		return conn(ctx, r.db).Model(&sequenceRow{}).
			Where("code = ?", key).
			Update("next_value", row.NextValue+1).Error
	})
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", key, err)
	}
	return value, nil
}
