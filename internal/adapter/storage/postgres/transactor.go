package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txKey struct{}

// Transactor stores the open *gorm.DB transaction in the context so every
// repository reached through that context joins it.
type Transactor struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTransactor(db *gorm.DB, log *zap.Logger) *Transactor {
	return &Transactor{db: db, log: log}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction bound to ctx, or the pool.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
