package ports

import (
	"context"

	"github.com/seu-repo/fuel-control/internal/domain"
)

// Transactor runs fn inside a database transaction. Repositories called with
// the ctx handed to fn join that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TankRepository interface {
	// FindDefault returns nil, nil when no tank exists yet.
	FindDefault(ctx context.Context) (*domain.Tank, error)
	FindByID(ctx context.Context, id uint) (*domain.Tank, error)
	// LockByID reads the tank row holding a write lock until the
	// surrounding transaction ends.
	LockByID(ctx context.Context, id uint) (*domain.Tank, error)
	Create(ctx context.Context, tank *domain.Tank) error
	Save(ctx context.Context, tank *domain.Tank) error
	// SumMovements returns the confirmed inflow and the dispensed outflow.
	SumMovements(ctx context.Context, tankID uint) (inflow, outflow float64, err error)
}

type RefuelingRepository interface {
	Create(ctx context.Context, r *domain.Refueling) error
	Save(ctx context.Context, r *domain.Refueling) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*domain.Refueling, error)
	List(ctx context.Context, filter domain.RefuelingFilter) ([]domain.Refueling, error)
	// FindPreviousConfirmed returns nil, nil when the vehicle has no earlier
	// confirmed record of the same reading kind.
	FindPreviousConfirmed(ctx context.Context, vehicleID uint, kind domain.ReadingKind, beforeID uint) (*domain.Refueling, error)
	FindLastConfirmed(ctx context.Context) (*domain.Refueling, error)
}

type IntakeRepository interface {
	Create(ctx context.Context, i *domain.Intake) error
	Save(ctx context.Context, i *domain.Intake) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*domain.Intake, error)
	List(ctx context.Context, filter domain.IntakeFilter) ([]domain.Intake, error)
}

type VehicleRepository interface {
	Save(ctx context.Context, v *domain.Vehicle) error
	FindByID(ctx context.Context, id uint) (*domain.Vehicle, error)
	FindByIDs(ctx context.Context, ids []uint) ([]domain.Vehicle, error)
}

type DriverRepository interface {
	Save(ctx context.Context, d *domain.Driver) error
	FindByID(ctx context.Context, id uint) (*domain.Driver, error)
}

type UserRepository interface {
	Save(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	// FindByEmail returns nil, nil for unknown addresses.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

type AuditRepository interface {
	Append(ctx context.Context, note *domain.AuditNote) error
	ListByEntity(ctx context.Context, entity domain.AuditEntity, id uint) ([]domain.AuditNote, error)
}

type AttachmentRepository interface {
	Save(ctx context.Context, a *domain.Attachment) error
	FindByID(ctx context.Context, id uint) (*domain.Attachment, error)
}
