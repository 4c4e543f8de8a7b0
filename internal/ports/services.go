package ports

import (
	"context"
	"time"

	"github.com/seu-repo/fuel-control/internal/domain"
)

type TankService interface {
	GetOrCreateDefault(ctx context.Context) (*domain.Tank, error)
	Get(ctx context.Context, tankID uint) (*domain.Tank, error)
	Recompute(ctx context.Context, tankID uint) (*domain.Tank, error)
	HasAvailable(ctx context.Context, tankID uint, quantity float64) (bool, error)
	Reserve(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error)
	Receive(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error)
	Lock(ctx context.Context, tankID uint) (*domain.Tank, error)
	AdjustBaseline(ctx context.Context, actor *domain.User, tankID uint, baseline float64) (*domain.Tank, error)
	AbsorbOutflow(ctx context.Context, actor *domain.User, tankID uint, quantity float64, reason string) (*domain.Tank, error)
}

type RefuelingInput struct {
	SequenceNumber string             `json:"sequence_number"`
	Timestamp      *time.Time         `json:"timestamp"`
	VehicleID      uint               `json:"vehicle_id"`
	DriverID       *uint              `json:"driver_id"`
	TankID         *uint              `json:"tank_id"`
	GaugeReading   float64            `json:"gauge_reading"`
	ReadingKind    domain.ReadingKind `json:"reading_kind"`
	Quantity       float64            `json:"quantity"`
	UnitPrice      float64            `json:"unit_price"`
	Notes          string             `json:"notes"`
}

// RefuelingPatch holds optional edits; nil fields are left untouched.
type RefuelingPatch struct {
	Timestamp    *time.Time          `json:"timestamp"`
	VehicleID    *uint               `json:"vehicle_id"`
	DriverID     *uint               `json:"driver_id"`
	GaugeReading *float64            `json:"gauge_reading"`
	ReadingKind  *domain.ReadingKind `json:"reading_kind"`
	Quantity     *float64            `json:"quantity"`
	UnitPrice    *float64            `json:"unit_price"`
	Notes        *string             `json:"notes"`
}

type RefuelingService interface {
	Create(ctx context.Context, actor *domain.User, in RefuelingInput) (*domain.Refueling, error)
	Update(ctx context.Context, actor *domain.User, id uint, patch RefuelingPatch) (*domain.Refueling, error)
	Delete(ctx context.Context, actor *domain.User, id uint) error
	Confirm(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error)
	Cancel(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error)
	Reopen(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error)
	Get(ctx context.Context, id uint) (*domain.Refueling, error)
	List(ctx context.Context, filter domain.RefuelingFilter) ([]domain.Refueling, error)
	AttachReceipt(ctx context.Context, actor *domain.User, id uint, filename, contentType string, data []byte) (*domain.Refueling, error)
}

type IntakeInput struct {
	Reference     string     `json:"reference"`
	Timestamp     *time.Time `json:"timestamp"`
	TankID        *uint      `json:"tank_id"`
	Quantity      float64    `json:"quantity"`
	UnitPrice     float64    `json:"unit_price"`
	Supplier      string     `json:"supplier"`
	InvoiceNumber string     `json:"invoice_number"`
	Notes         string     `json:"notes"`
}

type IntakePatch struct {
	Timestamp     *time.Time `json:"timestamp"`
	Quantity      *float64   `json:"quantity"`
	UnitPrice     *float64   `json:"unit_price"`
	Supplier      *string    `json:"supplier"`
	InvoiceNumber *string    `json:"invoice_number"`
	Notes         *string    `json:"notes"`
}

type IntakeService interface {
	Create(ctx context.Context, actor *domain.User, in IntakeInput) (*domain.Intake, error)
	Update(ctx context.Context, actor *domain.User, id uint, patch IntakePatch) (*domain.Intake, error)
	Delete(ctx context.Context, actor *domain.User, id uint) error
	Confirm(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error)
	Cancel(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error)
	Reopen(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error)
	Get(ctx context.Context, id uint) (*domain.Intake, error)
	List(ctx context.Context, filter domain.IntakeFilter) ([]domain.Intake, error)
}

type DashboardService interface {
	Summary(ctx context.Context, query domain.DashboardQuery) (*domain.DashboardSummary, error)
	Invalidate(ctx context.Context) error
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, actor *domain.User, user *domain.User, password string) error
	ValidateToken(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, token string) error
}

// EventDispatcher fans a committed ledger change out to the event bus, the
// dashboard cache and live clients.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.StockEvent)
}

// StockNotifier reacts to tank level transitions.
type StockNotifier interface {
	NotifyIfCritical(ctx context.Context, before, after *domain.Tank) error
}

type ReportService interface {
	RefuelingWorkbook(ctx context.Context, filter domain.RefuelingFilter) ([]byte, error)
}
