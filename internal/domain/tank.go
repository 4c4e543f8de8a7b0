package domain

import (
	"time"
)

type TankStatus string

const (
	TankStatusCritical TankStatus = "critical"
	TankStatusWarning  TankStatus = "warning"
	TankStatusNormal   TankStatus = "normal"
)

// ColorClass is the presentation hint used by the dashboard gauge.
func (s TankStatus) ColorClass() string {
	switch s {
	case TankStatusNormal:
		return "success"
	case TankStatusWarning:
		return "warning"
	default:
		return "danger"
	}
}

// LevelThresholds classifies a fill percentage. Above NormalAbove is normal,
// WarningFrom..NormalAbove (both inclusive) is warning, below is critical.
type LevelThresholds struct {
	NormalAbove float64
	WarningFrom float64
}

func DefaultLevelThresholds() LevelThresholds {
	return LevelThresholds{NormalAbove: 50, WarningFrom: 20}
}

func (t LevelThresholds) Classify(percentage float64) TankStatus {
	switch {
	case percentage > t.NormalAbove:
		return TankStatusNormal
	case percentage >= t.WarningFrom:
		return TankStatusWarning
	default:
		return TankStatusCritical
	}
}

const (
	DefaultTankName     = "Main Tank"
	DefaultTankCapacity = 6000.0
)

type Tank struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Name           string     `json:"name" gorm:"size:128;not null"`
	Capacity       float64    `json:"capacity"`
	ManualBaseline float64    `json:"manual_baseline"`
	TotalInflow    float64    `json:"total_inflow"`
	TotalOutflow   float64    `json:"total_outflow"`
	CurrentStock   float64    `json:"current_stock"`
	FillPercentage float64    `json:"fill_percentage"`
	Status         TankStatus `json:"status" gorm:"size:16"`
	LastInflowAt   *time.Time `json:"last_inflow_at,omitempty"`
	LastOutflowAt  *time.Time `json:"last_outflow_at,omitempty"`
	Active         bool       `json:"active" gorm:"default:true"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ApplyTotals derives stock, percentage and status from the confirmed sums.
func (t *Tank) ApplyTotals(inflow, outflow float64, thresholds LevelThresholds) {
	t.TotalInflow = inflow
	t.TotalOutflow = outflow
	t.CurrentStock = t.ManualBaseline + inflow - outflow
	t.FillPercentage = 0
	if t.Capacity > 0 {
		t.FillPercentage = t.CurrentStock / t.Capacity * 100
	}
	t.Status = thresholds.Classify(t.FillPercentage)
}

func (t *Tank) HasAvailable(quantity float64) bool {
	return t.CurrentStock >= quantity
}

// CheckReserve validates that quantity can be drawn from the current stock.
func (t *Tank) CheckReserve(quantity float64) error {
	if quantity <= 0 {
		v := &ValidationError{}
		v.Add("quantity", "must be greater than zero")
		return v
	}
	if quantity > t.CurrentStock {
		return &InsufficientStockError{Available: t.CurrentStock, Requested: quantity}
	}
	return nil
}

// CheckReceive validates that quantity fits in the remaining capacity.
func (t *Tank) CheckReceive(quantity float64) error {
	if quantity <= 0 {
		v := &ValidationError{}
		v.Add("quantity", "must be greater than zero")
		return v
	}
	if t.CurrentStock+quantity > t.Capacity {
		return &CapacityExceededError{Capacity: t.Capacity, Current: t.CurrentStock, Requested: quantity}
	}
	return nil
}
