package domain

import (
	"time"
)

type ReadingKind string

const (
	ReadingOdometer  ReadingKind = "odometer"
	ReadingHourMeter ReadingKind = "hour_meter"
)

func (k ReadingKind) Valid() bool {
	return k == ReadingOdometer || k == ReadingHourMeter
}

// Refueling is a stock-out event tied to a vehicle.
type Refueling struct {
	ID             uint          `json:"id" gorm:"primaryKey"`
	SequenceNumber string        `json:"sequence_number" gorm:"size:32;uniqueIndex"`
	Timestamp      time.Time     `json:"timestamp" gorm:"index"`
	VehicleID      uint          `json:"vehicle_id" gorm:"index"`
	LicensePlate   string        `json:"license_plate" gorm:"size:16"`
	DriverID       *uint         `json:"driver_id,omitempty" gorm:"index"`
	RecorderID     uint          `json:"recorder_id"`
	TankID         uint          `json:"tank_id" gorm:"index"`
	GaugeReading   float64       `json:"gauge_reading"`
	ReadingKind    ReadingKind   `json:"reading_kind" gorm:"size:16"`
	Quantity       float64       `json:"quantity"`
	UnitPrice      float64       `json:"unit_price"`
	TotalAmount    float64       `json:"total_amount"`
	State          DocumentState `json:"state" gorm:"size:16;index"`
	Notes          string        `json:"notes,omitempty"`
	AttachmentID   *uint         `json:"attachment_id,omitempty"`
	// DispensedAt is set when the fuel left the tank. It survives
	// cancellation so the ledger keeps counting the outflow.
	DispensedAt *time.Time `json:"dispensed_at,omitempty"`

	PreviousReading  float64 `json:"previous_reading"`
	DistanceCovered  float64 `json:"distance_covered"`
	DistancePerLiter float64 `json:"distance_per_liter"`
	CostPerDistance  float64 `json:"cost_per_distance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Refueling) ComputeTotal() {
	r.TotalAmount = r.Quantity * r.UnitPrice
}

// Validate checks the invariants enforced on every save.
func (r *Refueling) Validate() error {
	v := &ValidationError{}
	if r.VehicleID == 0 {
		v.Add("vehicle_id", "is required")
	}
	if r.Quantity <= 0 {
		v.Add("quantity", "must be greater than zero")
	}
	if r.UnitPrice <= 0 {
		v.Add("unit_price", "must be greater than zero")
	}
	if r.GaugeReading < 0 {
		v.Add("gauge_reading", "cannot be negative")
	}
	if !r.ReadingKind.Valid() {
		v.Add("reading_kind", "must be odometer or hour_meter")
	}
	return v.OrNil()
}

// Efficiency holds the consumption figures derived against the previous
// confirmed record of the same vehicle and reading kind.
type Efficiency struct {
	PreviousReading  float64
	DistanceCovered  float64
	DistancePerLiter float64
	CostPerDistance  float64
}

// ComputeEfficiency derives consumption figures. A nil previous record
// yields zeroes.
func ComputeEfficiency(reading, quantity, total float64, previous *Refueling) Efficiency {
	if previous == nil {
		return Efficiency{}
	}
	e := Efficiency{
		PreviousReading: previous.GaugeReading,
		DistanceCovered: reading - previous.GaugeReading,
	}
	if quantity > 0 {
		e.DistancePerLiter = e.DistanceCovered / quantity
	}
	if e.DistanceCovered > 0 {
		e.CostPerDistance = total / e.DistanceCovered
	}
	return e
}

// ApplyEfficiency stores the derived figures; only confirmed records carry them.
func (r *Refueling) ApplyEfficiency(previous *Refueling) {
	e := Efficiency{}
	if r.State == StateConfirmed {
		e = ComputeEfficiency(r.GaugeReading, r.Quantity, r.TotalAmount, previous)
	}
	r.PreviousReading = e.PreviousReading
	r.DistanceCovered = e.DistanceCovered
	r.DistancePerLiter = e.DistancePerLiter
	r.CostPerDistance = e.CostPerDistance
}

type RefuelingFilter struct {
	From      *time.Time
	To        *time.Time
	VehicleID *uint
	DriverID  *uint
	TankID    *uint
	State     DocumentState
	Limit     int
	Offset    int
}

// RefuelingResult is the outcome of a batch workflow action.
type RefuelingResult struct {
	Processed []*Refueling `json:"processed"`
	Skipped   []uint       `json:"skipped"`
	Tank      *Tank        `json:"tank,omitempty"`
}
