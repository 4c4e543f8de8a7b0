package domain

import (
	"time"
)

// Intake is a fuel receipt into a tank.
type Intake struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	Reference     string        `json:"reference" gorm:"size:32;uniqueIndex"`
	Timestamp     time.Time     `json:"timestamp" gorm:"index"`
	TankID        uint          `json:"tank_id" gorm:"index"`
	Quantity      float64       `json:"quantity"`
	UnitPrice     float64       `json:"unit_price"`
	TotalAmount   float64       `json:"total_amount"`
	Supplier      string        `json:"supplier,omitempty" gorm:"size:128"`
	InvoiceNumber string        `json:"invoice_number,omitempty" gorm:"size:64"`
	Notes         string        `json:"notes,omitempty"`
	RecorderID    uint          `json:"recorder_id"`
	State         DocumentState `json:"state" gorm:"size:16;index"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (i *Intake) ComputeTotal() {
	i.TotalAmount = i.Quantity * i.UnitPrice
}

func (i *Intake) Validate() error {
	v := &ValidationError{}
	if i.Quantity <= 0 {
		v.Add("quantity", "must be greater than zero")
	}
	if i.UnitPrice < 0 {
		v.Add("unit_price", "cannot be negative")
	}
	return v.OrNil()
}

type IntakeFilter struct {
	From   *time.Time
	To     *time.Time
	TankID *uint
	State  DocumentState
	Limit  int
	Offset int
}

type IntakeResult struct {
	Processed []*Intake `json:"processed"`
	Skipped   []uint    `json:"skipped"`
	Tank      *Tank     `json:"tank,omitempty"`
}
