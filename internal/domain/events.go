package domain

import "time"

const (
	SubjectRefuelingConfirmed = "fuel.refueling.confirmed"
	SubjectRefuelingCancelled = "fuel.refueling.cancelled"
	SubjectIntakeConfirmed    = "fuel.intake.confirmed"
	SubjectIntakeCancelled    = "fuel.intake.cancelled"
	SubjectTankRecomputed     = "fuel.tank.recomputed"
	SubjectTankLevelCritical  = "fuel.tank.level.critical"
)

// StockEvent is published after a committed change to the ledger.
type StockEvent struct {
	Subject    string     `json:"subject"`
	EntityIDs  []uint     `json:"entity_ids,omitempty"`
	TankID     uint       `json:"tank_id"`
	Quantity   float64    `json:"quantity"`
	Stock      float64    `json:"stock"`
	Percentage float64    `json:"percentage"`
	Status     TankStatus `json:"status"`
	ActorID    uint       `json:"actor_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// NewStockEvent snapshots tank figures into an event.
func NewStockEvent(subject string, tank *Tank, quantity float64, actorID uint, ids ...uint) StockEvent {
	e := StockEvent{
		Subject:    subject,
		EntityIDs:  ids,
		Quantity:   quantity,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	if tank != nil {
		e.TankID = tank.ID
		e.Stock = tank.CurrentStock
		e.Percentage = tank.FillPercentage
		e.Status = tank.Status
	}
	return e
}
