// Package events fans committed ledger changes out to the message queue,
// the dashboard cache and connected dashboards.
package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/observability/telemetry"
	"github.com/seu-repo/fuel-control/internal/ports"
)

// Invalidator drops cached read models.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// LiveMessage is the envelope pushed over the dashboard websocket.
type LiveMessage struct {
	Type  string            `json:"type"`
	Event domain.StockEvent `json:"event"`
}

type Dispatcher struct {
	mq          ports.MessageQueue
	hub         ports.Broadcaster
	invalidator Invalidator
	log         *zap.Logger
}

// NewDispatcher accepts nil collaborators; the matching fan-out is skipped.
func NewDispatcher(mq ports.MessageQueue, hub ports.Broadcaster, invalidator Invalidator, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		mq:          mq,
		hub:         hub,
		invalidator: invalidator,
		log:         log,
	}
}

// Dispatch never fails the caller: the ledger change is already committed.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.StockEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Error("Failed to encode event", zap.String("subject", event.Subject), zap.Error(err))
		return
	}

	if d.mq != nil {
		if err := d.mq.Publish(event.Subject, payload); err != nil {
			telemetry.EventsPublishedTotal.WithLabelValues(event.Subject, "error").Inc()
			d.log.Warn("Failed to publish event", zap.String("subject", event.Subject), zap.Error(err))
		} else {
			telemetry.EventsPublishedTotal.WithLabelValues(event.Subject, "ok").Inc()
		}
	}

	if d.invalidator != nil {
		if err := d.invalidator.Invalidate(ctx); err != nil {
			d.log.Warn("Failed to invalidate dashboard cache", zap.Error(err))
		}
	}

	if d.hub != nil {
		msg, err := json.Marshal(LiveMessage{Type: "stock", Event: event})
		if err == nil {
			d.hub.Broadcast(msg)
		}
	}
}
