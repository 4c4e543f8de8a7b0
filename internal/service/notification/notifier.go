// Package notification alerts people when the tank runs low.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/observability/telemetry"
	"github.com/seu-repo/fuel-control/internal/ports"
)

type LowStockNotifier struct {
	provider   ports.EmailProvider
	mq         ports.MessageQueue
	recipients []string
	log        *zap.Logger
}

func NewLowStockNotifier(provider ports.EmailProvider, mq ports.MessageQueue, recipients []string, log *zap.Logger) *LowStockNotifier {
	return &LowStockNotifier{
		provider:   provider,
		mq:         mq,
		recipients: recipients,
		log:        log,
	}
}

// NotifyIfCritical alerts once when a tank enters the critical band. A tank
// that was already critical does not alert again.
func (n *LowStockNotifier) NotifyIfCritical(ctx context.Context, before, after *domain.Tank) error {
	if after == nil || after.Status != domain.TankStatusCritical {
		return nil
	}
	if before != nil && before.Status == domain.TankStatusCritical {
		return nil
	}

	telemetry.LowStockAlertsTotal.Inc()
	n.log.Warn("Tank level critical",
		zap.Uint("tank_id", after.ID),
		zap.Float64("stock", after.CurrentStock),
		zap.Float64("percentage", after.FillPercentage),
	)

	if n.mq != nil {
		payload, err := json.Marshal(domain.NewStockEvent(domain.SubjectTankLevelCritical, after, 0, 0))
		if err == nil {
			if err := n.mq.Publish(domain.SubjectTankLevelCritical, payload); err != nil {
				n.log.Warn("Failed to publish critical level event", zap.Error(err))
			}
		}
	}

	if n.provider == nil || len(n.recipients) == 0 {
		return nil
	}
	subject, body := criticalMessage(after)
	if err := n.provider.Send(ctx, n.recipients, subject, body); err != nil {
		return fmt.Errorf("send low stock alert: %w", err)
	}
	return nil
}

func criticalMessage(t *domain.Tank) (string, string) {
	subject := fmt.Sprintf("[Fuel] %s is at %.1f%%", t.Name, t.FillPercentage)
	body := fmt.Sprintf(
		"The tank %s reached a critical level.\n\nStock: %.2f L of %.2f L (%.1f%%)\n\nSchedule a fuel intake.",
		t.Name, t.CurrentStock, t.Capacity, t.FillPercentage,
	)
	return subject, body
}
