package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/metrics"
)

// EventCompanyNotified tags mirrored notifications.
const EventCompanyNotified = "company.notified"

// Publisher mirrors payloads to a message bus.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) (string, error)
}

// Relay delivers a notification to the primary notifier and copies it to
// any mirrors. Mirror failures are logged and never change the outcome.
type Relay struct {
	primary harvest.Notifier
	mirrors []Publisher
	logger  *zap.Logger
}

// NewRelay constructs a Relay. Nil mirrors are ignored.
func NewRelay(primary harvest.Notifier, logger *zap.Logger, mirrors ...Publisher) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Publisher, 0, len(mirrors))
	for _, m := range mirrors {
		if m != nil {
			kept = append(kept, m)
		}
	}
	return &Relay{primary: primary, mirrors: kept, logger: logger}
}

// Notify implements harvest.Notifier.
func (r *Relay) Notify(ctx context.Context, n harvest.Notification) (harvest.NotificationResponse, error) {
	resp, err := r.primary.Notify(ctx, n)
	metrics.ObserveNotification(err == nil)
	if err != nil {
		r.logger.Warn("notification failed", zap.String("company", n.CompanyName), zap.Error(err))
	} else {
		r.logger.Info("notification delivered", zap.String("company", n.CompanyName), zap.String("message", resp.Message))
	}
	for _, m := range r.mirrors {
		if _, mErr := m.Publish(ctx, EventCompanyNotified, n); mErr != nil {
			r.logger.Warn("notification mirror failed", zap.String("company", n.CompanyName), zap.Error(mErr))
		}
	}
	return resp, err //nolint:wrapcheck
}
