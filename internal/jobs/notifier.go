package jobs

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/binderbay/backend/internal/models"
)

// Notifier is the delivery sink for triggered alerts. Delivery transport
// (mail, push, webhooks) lives outside this core.
type Notifier interface {
	NotifyAlert(ctx context.Context, alert models.PriceAlert, trendCents int64) error
}

// LogNotifier writes triggered alerts to the log. The default sink when no
// delivery channel is wired up.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) NotifyAlert(ctx context.Context, alert models.PriceAlert, trendCents int64) error {
	n.log.Info().
		Str("alert", alert.ID).
		Str("user", alert.UserID).
		Str("card", alert.CardID).
		Str("direction", string(alert.Direction)).
		Int64("threshold_cents", alert.ThresholdCents).
		Int64("trend_cents", trendCents).
		Msg("Price alert triggered")
	return nil
}
