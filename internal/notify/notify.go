// Package notify announces committed tier transitions to external observers.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// RoutingKey is the routing key of tier change messages.
const RoutingKey = "account.tier_changed"

// TierChanged is the message body published after a committed transition.
type TierChanged struct {
	AccountID  int64     `json:"accountId"`
	TargetTier string    `json:"targetTier"`
	ChangedAt  time.Time `json:"changedAt"`
}

// LogNotifier records transitions in the log only. It is used when no broker is configured.
type LogNotifier struct{}

// TierChanged logs the transition.
func (LogNotifier) TierChanged(_ context.Context, accountID int64, tier string) error {
	slog.Info("notify: tier changed", "accountId", accountID, "targetTier", tier)
	return nil
}
