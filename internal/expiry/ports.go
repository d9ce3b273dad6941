package expiry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/jobs"
	"github.com/daap14/tempaccess/internal/tier"
)

// AttributeStore reads and writes per-account key/value attributes.
// SetAll writes every key or none.
type AttributeStore interface {
	Get(ctx context.Context, accountID int64, key string) (string, bool, error)
	SetAll(ctx context.Context, accountID int64, values map[string]string) error
	DeleteAll(ctx context.Context, accountID int64, keys ...string) error
}

// JobScheduler stores time-triggered events indexed by a subject key.
type JobScheduler interface {
	ScheduleAt(ctx context.Context, at time.Time, kind, key string, payload json.RawMessage) (*jobs.Event, error)
	CancelAll(ctx context.Context, kind, key string, match func(payload json.RawMessage) bool) (int, error)
}

// EventPurger drops every event of a kind.
type EventPurger interface {
	Pending(ctx context.Context, kind string) ([]jobs.Event, error)
	ClearAll(ctx context.Context, kind string) error
}

// AccountStore is the part of the account repository the executor needs.
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*account.Account, error)
	SetTier(ctx context.Context, id int64, tier string) error
}

// TierRegistry resolves tier ids.
type TierRegistry interface {
	GetByID(ctx context.Context, id string) (*tier.Tier, error)
}

// SessionStore revokes authenticated sessions.
type SessionStore interface {
	InvalidateAll(ctx context.Context, accountID int64) (int, error)
}

// Notifier announces committed tier transitions to external observers.
type Notifier interface {
	TierChanged(ctx context.Context, accountID int64, tier string) error
}

// AttributePurger deletes attribute keys across all accounts.
type AttributePurger interface {
	DeleteEverywhere(ctx context.Context, keys ...string) (int64, error)
}
