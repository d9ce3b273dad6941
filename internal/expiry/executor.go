package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/metrics"
	"github.com/daap14/tempaccess/internal/tier"
)

// Outcome is the result of handling one fire-event.
type Outcome string

const (
	OutcomeMalformed Outcome = "malformed"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeProtected Outcome = "protected"
	OutcomeStale     Outcome = "stale"
	OutcomeCommitted Outcome = "committed"
	// OutcomeFailed means a collaborator errored before the tier was changed.
	OutcomeFailed Outcome = "failed"
)

// Executor downgrades accounts when their fire-event is delivered.
type Executor struct {
	policy   Policy
	accounts AccountStore
	tiers    TierRegistry
	attrs    AttributeStore
	sessions SessionStore
	notifier Notifier
	now      func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorClock overrides the time source.
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.now = now
	}
}

// NewExecutor creates a new Executor.
func NewExecutor(
	policy Policy,
	accounts AccountStore,
	tiers TierRegistry,
	attrs AttributeStore,
	sessions SessionStore,
	notifier Notifier,
	opts ...ExecutorOption,
) *Executor {
	e := &Executor{
		policy:   policy,
		accounts: accounts,
		tiers:    tiers,
		attrs:    attrs,
		sessions: sessions,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle executes a fire-event. It never fails from the caller's point of view.
func (e *Executor) Handle(ctx context.Context, payload json.RawMessage) {
	e.Execute(ctx, payload)
}

// Execute re-validates the account against its persisted expiry and, if the
// expiry is due, commits the downgrade, revokes sessions, clears the expiry
// and notifies observers. Every path except commit leaves the tier unchanged.
func (e *Executor) Execute(ctx context.Context, payload json.RawMessage) Outcome {
	outcome := e.execute(ctx, payload)
	metrics.RecordTransition(string(outcome))
	return outcome
}

func (e *Executor) execute(ctx context.Context, raw json.RawMessage) Outcome {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		slog.Error("expiry: malformed fire-event", "payload", string(raw), "error", err)
		return OutcomeMalformed
	}
	p.TargetTier = strings.TrimSpace(p.TargetTier)
	if p.AccountID <= 0 || p.TargetTier == "" {
		slog.Error("expiry: malformed fire-event", "payload", string(raw))
		return OutcomeMalformed
	}

	acct, err := e.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			slog.Error("expiry: account not found", "accountId", p.AccountID)
			return OutcomeNotFound
		}
		slog.Error("expiry: failed to load account", "accountId", p.AccountID, "error", err)
		return OutcomeFailed
	}

	if e.policy.IsProtected(acct.Tiers) {
		slog.Info("expiry: skipped, account is protected", "accountId", p.AccountID)
		if err := clearAttributes(ctx, e.attrs, p.AccountID); err != nil {
			slog.Error("expiry: failed to clear expiry of protected account", "accountId", p.AccountID, "error", err)
		}
		return OutcomeProtected
	}

	target, err := e.resolveTarget(ctx, p)
	if err != nil {
		slog.Error("expiry: failed to resolve target tier", "accountId", p.AccountID, "targetTier", p.TargetTier, "error", err)
		return OutcomeFailed
	}

	rawTS, _, err := e.attrs.Get(ctx, p.AccountID, AttrTimestamp)
	if err != nil {
		slog.Error("expiry: failed to read expiry", "accountId", p.AccountID, "error", err)
		return OutcomeFailed
	}
	expiresAt := parseTimestamp(rawTS)
	if expiresAt == 0 || expiresAt > e.now().Unix() {
		slog.Info("expiry: aborted, fired early or expiry was cleared",
			"accountId", p.AccountID, "expiresAt", expiresAt)
		return OutcomeStale
	}

	if err := e.accounts.SetTier(ctx, p.AccountID, target); err != nil {
		slog.Error("expiry: failed to change tier", "accountId", p.AccountID, "targetTier", target, "error", err)
		return OutcomeFailed
	}
	slog.Info("expiry: tier changed", "accountId", p.AccountID, "targetTier", target)

	if n, err := e.sessions.InvalidateAll(ctx, p.AccountID); err != nil {
		slog.Error("expiry: failed to invalidate sessions", "accountId", p.AccountID, "error", err)
	} else {
		slog.Debug("expiry: sessions invalidated", "accountId", p.AccountID, "count", n)
	}

	if err := clearAttributes(ctx, e.attrs, p.AccountID); err != nil {
		slog.Error("expiry: failed to clear expiry after transition", "accountId", p.AccountID, "error", err)
	}

	if err := e.notifier.TierChanged(ctx, p.AccountID, target); err != nil {
		slog.Error("expiry: failed to publish tier change", "accountId", p.AccountID, "targetTier", target, "error", err)
	}

	return OutcomeCommitted
}

// resolveTarget substitutes the default tier for unknown or administrative targets.
func (e *Executor) resolveTarget(ctx context.Context, p Payload) (string, error) {
	if p.TargetTier == e.policy.AdminTier {
		slog.Warn("expiry: administrative target tier, falling back to default",
			"accountId", p.AccountID, "targetTier", p.TargetTier, "fallback", e.policy.DefaultTier)
		return e.policy.DefaultTier, nil
	}
	if _, err := e.tiers.GetByID(ctx, p.TargetTier); err != nil {
		if !errors.Is(err, tier.ErrTierNotFound) {
			return "", err
		}
		slog.Warn("expiry: unknown target tier, falling back to default",
			"accountId", p.AccountID, "targetTier", p.TargetTier, "fallback", e.policy.DefaultTier)
		return e.policy.DefaultTier, nil
	}
	return p.TargetTier, nil
}
