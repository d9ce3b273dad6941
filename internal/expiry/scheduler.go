package expiry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/daap14/tempaccess/internal/metrics"
)

// Scheduler owns the persisted expiry state of accounts and their pending fire-events.
type Scheduler struct {
	policy Policy
	attrs  AttributeStore
	jobs   JobScheduler
	now    func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock overrides the time source.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(policy Policy, attrs AttributeStore, jobs JobScheduler, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		policy: policy,
		attrs:  attrs,
		jobs:   jobs,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply replaces the expiry of an account. A nil spec clears it. Protected
// accounts are always cleared whatever spec is given. Any pending fire-event
// for the account is cancelled before a new one is scheduled.
func (s *Scheduler) Apply(ctx context.Context, accountID int64, spec *Spec, currentTiers []string) error {
	if s.policy.IsProtected(currentTiers) {
		slog.Info("expiry: account is protected, clearing expiry", "accountId", accountID)
		return s.Clear(ctx, accountID)
	}

	if _, err := s.cancel(ctx, accountID); err != nil {
		return err
	}

	if spec != nil && spec.ExpiresAt <= s.now().Unix() {
		slog.Warn("expiry: refusing to schedule a past expiry", "accountId", accountID, "expiresAt", spec.ExpiresAt)
		spec = nil
	}

	if spec == nil {
		if err := s.clearAttributes(ctx, accountID); err != nil {
			return err
		}
		metrics.RecordCleared()
		return nil
	}

	if err := s.persist(ctx, accountID, spec); err != nil {
		s.rollback(ctx, accountID)
		return err
	}

	payload, err := json.Marshal(Payload{AccountID: accountID, TargetTier: spec.TargetTier})
	if err != nil {
		return fmt.Errorf("encoding fire-event payload: %w", err)
	}
	ev, err := s.jobs.ScheduleAt(ctx, time.Unix(spec.ExpiresAt, 0), EventKind, AccountKey(accountID), payload)
	if err != nil {
		s.rollback(ctx, accountID)
		return fmt.Errorf("scheduling fire-event: %w", err)
	}

	metrics.RecordScheduled()
	slog.Info("expiry: scheduled",
		"accountId", accountID,
		"eventId", ev.ID,
		"expiresAt", spec.ExpiresAt,
		"targetTier", spec.TargetTier,
	)
	return nil
}

// Clear removes the persisted expiry and every pending fire-event of an account.
func (s *Scheduler) Clear(ctx context.Context, accountID int64) error {
	if _, err := s.cancel(ctx, accountID); err != nil {
		return err
	}
	if err := s.clearAttributes(ctx, accountID); err != nil {
		return err
	}
	metrics.RecordCleared()
	return nil
}

// Current reads the persisted expiry of an account. Missing or unparsable
// timestamps read as zero.
func (s *Scheduler) Current(ctx context.Context, accountID int64) (State, error) {
	return readState(ctx, s.attrs, accountID)
}

func (s *Scheduler) cancel(ctx context.Context, accountID int64) (int, error) {
	n, err := s.jobs.CancelAll(ctx, EventKind, AccountKey(accountID), MatchAccount(accountID))
	if err != nil {
		return 0, fmt.Errorf("cancelling fire-events: %w", err)
	}
	if n > 0 {
		metrics.RecordCancelled(n)
		slog.Debug("expiry: cancelled pending fire-events", "accountId", accountID, "count", n)
	}
	return n, nil
}

func (s *Scheduler) persist(ctx context.Context, accountID int64, spec *Spec) error {
	values := map[string]string{
		AttrTimestamp:  strconv.FormatInt(spec.ExpiresAt, 10),
		AttrTargetTier: spec.TargetTier,
		AttrDisplay:    spec.DisplayLabel,
	}
	if err := s.attrs.SetAll(ctx, accountID, values); err != nil {
		return fmt.Errorf("persisting expiry: %w", err)
	}
	return nil
}

// rollback drops the attributes of an account whose fire-event was cancelled.
func (s *Scheduler) rollback(ctx context.Context, accountID int64) {
	if err := s.clearAttributes(ctx, accountID); err != nil {
		slog.Error("expiry: failed to roll back attributes", "accountId", accountID, "error", err)
	}
}

func (s *Scheduler) clearAttributes(ctx context.Context, accountID int64) error {
	return clearAttributes(ctx, s.attrs, accountID)
}

func clearAttributes(ctx context.Context, attrs AttributeStore, accountID int64) error {
	if err := attrs.DeleteAll(ctx, accountID, AttributeKeys...); err != nil {
		return fmt.Errorf("clearing expiry: %w", err)
	}
	return nil
}

func readState(ctx context.Context, attrs AttributeStore, accountID int64) (State, error) {
	var st State

	raw, _, err := attrs.Get(ctx, accountID, AttrTimestamp)
	if err != nil {
		return State{}, fmt.Errorf("reading %s: %w", AttrTimestamp, err)
	}
	st.ExpiresAt = parseTimestamp(raw)

	if st.TargetTier, _, err = attrs.Get(ctx, accountID, AttrTargetTier); err != nil {
		return State{}, fmt.Errorf("reading %s: %w", AttrTargetTier, err)
	}
	if st.DisplayLabel, _, err = attrs.Get(ctx, accountID, AttrDisplay); err != nil {
		return State{}, fmt.Errorf("reading %s: %w", AttrDisplay, err)
	}
	return st, nil
}

func parseTimestamp(raw string) int64 {
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ts < 0 {
		return 0
	}
	return ts
}

// AccountKey is the queue index key of an account's fire-events.
func AccountKey(accountID int64) string {
	return strconv.FormatInt(accountID, 10)
}

// MatchAccount returns a payload predicate selecting fire-events of one account.
// Payloads that do not decode never match.
func MatchAccount(accountID int64) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return false
		}
		return p.AccountID == accountID
	}
}
