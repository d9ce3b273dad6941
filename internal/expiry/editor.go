package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/tier"
)

// TierLister enumerates the tier registry in catalog order.
type TierLister interface {
	List(ctx context.Context) ([]tier.Tier, error)
}

// Editor serves expiry edits of already authorized callers.
type Editor struct {
	policy    Policy
	scheduler *Scheduler
	tiers     TierLister
	now       func() time.Time
}

// NewEditor creates a new Editor.
func NewEditor(policy Policy, scheduler *Scheduler, tiers TierLister) *Editor {
	return &Editor{policy: policy, scheduler: scheduler, tiers: tiers, now: time.Now}
}

// Submit parses req against the account's current tiers and applies the result.
// It returns the applied spec, or nil when the account ends up permanent.
func (e *Editor) Submit(ctx context.Context, acct *account.Account, req Request) (*Spec, error) {
	catalog, err := e.tiers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tiers: %w", err)
	}

	spec := e.policy.Parse(acct.ID, req, catalog, acct.Tiers, e.now())
	if e.policy.IsProtected(acct.Tiers) {
		spec = nil
	}
	if err := e.scheduler.Apply(ctx, acct.ID, spec, acct.Tiers); err != nil {
		return nil, err
	}
	return spec, nil
}

// Form reconstructs the re-edit form of an account.
func (e *Editor) Form(ctx context.Context, acct *account.Account) (Form, error) {
	catalog, err := e.tiers.List(ctx)
	if err != nil {
		return Form{}, fmt.Errorf("listing tiers: %w", err)
	}
	st, err := e.scheduler.Current(ctx, acct.ID)
	if err != nil {
		return Form{}, err
	}
	return e.policy.Form(st, catalog, acct.Tiers, e.now()), nil
}

// Status summarizes the persisted expiry of an account for listings.
func (e *Editor) Status(ctx context.Context, accountID int64, tierNames map[string]string) (Status, error) {
	st, err := e.scheduler.Current(ctx, accountID)
	if err != nil {
		return Status{}, err
	}
	return e.policy.Status(st, tierNames, e.now()), nil
}

// Clear removes the expiry of an account, used when it is promoted to a protected tier.
func (e *Editor) Clear(ctx context.Context, accountID int64) error {
	return e.scheduler.Clear(ctx, accountID)
}

// IsProtected reports whether accounts holding tiers are exempt from expiry.
func (e *Editor) IsProtected(tiers []string) bool {
	return e.policy.IsProtected(tiers)
}
