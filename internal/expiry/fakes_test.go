package expiry_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/expiry"
	"github.com/daap14/tempaccess/internal/jobs"
	"github.com/daap14/tempaccess/internal/tier"
)

var testCatalog = []tier.Tier{
	{ID: "administrator", Name: "Administrator", Position: 1},
	{ID: "editor", Name: "Editor", Position: 2},
	{ID: "author", Name: "Author", Position: 3},
	{ID: "contributor", Name: "Contributor", Position: 4},
	{ID: "subscriber", Name: "Subscriber", Position: 5},
}

var testPolicy = expiry.Policy{
	AdminTier:   "administrator",
	DefaultTier: "subscriber",
	Location:    time.UTC,
}

// --- Attribute store ---

type memAttrs struct {
	mu     sync.Mutex
	values map[int64]map[string]string
	getErr error
	setErr error
}

func newMemAttrs() *memAttrs {
	return &memAttrs{values: make(map[int64]map[string]string)}
}

func (m *memAttrs) Get(_ context.Context, accountID int64, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[accountID][key]
	return v, ok, nil
}

func (m *memAttrs) Set(_ context.Context, accountID int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[accountID] == nil {
		m.values[accountID] = make(map[string]string)
	}
	m.values[accountID][key] = value
	return nil
}

func (m *memAttrs) SetAll(_ context.Context, accountID int64, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.values[accountID] == nil {
		m.values[accountID] = make(map[string]string)
	}
	for k, v := range values {
		m.values[accountID][k] = v
	}
	return nil
}

func (m *memAttrs) DeleteAll(_ context.Context, accountID int64, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values[accountID], k)
	}
	return nil
}

func (m *memAttrs) DeleteEverywhere(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, attrs := range m.values {
		for _, k := range keys {
			if _, ok := attrs[k]; ok {
				delete(attrs, k)
				n++
			}
		}
	}
	return n, nil
}

func (m *memAttrs) count(accountID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values[accountID])
}

// --- Job scheduler ---

type memJobs struct {
	mu          sync.Mutex
	seq         int
	events      map[string]jobs.Event
	scheduleErr error
	cancelErr   error
}

func newMemJobs() *memJobs {
	return &memJobs{events: make(map[string]jobs.Event)}
}

func (m *memJobs) ScheduleAt(_ context.Context, at time.Time, kind, key string, payload json.RawMessage) (*jobs.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduleErr != nil {
		return nil, m.scheduleErr
	}
	m.seq++
	ev := jobs.Event{ID: fmt.Sprintf("ev-%d", m.seq), Kind: kind, Key: key, RunAt: at, Payload: payload}
	m.events[ev.ID] = ev
	return &ev, nil
}

func (m *memJobs) CancelAll(_ context.Context, kind, key string, match func(json.RawMessage) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelErr != nil {
		return 0, m.cancelErr
	}
	n := 0
	for id, ev := range m.events {
		if ev.Kind == kind && ev.Key == key && (match == nil || match(ev.Payload)) {
			delete(m.events, id)
			n++
		}
	}
	return n, nil
}

func (m *memJobs) Pending(_ context.Context, kind string) ([]jobs.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jobs.Event
	for _, ev := range m.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memJobs) ClearAll(_ context.Context, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ev := range m.events {
		if ev.Kind == kind {
			delete(m.events, id)
		}
	}
	return nil
}

func (m *memJobs) pendingFor(accountID int64) []jobs.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	match := expiry.MatchAccount(accountID)
	var out []jobs.Event
	for _, ev := range m.events {
		if match(ev.Payload) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- Account store ---

type memAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*account.Account
	getErr   error
	setErr   error
}

func newMemAccounts(accts ...account.Account) *memAccounts {
	m := &memAccounts{accounts: make(map[int64]*account.Account)}
	for i := range accts {
		a := accts[i]
		m.accounts[a.ID] = &a
	}
	return m
}

func (m *memAccounts) GetByID(_ context.Context, id int64) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	cp := *a
	cp.Tiers = append([]string(nil), a.Tiers...)
	return &cp, nil
}

func (m *memAccounts) SetTier(_ context.Context, id int64, t string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return account.ErrAccountNotFound
	}
	a.Tiers = []string{t}
	return nil
}

func (m *memAccounts) tiersOf(id int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.accounts[id].Tiers...)
}

// --- Tier registry ---

type memTiers struct {
	tiers []tier.Tier
	err   error
}

func (m *memTiers) GetByID(_ context.Context, id string) (*tier.Tier, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.tiers {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, tier.ErrTierNotFound
}

// --- Sessions ---

type memSessions struct {
	mu          sync.Mutex
	invalidated []int64
	err         error
}

func (m *memSessions) InvalidateAll(_ context.Context, accountID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.invalidated = append(m.invalidated, accountID)
	return 1, nil
}

// --- Notifier ---

type tierChange struct {
	AccountID int64
	Tier      string
}

type memNotifier struct {
	mu      sync.Mutex
	changes []tierChange
	err     error
}

func (m *memNotifier) TierChanged(_ context.Context, accountID int64, t string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, tierChange{AccountID: accountID, Tier: t})
	return m.err
}

// --- Harness ---

type harness struct {
	now      time.Time
	attrs    *memAttrs
	jobs     *memJobs
	accounts *memAccounts
	tiers    *memTiers
	sessions *memSessions
	notifier *memNotifier
}

func newHarness(now time.Time, accts ...account.Account) *harness {
	return &harness{
		now:      now,
		attrs:    newMemAttrs(),
		jobs:     newMemJobs(),
		accounts: newMemAccounts(accts...),
		tiers:    &memTiers{tiers: testCatalog},
		sessions: &memSessions{},
		notifier: &memNotifier{},
	}
}

func (h *harness) clock() time.Time { return h.now }

func (h *harness) scheduler() *expiry.Scheduler {
	return expiry.NewScheduler(testPolicy, h.attrs, h.jobs, expiry.WithSchedulerClock(h.clock))
}

func (h *harness) executor() *expiry.Executor {
	return expiry.NewExecutor(testPolicy, h.accounts, h.tiers, h.attrs, h.sessions, h.notifier,
		expiry.WithExecutorClock(h.clock))
}

func payload(accountID int64, target string) json.RawMessage {
	b, _ := json.Marshal(expiry.Payload{AccountID: accountID, TargetTier: target})
	return b
}
