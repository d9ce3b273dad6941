package dispatcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/daap14/tempaccess/internal/jobs"
	"github.com/daap14/tempaccess/internal/metrics"
)

// Queue is the part of the event store the dispatcher drives.
type Queue interface {
	ClaimDue(ctx context.Context, kind string, now time.Time, limit int) ([]jobs.Event, error)
	Ack(ctx context.Context, kind, id string) error
	RequeueStuck(ctx context.Context, kind string, cutoff, now time.Time) (int, error)
}

// Handler receives the payload of a fired event. Handlers own their failure
// handling; the dispatcher acknowledges every delivered event.
type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload json.RawMessage)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, payload json.RawMessage) {
	f(ctx, payload)
}

// Dispatcher polls the queue for due events and invokes the handler registered for their kind.
type Dispatcher struct {
	queue      Queue
	handlers   map[string]Handler
	kinds      []string
	interval   time.Duration
	batch      int
	stuckAfter time.Duration
	now        func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBatch limits how many events are claimed per kind and tick.
func WithBatch(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batch = n
		}
	}
}

// WithStuckAfter sets how long a claimed event may stay unacknowledged before re-delivery.
func WithStuckAfter(after time.Duration) Option {
	return func(d *Dispatcher) {
		if after > 0 {
			d.stuckAfter = after
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a new Dispatcher.
func New(queue Queue, interval time.Duration, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:      queue,
		handlers:   make(map[string]Handler),
		interval:   interval,
		batch:      100,
		stuckAfter: 10 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds a handler to an event kind. Registering a kind twice replaces the handler.
func (d *Dispatcher) Register(kind string, h Handler) {
	if _, ok := d.handlers[kind]; !ok {
		d.kinds = append(d.kinds, kind)
	}
	d.handlers[kind] = h
}

// Start begins the dispatch loop. It blocks until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	slog.Info("dispatcher started", "interval", d.interval.String(), "kinds", d.kinds)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs one dispatch pass over every registered kind.
func (d *Dispatcher) Tick(ctx context.Context) {
	for _, kind := range d.kinds {
		if ctx.Err() != nil {
			return
		}
		d.dispatchKind(ctx, kind)
	}
}

func (d *Dispatcher) dispatchKind(ctx context.Context, kind string) {
	now := d.now()

	requeued, err := d.queue.RequeueStuck(ctx, kind, now.Add(-d.stuckAfter), now)
	if err != nil {
		slog.Error("dispatcher: failed to requeue stuck events", "kind", kind, "error", err)
	} else if requeued > 0 {
		slog.Warn("dispatcher: re-delivering stuck events", "kind", kind, "count", requeued)
		metrics.RecordRequeued(kind, requeued)
	}

	events, err := d.queue.ClaimDue(ctx, kind, now, d.batch)
	if err != nil {
		slog.Error("dispatcher: failed to claim due events", "kind", kind, "error", err)
		return
	}
	if len(events) == 0 {
		return
	}
	metrics.RecordClaimed(kind, len(events))

	h := d.handlers[kind]
	for i := range events {
		if ctx.Err() != nil {
			return
		}
		ev := &events[i]
		slog.Debug("dispatcher: delivering event", "kind", kind, "id", ev.ID, "runAt", ev.RunAt)
		h.Handle(ctx, ev.Payload)

		if err := d.queue.Ack(ctx, kind, ev.ID); err != nil {
			slog.Error("dispatcher: failed to acknowledge event", "kind", kind, "id", ev.ID, "error", err)
		}
	}
}
