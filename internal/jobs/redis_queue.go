package jobs

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// claimScript moves up to ARGV[2] due ids into the processing set and returns their events.
var claimScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
local out = {}
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  local ev = redis.call('HGET', KEYS[3], id)
  if ev then
    redis.call('ZADD', KEYS[2], ARGV[1], id)
    table.insert(out, ev)
  end
end
return out
`)

// requeueScript moves processing ids claimed at or before ARGV[1] back to due at ARGV[2].
var requeueScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  if redis.call('HEXISTS', KEYS[3], id) == 1 then
    redis.call('ZADD', KEYS[2], ARGV[2], id)
  end
end
return #ids
`)

// RedisQueue stores events in Redis.
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedisQueue creates a queue writing keys under prefix (DefaultPrefix when empty).
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisQueue{client: client, prefix: prefix}
}

func (q *RedisQueue) eventsKey(kind string) string {
	return q.prefix + "{" + kind + "}:events"
}

func (q *RedisQueue) dueKey(kind string) string {
	return q.prefix + "{" + kind + "}:due"
}

func (q *RedisQueue) processingKey(kind string) string {
	return q.prefix + "{" + kind + "}:processing"
}

func (q *RedisQueue) indexKey(kind, key string) string {
	return q.prefix + "{" + kind + "}:key:" + key
}

// ScheduleAt registers a new event of kind to run at the given instant. The
// event is indexed under key, the subject later passed to CancelAll.
func (q *RedisQueue) ScheduleAt(ctx context.Context, at time.Time, kind, key string, payload json.RawMessage) (*Event, error) {
	ev := &Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Key:       key,
		RunAt:     at.UTC(),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshaling event: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.eventsKey(kind), ev.ID, data)
		pipe.ZAdd(ctx, q.dueKey(kind), redis.Z{Score: float64(at.Unix()), Member: ev.ID})
		if key != "" {
			pipe.SAdd(ctx, q.indexKey(kind, key), ev.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling event: %w", err)
	}

	return ev, nil
}

// Pending returns every event of kind that has not been acknowledged, ordered by run time.
func (q *RedisQueue) Pending(ctx context.Context, kind string) ([]Event, error) {
	raw, err := q.client.HGetAll(ctx, q.eventsKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for id, data := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			slog.Warn("jobs: skipping unreadable event", "kind", kind, "id", id, "error", err)
			continue
		}
		events = append(events, ev)
	}

	slices.SortFunc(events, func(a, b Event) int {
		if c := a.RunAt.Compare(b.RunAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return events, nil
}

// CancelAll removes the events of kind indexed under key whose payload
// satisfies match. A nil match cancels every event of the key. Cancelling
// nothing is not an error.
func (q *RedisQueue) CancelAll(ctx context.Context, kind, key string, match func(payload json.RawMessage) bool) (int, error) {
	index := q.indexKey(kind, key)
	ids, err := q.client.SMembers(ctx, index).Result()
	if err != nil {
		return 0, fmt.Errorf("reading event index: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	raw, err := q.client.HMGet(ctx, q.eventsKey(kind), ids...).Result()
	if err != nil {
		return 0, fmt.Errorf("loading indexed events: %w", err)
	}

	var cancel, stale []string
	for i, v := range raw {
		data, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			slog.Warn("jobs: skipping unreadable event", "kind", kind, "id", ids[i], "error", err)
			continue
		}
		if match == nil || match(ev.Payload) {
			cancel = append(cancel, ids[i])
		}
	}
	if len(cancel) == 0 && len(stale) == 0 {
		return 0, nil
	}

	var removed *redis.IntCmd
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(cancel) > 0 {
			members := toMembers(cancel)
			pipe.ZRem(ctx, q.dueKey(kind), members...)
			pipe.ZRem(ctx, q.processingKey(kind), members...)
			removed = pipe.HDel(ctx, q.eventsKey(kind), cancel...)
		}
		pipe.SRem(ctx, index, toMembers(append(cancel, stale...))...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cancelling events: %w", err)
	}
	if removed == nil {
		return 0, nil
	}
	return int(removed.Val()), nil
}

// ClearAll drops every event of kind together with its key indexes.
func (q *RedisQueue) ClearAll(ctx context.Context, kind string) error {
	keys := []string{q.eventsKey(kind), q.dueKey(kind), q.processingKey(kind)}
	iter := q.client.Scan(ctx, 0, q.indexKey(kind, "*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning event indexes: %w", err)
	}

	if err := q.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing events: %w", err)
	}
	return nil
}

// ClaimDue atomically takes up to limit events due at now and marks them in flight.
func (q *RedisQueue) ClaimDue(ctx context.Context, kind string, now time.Time, limit int) ([]Event, error) {
	keys := []string{q.dueKey(kind), q.processingKey(kind), q.eventsKey(kind)}
	raw, err := claimScript.Run(ctx, q.client, keys, now.Unix(), limit).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("claiming due events: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for _, data := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			slog.Warn("jobs: dropping unreadable event", "kind", kind, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Ack removes a delivered event.
func (q *RedisQueue) Ack(ctx context.Context, kind, id string) error {
	var key string
	data, err := q.client.HGet(ctx, q.eventsKey(kind), id).Result()
	switch {
	case err == nil:
		var ev Event
		if json.Unmarshal([]byte(data), &ev) == nil {
			key = ev.Key
		}
	case !errors.Is(err, redis.Nil):
		return fmt.Errorf("loading event %s: %w", id, err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.processingKey(kind), id)
		pipe.HDel(ctx, q.eventsKey(kind), id)
		if key != "" {
			pipe.SRem(ctx, q.indexKey(kind, key), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("acknowledging event %s: %w", id, err)
	}
	return nil
}

// RequeueStuck makes events claimed at or before cutoff due again and returns how many moved.
func (q *RedisQueue) RequeueStuck(ctx context.Context, kind string, cutoff, now time.Time) (int, error) {
	keys := []string{q.processingKey(kind), q.dueKey(kind), q.eventsKey(kind)}
	n, err := requeueScript.Run(ctx, q.client, keys, cutoff.Unix(), now.Unix()).Int()
	if err != nil {
		return 0, fmt.Errorf("requeueing stuck events: %w", err)
	}
	return n, nil
}

func toMembers(ids []string) []any {
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return members
}
