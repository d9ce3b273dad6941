// Package jobs is a Redis-backed store of time-triggered events.
//
// Each event kind owns these keys, all sharing one hash slot:
//
//	<prefix>{<kind>}:events      HASH  id -> JSON Event
//	<prefix>{<kind>}:due         ZSET  id scored by run time (unix seconds)
//	<prefix>{<kind>}:processing  ZSET  id scored by claim time
//	<prefix>{<kind>}:key:<key>   SET   ids of the events scheduled for one subject key
//
// An event lives in the events hash from ScheduleAt until Ack, CancelAll or
// ClearAll. CancelAll only reads the events indexed under its key. Claimed events that are never acknowledged are moved back to due
// by RequeueStuck, so delivery is at-least-once.
package jobs

import (
	"encoding/json"
	"time"
)

// DefaultPrefix namespaces every key written by a Queue.
const DefaultPrefix = "tempaccess:"

// Event is a scheduled invocation of a handler registered for Kind.
type Event struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Key       string          `json:"key,omitempty"`
	RunAt     time.Time       `json:"runAt"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}
