// Package expiry grants accounts a time-bounded privilege tier. An edit is
// parsed into a Spec, persisted as three account attributes and scheduled as
// a single fire-event per account; when the event fires the Executor
// re-validates the persisted state before downgrading the account.
package expiry

// EventKind is the job kind under which fire-events are scheduled.
const EventKind = "expiry.change_tier"

// Attribute keys holding the persisted expiry state of an account.
const (
	AttrTimestamp  = "expiry_timestamp"
	AttrTargetTier = "expiry_target_tier"
	AttrDisplay    = "expiry_setting_display"
)

// AttributeKeys lists every attribute key owned by this package.
var AttributeKeys = []string{AttrTimestamp, AttrTargetTier, AttrDisplay}

// Type selects how an expiry is expressed in an edit request.
type Type string

const (
	TypeNone     Type = "none"
	TypeRelative Type = "relative"
	TypeSpecific Type = "specific"
)

// Spec is the canonical, validated expiry of one account.
type Spec struct {
	AccountID int64
	// ExpiresAt is a unix timestamp in seconds, strictly in the future when the Spec was built.
	ExpiresAt  int64
	TargetTier string
	// DisplayLabel is either a duration label or the YYYY-MM-DD date the editor entered.
	DisplayLabel string
}

// Request carries the raw fields of an expiry edit.
type Request struct {
	Type             Type   `json:"expiryType"`
	RelativeDuration int64  `json:"relativeDuration"`
	SpecificDate     string `json:"specificDate"`
	TargetTier       string `json:"targetTier"`
}

// Payload is the body of a fire-event.
type Payload struct {
	AccountID  int64  `json:"accountId"`
	TargetTier string `json:"targetTier"`
}

// State is the persisted expiry of an account as read back from the attribute store.
// A zero ExpiresAt means the account is permanent.
type State struct {
	ExpiresAt    int64
	TargetTier   string
	DisplayLabel string
}
