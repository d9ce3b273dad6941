package expiry

import (
	"context"
	"fmt"
	"log/slog"
)

// PurgeResult counts what Purge removed.
type PurgeResult struct {
	Attributes int64
	Events     int
}

// Purge removes every persisted expiry and every pending fire-event. It is
// run once when the service is decommissioned.
func Purge(ctx context.Context, attrs AttributePurger, events EventPurger) (PurgeResult, error) {
	var res PurgeResult

	n, err := attrs.DeleteEverywhere(ctx, AttributeKeys...)
	if err != nil {
		return res, fmt.Errorf("deleting expiry attributes: %w", err)
	}
	res.Attributes = n

	pending, err := events.Pending(ctx, EventKind)
	if err != nil {
		return res, fmt.Errorf("listing fire-events: %w", err)
	}
	if err := events.ClearAll(ctx, EventKind); err != nil {
		return res, fmt.Errorf("clearing fire-events: %w", err)
	}
	res.Events = len(pending)

	slog.Info("expiry: purged all expiry state", "attributes", res.Attributes, "events", res.Events)
	return res, nil
}
