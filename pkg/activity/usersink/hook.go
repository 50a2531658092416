// Package usersink forwards asset activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-jsonasset/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Now stamps records whose event has no timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Notify forwards the mapped record to the sink. Events missing a verb,
// object type or object ID are dropped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	record, ok := Record(event)
	if !ok {
		return nil
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = h.now()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, record)
}

func (h Hook) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Record maps an event to an ActivityRecord. Actor, user and tenant IDs that
// are not UUIDs map to uuid.Nil. The definition code and recipients travel in
// the record data next to the asset metadata.
func Record(event activity.Event) (usertypes.ActivityRecord, bool) {
	if !event.Valid() {
		return usertypes.ActivityRecord{}, false
	}
	normalized := activity.NormalizeEvent(event)

	data := activity.CloneMetadata(normalized.Metadata)
	if normalized.DefinitionCode != "" {
		data = withData(data, "definition_code", normalized.DefinitionCode)
	}
	if len(normalized.Recipients) > 0 {
		data = withData(data, "recipients", append([]string{}, normalized.Recipients...))
	}

	return usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}, true
}

func withData(data map[string]any, key string, value any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	data[key] = value
	return data
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
