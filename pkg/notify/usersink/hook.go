// Package usersink forwards refresh events to a go-users activity sink so
// configuration edits show up in per-user activity feeds.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-lazyconf/pkg/notify"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts refresh events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// Actor, user, and tenant ids travel in event metadata under "actor_id",
// "user_id", and "tenant_id".
func (h Hook) Notify(ctx context.Context, event notify.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := notify.NormalizeEvent(event)
	if normalized.Trigger == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := usertypes.ActivityRecord{
		ActorID:    metadataUUID(normalized.Metadata, "actor_id"),
		UserID:     metadataUUID(normalized.Metadata, "user_id"),
		TenantID:   metadataUUID(normalized.Metadata, "tenant_id"),
		Verb:       "config." + string(normalized.Trigger),
		ObjectType: "config.scope",
		ObjectID:   objectID(normalized),
		Channel:    normalized.Channel,
		Data:       cloneMap(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if normalized.Path != "" {
		if record.Data == nil {
			record.Data = map[string]any{}
		}
		record.Data["path"] = normalized.Path
	}
	if normalized.SnapshotID != "" {
		if record.Data == nil {
			record.Data = map[string]any{}
		}
		record.Data["snapshot_id"] = normalized.SnapshotID
	}

	return h.Sink.Log(ctx, record)
}

func objectID(event notify.Event) string {
	if event.ScopeID != "" {
		return event.ScopeID
	}
	if event.SnapshotID != "" {
		return event.SnapshotID
	}
	return "config"
}

func metadataUUID(meta map[string]any, key string) uuid.UUID {
	raw, ok := meta[key]
	if !ok {
		return uuid.Nil
	}
	value, ok := raw.(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
