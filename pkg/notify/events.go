package notify

import "time"

// EventInput describes the common fields for refresh event builders.
type EventInput struct {
	ScopeID    string
	Path       string
	SnapshotID string
	Timeline   string
	Label      string
	Channel    string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildHeadChangedEvent constructs a refresh event for a history head move.
func BuildHeadChangedEvent(input EventInput) Event {
	return buildEvent(TriggerHeadChange, input)
}

// BuildSavedEvent constructs a refresh event for a saved baseline update.
func BuildSavedEvent(input EventInput) Event {
	return buildEvent(TriggerMarkSaved, input)
}

// BuildResetEvent constructs a refresh event for a bulk reset.
func BuildResetEvent(input EventInput) Event {
	return buildEvent(TriggerReset, input)
}

// BuildParameterSetEvent constructs a refresh event for a single edit.
func BuildParameterSetEvent(input EventInput) Event {
	return buildEvent(TriggerParameterSet, input)
}

func buildEvent(trigger Trigger, input EventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	return Event{
		Trigger:    trigger,
		ScopeID:    input.ScopeID,
		Path:       input.Path,
		SnapshotID: input.SnapshotID,
		Timeline:   input.Timeline,
		Label:      input.Label,
		Channel:    input.Channel,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
