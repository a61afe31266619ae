package notify

import (
	"context"
	"strings"
)

// Config controls notifier defaults supplied by DI/config.
type Config struct {
	Enabled bool
	Channel string
}

// Notifier fans events out to hooks while applying defaults.
type Notifier struct {
	hooks   Hooks
	enabled bool
	channel string
}

// NewNotifier constructs a notifier from hooks and configuration.
func NewNotifier(hooks Hooks, cfg Config) *Notifier {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "config"
	}
	normalized := cloneHooks(hooks)
	return &Notifier{
		hooks:   normalized,
		enabled: cfg.Enabled && len(normalized) > 0,
		channel: channel,
	}
}

// Enabled reports whether emissions should be attempted.
func (n *Notifier) Enabled() bool {
	return n != nil && n.enabled && len(n.hooks) > 0
}

// Emit forwards the event to all hooks, applying the default channel when
// the event carries none.
func (n *Notifier) Emit(ctx context.Context, event Event) error {
	if !n.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" && n.channel != "" {
		event.Channel = n.channel
	}
	return n.hooks.Notify(ctx, event)
}

func cloneHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]Hook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	return Hooks(normalized)
}
