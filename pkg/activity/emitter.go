package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "properties"

// Config controls emission defaults.
type Config struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Channel string `mapstructure:"channel" yaml:"channel"`
}

// Emitter fans events out to hooks, applying the configured channel.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
}

// NewEmitter builds an emitter. It is disabled unless cfg.Enabled is set and
// at least one non-nil hook is supplied.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	live := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			live = append(live, hook)
		}
	}
	return &Emitter{
		hooks:   live,
		enabled: cfg.Enabled && len(live) > 0,
		channel: channel,
	}
}

// Enabled reports whether Emit forwards events.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Channel returns the default channel.
func (e *Emitter) Channel() string {
	if e == nil {
		return DefaultChannel
	}
	return e.channel
}

// Emit forwards event to the hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}
