package props

import "strconv"

// Recommended frame priorities. Higher numbers win.
const (
	PriorityTheme        = 100
	PriorityStyle        = 200
	PriorityTemplate     = 300
	PriorityStyleTrigger = 400
	PriorityLocal        = 500
	PriorityAnimation    = 600
)

// PriorityName returns the conventional name for a well-known priority, or
// the decimal priority for anything else.
func PriorityName(priority int) string {
	switch priority {
	case PriorityTheme:
		return "theme"
	case PriorityStyle:
		return "style"
	case PriorityTemplate:
		return "template"
	case PriorityStyleTrigger:
		return "style-trigger"
	case PriorityLocal:
		return "local"
	case PriorityAnimation:
		return "animation"
	default:
		return "priority-" + strconv.Itoa(priority)
	}
}

// Scope names a frame's priority tier (theme, style, local, animation,
// etc.). Higher priority values represent stronger frames.
type Scope struct {
	Name     string         `json:"name"`
	Label    string         `json:"label,omitempty"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	label    string
	metadata map[string]any
}

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.label = label
	}
}

// WithScopeMetadata attaches arbitrary metadata to the scope. The map is copied
// so the resulting Scope remains immutable even if the caller mutates their
// reference.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(cfg *scopeConfig) {
		if len(metadata) == 0 {
			return
		}
		cfg.metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope for a frame. An empty name falls back to the
// conventional name of the priority.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	cfg := scopeConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if name == "" {
		name = PriorityName(priority)
	}
	return Scope{
		Name:     name,
		Label:    cfg.label,
		Priority: priority,
		Metadata: copyMetadata(cfg.metadata),
	}
}

// clone returns a copy of s, ensuring Metadata is detached from the original.
func (s Scope) clone() Scope {
	return Scope{
		Name:     s.Name,
		Label:    s.Label,
		Priority: s.Priority,
		Metadata: copyMetadata(s.Metadata),
	}
}

func (s Scope) isZero() bool {
	return s.Name == "" && s.Label == "" && s.Priority == 0 && len(s.Metadata) == 0
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
