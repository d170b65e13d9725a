package props

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/goliatone/go-props/pkg/activity"
	"github.com/google/uuid"
)

// maxResolvePasses bounds how often one property is re-resolved while
// entries keep changing it from inside its own resolution.
const maxResolvePasses = 64

// PropertyChanged describes a change of a property's effective value.
type PropertyChanged struct {
	Property AnyProperty
	OldValue any
	NewValue any
	// Priority and Scope describe the frame supplying NewValue. Both are
	// zero when the property fell back to its default.
	Priority int
	Scope    Scope
	IsSet    bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithObjectName names the object the store belongs to in logs and events.
func WithObjectName(name string) StoreOption {
	return func(s *Store) {
		s.name = name
	}
}

// WithObjectID overrides the generated object ID.
func WithObjectID(id string) StoreOption {
	return func(s *Store) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLogger sets the logger used for invalid-value diagnostics.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivityEmitter publishes property and frame events through emitter.
func WithActivityEmitter(emitter *activity.Emitter) StoreOption {
	return func(s *Store) {
		s.emitter = emitter
	}
}

// WithActivityActor stamps emitted events with actor.
func WithActivityActor(actor string) StoreOption {
	return func(s *Store) {
		s.actor = actor
	}
}

type effectiveValue struct {
	value any
	frame *Frame
	isSet bool
}

type frameSlot struct {
	frame *Frame
	seq   uint64
}

type listener struct {
	fn     func(PropertyChanged)
	active bool
}

// Store holds the frames of one object and resolves the effective value of
// each property across them. It is not safe for concurrent use: reads, writes
// and source deliveries must happen on one logical thread (see
// pkg/dispatch).
type Store struct {
	id      string
	name    string
	logger  *slog.Logger
	emitter *activity.Emitter
	actor   string

	frames  []frameSlot
	seq     uint64
	managed map[int]*Frame

	published map[AnyProperty]*effectiveValue
	resolving map[AnyProperty]bool
	pending   map[AnyProperty]bool

	listeners    []*listener
	disposeHooks []*func()
	disposed     bool
	handle       OwnerHandle
}

var _ Owner = (*Store)(nil)

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		id:        uuid.NewString(),
		logger:    slog.New(slog.DiscardHandler),
		managed:   map[int]*Frame{},
		published: map[AnyProperty]*effectiveValue{},
		resolving: map[AnyProperty]bool{},
		pending:   map[AnyProperty]bool{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.handle = weakStoreHandle(s)
	return s
}

// ID returns the object ID.
func (s *Store) ID() string { return s.id }

// Name returns the object name.
func (s *Store) Name() string { return s.name }

// Disposed reports whether Dispose has run.
func (s *Store) Disposed() bool { return s.disposed }

// Frames returns the attached frames in resolution order, strongest first.
func (s *Store) Frames() []*Frame {
	out := make([]*Frame, 0, len(s.frames))
	for _, slot := range s.frames {
		out = append(out, slot.frame)
	}
	return out
}

// AddFrame attaches frame. Frames are ordered by priority; among equal
// priorities the most recently added frame wins.
func (s *Store) AddFrame(frame *Frame) error {
	if s.disposed {
		return ErrStoreDisposed
	}
	if frame == nil {
		return fmt.Errorf("props: add frame: frame is nil")
	}
	if frame.Disposed() {
		return fmt.Errorf("props: add frame %s: frame disposed", frame.Name())
	}
	if s.indexOf(frame) >= 0 {
		return nil
	}
	if owner := frame.Owner(); owner != nil {
		return fmt.Errorf("%w: %s", ErrFrameOwned, frame.Name())
	}

	s.seq++
	s.frames = append(s.frames, frameSlot{frame: frame, seq: s.seq})
	slices.SortStableFunc(s.frames, func(a, b frameSlot) int {
		if c := cmp.Compare(b.frame.Priority(), a.frame.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	frame.setOwner(s.handle)
	s.emitFrameEvent(activity.BuildFrameAttachedEvent, frame)

	for _, property := range frame.Properties() {
		entry, _ := frame.Entry(property)
		if s.tracked(property) || !lazyPending(entry) {
			s.reevaluate(property, true)
		}
	}
	return nil
}

// RemoveFrame detaches and disposes frame, re-resolving every property it
// contributed to.
func (s *Store) RemoveFrame(frame *Frame) error {
	idx := s.indexOf(frame)
	if idx < 0 {
		return ErrFrameNotFound
	}
	s.frames = slices.Delete(s.frames, idx, idx+1)
	if s.managed[frame.Priority()] == frame {
		delete(s.managed, frame.Priority())
	}
	properties := frame.Properties()
	frame.dispose()
	s.emitFrameEvent(activity.BuildFrameDetachedEvent, frame)

	for _, property := range properties {
		if s.tracked(property) {
			s.reevaluate(property, true)
		}
	}
	return nil
}

// DetachFrame implements Owner.
func (s *Store) DetachFrame(frame *Frame) error {
	return s.RemoveFrame(frame)
}

// FrameAt returns the store-managed frame for priority, creating and
// attaching it on first use.
func (s *Store) FrameAt(priority int) (*Frame, error) {
	if s.disposed {
		return nil, ErrStoreDisposed
	}
	if frame, ok := s.managed[priority]; ok {
		return frame, nil
	}
	frame := NewFrame(NewScope("", priority))
	if err := s.AddFrame(frame); err != nil {
		return nil, err
	}
	s.managed[priority] = frame
	return frame, nil
}

// LocalFrame returns the frame holding local values.
func (s *Store) LocalFrame() (*Frame, error) {
	return s.FrameAt(PriorityLocal)
}

// GetAny returns the effective value of property.
func (s *Store) GetAny(property AnyProperty) any {
	return s.effective(property).value
}

// IsSet reports whether any frame supplies a value for property.
func (s *Store) IsSet(property AnyProperty) bool {
	return s.effective(property).isSet
}

// ValueFrame returns the frame supplying the effective value of property, or
// nil when the default applies.
func (s *Store) ValueFrame(property AnyProperty) *Frame {
	return s.effective(property).frame
}

// Get returns the effective value of p. A nil set for an interface-typed
// property reads back as nil, not as the default.
func Get[T any](s *Store, p *Property[T]) T {
	current := s.effective(p)
	if typed, ok := current.value.(T); ok {
		return typed
	}
	if current.isSet && current.value == nil {
		var zero T
		return zero
	}
	return p.Default()
}

// SetValue sets a local value for p. The value must pass p's validation.
func SetValue[T any](s *Store, p *Property[T], value T) error {
	return SetValueAt(s, p, value, PriorityLocal)
}

// SetValueAt sets a constant value for p in the managed frame for priority.
func SetValueAt[T any](s *Store, p *Property[T], value T, priority int) error {
	if err := p.Validate(value); err != nil {
		return &InvalidValueError{Property: p.Name(), Expected: p.TypeName(), Value: value, Err: err}
	}
	frame, err := s.FrameAt(priority)
	if err != nil {
		return err
	}
	_, err = AttachValue(frame, p, value)
	return err
}

// SetAny sets a local value from an untyped value, running it through the
// conversion gate.
func (s *Store) SetAny(property AnyProperty, value any) error {
	frame, err := s.LocalFrame()
	if err != nil {
		return err
	}
	return frame.SetAny(property, value)
}

// ClearValue removes the local value of property. It reports whether a local
// value was present.
func (s *Store) ClearValue(property AnyProperty) bool {
	frame, ok := s.managed[PriorityLocal]
	if !ok {
		return false
	}
	return frame.Remove(property)
}

// Bind attaches a typed binding for p at priority.
func Bind[T any](s *Store, p *Property[T], source Observable[BindingValue[T]], priority int) (*BindingEntry[T], error) {
	frame, err := s.FrameAt(priority)
	if err != nil {
		return nil, err
	}
	return AttachBinding(frame, p, source)
}

// BindUntyped attaches an untyped binding for p at priority. Values pass
// through the conversion gate.
func BindUntyped[T any](s *Store, p *Property[T], source Observable[any], priority int) (*UntypedBindingEntry[T], error) {
	frame, err := s.FrameAt(priority)
	if err != nil {
		return nil, err
	}
	return AttachUntyped(frame, p, source)
}

// AddListener registers fn for effective value changes and returns a function
// removing it.
func (s *Store) AddListener(fn func(PropertyChanged)) (remove func()) {
	if fn == nil || s.disposed {
		return func() {}
	}
	l := &listener{fn: fn, active: true}
	s.listeners = append(s.listeners, l)
	return func() {
		l.active = false
		s.listeners = slices.DeleteFunc(s.listeners, func(item *listener) bool { return item == l })
	}
}

// OnValueChanged implements Owner.
func (s *Store) OnValueChanged(property AnyProperty, _ int, _ any) {
	s.reevaluate(property, true)
}

// OnValueCleared implements Owner.
func (s *Store) OnValueCleared(property AnyProperty, _ int) {
	s.reevaluate(property, true)
}

// OnEntryAttached implements Owner. Lazy entries for properties nobody has
// read are left unstarted.
func (s *Store) OnEntryAttached(property AnyProperty, _ *Frame, entry ValueEntry) {
	if s.tracked(property) || !lazyPending(entry) {
		s.reevaluate(property, true)
	}
}

// OnEntryCompleted implements Owner.
func (s *Store) OnEntryCompleted(property AnyProperty, _ *Frame) {
	if s.tracked(property) {
		s.reevaluate(property, true)
	}
}

// LogInvalidValue implements Owner.
func (s *Store) LogInvalidValue(property AnyProperty, value any, err error) {
	s.logger.Warn("props: invalid property value",
		"object", s.name,
		"object_id", s.id,
		"property", property.Name(),
		"expected", property.TypeName(),
		"value", value,
		"value_type", fmt.Sprintf("%T", value),
		"error", err,
	)
}

// Dispose detaches every frame and completes Observe subscriptions. Later
// deliveries from any source are ignored.
func (s *Store) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	frames := s.Frames()
	s.frames = nil
	s.managed = map[int]*Frame{}
	for _, frame := range frames {
		frame.dispose()
	}
	hooks := s.disposeHooks
	s.disposeHooks = nil
	for _, hook := range hooks {
		(*hook)()
	}
	s.listeners = nil
	s.published = map[AnyProperty]*effectiveValue{}
}

func (s *Store) onDispose(fn func()) (cancel func()) {
	hook := &fn
	s.disposeHooks = append(s.disposeHooks, hook)
	return func() {
		s.disposeHooks = slices.DeleteFunc(s.disposeHooks, func(item *func()) bool { return item == hook })
	}
}

func (s *Store) indexOf(frame *Frame) int {
	return slices.IndexFunc(s.frames, func(slot frameSlot) bool { return slot.frame == frame })
}

func (s *Store) tracked(property AnyProperty) bool {
	_, ok := s.published[property]
	return ok
}

// effective returns the published value of property, resolving it silently
// on first read.
func (s *Store) effective(property AnyProperty) effectiveValue {
	if s.disposed {
		return effectiveValue{value: property.DefaultAny()}
	}
	if !s.tracked(property) && !s.resolving[property] {
		s.reevaluate(property, false)
	}
	if current, ok := s.published[property]; ok {
		return *current
	}
	return effectiveValue{value: property.DefaultAny()}
}

// resolve walks the frames strongest first and returns the first value
// found, falling back to the property default.
func (s *Store) resolve(property AnyProperty) effectiveValue {
	for _, frame := range s.Frames() {
		if value, ok := frame.TryGetValue(property); ok {
			return effectiveValue{value: value, frame: frame, isSet: true}
		}
	}
	return effectiveValue{value: property.DefaultAny()}
}

// reevaluate resolves property and publishes the result. Notifications that
// arrive while property is being resolved mark it pending and the pass
// repeats, so listeners see one change per settled value.
func (s *Store) reevaluate(property AnyProperty, notify bool) {
	if s.disposed {
		return
	}
	if s.resolving[property] {
		s.pending[property] = true
		return
	}
	s.resolving[property] = true
	defer delete(s.resolving, property)

	for pass := 0; ; pass++ {
		delete(s.pending, property)
		next := s.resolve(property)
		if s.pending[property] && pass < maxResolvePasses {
			continue
		}
		s.publish(property, next, notify)
		if !s.pending[property] || s.disposed {
			return
		}
		if pass >= maxResolvePasses {
			s.logger.Warn("props: property did not settle",
				"object", s.name,
				"object_id", s.id,
				"property", property.Name(),
				"passes", pass,
			)
			delete(s.pending, property)
			return
		}
	}
}

func (s *Store) publish(property AnyProperty, next effectiveValue, notify bool) {
	previous, tracked := s.published[property]
	s.published[property] = &next
	if !notify {
		return
	}
	old := property.DefaultAny()
	if tracked {
		old = previous.value
	}
	if property.EqualAny(old, next.value) {
		return
	}

	change := PropertyChanged{
		Property: property,
		OldValue: old,
		NewValue: next.value,
		IsSet:    next.isSet,
	}
	if next.frame != nil {
		change.Priority = next.frame.Priority()
		change.Scope = next.frame.Scope()
	}
	for _, l := range slices.Clone(s.listeners) {
		if l.active {
			l.fn(change)
		}
	}
	s.emitChange(change)
}

func (s *Store) emitChange(change PropertyChanged) {
	if !s.emitter.Enabled() {
		return
	}
	input := activity.PropertyEventInput{
		ActorID:    s.actor,
		ObjectID:   s.id,
		ObjectName: s.name,
		Property:   change.Property.Name(),
		OldValue:   change.OldValue,
		NewValue:   change.NewValue,
		Frame:      frameContext(change.Scope),
	}
	build := activity.BuildPropertyChangedEvent
	if !change.IsSet {
		build = activity.BuildPropertyClearedEvent
	}
	s.emit(build(input))
}

func (s *Store) emitFrameEvent(build func(activity.PropertyEventInput) activity.Event, frame *Frame) {
	if !s.emitter.Enabled() {
		return
	}
	s.emit(build(activity.PropertyEventInput{
		ActorID:    s.actor,
		ObjectID:   s.id,
		ObjectName: s.name,
		Frame:      frameContext(frame.Scope()),
		Metadata:   map[string]any{"entries": frame.Len()},
	}))
}

func (s *Store) emit(event activity.Event) {
	if err := s.emitter.Emit(context.Background(), event); err != nil {
		s.logger.Warn("props: activity hook failed",
			"object", s.name,
			"object_id", s.id,
			"verb", event.Verb,
			"error", err,
		)
	}
}

func frameContext(scope Scope) activity.FrameContext {
	return activity.FrameContext{
		Name:     scope.Name,
		Label:    scope.Label,
		Priority: scope.Priority,
		Metadata: scope.Metadata,
	}
}

func lazyPending(entry ValueEntry) bool {
	lazy, ok := entry.(LazyEntry)
	return ok && !lazy.Started()
}
