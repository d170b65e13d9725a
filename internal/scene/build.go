package scene

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/activity"
)

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	logger    *slog.Logger
	emitter   *activity.Emitter
	evaluator string
	cache     props.ProgramCache
	functions *props.FunctionRegistry
}

// WithLogger sets the logger shared by the store and expression bindings.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *buildConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithActivityEmitter publishes store events through emitter.
func WithActivityEmitter(emitter *activity.Emitter) Option {
	return func(cfg *buildConfig) {
		cfg.emitter = emitter
	}
}

// WithEvaluator selects the engine used by bindings that do not name one.
func WithEvaluator(engine string) Option {
	return func(cfg *buildConfig) {
		if engine != "" {
			cfg.evaluator = engine
		}
	}
}

// WithFunctions exposes registry functions to every binding expression.
func WithFunctions(registry *props.FunctionRegistry) Option {
	return func(cfg *buildConfig) {
		cfg.functions = registry
	}
}

// Scene is a built document: a populated store plus the handles needed to
// drive it.
type Scene struct {
	Object    string
	Store     *props.Store
	Registry  *props.Registry
	Bindings  []*props.ExpressionBinding
	Sequences []*Sequence

	properties []props.AnyProperty
}

// Build declares the document's properties, fills its frames and attaches
// its bindings and sequences to a new store.
func Build(doc *Document, opts ...Option) (*Scene, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	cfg := buildConfig{
		logger:    slog.New(slog.DiscardHandler),
		evaluator: "expr",
		cache:     props.NewLRUProgramCache(props.DefaultProgramCacheSize),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	s := &Scene{Object: doc.Object, Registry: props.NewRegistry()}
	for _, spec := range doc.Properties {
		property, err := kinds[normalizeType(spec.Type)](spec)
		if err != nil {
			return nil, fmt.Errorf("scene: property %q: %w", spec.Name, err)
		}
		if err := s.Registry.Register(property); err != nil {
			return nil, fmt.Errorf("scene: %w", err)
		}
		s.properties = append(s.properties, property)
	}

	s.Store = props.NewStore(
		props.WithObjectName(doc.Object),
		props.WithLogger(cfg.logger),
		props.WithActivityEmitter(cfg.emitter),
	)
	if err := s.buildFrames(doc.Frames); err != nil {
		s.Store.Dispose()
		return nil, err
	}
	if err := s.buildBindings(doc.Bindings, cfg); err != nil {
		s.Store.Dispose()
		return nil, err
	}
	if err := s.buildSequences(doc.Sequences); err != nil {
		s.Store.Dispose()
		return nil, err
	}
	return s, nil
}

// Properties returns the declared properties in document order.
func (s *Scene) Properties() []props.AnyProperty {
	return slices.Clone(s.properties)
}

// Property looks up a declared property by name.
func (s *Scene) Property(name string) (props.AnyProperty, bool) {
	return s.Registry.Lookup(name)
}

// Close disposes the bindings and the store.
func (s *Scene) Close() {
	for _, binding := range s.Bindings {
		binding.Dispose()
	}
	s.Store.Dispose()
}

func (s *Scene) buildFrames(specs []FrameSpec) error {
	for i, spec := range specs {
		var (
			frame *props.Frame
			err   error
		)
		if spec.Name == "" {
			frame, err = s.Store.FrameAt(spec.Priority)
		} else {
			frame = props.NewFrame(props.NewScope(spec.Name, spec.Priority,
				props.WithScopeLabel(spec.Label),
				props.WithScopeMetadata(spec.Metadata),
			))
			err = s.Store.AddFrame(frame)
		}
		if err != nil {
			return fmt.Errorf("scene: frames[%d]: %w", i, err)
		}
		for _, name := range slices.Sorted(maps.Keys(spec.Values)) {
			property, _ := s.Registry.Lookup(name)
			if err := frame.SetAny(property, spec.Values[name]); err != nil {
				return fmt.Errorf("scene: frame %s: %w", frame.Name(), err)
			}
		}
	}
	return nil
}

func (s *Scene) buildBindings(specs []BindingSpec, cfg buildConfig) error {
	for i, spec := range specs {
		engine := spec.Engine
		if engine == "" {
			engine = cfg.evaluator
		}
		evaluator, err := NewEvaluator(engine, cfg.cache, cfg.functions)
		if err != nil {
			return fmt.Errorf("scene: bindings[%d]: %w", i, err)
		}
		target, _ := s.Registry.Lookup(spec.Property)
		deps := make([]props.AnyProperty, 0, len(spec.Deps))
		for _, name := range spec.Deps {
			dep, _ := s.Registry.Lookup(name)
			deps = append(deps, dep)
		}
		priority := spec.Priority
		if priority == 0 {
			priority = props.PriorityTemplate
		}
		binding, err := props.BindExpression(s.Store, target, spec.Expr, deps, priority,
			props.WithEvaluator(evaluator),
			props.WithEvaluatorLogger(props.SlogEvaluatorLogger(cfg.logger)),
			props.WithExpressionArgs(spec.Args),
			props.WithExpressionScope(props.NewScope("", priority)),
		)
		if err != nil {
			return fmt.Errorf("scene: bindings[%d]: %w", i, err)
		}
		s.Bindings = append(s.Bindings, binding)
	}
	return nil
}

func (s *Scene) buildSequences(specs []SequenceSpec) error {
	for i, spec := range specs {
		priority := spec.Priority
		if priority == 0 {
			priority = props.PriorityAnimation
		}
		every, _ := spec.Every()
		property, _ := s.Registry.Lookup(spec.Property)
		frame, err := s.Store.FrameAt(priority)
		if err != nil {
			return fmt.Errorf("scene: sequences[%d]: %w", i, err)
		}
		subject := props.NewSubject[any]()
		if _, err := frame.BindAny(property, subject); err != nil {
			return fmt.Errorf("scene: sequences[%d]: %w", i, err)
		}
		s.Sequences = append(s.Sequences, &Sequence{
			Property: property,
			Priority: priority,
			Every:    every,
			Values:   slices.Clone(spec.Values),
			subject:  subject,
		})
	}
	return nil
}

// NewEvaluator returns the evaluator for engine sharing cache and functions.
func NewEvaluator(engine string, cache props.ProgramCache, functions *props.FunctionRegistry) (props.Evaluator, error) {
	switch engine {
	case "", "expr":
		opts := []props.ExprEvaluatorOption{props.ExprWithProgramCache(cache)}
		if functions != nil {
			opts = append(opts, props.ExprWithFunctionRegistry(functions))
		}
		return props.NewExprEvaluator(opts...), nil
	case "cel":
		opts := []props.CELEvaluatorOption{props.CELWithProgramCache(cache)}
		if functions != nil {
			opts = append(opts, props.CELWithFunctionRegistry(functions))
		}
		return props.NewCELEvaluator(opts...), nil
	case "js":
		if !props.JSEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js evaluator requires the js_eval build tag", props.ErrNoEvaluator)
		}
		opts := []props.JSEvaluatorOption{props.JSWithProgramCache(cache)}
		if functions != nil {
			opts = append(opts, props.JSWithFunctionRegistry(functions))
		}
		return props.NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", props.ErrNoEvaluator, engine)
	}
}

// Sequence is a timed series of values bound to one property. Values are
// delivered through the post function passed to Play so they reach the
// store on its owner thread.
type Sequence struct {
	Property props.AnyProperty
	Priority int
	Every    time.Duration
	Values   []any

	subject *props.Subject[any]
}

// Play posts each value Every apart. It returns ctx.Err() if ctx ends first
// and an error if post rejects a value.
func (q *Sequence) Play(ctx context.Context, post func(func()) bool) error {
	for _, value := range q.Values {
		if err := ctx.Err(); err != nil {
			return err
		}
		if q.Every > 0 {
			timer := time.NewTimer(q.Every)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if !post(func() { q.subject.OnNext(value) }) {
			return fmt.Errorf("scene: sequence %s: delivery rejected", q.Property.Name())
		}
	}
	return nil
}
