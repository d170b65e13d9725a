package props

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// ErrNoEvaluator is returned when no evaluator could be configured.
var ErrNoEvaluator = errors.New("props: evaluator not configured")

// ExpressionOption configures an ExpressionSource.
type ExpressionOption func(*expressionConfig)

type expressionConfig struct {
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    EvaluatorLogger
	args      map[string]any
	metadata  map[string]any
	property  string
	scope     Scope
	snapshot  func() map[string]any
	now       func() time.Time
}

// WithEvaluator selects the evaluator. The default is expr-lang/expr.
func WithEvaluator(evaluator Evaluator) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.evaluator = evaluator
	}
}

// WithProgramCache shares compiled programs across sources using the
// default evaluator.
func WithProgramCache(cache ProgramCache) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes registry functions to the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) ExpressionOption {
	return func(cfg *expressionConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

// WithCustomFunction registers fn under name for the default evaluator.
func WithCustomFunction(name string, fn Function) ExpressionOption {
	return func(cfg *expressionConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger records every evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.logger = logger
	}
}

// WithExpressionArgs exposes args to the expression as `args`.
func WithExpressionArgs(args map[string]any) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.args = maps.Clone(args)
	}
}

// WithExpressionMetadata exposes metadata to the expression as `metadata`.
func WithExpressionMetadata(metadata map[string]any) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.metadata = maps.Clone(metadata)
	}
}

// WithExpressionScope exposes scope to the expression as `scope`.
func WithExpressionScope(scope Scope) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.scope = scope.clone()
	}
}

// WithSnapshot supplies the variables visible to the expression. It is
// called on every evaluation.
func WithSnapshot(snapshot func() map[string]any) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.snapshot = snapshot
	}
}

// WithClock overrides the time exposed as `now`.
func WithClock(now func() time.Time) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.now = now
	}
}

func withTargetProperty(name string) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.property = name
	}
}

// ExpressionSource is an Observable producing the result of an expression.
// Each subscriber receives a fresh evaluation on subscribe; Refresh
// re-evaluates and pushes to every subscriber. An evaluation error ends the
// source.
type ExpressionSource struct {
	expr    string
	cfg     expressionConfig
	rule    CompiledRule
	engine  string
	subject *Subject[any]
}

// NewExpressionSource compiles expr. Compilation errors are returned as
// *EvaluationError.
func NewExpressionSource(expr string, opts ...ExpressionOption) (*ExpressionSource, error) {
	if expr == "" {
		return nil, fmt.Errorf("props: expression must not be empty")
	}
	cfg := expressionConfig{logger: noopEvaluatorLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopEvaluatorLogger{}
	}
	evaluator, err := cfg.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	engine := evaluatorEngineName(evaluator)
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return nil, wrapEvaluationError(engine, expr, cfg.property, err)
	}
	return &ExpressionSource{
		expr:    expr,
		cfg:     cfg,
		rule:    rule,
		engine:  engine,
		subject: NewSubject[any](),
	}, nil
}

func (cfg expressionConfig) resolveEvaluator() (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	var opts []ExprEvaluatorOption
	if cfg.cache != nil {
		opts = append(opts, ExprWithProgramCache(cfg.cache))
	}
	if cfg.functions != nil {
		opts = append(opts, ExprWithFunctionRegistry(cfg.functions))
	}
	evaluator := NewExprEvaluator(opts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return evaluator, nil
}

// Expression returns the source expression.
func (s *ExpressionSource) Expression() string { return s.expr }

// Engine returns the evaluator engine name.
func (s *ExpressionSource) Engine() string { return s.engine }

// Subscribe evaluates the expression and delivers the result to observer.
func (s *ExpressionSource) Subscribe(observer Observer[any]) Subscription {
	value, err := s.Evaluate()
	if err != nil {
		observer.OnError(err)
		return EmptySubscription
	}
	sub := s.subject.Subscribe(observer)
	observer.OnNext(value)
	return sub
}

// Refresh re-evaluates and pushes the result to subscribers. On error the
// source terminates and the error is returned.
func (s *ExpressionSource) Refresh() error {
	if s.subject.ObserverCount() == 0 {
		return nil
	}
	value, err := s.Evaluate()
	if err != nil {
		s.subject.OnError(err)
		return err
	}
	s.subject.OnNext(value)
	return nil
}

// Done reports whether the source has completed or failed.
func (s *ExpressionSource) Done() bool {
	return s.subject.Done()
}

// Close completes the source.
func (s *ExpressionSource) Close() {
	s.subject.OnCompleted()
}

// Evaluate runs the expression once without notifying subscribers.
func (s *ExpressionSource) Evaluate() (any, error) {
	ctx := RuleContext{
		Args:     s.cfg.args,
		Metadata: s.cfg.metadata,
		Property: s.cfg.property,
		Scope:    s.cfg.scope,
	}
	if s.cfg.snapshot != nil {
		ctx.Snapshot = s.cfg.snapshot()
	}
	if s.cfg.now != nil {
		now := s.cfg.now()
		ctx.Now = &now
	}
	start := time.Now()
	value, err := s.rule.Evaluate(ctx)
	err = wrapEvaluationError(s.engine, s.expr, s.cfg.property, err)
	s.cfg.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   s.engine,
		Expr:     s.expr,
		Property: s.cfg.property,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// ExpressionBinding ties an expression over dependency properties to a
// target property in a store.
type ExpressionBinding struct {
	Source *ExpressionSource
	Entry  ValueEntry
	remove func()
}

// Dispose stops listening for dependency changes and removes the entry.
func (b *ExpressionBinding) Dispose() {
	b.stopListening()
	b.Entry.Dispose()
}

// Listening reports whether dependency changes still re-evaluate the
// expression. It turns false once the source ends.
func (b *ExpressionBinding) Listening() bool {
	return b.remove != nil
}

func (b *ExpressionBinding) stopListening() {
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}
}

// BindExpression binds target at priority to expr evaluated over deps. Each
// dependency is visible to the expression under its property name and the
// binding re-evaluates whenever one of them changes. Results pass through
// the conversion gate; an evaluation error ends the binding.
func BindExpression(store *Store, target AnyProperty, expr string, deps []AnyProperty, priority int, opts ...ExpressionOption) (*ExpressionBinding, error) {
	watched := make(map[AnyProperty]bool, len(deps))
	for _, dep := range deps {
		if dep == target {
			return nil, fmt.Errorf("props: expression for %s depends on itself", target.Name())
		}
		watched[dep] = true
	}
	snapshot := func() map[string]any {
		values := make(map[string]any, len(deps))
		for _, dep := range deps {
			values[dep.Name()] = store.GetAny(dep)
		}
		return values
	}
	opts = append(opts, WithSnapshot(snapshot), withTargetProperty(target.Name()))
	source, err := NewExpressionSource(expr, opts...)
	if err != nil {
		return nil, err
	}
	frame, err := store.FrameAt(priority)
	if err != nil {
		return nil, err
	}
	entry, err := frame.BindAny(target, source)
	if err != nil {
		return nil, err
	}
	binding := &ExpressionBinding{Source: source, Entry: entry}
	binding.remove = store.AddListener(func(change PropertyChanged) {
		if !watched[change.Property] {
			return
		}
		err := source.Refresh()
		if err == nil && !source.Done() {
			return
		}
		if err != nil {
			store.logger.Warn("props: expression binding ended",
				"object", store.name,
				"object_id", store.id,
				"property", target.Name(),
				"error", err,
			)
		}
		binding.stopListening()
	})
	return binding, nil
}
