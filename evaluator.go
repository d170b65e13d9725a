package props

import (
	"maps"
	"time"
)

// RuleContext carries the inputs of one expression evaluation.
type RuleContext struct {
	// Snapshot maps dependency names to their current effective values.
	Snapshot map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Property names the property the expression feeds, if any.
	Property string
	Scope    Scope
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

func (ctx RuleContext) label() string {
	if ctx.Property != "" {
		return ctx.Property
	}
	if ctx.Scope.Name != "" {
		return ctx.Scope.Name
	}
	return ""
}

func (ctx RuleContext) scopeBinding() map[string]any {
	if ctx.Scope.isZero() {
		return nil
	}
	binding := map[string]any{
		"name":     ctx.Scope.Name,
		"label":    ctx.Scope.Label,
		"priority": ctx.Scope.Priority,
	}
	if len(ctx.Scope.Metadata) > 0 {
		binding["metadata"] = maps.Clone(ctx.Scope.Metadata)
	}
	return binding
}

// Evaluator runs expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// EngineNamer is implemented by evaluators that report their engine name in
// logs and errors.
type EngineNamer interface {
	Engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(EngineNamer); ok {
		return named.Engine()
	}
	return "custom"
}
