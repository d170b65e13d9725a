//go:build js_eval

package props

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja. Each evaluation runs
// in a fresh runtime.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

// JSEvaluatorAvailable reports whether the JS evaluator was compiled in.
func JSEvaluatorAvailable() bool {
	return true
}

func (e *jsEvaluator) Engine() string { return "js" }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledRule{evaluator: e, expression: expression, program: program}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	key := "js:" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(ctx RuleContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	if err := e.inject(vm, ctx); err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.label(), err)
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.label(), err)
	}
	return value.Export(), nil
}

func (e *jsEvaluator) inject(vm *goja.Runtime, ctx RuleContext) error {
	globals := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if binding := ctx.scopeBinding(); binding != nil {
		globals["scope"] = binding
	}
	for key, value := range ctx.Snapshot {
		globals[key] = value
	}
	if e.registry != nil {
		globals["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
		for _, name := range e.registry.Names() {
			fn := name
			globals[fn] = func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}
		}
	}
	for key, value := range globals {
		if err := vm.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.program)
}
