package props

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes registry functions through
// call(name, args...).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.registry = registry.Clone()
	}
}

var anySliceType = reflect.TypeFor[[]any]()

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. CEL checks
// expressions against declared variables, so the snapshot keys take part in
// the compiled program's identity.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Engine() string { return "cel" }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

// Compile defers building the CEL program until the snapshot shape is known.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, snapshot map[string]any) (*celProgram, error) {
	variables := slices.Sorted(maps.Keys(snapshot))
	key := "cel:" + strings.Join(variables, ",") + ":" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(variables)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, "", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}
	bundle := &celProgram{env: env, program: prg}
	if e.cache != nil {
		e.cache.Set(key, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(variables []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("scope", celgo.DynType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding()),
		)))
	}
	for _, key := range variables {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx RuleContext) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"scope":    map[string]any{},
	}
	if binding := ctx.scopeBinding(); binding != nil {
		activation["scope"] = binding
	}
	for key, value := range ctx.Snapshot {
		activation[key] = value
	}
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	program, err := r.evaluator.loadOrCompile(r.expression, ctx.Snapshot)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(r.evaluator.activation(ctx))
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.label(), err)
	}
	return out.Value(), nil
}

// callBinding implements call(name, [args...]).
func (e *celEvaluator) callBinding() functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if len(values) != 2 {
			return types.NewErr("props: call requires a function name and an argument list")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("props: call name must be string")
		}
		var args []any
		if list, ok := values[1].Value().([]ref.Val); ok {
			for _, val := range list {
				args = append(args, val.Value())
			}
		} else if native, err := values[1].ConvertToNative(anySliceType); err == nil {
			args, _ = native.([]any)
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
