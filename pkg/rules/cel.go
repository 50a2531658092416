package rules

import (
	"reflect"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celEvaluator struct {
	engineConfig
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Snapshot fields
// are declared as dynamically typed variables, so programs are built per
// payload shape.
func NewCELEvaluator(opts ...Option) Evaluator {
	return &celEvaluator{engineConfig: applyOptions(opts)}
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.assetLabel(), err)
	}
	return rule.Evaluate(ctx)
}

// Compile parses expression without declarations, which catches syntax
// errors. Type checking waits for the first snapshot.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, wrapEvaluatorError("cel", errEmptyExpression)
	}
	env, err := e.buildEnv(nil)
	if err != nil {
		return nil, wrapEvaluatorError("cel", err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, "", issues.Err())
	}
	return &celRule{evaluator: e, expression: expression}, nil
}

type celRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celRule) Evaluate(ctx RuleContext) (any, error) {
	program, err := r.evaluator.program(r.expression, ctx)
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.assetLabel(), err)
	}
	out, _, err := program.Eval(ctx.variables())
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.assetLabel(), err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) program(expression string, ctx RuleContext) (celgo.Program, error) {
	key := celCacheKey(expression, ctx)
	if cached, ok := e.load(key); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}
	env, err := e.buildEnv(ctx.Snapshot)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.keep(key, program)
	return program, nil
}

func (e *celEvaluator) buildEnv(snapshot map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.CrossTypeNumericComparisons(true),
		celgo.Variable("asset", celgo.DynType),
	}
	if e.functions != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(e.callBinding),
			),
		))
	}
	for key := range snapshot {
		if key == "asset" || key == "call" {
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

// celCacheKey covers the payload type and field names, since both shape the
// declared environment.
func celCacheKey(expression string, ctx RuleContext) string {
	keys := make([]string, 0, len(ctx.Snapshot))
	for key := range ctx.Snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return "cel|" + ctx.Type + "|" + strings.Join(keys, ",") + "|" + expression
}

func (e *celEvaluator) callBinding(name, arguments ref.Val) ref.Val {
	fn, ok := name.Value().(string)
	if !ok {
		return types.NewErr("rules: call name must be string")
	}
	native, err := arguments.ConvertToNative(reflect.TypeOf([]any{}))
	if err != nil {
		return types.NewErr("rules: call arguments: %v", err)
	}
	args, _ := native.([]any)
	result, err := e.functions.Call(fn, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
