package rules

import (
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprEvaluator struct {
	engineConfig
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...Option) Evaluator {
	return &exprEvaluator{engineConfig: applyOptions(opts)}
}

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.assetLabel(), err)
	}
	return rule.Evaluate(ctx)
}

// Compile checks expression once. Programs do not depend on the snapshot, so
// the cache is keyed by expression alone.
func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, wrapEvaluatorError("expr", errEmptyExpression)
	}
	key := "expr|" + expression
	if cached, ok := e.load(key); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return &exprRule{program: program, expression: expression}, nil
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for name, fn := range e.bound() {
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}
	e.keep(key, program)
	return &exprRule{program: program, expression: expression}, nil
}

type exprRule struct {
	program    *exprvm.Program
	expression string
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	result, err := exprlang.Run(r.program, ctx.variables())
	if err != nil {
		return nil, wrapEvaluationError("expr", r.expression, ctx.assetLabel(), err)
	}
	return result, nil
}
