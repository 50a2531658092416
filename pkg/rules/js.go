//go:build js_eval

package rules

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	engineConfig
}

func newJSEvaluator(cfg engineConfig) Evaluator {
	return &jsEvaluator{engineConfig: cfg}
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.assetLabel(), err)
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, wrapEvaluatorError("js", errEmptyExpression)
	}
	key := "js|" + expression
	if cached, ok := e.load(key); ok {
		if program, ok := cached.(*goja.Program); ok {
			return &jsRule{evaluator: e, program: program, expression: expression}, nil
		}
	}
	source := fmt.Sprintf("(function(){ return (%s); })()", expression)
	program, err := goja.Compile("rule", source, true)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	e.keep(key, program)
	return &jsRule{evaluator: e, program: program, expression: expression}, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

// Evaluate runs the program on a fresh runtime; goja runtimes are not safe
// for concurrent use.
func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	vm := goja.New()
	for name, value := range ctx.variables() {
		if err := vm.Set(name, value); err != nil {
			return nil, wrapEvaluationError("js", r.expression, ctx.assetLabel(), err)
		}
	}
	for name, fn := range r.evaluator.bound() {
		if err := vm.Set(name, fn); err != nil {
			return nil, wrapEvaluationError("js", r.expression, ctx.assetLabel(), err)
		}
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, wrapEvaluationError("js", r.expression, ctx.assetLabel(), err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}

func isJSEvaluator(e Evaluator) bool {
	_, ok := e.(*jsEvaluator)
	return ok
}
