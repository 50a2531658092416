package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Rule assigns the result of Expr to the dotted Path of a snapshot.
type Rule struct {
	Path string `json:"path" yaml:"path"`
	Expr string `json:"expr" yaml:"expr"`
}

// Validate checks rules are well formed and compile against evaluator.
func Validate(evaluator Evaluator, rules []Rule) error {
	if evaluator == nil {
		return ErrNoEvaluator
	}
	var errs []error
	for i, rule := range rules {
		if strings.TrimSpace(rule.Path) == "" {
			errs = append(errs, fmt.Errorf("rules: rule %d: path is required", i))
			continue
		}
		if _, err := evaluator.Compile(rule.Expr); err != nil {
			errs = append(errs, fmt.Errorf("rules: rule %d (%s): %w", i, rule.Path, err))
		}
	}
	return errors.Join(errs...)
}

// Apply evaluates rules in order against snapshot, writing each result back
// before the next rule runs. A failing rule leaves its path untouched and
// does not stop later rules; all failures are returned joined.
func Apply(evaluator Evaluator, ctx RuleContext, rules []Rule, snapshot map[string]any, logger EvaluatorLogger) (map[string]any, error) {
	if len(rules) == 0 {
		return snapshot, nil
	}
	if evaluator == nil {
		return snapshot, ErrNoEvaluator
	}
	if logger == nil {
		logger = noopEvaluatorLogger{}
	}
	if snapshot == nil {
		snapshot = map[string]any{}
	}

	engine := EngineName(evaluator)
	var errs []error
	for _, rule := range rules {
		ctx.Snapshot = snapshot
		start := time.Now()
		value, err := evaluate(evaluator, ctx, rule.Expr)
		err = wrapEvaluationError(engine, rule.Expr, ctx.assetLabel(), err)
		logger.LogEvaluation(EvaluatorLogEvent{
			Engine:   engine,
			Expr:     rule.Expr,
			Asset:    ctx.assetLabel(),
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := setPath(snapshot, rule.Path, value); err != nil {
			errs = append(errs, err)
		}
	}
	return snapshot, errors.Join(errs...)
}

func evaluate(evaluator Evaluator, ctx RuleContext, expression string) (any, error) {
	compiled, err := evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(ctx)
}

func setPath(target map[string]any, path string, value any) error {
	segments := strings.Split(strings.TrimSpace(path), ".")
	for _, segment := range segments {
		if segment == "" {
			return fmt.Errorf("rules: invalid path %q", path)
		}
	}
	current := target
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment]
		if !ok || next == nil {
			child := map[string]any{}
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("rules: path %q crosses non-object segment %q", path, segment)
		}
		current = child
	}
	current[segments[len(segments)-1]] = value
	return nil
}
