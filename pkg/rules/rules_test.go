package rules

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func upperFunction(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("upper expects one argument")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("upper expects a string")
	}
	return strings.ToUpper(s), nil
}

func TestExprEvaluatorWithAndWithoutCache(t *testing.T) {
	for _, cache := range []ProgramCache{nil, NewMemoryCache()} {
		evaluator := NewExprEvaluator(WithProgramCache(cache))
		ctx := RuleContext{Snapshot: map[string]any{"count": -3.0}}
		got, err := evaluator.Evaluate(ctx, "count < 0 ? 0 : count")
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if got != 0 {
			t.Fatalf("expected clamp to 0, got %#v", got)
		}
	}
}

func TestExprEvaluatorAssetBinding(t *testing.T) {
	evaluator := NewExprEvaluator()
	ctx := RuleContext{Asset: "sword", Path: "/items/sword.json", Type: "Item"}
	got, err := evaluator.Evaluate(ctx, `asset.type + ":" + asset.name + "@" + asset.path`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "Item:sword@/items/sword.json" {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestExprEvaluatorFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("upper", upperFunction); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("UPPER", upperFunction); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	for _, cache := range []ProgramCache{nil, NewMemoryCache()} {
		evaluator := NewExprEvaluator(WithProgramCache(cache), WithFunctions(registry))
		got, err := evaluator.Evaluate(RuleContext{Snapshot: map[string]any{"name": "gear"}}, "upper(name)")
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if got != "GEAR" {
			t.Fatalf("expected GEAR, got %#v", got)
		}
	}
}

func TestCELEvaluator(t *testing.T) {
	cache := NewMemoryCache()
	evaluator := NewCELEvaluator(WithProgramCache(cache))

	got, err := evaluator.Evaluate(RuleContext{Snapshot: map[string]any{"name": ""}}, `name == "" ? "untitled" : name`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "untitled" {
		t.Fatalf("expected untitled, got %#v", got)
	}

	got, err = evaluator.Evaluate(RuleContext{Snapshot: map[string]any{"name": "kept"}}, `name == "" ? "untitled" : name`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "kept" {
		t.Fatalf("expected cached program to see new snapshot, got %#v", got)
	}

	got, err = evaluator.Evaluate(RuleContext{Snapshot: map[string]any{"title": "x", "name": "y"}}, `title + name`)
	if err != nil {
		t.Fatalf("evaluate with different shape: %v", err)
	}
	if got != "xy" {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestCELEvaluatorCallBinding(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("upper", upperFunction); err != nil {
		t.Fatalf("register: %v", err)
	}
	evaluator := NewCELEvaluator(WithFunctions(registry))
	got, err := evaluator.Evaluate(RuleContext{Snapshot: map[string]any{"name": "gear"}}, `call("upper", [name])`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != "GEAR" {
		t.Fatalf("expected GEAR, got %#v", got)
	}
}

func TestEvaluatorsRejectEmptyExpressions(t *testing.T) {
	for _, evaluator := range []Evaluator{NewExprEvaluator(), NewCELEvaluator()} {
		if _, err := evaluator.Evaluate(RuleContext{}, ""); err == nil {
			t.Fatalf("%s: expected error for empty expression", EngineName(evaluator))
		}
		if _, err := evaluator.Compile(""); err == nil {
			t.Fatalf("%s: expected compile error for empty expression", EngineName(evaluator))
		}
	}
}

func TestEvaluationErrorsCarryMetadata(t *testing.T) {
	_, err := NewExprEvaluator().Evaluate(RuleContext{Path: "/a.json"}, "1 +")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T %v", err, err)
	}
	if evalErr.Engine != "expr" || evalErr.Asset != "/a.json" || evalErr.Expr != "1 +" {
		t.Fatalf("unexpected metadata %+v", evalErr)
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Err: base}

	err := wrapEvaluationError("cel", "rule", "/b.json", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Asset != "/b.json" {
		t.Fatalf("expected missing metadata to be filled, got %+v", existing)
	}
	if wrapEvaluatorError("expr", errors.New("rules: already prefixed")).Error() != "rules: already prefixed" {
		t.Fatalf("expected prefixed errors to pass through")
	}
}

func TestApplyWritesResultsInOrder(t *testing.T) {
	var events []EvaluatorLogEvent
	logger := EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})
	snapshot := map[string]any{"count": -2.0, "name": ""}
	ruleset := []Rule{
		{Path: "count", Expr: "count < 0 ? 0 : count"},
		{Path: "name", Expr: `name == "" ? "untitled" : name`},
		{Path: "meta.label", Expr: `name + "#" + string(count)`},
		{Path: "broken", Expr: "1 +"},
	}

	got, err := Apply(NewExprEvaluator(), RuleContext{Asset: "thing"}, ruleset, snapshot, logger)
	if err == nil {
		t.Fatalf("expected broken rule to surface an error")
	}
	want := map[string]any{
		"count": 0,
		"name":  "untitled",
		"meta":  map[string]any{"label": "untitled#0"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected snapshot (-want +got):\n%s", diff)
	}
	if len(events) != len(ruleset) {
		t.Fatalf("expected one log event per rule, got %d", len(events))
	}
	if events[3].Err == nil || events[0].Err != nil {
		t.Fatalf("unexpected log errors: %+v", events)
	}
}

func TestApplyEdgeCases(t *testing.T) {
	snapshot, err := Apply(nil, RuleContext{}, nil, map[string]any{"a": 1}, nil)
	if err != nil || snapshot["a"] != 1 {
		t.Fatalf("expected no-op without rules, got %v %v", snapshot, err)
	}
	if _, err := Apply(nil, RuleContext{}, []Rule{{Path: "a", Expr: "1"}}, nil, nil); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
	_, err = Apply(NewExprEvaluator(), RuleContext{}, []Rule{{Path: "a.b", Expr: "1"}}, map[string]any{"a": "scalar"}, nil)
	if err == nil {
		t.Fatalf("expected error when crossing a scalar segment")
	}
	_, err = Apply(NewExprEvaluator(), RuleContext{}, []Rule{{Path: "a..b", Expr: "1"}}, map[string]any{}, nil)
	if err == nil {
		t.Fatalf("expected error for empty path segment")
	}
}

func TestValidate(t *testing.T) {
	evaluator := NewExprEvaluator()
	if err := Validate(evaluator, []Rule{{Path: "count", Expr: "count + 1"}}); err != nil {
		t.Fatalf("expected valid rules, got %v", err)
	}
	err := Validate(evaluator, []Rule{{Path: "", Expr: "1"}, {Path: "x", Expr: ""}})
	if err == nil || !strings.Contains(err.Error(), "path is required") {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if !errors.Is(Validate(nil, nil), ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator")
	}
}

func TestNewEvaluatorEngines(t *testing.T) {
	for _, engine := range []Engine{"", EngineExpr, EngineCEL} {
		evaluator, err := NewEvaluator(engine)
		if err != nil || evaluator == nil {
			t.Fatalf("engine %q: %v", engine, err)
		}
	}
	if _, err := NewEvaluator("lua"); !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("expected ErrUnknownEngine, got %v", err)
	}
	_, err := NewEvaluator(EngineJS)
	if jsEvaluatorAvailable() {
		if err != nil {
			t.Fatalf("expected js engine, got %v", err)
		}
	} else if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestRuleContextVariables(t *testing.T) {
	ctx := RuleContext{
		Snapshot: map[string]any{"asset": "shadowed", "count": 2},
		Asset:    "a",
		Path:     "/a.json",
		Type:     "counter",
	}
	want := map[string]any{
		"count": 2,
		"asset": map[string]any{"name": "a", "path": "/a.json", "type": "counter"},
	}
	if diff := cmp.Diff(want, ctx.variables()); diff != "" {
		t.Fatalf("unexpected variables (-want +got):\n%s", diff)
	}
	if ctx.Snapshot["asset"] != "shadowed" {
		t.Fatalf("variables must not mutate the snapshot")
	}
	if (RuleContext{}).assetLabel() != "unknown" || (RuleContext{Asset: "a"}).assetLabel() != "a" {
		t.Fatalf("unexpected asset labels")
	}
}

func TestCELCompileRejectsSyntaxErrors(t *testing.T) {
	evaluator := NewCELEvaluator()
	if _, err := evaluator.Compile("limit +"); err == nil {
		t.Fatalf("expected syntax error at compile time")
	}
	if _, err := evaluator.Compile("undeclared > 1"); err != nil {
		t.Fatalf("undeclared variables are checked per snapshot, got %v", err)
	}
}

func TestBuiltins(t *testing.T) {
	registry, err := Builtins("clamp", "Coalesce")
	if err != nil {
		t.Fatalf("builtins: %v", err)
	}
	if diff := cmp.Diff([]string{"clamp", "coalesce"}, registry.Names()); diff != "" {
		t.Fatalf("unexpected names (-want +got):\n%s", diff)
	}
	if _, err := Builtins("clamp", "nope"); err == nil || !strings.Contains(err.Error(), `"nope"`) {
		t.Fatalf("expected unknown function error, got %v", err)
	}

	cases := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{name: "clamp int below", fn: "clamp", args: []any{int64(-4), 0, 10}, want: int64(0)},
		{name: "clamp int above", fn: "clamp", args: []any{42, 0, 10}, want: int64(10)},
		{name: "clamp float", fn: "clamp", args: []any{2.5, 0, 2}, want: 2.0},
		{name: "coalesce skips empty", fn: "coalesce", args: []any{nil, "", "x", "y"}, want: "x"},
		{name: "coalesce keeps zero", fn: "coalesce", args: []any{nil, 0}, want: 0},
		{name: "coalesce nothing", fn: "coalesce", args: []any{nil, ""}, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := registry.Call(tc.fn, tc.args...)
			if err != nil {
				t.Fatalf("call: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}

	for _, args := range [][]any{{1, 2}, {"x", 0, 1}, {1, 5, 0}} {
		if _, err := registry.Call("clamp", args...); err == nil {
			t.Fatalf("expected clamp%v to fail", args)
		}
	}
}

func TestBuiltinsInExpressions(t *testing.T) {
	registry, err := Builtins(BuiltinNames()...)
	if err != nil {
		t.Fatalf("builtins: %v", err)
	}
	ctx := RuleContext{Snapshot: map[string]any{"limit": int64(50), "title": ""}}
	for _, evaluator := range []Evaluator{NewExprEvaluator(WithFunctions(registry)), NewCELEvaluator(WithFunctions(registry))} {
		got, err := evaluator.Evaluate(ctx, `call("clamp", [limit, 0, 10])`)
		if err != nil {
			t.Fatalf("%s: evaluate: %v", EngineName(evaluator), err)
		}
		if got != int64(10) {
			t.Fatalf("%s: expected 10, got %#v", EngineName(evaluator), got)
		}
	}
	got, err := NewExprEvaluator(WithFunctions(registry)).Evaluate(ctx, `coalesce(title, "untitled")`)
	if err != nil || got != "untitled" {
		t.Fatalf("expected untitled, got %#v %v", got, err)
	}
}
