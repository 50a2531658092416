package rules

// RuleContext describes the asset a rule is evaluated for. Expressions see
// every top-level snapshot field as a variable, plus `asset` with the name,
// path and payload type of the asset.
type RuleContext struct {
	Snapshot map[string]any
	Asset    string
	Path     string
	Type     string
}

func (ctx RuleContext) assetLabel() string {
	if ctx.Path != "" {
		return ctx.Path
	}
	if ctx.Asset != "" {
		return ctx.Asset
	}
	return "unknown"
}

func (ctx RuleContext) binding() map[string]any {
	return map[string]any{
		"name": ctx.Asset,
		"path": ctx.Path,
		"type": ctx.Type,
	}
}

// variables returns the names bound for an evaluation. The asset binding
// shadows a snapshot field of the same name.
func (ctx RuleContext) variables() map[string]any {
	vars := make(map[string]any, len(ctx.Snapshot)+1)
	for key, value := range ctx.Snapshot {
		vars[key] = value
	}
	vars["asset"] = ctx.binding()
	return vars
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is an expression checked once and evaluated per asset.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// Engine names a built-in evaluator.
type Engine string

const (
	EngineExpr Engine = "expr"
	EngineCEL  Engine = "cel"
	EngineJS   Engine = "js"
)

// NewEvaluator constructs the built-in evaluator for engine. The empty engine
// selects expr. The JS engine is only available when built with the js_eval
// tag.
func NewEvaluator(engine Engine, opts ...Option) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, ErrEngineUnavailable
		}
		return newJSEvaluator(applyOptions(opts)), nil
	default:
		return nil, ErrUnknownEngine
	}
}

// EngineName reports the engine behind e.
func EngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return string(EngineExpr)
	case *celEvaluator:
		return string(EngineCEL)
	default:
		if isJSEvaluator(e) {
			return string(EngineJS)
		}
		return "custom"
	}
}
