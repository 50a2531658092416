package jsonasset

import (
	"strings"

	"github.com/goliatone/go-jsonasset/pkg/activity"
	"github.com/goliatone/go-jsonasset/pkg/rules"
)

// Option configures assets and libraries.
type Option func(*assetConfig)

type assetConfig struct {
	logger          Logger
	codec           any
	indent          string
	strictUnknown   bool
	defaults        any
	rules           []rules.Rule
	evaluator       rules.Evaluator
	engine          rules.Engine
	functions       *rules.FunctionRegistry
	evaluatorLogger rules.EvaluatorLogger
	activityHooks   activity.Hooks
	activityConfig  *activity.Config
	name            string
}

func applyOptions(opts []Option) assetConfig {
	cfg := assetConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c assetConfig) loggerOrDefault() Logger {
	if c.logger != nil {
		return c.logger
	}
	return DefaultLogger()
}

func (c assetConfig) emitter() *activity.Emitter {
	cfg := activity.Config{Enabled: len(c.activityHooks) > 0}
	if c.activityConfig != nil {
		cfg = *c.activityConfig
	}
	return activity.NewEmitter(c.activityHooks, cfg)
}

// WithLogger routes asset diagnostics to logger. A nil logger silences them.
func WithLogger(logger Logger) Option {
	return func(cfg *assetConfig) {
		if logger == nil {
			cfg.logger = NoopLogger()
			return
		}
		cfg.logger = logger
	}
}

// WithCodec replaces the default JSON codec. The codec must match the
// payload type of the asset it is applied to; otherwise it is ignored.
func WithCodec[T any](codec Codec[T]) Option {
	return func(cfg *assetConfig) {
		if codec != nil {
			cfg.codec = codec
		}
	}
}

// WithIndent sets the indent of the default codec.
func WithIndent(indent string) Option {
	return func(cfg *assetConfig) {
		cfg.indent = indent
	}
}

// WithDisallowUnknownFields makes the default codec report unknown keys as
// errors instead of warnings.
func WithDisallowUnknownFields(disallow bool) Option {
	return func(cfg *assetConfig) {
		cfg.strictUnknown = disallow
	}
}

// WithDefaults fills zero fields of the payload from defaults during
// sanitize. defaults must have the payload type.
func WithDefaults[T any](defaults T) Option {
	return func(cfg *assetConfig) {
		cfg.defaults = defaults
	}
}

// WithSanitizeRules appends declarative rules evaluated during sanitize.
func WithSanitizeRules(ruleset ...rules.Rule) Option {
	return func(cfg *assetConfig) {
		cfg.rules = append(append([]rules.Rule(nil), cfg.rules...), ruleset...)
	}
}

// WithRuleEvaluator supplies a custom evaluator for sanitize rules. It takes
// precedence over WithRuleEngine and WithRuleFunctions.
func WithRuleEvaluator(evaluator rules.Evaluator) Option {
	return func(cfg *assetConfig) {
		cfg.evaluator = evaluator
	}
}

// WithRuleEngine selects the built-in engine for sanitize rules. Defaults to
// expr.
func WithRuleEngine(engine rules.Engine) Option {
	return func(cfg *assetConfig) {
		cfg.engine = rules.Engine(strings.ToLower(strings.TrimSpace(string(engine))))
	}
}

// WithRuleFunctions exposes registry to sanitize rules, by name and through
// call(name, args...).
func WithRuleFunctions(registry *rules.FunctionRegistry) Option {
	return func(cfg *assetConfig) {
		cfg.functions = registry
	}
}

// WithRuleLogger records each rule evaluation.
func WithRuleLogger(logger rules.EvaluatorLogger) Option {
	return func(cfg *assetConfig) {
		cfg.evaluatorLogger = logger
	}
}

// WithActivityHooks attaches activity hooks. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *assetConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides emission defaults. Without it, emission is
// enabled whenever hooks are attached.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *assetConfig) {
		c := config
		cfg.activityConfig = &c
	}
}

// WithName sets the display name used in logs and events.
func WithName(name string) Option {
	return func(cfg *assetConfig) {
		cfg.name = strings.TrimSpace(name)
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
