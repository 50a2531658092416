package rules

import "fmt"

// Option configures a built-in evaluator.
type Option func(*engineConfig)

type engineConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// WithProgramCache reuses compiled programs across evaluations.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// WithFunctions binds every function in registry by name, and as
// call(name, args...), in the evaluator's expressions.
func WithFunctions(registry *FunctionRegistry) Option {
	return func(cfg *engineConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

func applyOptions(opts []Option) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg engineConfig) load(key string) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(key)
}

func (cfg engineConfig) keep(key string, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(key, program)
	}
}

// callFunction backs call(name, args...). A single list argument is spread,
// matching the CEL form call(name, [args]).
func (cfg engineConfig) callFunction(params ...any) (any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("rules: call needs a function name")
	}
	name, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("rules: call name must be a string, got %T", params[0])
	}
	args := params[1:]
	if len(args) == 1 {
		if list, ok := args[0].([]any); ok {
			args = list
		}
	}
	return cfg.functions.Call(name, args...)
}

// bound returns the registry functions keyed by name.
func (cfg engineConfig) bound() map[string]func(...any) (any, error) {
	if cfg.functions == nil {
		return nil
	}
	names := cfg.functions.Names()
	out := make(map[string]func(...any) (any, error), len(names)+1)
	for _, name := range names {
		name := name
		out[name] = func(params ...any) (any, error) {
			return cfg.functions.Call(name, params...)
		}
	}
	out["call"] = cfg.callFunction
	return out
}
