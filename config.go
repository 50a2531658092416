package jsonasset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-jsonasset/pkg/activity"
	"github.com/goliatone/go-jsonasset/pkg/rules"
	"github.com/goliatone/go-jsonasset/pkg/store"
)

// Config is the file form of a library's settings.
type Config struct {
	Root                  string          `json:"root" yaml:"root"`
	AtomicWrites          bool            `json:"atomic_writes" yaml:"atomic_writes"`
	Indent                int             `json:"indent" yaml:"indent"`
	DisallowUnknownFields bool            `json:"disallow_unknown_fields" yaml:"disallow_unknown_fields"`
	Engine                rules.Engine    `json:"engine" yaml:"engine"`
	Functions             []string        `json:"functions" yaml:"functions"`
	Rules                 []rules.Rule    `json:"rules" yaml:"rules"`
	Activity              activity.Config `json:"activity" yaml:"activity"`
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("jsonasset: read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("jsonasset: config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML, rejecting unknown keys, and validates the result.
// An empty document yields the zero Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("jsonasset: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the indent width, the engine name, the function names and
// every rule.
func (c Config) Validate() error {
	if c.Indent < 0 {
		return fmt.Errorf("jsonasset: indent must not be negative, got %d", c.Indent)
	}
	evaluator, err := c.evaluator()
	if err != nil {
		return err
	}
	if len(c.Rules) == 0 {
		return nil
	}
	return rules.Validate(evaluator, c.Rules)
}

func (c Config) engine() rules.Engine {
	return rules.Engine(strings.ToLower(strings.TrimSpace(string(c.Engine))))
}

// functions builds the registry of built-in helpers named by the config.
func (c Config) functions() (*rules.FunctionRegistry, error) {
	if len(c.Functions) == 0 {
		return nil, nil
	}
	registry, err := rules.Builtins(c.Functions...)
	if err != nil {
		return nil, fmt.Errorf("jsonasset: functions: %w", err)
	}
	return registry, nil
}

func (c Config) evaluator() (rules.Evaluator, error) {
	functions, err := c.functions()
	if err != nil {
		return nil, err
	}
	evaluator, err := rules.NewEvaluator(c.engine(), rules.WithFunctions(functions))
	if err != nil {
		return nil, fmt.Errorf("jsonasset: engine %q: %w", c.Engine, err)
	}
	return evaluator, nil
}

// Options translates the codec, rule and activity settings. extra options
// are appended and take precedence. An empty activity section leaves
// emission to the attached hooks.
func (c Config) Options(extra ...Option) ([]Option, error) {
	opts := []Option{WithDisallowUnknownFields(c.DisallowUnknownFields)}
	if c.Activity.Enabled || strings.TrimSpace(c.Activity.Channel) != "" {
		opts = append(opts, WithActivityConfig(c.Activity))
	}
	if c.Indent > 0 {
		opts = append(opts, WithIndent(strings.Repeat(" ", c.Indent)))
	}
	if len(c.Rules) > 0 {
		functions, err := c.functions()
		if err != nil {
			return nil, err
		}
		if _, err := c.evaluator(); err != nil {
			return nil, err
		}
		opts = append(opts,
			WithRuleEngine(c.engine()),
			WithRuleFunctions(functions),
			WithSanitizeRules(c.Rules...),
		)
	}
	return append(opts, extra...), nil
}

// StoreOptions translates the storage settings.
func (c Config) StoreOptions() []store.FileStoreOption {
	var opts []store.FileStoreOption
	if root := strings.TrimSpace(c.Root); root != "" {
		opts = append(opts, store.WithRoot(root))
	}
	if c.AtomicWrites {
		opts = append(opts, store.WithAtomicWrites(true))
	}
	return opts
}
