package rules

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

var builtins = map[string]Function{
	"clamp":    clamp,
	"coalesce": coalesce,
}

// BuiltinNames lists the helpers Builtins can register.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins returns a registry holding the named helpers.
func Builtins(names ...string) (*FunctionRegistry, error) {
	registry := NewFunctionRegistry()
	for _, name := range names {
		fn, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("rules: unknown function %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
		}
		if err := registry.Register(name, fn); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// clamp(value, min, max) bounds a number. Integer inputs keep an integer
// result.
func clamp(args ...any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("rules: clamp takes 3 arguments, got %d", len(args))
	}
	var (
		values  [3]float64
		integer = true
	)
	for i, arg := range args {
		value, isInt, ok := number(arg)
		if !ok {
			return nil, fmt.Errorf("rules: clamp argument %d is %T, not a number", i, arg)
		}
		values[i] = value
		integer = integer && isInt
	}
	if values[1] > values[2] {
		return nil, fmt.Errorf("rules: clamp bounds inverted: %v > %v", values[1], values[2])
	}
	if !integer {
		return math.Min(math.Max(values[0], values[1]), values[2]), nil
	}
	value, _ := asInt64(args[0])
	low, _ := asInt64(args[1])
	high, _ := asInt64(args[2])
	return min(max(value, low), high), nil
}

// coalesce returns the first argument that is neither nil nor an empty string.
func coalesce(args ...any) (any, error) {
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case string:
			if v != "" {
				return v, nil
			}
		default:
			return v, nil
		}
	}
	return nil, nil
}

func number(value any) (float64, bool, bool) {
	if n, ok := asInt64(value); ok {
		return float64(n), true, true
	}
	switch v := value.(type) {
	case float32:
		return float64(v), false, true
	case float64:
		return v, false, true
	}
	return 0, false, false
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}
