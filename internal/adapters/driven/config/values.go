// Package config holds the value coercions shared by the config stores.
//
// Values reach a store from TOML (int64, float64, bool, []any), from Set
// (any Go value) and from environment overrides (always strings), so every
// getter accepts all three shapes.
package config

import (
	"strconv"
	"strings"
)

// String returns v as a string. Numbers and booleans are formatted.
func String(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int, int64, float64, bool:
		return strings.TrimSpace(toString(x)), true
	default:
		return "", false
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// Int returns v as an int. Integral floats and numeric strings are accepted.
func Int(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != float64(int(x)) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Float returns v as a float64.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool returns v as a bool. Strings accept the forms strconv.ParseBool does.
func Bool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// StringSlice returns v as a []string. A string is split on commas.
func StringSlice(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		var out []string
		for _, part := range strings.Split(x, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// EnvKey maps a dot-notation key to its environment override:
// "embedding.api_key" becomes "GRABDOCS_EMBEDDING_API_KEY".
func EnvKey(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return "GRABDOCS_" + strings.ToUpper(r.Replace(key))
}
