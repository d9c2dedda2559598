package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// parseJSONObject decodes raw as a JSON object; field names the flag in errors.
func parseJSONObject(raw, field string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%s must be valid JSON: %v", field, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a JSON object", field)
	}
	return obj, nil
}

// coerceOptionValue turns a KEY=VALUE string into a bool, int or float when it
// reads as one.
func coerceOptionValue(raw string) any {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return raw
}

// parseOptions merges --options-json with repeated --option KEY=VALUE flags;
// the flags win.
func parseOptions(items []string, optionsJSON string) (map[string]any, error) {
	opts, err := parseJSONObject(optionsJSON, "options-json")
	if err != nil {
		return nil, err
	}
	for k, v := range opts {
		switch v.(type) {
		case bool, float64, string:
		default:
			return nil, fmt.Errorf("options-json only supports primitive values, got %s=%T", k, v)
		}
	}
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --option %q, expected KEY=VALUE", item)
		}
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("invalid --option %q, key is empty", item)
		}
		opts[k] = coerceOptionValue(v)
	}
	return opts, nil
}
