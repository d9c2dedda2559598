package domain

import "time"

// Profile is a named settings document used to pre-fill job options.
type Profile struct {
	Name      string         `json:"name"`
	Settings  map[string]any `json:"settings"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CloneValues deep-copies a JSON-shaped map so nested objects and arrays are
// not shared with the caller.
func CloneValues(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneValues(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
