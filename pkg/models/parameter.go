package models

import "github.com/dukex/otomato/pkg/validation"

// Parameter is a typed key/value slot declared by a catalog descriptor.
type Parameter struct {
	Key         string               `json:"key"                   validate:"required"`
	Type        validation.ParamType `json:"type"                  validate:"required"`
	Description string               `json:"description,omitempty"`
	Value       any                  `json:"value,omitempty"`
	Mandatory   bool                 `json:"mandatory,omitempty"`
	Default     any                  `json:"default,omitempty"`
}

func (p Parameter) clone() Parameter {
	p.Value = cloneValue(p.Value)
	p.Default = cloneValue(p.Default)

	return p
}

// cloneValue deep-copies the JSON-shaped values a parameter may carry.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return v
	}
}
