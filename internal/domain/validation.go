package domain

import (
	"maps"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// cloneAnyMap creates a shallow copy of a mapping so decoders never mutate
// caller-owned input. Returns nil for nil input.
func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	maps.Copy(result, m)
	return result
}

// cloneStringPtr copies the pointee so records do not alias caller memory.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
