package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/knearme/showcase/core/errors"
)

// parseObject parses a JSON object from s, returning nil when s is not a
// JSON object.
func parseObject(s string) map[string]any {
	var object map[string]any
	if err := json.Unmarshal([]byte(s), &object); err != nil {
		return nil
	}
	return object
}

// ParseObject extracts a JSON object embedded in free-form model text.
// It returns the parsed object and true on success. On failure the caller
// must treat the whole string as an unstructured summary; the structured
// path is never assumed to succeed.
func ParseObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)

	if obj := parseObject(trimmed); obj != nil {
		return obj, true
	}

	// Models often wrap JSON in prose or code fences; take the outermost
	// brace-delimited span and try again.
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	if obj := parseObject(trimmed[start : end+1]); obj != nil {
		return obj, true
	}
	return nil, false
}

// validateObject checks a parsed object against the request schema's
// required fields. A nil object or a missing required field is a
// schema-tier failure, treated identically to a transport failure for
// circuit-breaker accounting.
func validateObject(object map[string]any, schema map[string]any) error {
	if object == nil {
		return errors.NewTieredError(errors.TierSchema,
			"model returned no parseable structured object", nil)
	}

	for _, field := range requiredFields(schema) {
		if _, ok := object[field]; !ok {
			return errors.NewTieredError(errors.TierSchema,
				fmt.Sprintf("required field %q missing from model output", field), nil)
		}
	}
	return nil
}
