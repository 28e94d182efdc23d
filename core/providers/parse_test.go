package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knearme/showcase/core/errors"
)

func TestParseObject_PlainJSON(t *testing.T) {
	obj, ok := ParseObject(`{"summary": "stone patio pricing", "sources": 3}`)
	require.True(t, ok)
	assert.Equal(t, "stone patio pricing", obj["summary"])
}

func TestParseObject_EmbeddedInProse(t *testing.T) {
	text := "Here is what I found:\n```json\n{\"summary\": \"masonry rates\"}\n```\nHope that helps."
	obj, ok := ParseObject(text)
	require.True(t, ok)
	assert.Equal(t, "masonry rates", obj["summary"])
}

func TestParseObject_UnstructuredFallsThrough(t *testing.T) {
	// Callers treat the whole string as an unstructured summary on failure.
	obj, ok := ParseObject("Masonry repair in Denver typically runs $40-70 per square foot.")
	assert.False(t, ok)
	assert.Nil(t, obj)
}

func TestParseObject_MalformedBraces(t *testing.T) {
	_, ok := ParseObject("set {a, b} is not JSON")
	assert.False(t, ok)
}

func TestValidateObject_NilObjectIsSchemaFailure(t *testing.T) {
	err := validateObject(nil, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, errors.TierSchema, errors.GetTier(err))
}

func TestValidateObject_MissingRequiredField(t *testing.T) {
	schema := map[string]any{
		"required": []any{"confidence"},
	}
	err := validateObject(map[string]any{"title": "x"}, schema)
	require.Error(t, err)
	assert.Equal(t, errors.TierSchema, errors.GetTier(err))
}

func TestValidateObject_AllRequiredPresent(t *testing.T) {
	schema := map[string]any{
		"required": []any{"title", "confidence"},
	}
	err := validateObject(map[string]any{"title": "x", "confidence": 0.9}, schema)
	assert.NoError(t, err)
}
