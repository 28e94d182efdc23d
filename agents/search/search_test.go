package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knearme/showcase/agents/dispatch"
	"github.com/knearme/showcase/core/providers"
)

func TestDecode_StructuredFindings(t *testing.T) {
	resp := &providers.Response{Object: map[string]any{
		"findings":   `{"neighborhood": "Berkeley", "styles": ["bungalow"]}`,
		"confidence": 0.8,
	}}
	result := &dispatch.RoleResult{Role: dispatch.RoleSearch}

	Decode(resp, result)

	require.NotNil(t, result.Search)
	assert.Equal(t, "Berkeley", result.Search.Structured["neighborhood"])
	assert.Empty(t, result.Search.Summary)
}

func TestDecode_ProseFallsBackToSummary(t *testing.T) {
	prose := "Denver's older neighborhoods favor brick bungalows with stone accents."
	resp := &providers.Response{Object: map[string]any{
		"findings":   prose,
		"confidence": 0.6,
	}}
	result := &dispatch.RoleResult{Role: dispatch.RoleSearch}

	Decode(resp, result)

	require.NotNil(t, result.Search)
	assert.Nil(t, result.Search.Structured)
	assert.Equal(t, prose, result.Search.Summary)
}

func TestDecode_EmbeddedObjectExtracted(t *testing.T) {
	resp := &providers.Response{Object: map[string]any{
		"findings": `Here is what I found: {"climate": "semi-arid"} based on the area.`,
	}}
	result := &dispatch.RoleResult{Role: dispatch.RoleSearch}

	Decode(resp, result)

	require.NotNil(t, result.Search.Structured)
	assert.Equal(t, "semi-arid", result.Search.Structured["climate"])
}
