// Package search looks up location and market context for a project. The
// model's findings may arrive as a JSON object or as prose; the decoder
// tries the structured form first and falls back to treating the whole
// text as a summary.
package search

import (
	"fmt"

	"github.com/knearme/showcase/agents/dispatch"
	"github.com/knearme/showcase/core/providers"
)

// Capability is the breaker capability guarding web search.
const Capability = "agent.search"

const systemPrompt = `You research local market context for a trades
business portfolio page: the neighborhood, common building styles, and
climate factors relevant to the project type. Report your findings as a
JSON object when you can structure them, otherwise as short prose. Score
your confidence from 0 to 1.`

var temperature = 0.3

func Spec() dispatch.Spec {
	return dispatch.Spec{
		Role:        dispatch.RoleSearch,
		Capability:  Capability,
		Temperature: &temperature,
		SchemaName:  "report_findings",
		Schema:      schema(),
		System:      systemPrompt,
		BuildUser:   buildUser,
		Decode:      Decode,
	}
}

func schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"findings": map[string]any{"type": "string"},
			"confidence": map[string]any{
				"type": "number", "minimum": 0, "maximum": 1,
			},
		},
		"required": []any{"findings", "confidence"},
	}
}

func buildUser(dctx *dispatch.Context) string {
	return fmt.Sprintf("Project type: %s\nLocation: %s\n\nResearch the local context.",
		dctx.State.ProjectType, dctx.State.Location())
}

// Decode applies the two-tier findings contract: a parseable JSON object
// becomes Structured; anything else is kept whole as Summary.
func Decode(resp *providers.Response, result *dispatch.RoleResult) {
	payload := &dispatch.SearchPayload{}

	findings, _ := resp.Object["findings"].(string)
	if structured, ok := providers.ParseObject(findings); ok {
		payload.Structured = structured
	} else {
		payload.Summary = findings
	}

	result.Search = payload
}
