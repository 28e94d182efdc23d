// Package narrative generates customer-facing project copy from the
// accumulated story.
package narrative

import (
	"encoding/json"
	"fmt"

	"github.com/knearme/showcase/agents/dispatch"
	"github.com/knearme/showcase/core/providers"
)

// Capability is the breaker capability guarding narrative generation.
const Capability = "agent.narrative"

const systemPrompt = `You write first-person portfolio copy for a skilled
trades business. Using the project facts and photos, produce a title,
description, and SEO copy in the owner's voice. Plain, concrete language;
no marketing fluff. Score your confidence from 0 to 1.`

var temperature = 0.7

// Spec returns the dispatch spec for the narrative role. Images are
// attached so the copy can reference what the photos actually show.
func Spec() dispatch.Spec {
	return dispatch.Spec{
		Role:         dispatch.RoleNarrative,
		Capability:   Capability,
		Temperature:  &temperature,
		SchemaName:   "write_project_copy",
		Schema:       schema(),
		System:       systemPrompt,
		AttachImages: true,
		BuildUser:    buildUser,
		Decode:       decode,
	}
}

func schema() map[string]any {
	stringField := map[string]any{"type": "string"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":          stringField,
			"description":    stringField,
			"seoTitle":       stringField,
			"seoDescription": stringField,
			"tags": map[string]any{
				"type": "array", "items": stringField,
			},
			"confidence": map[string]any{
				"type": "number", "minimum": 0, "maximum": 1,
			},
		},
		"required": []any{"title", "description", "confidence"},
	}
}

func buildUser(dctx *dispatch.Context) string {
	stateJSON, _ := json.Marshal(dctx.State)
	prompt := fmt.Sprintf("Project facts:\n%s", stateJSON)
	if dctx.Message != "" {
		prompt += "\n\nOwner's note:\n" + dctx.Message
	}
	return prompt + "\n\nWrite the portfolio copy."
}

// copyFields maps schema keys onto project state field names.
var copyFields = map[string]string{
	"title":          "title",
	"description":    "description",
	"seoTitle":       "seoTitle",
	"seoDescription": "seoDescription",
}

func decode(resp *providers.Response, result *dispatch.RoleResult) {
	payload := &dispatch.NarrativePayload{Updates: map[string]string{}}
	for key, field := range copyFields {
		if s, ok := resp.Object[key].(string); ok && s != "" {
			payload.Updates[field] = s
		}
	}
	if raw, ok := resp.Object["tags"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				payload.Tags = append(payload.Tags, s)
			}
		}
	}
	result.Narrative = payload
}
