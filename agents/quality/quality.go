// Package quality reviews a finished draft before publishing. Its verdict
// is advisory; a failed review never blocks the caller.
package quality

import (
	"encoding/json"
	"fmt"

	"github.com/knearme/showcase/agents/dispatch"
	"github.com/knearme/showcase/core/providers"
)

// Capability is the breaker capability guarding quality review.
const Capability = "agent.quality"

const systemPrompt = `You review a trades-business portfolio page draft.
Check the story is complete and specific, the copy reads naturally in the
owner's voice, and the images support it. Score the draft from 0 to 1,
list concrete issues, and say whether it is ready to publish. Score your
confidence from 0 to 1.`

var temperature = 0.0

func Spec() dispatch.Spec {
	return dispatch.Spec{
		Role:        dispatch.RoleQuality,
		Capability:  Capability,
		Temperature: &temperature,
		SchemaName:  "review_draft",
		Schema:      schema(),
		System:      systemPrompt,
		BuildUser:   buildUser,
		Decode:      decode,
	}
}

func schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type": "number", "minimum": 0, "maximum": 1,
			},
			"issues": map[string]any{
				"type": "array", "items": map[string]any{"type": "string"},
			},
			"readyToPublish": map[string]any{"type": "boolean"},
			"confidence": map[string]any{
				"type": "number", "minimum": 0, "maximum": 1,
			},
		},
		"required": []any{"score", "readyToPublish", "confidence"},
	}
}

func buildUser(dctx *dispatch.Context) string {
	stateJSON, _ := json.Marshal(dctx.State)
	return fmt.Sprintf("Draft:\n%s\n\nReview it.", stateJSON)
}

func decode(resp *providers.Response, result *dispatch.RoleResult) {
	payload := &dispatch.QualityPayload{}
	if f, ok := resp.Object["score"].(float64); ok {
		payload.Score = f
	}
	if raw, ok := resp.Object["issues"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				payload.Issues = append(payload.Issues, s)
			}
		}
	}
	if b, ok := resp.Object["readyToPublish"].(bool); ok {
		payload.ReadyToPublish = b
	}
	result.Quality = payload
}
