// Package layout orders project images and picks the hero shot.
package layout

import (
	"encoding/json"
	"fmt"

	"github.com/knearme/showcase/agents/dispatch"
	"github.com/knearme/showcase/core/providers"
)

// Capability is the breaker capability guarding layout selection.
const Capability = "agent.layout"

const systemPrompt = `You arrange portfolio project photos. Given the image
list with roles (before, after, progress, detail), choose a display order
that tells the before-to-after story and pick the single strongest hero
image. Score your confidence from 0 to 1.`

var temperature = 0.2

func Spec() dispatch.Spec {
	return dispatch.Spec{
		Role:        dispatch.RoleLayout,
		Capability:  Capability,
		Temperature: &temperature,
		SchemaName:  "arrange_images",
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
			"order": map[string]any{
				"type": "array", "items": map[string]any{"type": "string"},
			},
			"heroImageId": map[string]any{"type": "string"},
			"rationale":   map[string]any{"type": "string"},
			"confidence": map[string]any{
				"type": "number", "minimum": 0, "maximum": 1,
			},
		},
		"required": []any{"order", "heroImageId", "confidence"},
	}
}

func buildUser(dctx *dispatch.Context) string {
	imagesJSON, _ := json.Marshal(dctx.State.Images)
	return fmt.Sprintf("Project type: %s\nImages:\n%s\n\nArrange them.",
		dctx.State.ProjectType, imagesJSON)
}

func decode(resp *providers.Response, result *dispatch.RoleResult) {
	payload := &dispatch.LayoutPayload{}
	if raw, ok := resp.Object["order"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				payload.Order = append(payload.Order, s)
			}
		}
	}
	if s, ok := resp.Object["heroImageId"].(string); ok {
		payload.HeroImageID = s
	}
	if s, ok := resp.Object["rationale"].(string); ok {
		payload.Rationale = s
	}
	result.Layout = payload
}
