package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/knearme/showcase/core/project"
	"github.com/knearme/showcase/core/providers"
)

const extractionSystemPrompt = `You extract structured facts about a completed
service project from the business owner's own words. Only record what the
message actually says; leave unknown fields empty. Score each recorded field
with your confidence from 0 to 1.`

// storySchema is the required output shape for AI extraction. Every
// recorded field carries a confidence score.
func storySchema() map[string]any {
	stringField := map[string]any{"type": "string"}
	stringList := map[string]any{"type": "array", "items": stringField}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"projectType":    stringField,
			"problem":        stringField,
			"solution":       stringField,
			"prideStatement": stringField,
			"city":           stringField,
			"state":          stringField,
			"materials":      stringList,
			"techniques":     stringList,
			"confidence": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "number", "minimum": 0, "maximum": 1,
				},
			},
		},
		"required": []any{"confidence"},
	}
}

// aiExtract sends the message and accumulated state to the completion
// service and decodes the structured reply.
func (e *Engine) aiExtract(ctx context.Context, message string, existing *project.State, vocab *Vocabulary) (*Result, error) {
	stateJSON, _ := json.Marshal(existing)

	resp, err := e.client.Complete(ctx, &providers.Request{
		System:     extractionSystemPrompt,
		SchemaName: "record_story_facts",
		Schema:     storySchema(),
		History: []providers.Message{
			{
				Role: providers.RoleUser,
				Content: fmt.Sprintf("Current project state:\n%s\n\nLatest message:\n%s",
					stateJSON, message),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return decodeStoryObject(resp.Object, vocab), nil
}

// decodeStoryObject converts the model's object into an update, funneling
// material/technique candidates through the separation algorithm.
func decodeStoryObject(object map[string]any, vocab *Vocabulary) *Result {
	update := &project.Update{
		Problem:        optString(object, "problem"),
		Solution:       optString(object, "solution"),
		PrideStatement: optString(object, "prideStatement"),
		ProjectType:    optString(object, "projectType"),
		City:           optString(object, "city"),
		StateCode:      optString(object, "state"),
		Materials:      stringSlice(object, "materials"),
		Techniques:     stringSlice(object, "techniques"),
	}

	update.Materials, update.Techniques = Separate(
		update.Materials, update.Techniques,
		append(vocab.Techniques, update.Techniques...),
	)

	return &Result{
		Update:     update,
		Confidence: confidenceMap(object),
	}
}

func optString(object map[string]any, key string) *string {
	s, ok := object[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func stringSlice(object map[string]any, key string) []string {
	raw, ok := object[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func confidenceMap(object map[string]any) map[string]float64 {
	raw, ok := object["confidence"].(map[string]any)
	if !ok {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(raw))
	for field, v := range raw {
		if f, ok := v.(float64); ok {
			out[field] = f
		}
	}
	return out
}
