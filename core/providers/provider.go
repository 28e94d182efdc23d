// Package providers implements the Completion Service contract over the
// Anthropic and OpenAI SDKs: a structured generation request (schema +
// instructions + context) that returns a validated structured object or a
// typed failure.
package providers

import (
	"context"
)

// Client is the single opaque capability consumed by everything above it.
type Client interface {
	// Complete sends a structured generation request and returns the
	// schema-conforming object the model produced. A response that fails
	// schema validation returns a schema-tier error, indistinguishable
	// from a transport failure for circuit-breaker accounting.
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Validator is implemented by clients that can check their configuration.
type Validator interface {
	ValidateConfig() error
}

// Request is a structured generation request.
type Request struct {
	// Model is a hint; empty uses the provider default.
	Model string `json:"model,omitempty"`

	// System carries the role instructions.
	System string `json:"system,omitempty"`

	// SchemaName labels the required output shape.
	SchemaName string `json:"schema_name,omitempty"`

	// Schema is a JSON schema describing the required output object.
	Schema map[string]any `json:"schema,omitempty"`

	// History is optional prior conversation turns, oldest first.
	History []Message `json:"history,omitempty"`

	// Images are optional attachments for multimodal understanding.
	Images []ImageAttachment `json:"images,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ImageAttachment is one image supplied to a multimodal request. Either
// Data (inlined bytes with MediaType) or URL (publicly reachable) is set.
type ImageAttachment struct {
	MediaType string `json:"media_type,omitempty"`
	Data      []byte `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Inline reports whether the attachment carries inlined bytes.
func (a ImageAttachment) Inline() bool {
	return len(a.Data) > 0
}

// Response is a validated structured completion.
type Response struct {
	// Object is the schema-conforming output.
	Object map[string]any `json:"object"`

	// Raw is the unparsed model output, kept for logging.
	Raw string `json:"raw,omitempty"`

	Model string `json:"model,omitempty"`
	Usage Usage  `json:"usage"`
}

// Usage reports token consumption for a completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ProviderType identifies a completion backend.
type ProviderType string

const (
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeOpenAI    ProviderType = "openai"
)
