package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/knearme/showcase/core/errors"
)

// AnthropicClient implements Client over Anthropic's Claude models. The
// output schema is enforced by forcing a single tool call whose input
// schema is the requested object shape.
type AnthropicClient struct {
	client *anthropic.Client
	config AnthropicConfig
}

// NewAnthropicClient creates a client with the given configuration.
func NewAnthropicClient(config AnthropicConfig) (*AnthropicClient, error) {
	if config.Model == "" {
		config.Model = DefaultAnthropicConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultAnthropicConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicClient{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier.
func (c *AnthropicClient) Name() string {
	return string(ProviderTypeAnthropic)
}

// ValidateConfig checks if the client configuration is valid.
func (c *AnthropicClient) ValidateConfig() error {
	return c.config.Validate()
}

// Complete performs a structured completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	params := c.buildParams(req)

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Classify(fmt.Errorf("anthropic complete: %w", err))
	}

	return c.convertResponse(req, msg)
}

// buildParams constructs Anthropic API parameters from a Request.
func (c *AnthropicClient) buildParams(req *Request) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	toolName := req.SchemaName
	if toolName == "" {
		toolName = "emit_result"
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: c.convertMessages(req),
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        toolName,
					Description: anthropic.String("Record the structured result of this request."),
					InputSchema: anthropic.ToolInputSchemaParam{
						Type:       "object",
						Properties: req.Schema["properties"],
						Required:   requiredFields(req.Schema),
					},
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: toolName},
		},
	}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	} else if c.config.Temperature > 0 {
		params.Temperature = anthropic.Float(c.config.Temperature)
	}

	return params
}

// convertMessages converts history plus image attachments to Anthropic
// format. Attachments ride on the final user turn.
func (c *AnthropicClient) convertMessages(req *Request) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(req.History))

	for i, msg := range req.History {
		last := i == len(req.History)-1

		switch msg.Role {
		case RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			blocks := []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(msg.Content),
			}
			if last {
				blocks = append(blocks, c.convertImages(req.Images)...)
			}
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}

	return result
}

func (c *AnthropicClient) convertImages(images []ImageAttachment) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images))
	for _, img := range images {
		if img.Inline() {
			blocks = append(blocks, anthropic.NewImageBlockBase64(
				img.MediaType,
				base64.StdEncoding.EncodeToString(img.Data),
			))
			continue
		}
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfImage: &anthropic.ImageBlockParam{
				Source: anthropic.ImageBlockParamSourceUnion{
					OfURL: &anthropic.URLImageSourceParam{URL: img.URL},
				},
			},
		})
	}
	return blocks
}

// convertResponse extracts the forced tool call's input as the structured
// object. A missing or unparseable tool input is a schema-tier failure.
func (c *AnthropicClient) convertResponse(req *Request, msg *anthropic.Message) (*Response, error) {
	var raw string
	var object map[string]any

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			raw += b.Text
		case anthropic.ToolUseBlock:
			args, _ := b.Input.MarshalJSON()
			raw = string(args)
			object = parseObject(string(args))
		}
	}

	if err := validateObject(object, req.Schema); err != nil {
		return nil, err
	}

	return &Response{
		Object: object,
		Raw:    raw,
		Model:  string(msg.Model),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

func requiredFields(schema map[string]any) []string {
	req, ok := schema["required"].([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(req))
	for _, r := range req {
		if s, ok := r.(string); ok {
			result = append(result, s)
		}
	}
	return result
}
