package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/knearme/showcase/core/errors"
)

// OpenAIClient implements Client over OpenAI's chat models. The output
// schema is enforced through the structured-output response format.
type OpenAIClient struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIClient creates a client with the given configuration.
func NewOpenAIClient(config OpenAIConfig) (*OpenAIClient, error) {
	if config.Model == "" {
		config.Model = DefaultOpenAIConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultOpenAIConfig().MaxTokens
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
	if config.Organization != "" {
		opts = append(opts, option.WithHeader("OpenAI-Organization", config.Organization))
	}

	client := openai.NewClient(opts...)

	return &OpenAIClient{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return string(ProviderTypeOpenAI)
}

// ValidateConfig checks if the client configuration is valid.
func (c *OpenAIClient) ValidateConfig() error {
	return c.config.Validate()
}

// Complete performs a structured completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	params := c.buildParams(req)

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Classify(fmt.Errorf("openai complete: %w", err))
	}

	return c.convertResponse(req, completion)
}

func (c *OpenAIClient) buildParams(req *Request) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	schemaName := req.SchemaName
	if schemaName == "" {
		schemaName = "result"
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(model),
		Messages:            c.convertMessages(req),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if c.config.Temperature > 0 {
		params.Temperature = openai.Float(c.config.Temperature)
	}

	return params
}

// convertMessages converts history plus image attachments to OpenAI format.
// Attachments ride on the final user turn as image parts.
func (c *OpenAIClient) convertMessages(req *Request) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+1)

	if req.System != "" {
		result = append(result, openai.SystemMessage(req.System))
	}

	for i, msg := range req.History {
		last := i == len(req.History)-1

		switch msg.Role {
		case RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			if last && len(req.Images) > 0 {
				result = append(result, c.multimodalUserMessage(msg.Content, req.Images))
			} else {
				result = append(result, openai.UserMessage(msg.Content))
			}
		}
	}

	return result
}

func (c *OpenAIClient) multimodalUserMessage(text string, images []ImageAttachment) openai.ChatCompletionMessageParamUnion {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+1)
	parts = append(parts, openai.TextContentPart(text))

	for _, img := range images {
		url := img.URL
		if img.Inline() {
			url = fmt.Sprintf("data:%s;base64,%s",
				img.MediaType, base64.StdEncoding.EncodeToString(img.Data))
		}
		parts = append(parts, openai.ImageContentPart(
			openai.ChatCompletionContentPartImageImageURLParam{URL: url},
		))
	}

	return openai.UserMessage(parts)
}

func (c *OpenAIClient) convertResponse(req *Request, completion *openai.ChatCompletion) (*Response, error) {
	if len(completion.Choices) == 0 {
		return nil, errors.NewTieredError(errors.TierSchema, "empty completion choices", nil)
	}

	raw := completion.Choices[0].Message.Content
	object := parseObject(raw)

	if err := validateObject(object, req.Schema); err != nil {
		return nil, err
	}

	return &Response{
		Object: object,
		Raw:    raw,
		Model:  completion.Model,
		Usage: Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
	}, nil
}
