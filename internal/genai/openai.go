package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"rental-genie/internal/common/logger"
)

// OpenAIConfig holds the OpenAI-backed capability settings.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	// Timeout bounds each completion call, like the HTTP client's request
	// timeout. Zero leaves only the caller's context in charge.
	Timeout time.Duration
}

// OpenAIClient implements ExtractionCapability and ReplyCapability against
// the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	config *OpenAIConfig
	logger logger.Logger
}

func NewOpenAIClient(config *OpenAIConfig, log logger.Logger) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(config.APIKey))
	return &OpenAIClient{
		client: &client,
		config: config,
		logger: log.WithFields(map[string]interface{}{
			"component": "openai-client",
			"model":     config.Model,
		}),
	}
}

// withTimeout applies the configured per-call bound on top of the caller's
// context.
func (c *OpenAIClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.Timeout)
}

// Extract runs the extraction prompt with JSON-object response format and
// returns the raw payload for schema validation by the caller.
func (c *OpenAIClient) Extract(ctx context.Context, req *ExtractionRequest) (json.RawMessage, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildExtractionPrompt(req)),
			openai.UserMessage(req.Message),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrGenAITimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrExtractionFailed)
	}
	return json.RawMessage(resp.Choices[0].Message.Content), nil
}

// Generate runs the reply prompt and returns the completion text.
func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		Temperature: openai.Float(c.config.Temperature),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", ErrGenAITimeout
		}
		return "", fmt.Errorf("%w: %v", ErrReplyFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrReplyFailed)
	}
	return resp.Choices[0].Message.Content, nil
}
