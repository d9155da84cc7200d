package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rental-genie/internal/common/logger"
)

var (
	ErrGenAITimeout     = errors.New("GENAI_TIMEOUT")
	ErrExtractionFailed = errors.New("EXTRACTION_FAILED")
	ErrReplyFailed      = errors.New("REPLY_GENERATION_FAILED")
)

// Config holds the GenAI HTTP service settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client talks to the internal GenAI service. It implements both
// ExtractionCapability and ReplyCapability.
type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		// Rely on per-call contexts for timeouts, not the client.
		client: &http.Client{},
		logger: log.WithFields(map[string]interface{}{
			"component": "genai-client",
		}),
	}
}

// Extract requests structured tenant-info extraction and returns the raw
// JSON payload for schema validation by the caller.
func (c *Client) Extract(ctx context.Context, req *ExtractionRequest) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := c.post(ctx, "/api/ai/extract-tenant-info", req, ErrExtractionFailed)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Generate requests a tenant-facing reply.
func (c *Client) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload := map[string]interface{}{
		"system": systemPrompt,
		"input":  userMessage,
	}

	body, err := c.post(ctx, "/api/ai/generate", payload, ErrReplyFailed)
	if err != nil {
		return "", err
	}

	var resp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrReplyFailed, err)
	}
	if resp.Response == "" {
		return "", fmt.Errorf("%w: empty response", ErrReplyFailed)
	}
	return resp.Response, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, failErr error) ([]byte, error) {
	body, _ := json.Marshal(payload)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Apply exponential backoff for retries
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrGenAITimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+path, bytes.NewBuffer(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", failErr, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		// If the context expired during the request, report timeout immediately.
		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, ErrGenAITimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			// Non-OK status codes are treated as errors and retried.
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrGenAITimeout
		}
		return nil, fmt.Errorf("%w: %v", failErr, lastErr)
	}

	if resp == nil {
		return nil, fmt.Errorf("%w: no successful response after retries", failErr)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", failErr, err)
	}
	return data, nil
}
