// Package llm provides a minimal Anthropic Messages API client with tool-use
// support, used for survey extraction and post-submission summaries.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	messagesPath     = "/messages"
	anthropicVersion = "2023-06-01"
)

// ErrNotConfigured means no API key is available; any turn requiring a model
// call must fail hard without touching session state.
var ErrNotConfigured = errors.New("llm: api key not configured")

// Message is one conversation turn sent to the model.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Tool describes a tool the model may invoke, with a JSON Schema input.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Request is one Messages API call.
type Request struct {
	System    string
	Messages  []Message
	Tools     []Tool
	ForceTool bool // tool_choice "any": the model must call a tool
}

// ContentBlock is one element of the model's response content.
type ContentBlock struct {
	Type  string          `json:"type"` // "text" or "tool_use"
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Response is the decoded Messages API reply.
type Response struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// FirstText returns the first text block, or empty.
func (r *Response) FirstText() string {
	for _, c := range r.Content {
		if c.Type == "text" {
			return c.Text
		}
	}
	return ""
}

// FirstToolUse returns the input of the first tool_use block, or nil.
func (r *Response) FirstToolUse() json.RawMessage {
	for _, c := range r.Content {
		if c.Type == "tool_use" {
			return c.Input
		}
	}
	return nil
}

// Config holds client construction parameters.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string        // defaults to the public API
	Timeout   time.Duration // bounds each call, including connect time
}

// Client calls the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. The API key may be empty; calls then return
// ErrNotConfigured so the caller can surface a configuration error.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// apiError is the Anthropic error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateMessage performs one Messages API call.
func (c *Client) CreateMessage(ctx context.Context, req Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	payload := map[string]interface{}{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages":   req.Messages,
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if len(req.Tools) > 0 {
		payload["tools"] = req.Tools
		if req.ForceTool {
			payload["tool_choice"] = map[string]string{"type": "any"}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: call model: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("llm: api status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("llm: api status %d", resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	return &out, nil
}
