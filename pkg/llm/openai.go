package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/motormind/autoassist/pkg/errors"
	"github.com/motormind/autoassist/pkg/logging"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to the OpenAI Chat Completions API.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAIClient) { c.httpClient = hc }
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger logging.Logger) OpenAIOption {
	return func(c *OpenAIClient) { c.logger = logger }
}

// NewOpenAIClient creates a chat-completions client. A missing API key is a
// configuration error, reported before any request is made.
func NewOpenAIClient(apiKey string, options ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.ConfigurationError("OPENAI_API_KEY is required")
	}
	c := &OpenAIClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		// Tool-calling completions can think for a while before replying.
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logging.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

type chatRequest struct {
	Model      string    `json:"model"`
	Messages   []Message `json:"messages"`
	Tools      []Tool    `json:"tools,omitempty"`
	ToolChoice string    `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Chat sends a completion request with tool_choice=auto and returns the
// first choice's message.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message, tools []Tool) (*Message, error) {
	reqBody := chatRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	}
	if len(tools) > 0 {
		reqBody.ToolChoice = "auto"
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("chat completion request",
		logging.String("model", model),
		logging.Int("messages", len(messages)),
		logging.Int("tools", len(tools)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chat API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat API returned no choices")
	}
	return &parsed.Choices[0].Message, nil
}
