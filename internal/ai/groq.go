package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoMessages is returned when the message list is empty after dropping
// entries with a missing role or blank content. No network call is made.
var ErrNoMessages = errors.New("messages list is empty")

const systemPreamble = "You are the Facevoice AI assistant, a concise and helpful guide " +
	"to the studio's services, team and AI tools."

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is a successful generation: the text, the model that actually
// served it, and the provider's token accounting.
type Completion struct {
	Message string `json:"message"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Error is the normalized provider failure. Status mirrors the upstream HTTP
// status when one was received; Code carries the provider error code, e.g.
// "model_decommissioned".
type Error struct {
	Message string
	Status  int
	Code    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("llm error (%s): %s", e.Code, e.Message)
	}
	return "llm error: " + e.Message
}

type Config struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
}

// Client talks to a Groq (OpenAI-compatible) chat-completion endpoint. It
// keeps no state between calls.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	defaultModel string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		defaultModel: defaultModel,
	}
}

// Complete validates the message list, injects a dated system preamble when
// the caller did not supply one, resolves the model id, and performs one
// request. If the provider reports the model as decommissioned, it retries
// once against FallbackModel and returns that result transparently.
func (c *Client) Complete(ctx context.Context, modelID string, messages []ChatMessage) (*Completion, error) {
	prompt := sanitizeMessages(messages)
	if len(prompt) == 0 {
		return nil, ErrNoMessages
	}
	if prompt[0].Role != "system" {
		preamble := ChatMessage{
			Role:    "system",
			Content: fmt.Sprintf("%s Today's date is %s.", systemPreamble, time.Now().Format("January 2, 2006")),
		}
		prompt = append([]ChatMessage{preamble}, prompt...)
	}

	resolved := c.defaultModel
	if modelID != "" {
		resolved = ResolveModel(modelID)
	}

	completion, err := c.complete(ctx, resolved, prompt)
	if err != nil && isDecommissioned(err) && resolved != FallbackModel {
		completion, err = c.complete(ctx, FallbackModel, prompt)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(completion.Message) == "" {
		return nil, &Error{Message: "model returned an empty response"}
	}
	return completion, nil
}

func (c *Client) complete(ctx context.Context, model string, messages []ChatMessage) (*Completion, error) {
	reqBody := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": 0.7,
		"max_tokens":  4096,
		"stream":      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal llm request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build llm request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("llm request failed: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("read llm response failed: %v", err), Status: resp.StatusCode}
	}

	if resp.StatusCode >= 300 {
		return nil, parseProviderError(resp.StatusCode, raw)
	}

	var parsed struct {
		Model   string `json:"model"`
		Usage   Usage  `json:"usage"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &Error{Message: fmt.Sprintf("parse llm json failed: %v", err), Status: resp.StatusCode}
	}
	if len(parsed.Choices) == 0 {
		return nil, &Error{Message: "empty llm choices", Status: resp.StatusCode}
	}

	servedModel := parsed.Model
	if servedModel == "" {
		servedModel = model
	}
	return &Completion{
		Message: parsed.Choices[0].Message.Content,
		Model:   servedModel,
		Usage:   parsed.Usage,
	}, nil
}

// sanitizeMessages drops entries missing a role or with blank content and
// trims surrounding whitespace from the rest.
func sanitizeMessages(messages []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if msg.Role == "" || content == "" {
			continue
		}
		out = append(out, ChatMessage{Role: msg.Role, Content: content})
	}
	return out
}

func parseProviderError(status int, raw []byte) *Error {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Error.Message == "" {
		return &Error{Message: fmt.Sprintf("llm response status %d: %s", status, strings.TrimSpace(string(raw))), Status: status}
	}
	return &Error{Message: parsed.Error.Message, Status: status, Code: parsed.Error.Code}
}

func isDecommissioned(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == "model_decommissioned" || strings.Contains(apiErr.Message, "decommissioned")
}
