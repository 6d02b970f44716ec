// Package llm is a small client for OpenAI-compatible chat completions,
// covering the JSON mode and forced function calls the roster pipeline uses.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rostersync/internal/upstream"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	providerName   = "openai-chat"
)

// Config configures the chat client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client calls /chat/completions.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// New creates a chat client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Message is one chat turn. Content is either a string or a []Part.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Part is a multimodal content element.
type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// TextPart and ImagePart build multimodal parts.
func TextPart(text string) Part {
	return Part{Type: "text", Text: text}
}

func ImagePart(url string) Part {
	return Part{Type: "image_url", ImageURL: &ImageURL{URL: url}}
}

// Function declares a callable tool with a JSON schema for its arguments.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is a chat completion request. When ForceFunction is set the model
// must answer through that function and Response.Arguments carries its
// arguments.
type Request struct {
	Model         string
	Messages      []Message
	MaxTokens     int
	Temperature   *float64
	JSONMode      bool
	Functions     []Function
	ForceFunction string
}

// Response holds the first choice.
type Response struct {
	Content      string
	FunctionName string
	Arguments    string
}

type tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type toolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Tools          []tool          `json:"tools,omitempty"`
	ToolChoice     *toolChoice     `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends req and returns the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	payload := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	for _, fn := range req.Functions {
		payload.Tools = append(payload.Tools, tool{Type: "function", Function: fn})
	}
	if req.ForceFunction != "" {
		choice := &toolChoice{Type: "function"}
		choice.Function.Name = req.ForceFunction
		payload.ToolChoice = choice
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, upstream.FromTransport(providerName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, upstream.FromTransport(providerName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, upstream.FromStatus(providerName, resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, upstream.Malformed(providerName, "chat response is not valid JSON")
	}
	if len(parsed.Choices) == 0 {
		return Response{}, upstream.Malformed(providerName, "no completion choices returned")
	}

	msg := parsed.Choices[0].Message
	out := Response{Content: msg.Content}
	if len(msg.ToolCalls) > 0 {
		out.FunctionName = msg.ToolCalls[0].Function.Name
		out.Arguments = msg.ToolCalls[0].Function.Arguments
	}
	if req.ForceFunction != "" && out.FunctionName != req.ForceFunction {
		return Response{}, upstream.Malformed(providerName,
			fmt.Sprintf("expected a %s function call", req.ForceFunction))
	}
	return out, nil
}

// CleanMarkdownWrapper strips a ```json fence some models add around JSON.
func CleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}

// Float returns a pointer for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}
