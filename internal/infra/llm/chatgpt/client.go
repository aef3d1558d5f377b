package chatgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/content-digest/internal/domain/digest"
	"github.com/yanqian/content-digest/internal/infra/llm"
	"github.com/yanqian/content-digest/pkg/metrics"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	providerName   = "openai"
)

// Message mirrors the OpenAI chat message structure.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the payload sent to the chat completions API.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	TopP        float32   `json:"top_p,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse captures the response for non streaming calls.
type ChatCompletionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Client performs HTTP requests to an OpenAI compatible API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      llm.RetryPolicy
	logger     *slog.Logger
}

// NewClient constructs a chat completions client.
func NewClient(apiKey, baseURL string, retry llm.RetryPolicy, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chatgpt api key cannot be empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retry:  retry,
		logger: logger.With("component", "llm.chatgpt"),
	}, nil
}

// Generate sends the prompt as a single user message.
func (c *Client) Generate(ctx context.Context, req digest.GenerateRequest) (digest.GenerateResponse, error) {
	payload := ChatCompletionRequest{
		Model:       req.Model,
		Messages:    []Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxOutputTokens,
	}

	var out digest.GenerateResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		resp, callErr := c.CreateChatCompletion(ctx, payload)
		if callErr != nil {
			return callErr
		}
		out, callErr = convert(resp)
		return callErr
	})
	if err != nil {
		c.logger.Warn("chat completion failed", "model", req.Model, "error", err)
		return digest.GenerateResponse{}, err
	}
	c.logger.Debug("chat completion received", "model", req.Model, "finish_reason", out.FinishReason, "content", out.Text)
	return out, nil
}

// CreateChatCompletion triggers a sync chat completion call.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	var out ChatCompletionResponse
	body, err := c.doRequest(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode chat completion: %w", err)
	}
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, req ChatCompletionRequest) ([]byte, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, llm.FromStatus(providerName, resp.StatusCode, providerMessage(payload))
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) newHTTPRequest(ctx context.Context, req ChatCompletionRequest) (*http.Request, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat completion request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func convert(resp ChatCompletionResponse) (digest.GenerateResponse, error) {
	if len(resp.Choices) == 0 {
		return digest.GenerateResponse{}, llm.EmptyResponse(providerName)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return digest.GenerateResponse{}, llm.SafetyBlocked(choice.FinishReason)
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return digest.GenerateResponse{}, llm.EmptyResponse(providerName)
	}
	return digest.GenerateResponse{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// providerMessage extracts error.message, falling back to the raw body.
func providerMessage(payload []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(payload, &parsed); err == nil && parsed.Error.Message != "" {
		msg := parsed.Error.Message
		if parsed.Error.Type != "" {
			msg = parsed.Error.Type + ": " + msg
		}
		return msg
	}
	return strings.TrimSpace(string(payload))
}
