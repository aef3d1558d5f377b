package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/yanqian/content-digest/internal/domain/digest"
	"github.com/yanqian/content-digest/internal/infra/llm"
	"github.com/yanqian/content-digest/pkg/metrics"
)

const providerName = "gemini"

// Options configures the Gemini client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Retry      llm.RetryPolicy
}

// Client generates text with the Gemini API.
type Client struct {
	opts   Options
	logger *slog.Logger

	once    sync.Once
	sdk     *genai.Client
	initErr error
}

// NewClient returns a Gemini backed generator. The SDK client is created on
// first use so a missing key only fails requests, not startup.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Client{opts: opts, logger: logger.With("component", "llm.gemini")}
}

// Generate sends a single prompt and returns the candidate text.
func (c *Client) Generate(ctx context.Context, req digest.GenerateRequest) (digest.GenerateResponse, error) {
	if strings.TrimSpace(c.opts.APIKey) == "" {
		return llm.Unconfigured{}.Generate(ctx, req)
	}
	sdk, err := c.client(ctx)
	if err != nil {
		return digest.GenerateResponse{}, err
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		TopP:            genai.Ptr(req.TopP),
		TopK:            genai.Ptr(float32(req.TopK)),
		MaxOutputTokens: int32(req.MaxOutputTokens),
		SafetySettings:  safetySettings(),
	}

	var out digest.GenerateResponse
	err = c.opts.Retry.Do(ctx, func(ctx context.Context) error {
		resp, callErr := sdk.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), config)
		if callErr != nil {
			return translateError(callErr)
		}
		out, callErr = convert(resp)
		return callErr
	})
	if err != nil {
		c.logger.Warn("gemini generate failed", "model", req.Model, "error", err)
		return digest.GenerateResponse{}, err
	}
	c.logger.Debug("gemini response received", "model", req.Model, "finish_reason", out.FinishReason, "content", out.Text)
	return out, nil
}

func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:     c.opts.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: c.opts.HTTPClient,
		}
		if c.opts.BaseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.opts.BaseURL}
		}
		c.sdk, c.initErr = genai.NewClient(ctx, cfg)
		if c.initErr != nil {
			c.initErr = fmt.Errorf("create gemini client: %w", c.initErr)
		}
	})
	return c.sdk, c.initErr
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

func convert(resp *genai.GenerateContentResponse) (digest.GenerateResponse, error) {
	if resp == nil {
		return digest.GenerateResponse{}, llm.EmptyResponse(providerName)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return digest.GenerateResponse{}, llm.SafetyBlocked(string(resp.PromptFeedback.BlockReason))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return digest.GenerateResponse{}, llm.EmptyResponse(providerName)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return digest.GenerateResponse{}, llm.SafetyBlocked(string(candidate.FinishReason))
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return digest.GenerateResponse{}, llm.EmptyResponse(providerName)
	}

	out := digest.GenerateResponse{
		Text:         text.String(),
		FinishReason: string(candidate.FinishReason),
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = metrics.TokenUsage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

func translateError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.FromStatus(providerName, apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return llm.FromStatus(providerName, apiErrPtr.Code, apiErrPtr.Message)
	}
	return err
}
