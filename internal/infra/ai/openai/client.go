package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 2048
	defaultTimeout   = 30 * time.Second
)

// Options configure the provider connection.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements ai.Client on top of the chat completion API.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

func (c *Client) Model() string { return c.model }

// Generate sends a single user message and returns the first choice text.
// Every error is a failure.Error of KindAIService.
func (c *Client) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	c.applySampling(&req, opts)

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("chat completion failed",
			zap.String("purpose", opts.Purpose),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", failure.AIService(classify(err))
	}
	if len(resp.Choices) == 0 {
		return "", failure.AIService(ai.ErrEmptyResponse)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", failure.AIService(ai.ErrContentBlocked)
	}

	c.logger.Debug("chat completion done",
		zap.String("purpose", opts.Purpose),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))
	return choice.Message.Content, nil
}

func (c *Client) applySampling(req *openai.ChatCompletionRequest, opts ai.GenerateOptions) {
	limit := opts.MaxTokens
	if limit <= 0 {
		limit = defaultMaxTokens
	}
	// reasoning models reject MaxTokens and any non-default temperature
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = limit
		return
	}
	req.MaxTokens = limit
	req.Temperature = opts.Temperature
	// go-openai drops a zero temperature (omitempty) and the provider falls
	// back to 1.0; the smallest float32 is sent instead and rounds to 0.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota" {
			return fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)
		}
		return err
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, reqErr.Err)
	}
	return err
}
