package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrEmptyCompletion is returned when the model answers with no content.
var ErrEmptyCompletion = errors.New("synth: empty completion")

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	// BaseURL points at any OpenAI-compatible endpoint. Empty means the
	// public OpenAI API.
	BaseURL string

	// APIKey authenticates requests. When empty, the key is read from the
	// environment variable named by APIKeyEnv (default OPENAI_API_KEY).
	APIKey    string
	APIKeyEnv string

	// Model defaults to gpt-4o-mini.
	Model string

	// RequestsPerSecond bounds the call rate across all workers. Zero
	// disables limiting. Burst defaults to 1.
	RequestsPerSecond float64
	Burst             int

	MaxTokens   int
	Temperature float32

	Logger *slog.Logger
}

// OpenAIClient implements Synthesizer on the chat completions API.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	cfg     OpenAIConfig
	logger  *slog.Logger
}

// Compile-time check.
var _ Synthesizer = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from cfg.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		env := cfg.APIKeyEnv
		if env == "" {
			env = "OPENAI_API_KEY"
		}
		apiKey = os.Getenv(env)
		if apiKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("synth: %s not set", env)
		}
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
		logger.Warn("model not set, defaulting", "model", cfg.Model)
	}

	oc := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	logger.Info("initializing synthesis client", "model", cfg.Model, "base_url", oc.BaseURL)
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Synthesize sends the node descriptor and child context as one chat turn.
func (c *OpenAIClient) Synthesize(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("synth: rate limit wait: %w", err)
		}
	}

	system := req.SystemPrompt
	if system == "" {
		system = SystemPrompt(req.Node, len(req.Children) > 0)
	}
	chat := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: UserPrompt(req)},
		},
		Temperature: c.cfg.Temperature,
	}
	if c.cfg.MaxTokens > 0 {
		chat.MaxCompletionTokens = c.cfg.MaxTokens
	}

	c.logger.Debug("requesting description", "node", req.Node.ID, "children", len(req.Children))
	resp, err := c.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		return "", fmt.Errorf("synth: chat completion for %s: %w", req.Node.ID, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("synth: %s: %w", req.Node.ID, ErrEmptyCompletion)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("synth: %s: %w", req.Node.ID, ErrEmptyCompletion)
	}
	c.logger.Debug("received description", "node", req.Node.ID, "finish_reason", resp.Choices[0].FinishReason)
	return text, nil
}
