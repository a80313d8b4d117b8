package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config configures the chat-completions client. BaseURL accepts any
// OpenAI-compatible endpoint (DashScope compatible mode included). The API
// key is passed in explicitly rather than read from process globals.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// Client performs single-shot chat completions with sampling pinned to
// temperature zero, so identical prompts yield reproducible classifications.
type Client struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewClient creates a completions client from the configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing completion API key")
	}
	if cfg.Model == "" {
		return nil, errors.New("missing completion model name")
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Client{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Complete sends the prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
