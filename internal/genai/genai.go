// Package genai generates outreach content using the OpenAI API.
//
// It produces the spoken health tips, question answers, and WhatsApp reminder
// bodies, and carries the static fallbacks used when generation fails.
package genai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ashasetu/ashasetu/internal/models"
)

// Generation parameters mirror the outreach content settings: short, warm
// utterances suitable for speech.
const (
	defaultMaxTokens   = 300
	defaultTemperature = 0.4
)

// completionService defines the minimal interface for chat completions.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding $OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model used for generation.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI chat completion service for outreach content.
type Client struct {
	chat  completionService
	model openai.ChatModel
}

// NewClient initializes a GenAI client, falling back to the OPENAI_API_KEY
// environment variable when no key option is provided.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{chat: &cli.Chat.Completions, model: cfg.Model}, nil
}

// HealthTip generates the spoken week-specific health tip that opens a call.
func (c *Client) HealthTip(ctx context.Context, week int, lang models.Language) (string, error) {
	return c.complete(ctx, tipSystemPrompt, healthTipPrompt(week, lang))
}

// AnswerQuestion generates a spoken answer to a patient's question.
func (c *Client) AnswerQuestion(ctx context.Context, question string, week int, lang models.Language) (string, error) {
	return c.complete(ctx, answerSystemPrompt, answerPrompt(question, week, lang))
}

// ReminderMessage generates the WhatsApp reminder body for a patient.
func (c *Client) ReminderMessage(ctx context.Context, name string, week int, lang models.Language) (string, error) {
	return c.complete(ctx, reminderSystemPrompt, reminderPrompt(name, week, lang))
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxTokens:   openai.Int(defaultMaxTokens),
		Temperature: openai.Float(defaultTemperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
