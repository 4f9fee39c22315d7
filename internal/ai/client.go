package ai

import (
	"context"
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/sashabaranov/go-openai"
	"log/slog"
)

const (
	DefaultModel = openai.GPT4oMini
	MaxTokens    = 1024
)

// Config selects the provider account and model.
type Config struct {
	APIKey string
	// BaseURL overrides the provider endpoint, e.g. for a compatible proxy. Empty means the OpenAI default.
	BaseURL string
	Model   string
}

type Client struct {
	client *openai.Client
	model  string
}

func NewClient(cfg Config) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Model returns the model used for completions.
func (c *Client) Model() string {
	return c.model
}

// SyncCompletion returns the whole response text of a single chat completion.
func (c *Client) SyncCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     c.model,
			MaxTokens: MaxTokens,
			Messages:  messages,
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion", slog.String("model", c.model))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion without choices", slog.String("model", c.model))
	}
	return completion.Choices[0].Message.Content, nil
}

// Stream yields response deltas. Recv returns [io.EOF] after the last delta.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// StreamCompletion starts a streaming chat completion.
func (c *Client) StreamCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     c.model,
			MaxTokens: MaxTokens,
			Messages:  messages,
			Stream:    true,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "create chat completion stream", slog.String("model", c.model))
	}
	return &chatStream{stream: stream}, nil
}

type chatStream struct {
	stream *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	response, err := s.stream.Recv()
	if err != nil {
		// Unwrapped so that io.EOF compares equal.
		return "", err //nolint:wrapcheck // io.EOF
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Delta.Content, nil
}

func (s *chatStream) Close() error {
	return s.stream.Close() //nolint:wrapcheck // nothing to add
}
