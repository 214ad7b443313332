package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/careassist/symptom-checker/internal/shared/config"
)

// OpenAIBackend talks to the OpenAI chat completion API.
type OpenAIBackend struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIBackend creates an OpenAI backend
func NewOpenAIBackend(cfg config.AIConfig) (*OpenAIBackend, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	return &OpenAIBackend{
		client:      openai.NewClient(cfg.OpenAIAPIKey),
		model:       cfg.OpenAIModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the backend name
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Model returns the configured model name
func (b *OpenAIBackend) Model() string {
	return b.model
}

// Complete sends one prompt and returns the raw completion text. The
// whole prompt travels as a single user message so every backend sees
// identical instructions.
func (b *OpenAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	})
	if err != nil {
		return "", b.classify(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &Error{Kind: KindTransport, Provider: b.Name(), Err: errors.New("empty completion")}
	}

	return resp.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) classify(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Provider: b.Name(), Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindAuth, Provider: b.Name(), Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Provider: b.Name(), Err: err}
		}
	}

	return &Error{Kind: KindTransport, Provider: b.Name(), Err: err}
}
