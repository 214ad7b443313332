package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/careassist/symptom-checker/internal/shared/config"
)

// GeminiBackend talks to Google's Gemini API. This is the default
// backend.
type GeminiBackend struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiBackend creates a Gemini backend. Generation stays at low
// temperature so assessments are conservative, and the response MIME
// type pins the model to JSON output.
func NewGeminiBackend(ctx context.Context, cfg config.AIConfig) (*GeminiBackend, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiBackend{
		client: client,
		model:  cfg.GeminiModel,
		config: &genai.GenerateContentConfig{
			Temperature:      genai.Ptr(cfg.Temperature),
			TopP:             genai.Ptr[float32](0.8),
			TopK:             genai.Ptr[float32](40),
			MaxOutputTokens:  int32(cfg.MaxTokens),
			ResponseMIMEType: "application/json",
		},
	}, nil
}

// Name returns the backend name
func (b *GeminiBackend) Name() string {
	return "gemini"
}

// Model returns the configured model name
func (b *GeminiBackend) Model() string {
	return b.model
}

// Complete sends one prompt and returns the raw completion text
func (b *GeminiBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), b.config)
	if err != nil {
		return "", b.classify(err)
	}

	text := resp.Text()
	if text == "" {
		return "", &Error{Kind: KindTransport, Provider: b.Name(), Err: errors.New("empty completion")}
	}

	return text, nil
}

// Close closes the underlying client
func (b *GeminiBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

func (b *GeminiBackend) classify(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Provider: b.Name(), Err: err}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindAuth, Provider: b.Name(), Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Provider: b.Name(), Err: err}
		}
	}

	return &Error{Kind: KindTransport, Provider: b.Name(), Err: err}
}
