// Package provider connects the analysis pipeline to an external
// language model. Exactly one backend is active per process; every
// invocation is a single bounded attempt with no retries and no
// caching.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/careassist/symptom-checker/internal/shared/config"
	"github.com/careassist/symptom-checker/internal/shared/metrics"
)

// Kind classifies provider failures
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindTransport   Kind = "transport"
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
)

// Error is a classified provider failure. The caller absorbs it into a
// degraded result; it never surfaces as an HTTP error.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Backend is one language model provider
type Backend interface {
	// Name identifies the provider in logs and metrics
	Name() string
	// Model returns the configured model name
	Model() string
	// Complete sends one prompt and returns the raw completion text
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewFromConfig builds the configured backend
func NewFromConfig(ctx context.Context, cfg config.AIConfig) (Backend, error) {
	switch cfg.Provider {
	case "", "gemini":
		return NewGeminiBackend(ctx, cfg)
	case "openai":
		return NewOpenAIBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// Gateway wraps a backend with the invocation policy: one attempt per
// analysis, bounded by a deadline.
type Gateway struct {
	backend Backend
	timeout time.Duration
	log     *zap.Logger
}

// NewGateway creates a gateway around backend
func NewGateway(backend Backend, timeout time.Duration, log *zap.Logger) *Gateway {
	return &Gateway{
		backend: backend,
		timeout: timeout,
		log:     log,
	}
}

// Name returns the active backend's name
func (g *Gateway) Name() string {
	return g.backend.Name()
}

// Model returns the active backend's model name
func (g *Gateway) Model() string {
	return g.backend.Model()
}

// Invoke sends the prompt with the configured deadline. Failures come
// back as *Error, already classified.
func (g *Gateway) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.backend.Complete(ctx, prompt)
	duration := time.Since(start)

	if err != nil {
		perr := asError(err, g.backend.Name())
		metrics.RecordProviderRequest(g.backend.Name(), string(perr.Kind), duration)
		g.log.Warn("provider request failed",
			zap.String("provider", g.backend.Name()),
			zap.String("kind", string(perr.Kind)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", perr
	}

	metrics.RecordProviderRequest(g.backend.Name(), "ok", duration)
	return text, nil
}

// asError coerces err into a classified *Error
func asError(err error, providerName string) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Provider: providerName, Err: err}
	}
	return &Error{Kind: KindTransport, Provider: providerName, Err: err}
}
