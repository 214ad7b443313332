package provider

import (
	"context"
	"sync"
	"time"
)

// StubBackend is a configurable in-memory backend for testing
type StubBackend struct {
	mu       sync.Mutex
	response string
	err      error
	delay    time.Duration
	prompts  []string
}

// NewStubBackend creates a stub backend that returns response
func NewStubBackend(response string) *StubBackend {
	return &StubBackend{response: response}
}

// Name returns the backend name
func (b *StubBackend) Name() string {
	return "stub"
}

// Model returns the stub model name
func (b *StubBackend) Model() string {
	return "stub-model"
}

// Complete returns the canned response (after the configured delay)
func (b *StubBackend) Complete(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	response := b.response
	err := b.err
	delay := b.delay
	b.prompts = append(b.prompts, prompt)
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err != nil {
		return "", err
	}

	return response, nil
}

// SetResponse changes the canned completion
func (b *StubBackend) SetResponse(response string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.response = response
}

// SetError makes subsequent completions fail with err
func (b *StubBackend) SetError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// SetDelay adds artificial latency to completions
func (b *StubBackend) SetDelay(delay time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = delay
}

// Prompts returns all prompts seen, in order
func (b *StubBackend) Prompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.prompts))
	copy(out, b.prompts)
	return out
}
