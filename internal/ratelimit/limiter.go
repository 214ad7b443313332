// Package ratelimit implements the fixed-window counter that gates
// symptom analyses per client.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the time until the client's window resets. Set only
	// when the request was denied.
	RetryAfter time.Duration
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds,
// minimum 1, suitable for the Retry-After header.
func (r Result) RetryAfterSeconds() int {
	secs := int(r.RetryAfter / time.Second)
	if time.Duration(secs)*time.Second < r.RetryAfter {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}

type window struct {
	start time.Time
	count int
}

// Limiter admits at most max requests per client key within one fixed
// window. The counter resets when the window expires; there is no
// carry-over between windows. Counters are in-process only.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	clients map[string]*window
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter allowing max requests per windowDur and starts
// a background janitor that prunes expired windows. Call Close to stop
// the janitor.
func New(max int, windowDur time.Duration) *Limiter {
	if max < 1 {
		max = 1
	}
	if windowDur <= 0 {
		windowDur = time.Minute
	}

	l := &Limiter{
		max:     max,
		window:  windowDur,
		clients: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go l.janitor()

	return l
}

// Allow checks and consumes one slot for key. Check and increment are
// a single atomic step, so concurrent callers can never overshoot max.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &window{start: now}
		l.clients[key] = w
	}

	if w.count >= l.max {
		return Result{
			Allowed:    false,
			RetryAfter: w.start.Add(l.window).Sub(now),
		}
	}

	w.count++
	return Result{Allowed: true, Remaining: l.max - w.count}
}

// Close stops the background janitor.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.prune()
		}
	}
}

func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, key)
		}
	}
}
