// Package history stores per-session analysis records. Both
// implementations keep a bounded number of records per session,
// evicting the oldest on append, and only ever read one session at a
// time.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careassist/symptom-checker/internal/analysis"
)

// Memory is the in-process store used when no database is configured.
// Records live for the lifetime of the process only.
type Memory struct {
	mu         sync.Mutex
	perSession int
	sessions   map[string][]analysis.HistoryRecord // newest first
}

// NewMemory creates an in-memory store keeping perSession records per
// session.
func NewMemory(perSession int) *Memory {
	if perSession < 1 {
		perSession = 1
	}
	return &Memory{
		perSession: perSession,
		sessions:   make(map[string][]analysis.HistoryRecord),
	}
}

// Append stores the result as a new record and evicts the oldest once
// the session exceeds its cap.
func (m *Memory) Append(ctx context.Context, sessionID string, result analysis.Result) (analysis.HistoryRecord, error) {
	rec := analysis.HistoryRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: recordTime(result),
		Result:    result,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := append([]analysis.HistoryRecord{rec}, m.sessions[sessionID]...)
	if len(records) > m.perSession {
		records = records[:m.perSession]
	}
	m.sessions[sessionID] = records

	return rec, nil
}

// BySession returns the session's records, most recent first. Unknown
// sessions yield an empty slice.
func (m *Memory) BySession(ctx context.Context, sessionID string) ([]analysis.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.sessions[sessionID]
	out := make([]analysis.HistoryRecord, len(records))
	copy(out, records)
	return out, nil
}

// recordTime keeps the record timestamp aligned with the analysis
// timestamp so a stored result reads back unchanged.
func recordTime(result analysis.Result) time.Time {
	if result.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return result.Timestamp.UTC()
}
