package analysis

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/careassist/symptom-checker/internal/provider"
	"github.com/careassist/symptom-checker/internal/ratelimit"
	"github.com/careassist/symptom-checker/internal/shared/errors"
	"github.com/careassist/symptom-checker/internal/shared/metrics"
)

// HistoryStore persists per-session analysis records. Implementations
// keep a bounded number of records per session, evict the oldest on
// append, and never expose cross-session reads.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, result Result) (HistoryRecord, error)
	BySession(ctx context.Context, sessionID string) ([]HistoryRecord, error)
}

// Config carries the orchestration tunables.
type Config struct {
	SymptomsMinChars int
	SymptomsMaxChars int
}

// Service drives one request through the pipeline: rate check,
// validation, prompt, provider call, parsing, classification, history.
type Service struct {
	gateway *provider.Gateway
	limiter *ratelimit.Limiter
	history HistoryStore
	stats   *Stats
	log     *zap.Logger
	cfg     Config
	now     func() time.Time
}

// NewService wires the pipeline together.
func NewService(gateway *provider.Gateway, limiter *ratelimit.Limiter, history HistoryStore, cfg Config, log *zap.Logger) *Service {
	return &Service{
		gateway: gateway,
		limiter: limiter,
		history: history,
		stats:   NewStats(time.Now()),
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Analyze runs the full pipeline for one request, keyed by clientKey
// for rate limiting. Provider and parse failures come back as degraded
// results with a nil error; only rate limiting, validation, and
// storage failures surface as errors.
func (s *Service) Analyze(ctx context.Context, req SymptomRequest, clientKey string) (Result, error) {
	if res := s.limiter.Allow(clientKey); !res.Allowed {
		metrics.RecordRateLimited()
		s.log.Warn("request rate limited",
			zap.String("client", clientKey),
			zap.Int("retry_after", res.RetryAfterSeconds()))
		return Result{}, errors.Throttled(res.RetryAfterSeconds())
	}

	validated, err := req.Validate(s.cfg.SymptomsMinChars)
	if err != nil {
		return Result{}, err
	}

	prompt := BuildPrompt(validated, s.cfg.SymptomsMaxChars)

	var result Result
	raw, err := s.gateway.Invoke(ctx, prompt)
	if err != nil {
		result = DegradedResult(validated, s.now(), NoteForProviderError(err))
	} else {
		result = ParseResponse(raw, validated, s.now(), s.gateway.Model())
	}

	result.Urgency = ClassifyUrgency(result, validated)

	if validated.SessionID != "" {
		if _, err := s.history.Append(ctx, validated.SessionID, result); err != nil {
			s.log.Error("history append failed",
				zap.String("session_id", validated.SessionID),
				zap.Error(err))
			return Result{}, errors.Internal(err)
		}
		metrics.RecordHistoryAppend()
	}

	outcome := "ok"
	if result.Degraded() {
		outcome = "degraded"
	}
	metrics.RecordAnalysis(string(result.Urgency), outcome)
	s.stats.Record(result.Urgency, result.Degraded())

	s.log.Info("analysis completed",
		zap.String("urgency", string(result.Urgency)),
		zap.String("outcome", outcome),
		zap.Int("conditions", len(result.Conditions)),
		zap.Int("symptom_chars", utf8.RuneCountInString(validated.Symptoms)))

	return result, nil
}

// History returns the stored records for one session, most recent
// first. Unknown sessions yield an empty slice.
func (s *Service) History(ctx context.Context, sessionID string) ([]HistoryRecord, error) {
	records, err := s.history.BySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []HistoryRecord{}
	}
	return records, nil
}

// Stats returns a snapshot of the process-local counters.
func (s *Service) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// Model names the active provider model.
func (s *Service) Model() string {
	return s.gateway.Model()
}
