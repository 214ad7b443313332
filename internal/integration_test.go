package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/careassist/symptom-checker/internal/analysis"
	"github.com/careassist/symptom-checker/internal/history"
	"github.com/careassist/symptom-checker/internal/provider"
	"github.com/careassist/symptom-checker/internal/ratelimit"
)

const providerResponse = `{
	"conditions": [
		{"name": "Viral Infection", "probability": "High", "description": "Common viral illness.", "severity": "mild"},
		{"name": "Seasonal Allergies", "probability": "Low", "description": "Pollen response.", "severity": "mild"}
	],
	"urgency": "routine",
	"recommendations": ["Rest and stay hydrated", "Monitor your temperature", "See a doctor if symptoms persist"]
}`

func newTestRouter(t *testing.T, backend provider.Backend, timeout time.Duration, limit int) chi.Router {
	t.Helper()

	gateway := provider.NewGateway(backend, timeout, zap.NewNop())
	limiter := ratelimit.New(limit, time.Minute)
	t.Cleanup(limiter.Close)
	store := history.NewMemory(5)

	service := analysis.NewService(gateway, limiter, store, analysis.Config{
		SymptomsMinChars: 10,
		SymptomsMaxChars: 2000,
	}, zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/api", analysis.NewHandler(service).Routes())
	return r
}

func postAnalyze(r chi.Router, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// TestSymptomAnalysisWorkflow tests the complete analyze-then-review
// lifecycle over HTTP
func TestSymptomAnalysisWorkflow(t *testing.T) {
	backend := provider.NewStubBackend(providerResponse)
	router := newTestRouter(t, backend, 5*time.Second, 100)

	// 1. Analyze a symptom description with full context
	rec := postAnalyze(router, `{
		"symptoms": "persistent dry cough and low fever",
		"age": 34,
		"gender": "female",
		"duration": "1-3days",
		"severity": "moderate",
		"session_id": "wf-session"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Analyze failed with status %d: %s", rec.Code, rec.Body.String())
	}

	var result analysis.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}

	if result.Conditions[0].Name != "Viral Infection" {
		t.Errorf("Expected Viral Infection first, got %s", result.Conditions[0].Name)
	}
	// Moderate severity with recent onset raises routine to soon.
	if result.Urgency != analysis.UrgencySoon {
		t.Errorf("Expected urgency soon, got %s", result.Urgency)
	}
	if !result.Disclaimer {
		t.Error("Disclaimer must be true")
	}

	// 2. The session history now holds exactly this analysis
	req := httptest.NewRequest(http.MethodGet, "/api/history/wf-session", nil)
	histRec := httptest.NewRecorder()
	router.ServeHTTP(histRec, req)

	if histRec.Code != http.StatusOK {
		t.Fatalf("History failed with status %d", histRec.Code)
	}

	var histBody struct {
		SessionID string                   `json:"session_id"`
		Count     int                      `json:"count"`
		History   []analysis.HistoryRecord `json:"history"`
	}
	if err := json.Unmarshal(histRec.Body.Bytes(), &histBody); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if histBody.Count != 1 {
		t.Fatalf("Expected 1 history record, got %d", histBody.Count)
	}
	if histBody.History[0].Result.Urgency != analysis.UrgencySoon {
		t.Error("Stored record should carry the final urgency")
	}

	// 3. Six more analyses push the session past its cap of five
	for i := 0; i < 6; i++ {
		rec := postAnalyze(router, `{
			"symptoms": "persistent dry cough and low fever",
			"session_id": "wf-session"
		}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Analyze %d failed with status %d", i, rec.Code)
		}
	}

	histRec = httptest.NewRecorder()
	router.ServeHTTP(histRec, httptest.NewRequest(http.MethodGet, "/api/history/wf-session", nil))
	if err := json.Unmarshal(histRec.Body.Bytes(), &histBody); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if histBody.Count != 5 {
		t.Errorf("Expected history capped at 5, got %d", histBody.Count)
	}

	// 4. Aggregate stats counted every completed analysis
	statsRec := httptest.NewRecorder()
	router.ServeHTTP(statsRec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	var stats analysis.StatsSnapshot
	if err := json.Unmarshal(statsRec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.TotalQueries != 7 {
		t.Errorf("Expected 7 total queries, got %d", stats.TotalQueries)
	}
}

// TestProviderOutageWorkflow tests that a slow provider degrades the
// response instead of failing the request
func TestProviderOutageWorkflow(t *testing.T) {
	backend := provider.NewStubBackend(providerResponse)
	backend.SetDelay(200 * time.Millisecond)
	router := newTestRouter(t, backend, 20*time.Millisecond, 100)

	// 1. The provider call times out, but the client still gets 200
	rec := postAnalyze(router, `{
		"symptoms": "persistent dry cough and low fever",
		"session_id": "outage-session"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on provider timeout, got %d", rec.Code)
	}

	var result analysis.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Note != analysis.NoteProviderTimeout {
		t.Errorf("Expected note %q, got %q", analysis.NoteProviderTimeout, result.Note)
	}
	if len(result.Conditions) == 0 {
		t.Error("Degraded result must keep a non-empty conditions list")
	}
	if result.Model != "unavailable" {
		t.Errorf("Expected model unavailable, got %s", result.Model)
	}

	// 2. Red flag text still escalates a degraded result
	rec = postAnalyze(router, `{"symptoms": "crushing chest pain and sweating"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Urgency != analysis.UrgencyUrgent {
		t.Errorf("Expected urgent for emergency keywords, got %s", result.Urgency)
	}

	// 3. The degraded analysis was still recorded for the session
	histRec := httptest.NewRecorder()
	router.ServeHTTP(histRec, httptest.NewRequest(http.MethodGet, "/api/history/outage-session", nil))

	var histBody struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(histRec.Body.Bytes(), &histBody); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if histBody.Count != 1 {
		t.Errorf("Expected 1 history record, got %d", histBody.Count)
	}
}

// TestRateLimitWorkflow tests the per-client window over HTTP
func TestRateLimitWorkflow(t *testing.T) {
	backend := provider.NewStubBackend(providerResponse)
	router := newTestRouter(t, backend, 5*time.Second, 2)

	body := `{"symptoms": "persistent dry cough and low fever"}`

	// 1. The first two requests pass
	for i := 0; i < 2; i++ {
		if rec := postAnalyze(router, body); rec.Code != http.StatusOK {
			t.Fatalf("Request %d should pass, got %d", i+1, rec.Code)
		}
	}

	// 2. The third is throttled with retry guidance
	rec := postAnalyze(router, body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}

	var errBody map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if errBody["code"] != "RATE_LIMITED" {
		t.Errorf("Expected code RATE_LIMITED, got %v", errBody["code"])
	}

	// 3. A different client address is unaffected
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.9:4000"
	other := httptest.NewRecorder()
	router.ServeHTTP(other, req)
	if other.Code != http.StatusOK {
		t.Errorf("Other client should pass, got %d", other.Code)
	}
}
