package analysis

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/careassist/symptom-checker/internal/provider"
)

func newTestHandler(t *testing.T, backend *provider.StubBackend, limit int) *Handler {
	t.Helper()
	svc, _ := newTestService(t, backend, limit)
	return NewHandler(svc)
}

func doRequest(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

// TestAnalyzeEndpoint tests a successful POST /analyze round trip
func TestAnalyzeEndpoint(t *testing.T) {
	h := newTestHandler(t, provider.NewStubBackend(wellFormedResponse), 10)

	rec := doRequest(h, http.MethodPost, "/analyze",
		`{"symptoms": "persistent dry cough and low fever", "age": 34, "severity": "mild"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Expected valid JSON body, got: %v", err)
	}
	if len(result.Conditions) != 2 {
		t.Errorf("Expected 2 conditions, got %d", len(result.Conditions))
	}
	if !result.Disclaimer {
		t.Error("Disclaimer must always be true")
	}
	if string(result.Input.Age) != "34" {
		t.Errorf("Expected numeric age accepted, got %q", result.Input.Age)
	}
}

// TestAnalyzeEndpointBadJSON tests malformed request bodies
func TestAnalyzeEndpointBadJSON(t *testing.T) {
	h := newTestHandler(t, provider.NewStubBackend(wellFormedResponse), 10)

	rec := doRequest(h, http.MethodPost, "/analyze", `{"symptoms": `)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON error body, got: %v", err)
	}
	if body["code"] != "BAD_REQUEST" {
		t.Errorf("Expected code BAD_REQUEST, got %v", body["code"])
	}
}

// TestAnalyzeEndpointValidation tests the 400 on short symptoms
func TestAnalyzeEndpointValidation(t *testing.T) {
	h := newTestHandler(t, provider.NewStubBackend(wellFormedResponse), 10)

	rec := doRequest(h, http.MethodPost, "/analyze", `{"symptoms": "cough"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["code"] != "INVALID_INPUT" {
		t.Errorf("Expected code INVALID_INPUT, got %v", body["code"])
	}
}

// TestAnalyzeEndpointThrottled tests the 429 with Retry-After header
func TestAnalyzeEndpointThrottled(t *testing.T) {
	h := newTestHandler(t, provider.NewStubBackend(wellFormedResponse), 1)

	body := `{"symptoms": "persistent dry cough and low fever"}`

	if rec := doRequest(h, http.MethodPost, "/analyze", body); rec.Code != http.StatusOK {
		t.Fatalf("First request should pass, got %d", rec.Code)
	}

	rec := doRequest(h, http.MethodPost, "/analyze", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on 429")
	}

	var errBody map[string]any
	json.Unmarshal(rec.Body.Bytes(), &errBody)
	if errBody["code"] != "RATE_LIMITED" {
		t.Errorf("Expected code RATE_LIMITED, got %v", errBody["code"])
	}
}

// TestAnalyzeEndpointDegraded tests that provider failures still
// return 200 with a note
func TestAnalyzeEndpointDegraded(t *testing.T) {
	backend := provider.NewStubBackend("")
	backend.SetError(&provider.Error{Kind: provider.KindAuth, Provider: "stub"})
	h := newTestHandler(t, backend, 10)

	rec := doRequest(h, http.MethodPost, "/analyze",
		`{"symptoms": "persistent dry cough and low fever"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on degraded result, got %d", rec.Code)
	}

	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Expected valid JSON body, got: %v", err)
	}
	if result.Note != NoteProviderAuth {
		t.Errorf("Expected note %q, got %q", NoteProviderAuth, result.Note)
	}
}

// TestHistoryEndpoint tests session history retrieval
func TestHistoryEndpoint(t *testing.T) {
	h := newTestHandler(t, provider.NewStubBackend(wellFormedResponse), 10)

	body := `{"symptoms": "persistent dry cough and low fever", "session_id": "abc-123"}`
	if rec := doRequest(h, http.MethodPost, "/analyze", body); rec.Code != http.StatusOK {
		t.Fatalf("Analyze should pass, got %d", rec.Code)
	}

	rec := doRequest(h, http.MethodGet, "/history/abc-123", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var payload struct {
		SessionID string          `json:"session_id"`
		Count     int             `json:"count"`
		History   []HistoryRecord `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Expected valid JSON body, got: %v", err)
	}
	if payload.SessionID != "abc-123" {
		t.Errorf("Expected session_id echoed, got %s", payload.SessionID)
	}
	if payload.Count != 1 || len(payload.History) != 1 {
		t.Errorf("Expected 1 record, got count=%d len=%d", payload.Count, len(payload.History))
	}
}

// TestHistoryEndpointUnknownSession tests the empty list contract
func TestHistoryEndpointUnknownSession(t *testing.T) {
	h := newTestHandler(t, provider.NewStubBackend(wellFormedResponse), 10)

	rec := doRequest(h, http.MethodGet, "/history/never-seen", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for unknown session, got %d", rec.Code)
	}

	var payload struct {
		Count   int             `json:"count"`
		History []HistoryRecord `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Expected valid JSON body, got: %v", err)
	}
	if payload.Count != 0 {
		t.Errorf("Expected count 0, got %d", payload.Count)
	}
	if payload.History == nil {
		t.Error("Expected empty history list, not null")
	}
}

// TestStatsEndpoint tests the aggregate counters
func TestStatsEndpoint(t *testing.T) {
	h := newTestHandler(t, provider.NewStubBackend(wellFormedResponse), 10)

	body := `{"symptoms": "persistent dry cough and low fever"}`
	doRequest(h, http.MethodPost, "/analyze", body)
	doRequest(h, http.MethodPost, "/analyze", body)

	rec := doRequest(h, http.MethodGet, "/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var snapshot StatsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("Expected valid JSON body, got: %v", err)
	}
	if snapshot.TotalQueries != 2 {
		t.Errorf("Expected 2 total queries, got %d", snapshot.TotalQueries)
	}
	if snapshot.UrgencyBreakdown["routine"] != 2 {
		t.Errorf("Expected routine count 2, got %d", snapshot.UrgencyBreakdown["routine"])
	}
}
