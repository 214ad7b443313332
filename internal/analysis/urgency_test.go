package analysis

import (
	"testing"
	"time"
)

func parsedResult(urgency Urgency, conditionSeverity string) Result {
	return Result{
		Timestamp: time.Now().UTC(),
		Conditions: []Condition{{
			Name:        "Some Condition",
			Probability: ProbabilityModerate,
			Description: "d",
			Severity:    conditionSeverity,
		}},
		Urgency:         urgency,
		Recommendations: []string{"rest"},
		Disclaimer:      true,
	}
}

// TestClassifyUrgencySevereInput tests the patient-reported override
func TestClassifyUrgencySevereInput(t *testing.T) {
	req := SymptomRequest{Symptoms: "throbbing knee pain", Severity: SeveritySevere}
	result := parsedResult(UrgencyRoutine, ConditionSeverityMild)

	if got := ClassifyUrgency(result, req); got != UrgencyUrgent {
		t.Errorf("Expected urgent for severe input, got %s", got)
	}
}

// TestClassifyUrgencySeriousCondition tests the condition override
func TestClassifyUrgencySeriousCondition(t *testing.T) {
	req := SymptomRequest{Symptoms: "throbbing knee pain", Severity: SeverityMild}
	result := parsedResult(UrgencyRoutine, ConditionSeveritySerious)

	if got := ClassifyUrgency(result, req); got != UrgencyUrgent {
		t.Errorf("Expected urgent for a serious condition, got %s", got)
	}
}

// TestClassifyUrgencyEmergencyKeyword tests the red flag scan
func TestClassifyUrgencyEmergencyKeyword(t *testing.T) {
	tests := []struct {
		name     string
		symptoms string
	}{
		{name: "Chest pain", symptoms: "mild chest pain when climbing stairs"},
		{name: "Mixed case", symptoms: "sudden Shortness Of Breath at rest"},
		{name: "Embedded", symptoms: "dizzy and nearly passed out twice today"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := SymptomRequest{Symptoms: tt.symptoms, Severity: SeverityMild}
			result := parsedResult(UrgencyRoutine, ConditionSeverityMild)

			if got := ClassifyUrgency(result, req); got != UrgencyUrgent {
				t.Errorf("Expected urgent for %q, got %s", tt.symptoms, got)
			}
		})
	}
}

// TestClassifyUrgencyKeywordOnDegradedResult tests that the scan also
// escalates fallback results
func TestClassifyUrgencyKeywordOnDegradedResult(t *testing.T) {
	req := SymptomRequest{Symptoms: "crushing chest pressure and sweating", Severity: SeverityModerate}
	result := DegradedResult(req, time.Now(), NoteProviderTimeout)

	if got := ClassifyUrgency(result, req); got != UrgencyUrgent {
		t.Errorf("Expected urgent degraded result, got %s", got)
	}
}

// TestClassifyUrgencyRecentOnsetFloor tests the moderate plus recent
// onset rule
func TestClassifyUrgencyRecentOnsetFloor(t *testing.T) {
	tests := []struct {
		name     string
		severity string
		duration string
		parsed   Urgency
		want     Urgency
	}{
		{name: "Moderate hours raised", severity: SeverityModerate, duration: "hours", parsed: UrgencyRoutine, want: UrgencySoon},
		{name: "Moderate 1-3days raised", severity: SeverityModerate, duration: "1-3days", parsed: UrgencyRoutine, want: UrgencySoon},
		{name: "Moderate week kept", severity: SeverityModerate, duration: "1-2weeks", parsed: UrgencyRoutine, want: UrgencyRoutine},
		{name: "Mild hours kept", severity: SeverityMild, duration: "hours", parsed: UrgencyRoutine, want: UrgencyRoutine},
		{name: "Parsed soon untouched", severity: SeverityModerate, duration: "hours", parsed: UrgencySoon, want: UrgencySoon},
		{name: "Parsed urgent never lowered", severity: SeverityModerate, duration: "hours", parsed: UrgencyUrgent, want: UrgencyUrgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := SymptomRequest{
				Symptoms: "dull ache in the lower back",
				Severity: tt.severity,
				Duration: tt.duration,
			}
			result := parsedResult(tt.parsed, ConditionSeverityMild)

			if got := ClassifyUrgency(result, req); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

// TestClassifyUrgencyDefaultsOffEnum tests the routine fallback
func TestClassifyUrgencyDefaultsOffEnum(t *testing.T) {
	req := SymptomRequest{Symptoms: "dull ache in the lower back", Severity: SeverityMild}
	result := parsedResult(Urgency("emergency"), ConditionSeverityMild)

	if got := ClassifyUrgency(result, req); got != UrgencyRoutine {
		t.Errorf("Expected routine for off-enum urgency, got %s", got)
	}
}

// TestHasEmergencyKeywords tests the substring matcher
func TestHasEmergencyKeywords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     bool
	}{
		{name: "Plain match", text: "severe bleeding from a cut", want: true},
		{name: "Uppercase", text: "DIFFICULTY BREATHING since this morning", want: true},
		{name: "Apostrophe phrase", text: "woke up and can't move arm", want: true},
		{name: "No match", text: "itchy rash on the left elbow", want: false},
		{name: "Near miss", text: "chest feels fine, mild wrist pain", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasEmergencyKeywords(tt.text); got != tt.want {
				t.Errorf("Expected %v for %q, got %v", tt.want, tt.text, got)
			}
		})
	}
}
