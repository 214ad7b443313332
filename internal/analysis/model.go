// Package analysis implements the symptom assessment pipeline: input
// validation, prompt construction, provider response parsing,
// deterministic urgency classification, and the orchestrating service.
package analysis

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/careassist/symptom-checker/internal/shared/errors"
)

// Urgency is the care recommendation tier, ordered urgent > soon > routine.
type Urgency string

const (
	UrgencyUrgent  Urgency = "urgent"
	UrgencySoon    Urgency = "soon"
	UrgencyRoutine Urgency = "routine"
)

// Condition probability levels
const (
	ProbabilityLow      = "Low"
	ProbabilityModerate = "Moderate"
	ProbabilityHigh     = "High"
)

// Condition severity levels. These are distinct from the patient's own
// severity rating on the request.
const (
	ConditionSeverityMild     = "mild"
	ConditionSeverityModerate = "moderate"
	ConditionSeveritySerious  = "serious"
	ConditionSeverityUnknown  = "unknown"
)

// Patient-reported severity levels
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// Recognized symptom duration buckets
var validDurations = map[string]bool{
	"hours":    true,
	"1-3days":  true,
	"4-7days":  true,
	"1-2weeks": true,
	"longer":   true,
}

var validGenders = map[string]bool{
	"male":   true,
	"female": true,
	"other":  true,
}

// Unspecified marks an optional field the client left out or that
// failed coercion.
const Unspecified = "unspecified"

const maxSessionIDChars = 128

// FlexString decodes a JSON string or number into a string. Browser
// forms post ages as strings while API clients send numbers; anything
// else decodes to empty and is coerced later.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*f = ""
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

// SymptomRequest is one inbound analysis request. Validate returns the
// normalized form; results always echo the normalized request, never
// the raw one.
type SymptomRequest struct {
	Symptoms  string     `json:"symptoms"`
	Age       FlexString `json:"age,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	Duration  string     `json:"duration,omitempty"`
	Severity  string     `json:"severity,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
}

// Validate checks the single fatal constraint (a usable symptoms
// field) and coerces everything else to its documented default.
// Coercion never fails a request.
func (r SymptomRequest) Validate(minChars int) (SymptomRequest, error) {
	out := r

	out.Symptoms = strings.TrimSpace(r.Symptoms)
	if out.Symptoms == "" {
		return out, errors.Validation("symptoms field is required", map[string]string{
			"symptoms": "provide a free-text symptom description",
		})
	}
	if utf8.RuneCountInString(out.Symptoms) < minChars {
		return out, errors.Validation("symptoms description too short", map[string]string{
			"symptoms": "provide at least " + strconv.Itoa(minChars) + " characters",
		})
	}

	out.Age = FlexString(normalizeAge(string(r.Age)))
	out.Gender = normalizeEnum(r.Gender, validGenders, Unspecified)
	out.Duration = normalizeEnum(r.Duration, validDurations, Unspecified)
	out.Severity = normalizeSeverity(r.Severity)
	out.SessionID = truncateRunes(strings.TrimSpace(r.SessionID), maxSessionIDChars)

	return out, nil
}

// normalizeAge keeps integral ages within 0-120 and drops the rest.
func normalizeAge(age string) string {
	age = strings.TrimSpace(age)
	if age == "" {
		return Unspecified
	}

	n, err := strconv.Atoi(age)
	if err != nil || n < 0 || n > 120 {
		return Unspecified
	}
	return strconv.Itoa(n)
}

func normalizeEnum(value string, valid map[string]bool, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if valid[value] {
		return value
	}
	return fallback
}

// normalizeSeverity defaults to moderate rather than unspecified so
// the urgency rules always have a severity to work with.
func normalizeSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case SeverityMild:
		return SeverityMild
	case SeveritySevere:
		return SeveritySevere
	default:
		return SeverityModerate
	}
}

func truncateRunes(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars])
}

// Condition is one candidate explanation for the reported symptoms.
type Condition struct {
	Name        string `json:"name"`
	Probability string `json:"probability"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Result is the advisory assessment returned for one request.
// Disclaimer is true on every result, including degraded ones; Note is
// set only on degraded results and names the machine-readable reason.
type Result struct {
	Timestamp       time.Time      `json:"timestamp"`
	Input           SymptomRequest `json:"input"`
	Conditions      []Condition    `json:"conditions"`
	Urgency         Urgency        `json:"urgency"`
	Recommendations []string       `json:"recommendations"`
	Disclaimer      bool           `json:"disclaimer"`
	Note            string         `json:"note,omitempty"`
	Model           string         `json:"ai_model,omitempty"`
}

// Degraded reports whether this result came from the fallback path.
func (r Result) Degraded() bool {
	return r.Note != ""
}

// HistoryRecord is one stored analysis. Records are never mutated
// after creation.
type HistoryRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Result    Result    `json:"result"`
}
