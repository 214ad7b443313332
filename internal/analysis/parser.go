package analysis

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/careassist/symptom-checker/internal/provider"
)

// Machine-readable reasons attached to degraded results.
const (
	NoteParseFailure        = "parse_failure"
	NoteProviderTimeout     = "provider_timeout"
	NoteProviderTransport   = "provider_transport"
	NoteProviderAuth        = "provider_auth"
	NoteProviderRateLimited = "provider_rate_limited"
)

// degradedModel replaces the model name on results produced without a
// usable provider response.
const degradedModel = "unavailable"

// rawAssessment mirrors the JSON shape the prompt asks the model for.
type rawAssessment struct {
	Conditions      []rawCondition `json:"conditions"`
	Urgency         string         `json:"urgency"`
	Recommendations []string       `json:"recommendations"`
}

type rawCondition struct {
	Name        string `json:"name"`
	Probability string `json:"probability"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// ParseResponse turns raw provider output into a Result. Output that
// cannot be used yields a degraded result, never an error; individual
// fields outside their enums are coerced rather than rejected.
func ParseResponse(raw string, req SymptomRequest, now time.Time, model string) Result {
	var parsed rawAssessment
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &parsed); err != nil {
		return DegradedResult(req, now, NoteParseFailure)
	}

	conditions := make([]Condition, 0, len(parsed.Conditions))
	for _, c := range parsed.Conditions {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		conditions = append(conditions, Condition{
			Name:        name,
			Probability: normalizeProbability(c.Probability),
			Description: strings.TrimSpace(c.Description),
			Severity:    normalizeConditionSeverity(c.Severity),
		})
	}
	if len(conditions) == 0 {
		return DegradedResult(req, now, NoteParseFailure)
	}

	recommendations := make([]string, 0, len(parsed.Recommendations))
	for _, rec := range parsed.Recommendations {
		if trimmed := strings.TrimSpace(rec); trimmed != "" {
			recommendations = append(recommendations, trimmed)
		}
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"Consult a qualified healthcare provider about these symptoms")
	}

	return Result{
		Timestamp:       now.UTC(),
		Input:           req,
		Conditions:      conditions,
		Urgency:         normalizeUrgency(parsed.Urgency),
		Recommendations: recommendations,
		Disclaimer:      true,
		Model:           model,
	}
}

// DegradedResult is the conservative fallback used when no usable
// provider assessment exists. It always carries exactly one synthetic
// condition plus consult-and-retry guidance, and the urgency
// classifier still runs on top of it.
func DegradedResult(req SymptomRequest, now time.Time, note string) Result {
	return Result{
		Timestamp: now.UTC(),
		Input:     req,
		Conditions: []Condition{{
			Name:        "Professional Medical Evaluation Needed",
			Probability: ProbabilityModerate,
			Description: "Your symptoms require in-person evaluation by a qualified healthcare provider for accurate assessment.",
			Severity:    ConditionSeverityUnknown,
		}},
		Urgency: UrgencyRoutine,
		Recommendations: []string{
			"Schedule an appointment with your primary care physician",
			"Write down all your symptoms in detail before the appointment",
			"Note when the symptoms started and how they have changed",
			"List all medications and supplements you are currently taking",
			"Monitor your symptoms and record any changes",
			"Seek immediate care if symptoms suddenly worsen",
			"Try the analysis again in a few minutes",
		},
		Disclaimer: true,
		Note:       note,
		Model:      degradedModel,
	}
}

// NoteForProviderError maps a classified provider failure to the note
// attached to the degraded result it produces.
func NoteForProviderError(err error) string {
	var perr *provider.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case provider.KindTimeout:
			return NoteProviderTimeout
		case provider.KindAuth:
			return NoteProviderAuth
		case provider.KindRateLimited:
			return NoteProviderRateLimited
		}
	}
	return NoteProviderTransport
}

// stripCodeFences removes the Markdown fence wrapper some models emit
// despite JSON-only instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// normalizeProbability folds "medium" and anything off-enum into the
// middle bucket.
func normalizeProbability(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high":
		return ProbabilityHigh
	case "low":
		return ProbabilityLow
	default:
		return ProbabilityModerate
	}
}

// normalizeConditionSeverity treats "severe" as a synonym for serious
// so a model's off-enum escalation is never downgraded to unknown.
func normalizeConditionSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ConditionSeverityMild:
		return ConditionSeverityMild
	case ConditionSeverityModerate:
		return ConditionSeverityModerate
	case ConditionSeveritySerious, "severe":
		return ConditionSeveritySerious
	default:
		return ConditionSeverityUnknown
	}
}

func normalizeUrgency(u string) Urgency {
	switch strings.ToLower(strings.TrimSpace(u)) {
	case "urgent":
		return UrgencyUrgent
	case "soon":
		return UrgencySoon
	default:
		return UrgencyRoutine
	}
}
