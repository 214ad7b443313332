package analysis

import "strings"

// emergencyKeywords force an urgent classification whenever one
// appears in the symptom text, regardless of what the model replied.
// Matching is case-insensitive substring.
var emergencyKeywords = []string{
	"chest pain",
	"chest pressure",
	"difficulty breathing",
	"shortness of breath",
	"severe bleeding",
	"stroke",
	"can't move arm",
	"face drooping",
	"seizure",
	"convulsion",
	"unconscious",
	"passed out",
	"fainted",
	"severe headache",
	"worst headache",
	"coughing blood",
	"vomiting blood",
	"severe abdominal pain",
	"severe stomach pain",
}

// ClassifyUrgency applies the escalation rules on top of whatever the
// model reported. It runs on both parsed and degraded results, only
// ever raises the tier, and is deterministic for a given input.
func ClassifyUrgency(result Result, req SymptomRequest) Urgency {
	if req.Severity == SeveritySevere {
		return UrgencyUrgent
	}

	for _, c := range result.Conditions {
		if c.Severity == ConditionSeveritySerious {
			return UrgencyUrgent
		}
	}

	if HasEmergencyKeywords(req.Symptoms) {
		return UrgencyUrgent
	}

	urgency := result.Urgency
	switch urgency {
	case UrgencyUrgent, UrgencySoon, UrgencyRoutine:
	default:
		urgency = UrgencyRoutine
	}

	// Moderate symptoms of recent onset are never left at routine.
	if req.Severity == SeverityModerate && urgency == UrgencyRoutine {
		if req.Duration == "hours" || req.Duration == "1-3days" {
			urgency = UrgencySoon
		}
	}

	return urgency
}

// HasEmergencyKeywords reports whether the text mentions a red flag
// symptom.
func HasEmergencyKeywords(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range emergencyKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
