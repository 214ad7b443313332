package analysis

import (
	"fmt"
	"strings"
)

// promptTemplate is interpolated with symptoms, age, gender, duration,
// and severity, in that order. The JSON shape is spelled out inline so
// every provider backend receives identical instructions regardless of
// whether its API supports schema enforcement.
const promptTemplate = `You are an expert medical AI assistant providing preliminary symptom assessment for EDUCATIONAL PURPOSES ONLY.

=== PATIENT INFORMATION ===
Symptoms: %s
Age: %s
Gender: %s
Duration: %s
Severity Level: %s

=== YOUR TASK ===
Analyze the symptoms above and provide a preliminary assessment. Respond with a single JSON object, no prose and no markdown fences, shaped exactly like this:

{
  "conditions": [
    {
      "name": "condition name",
      "probability": "High, Moderate, or Low",
      "description": "one or two sentence explanation",
      "severity": "mild, moderate, or serious"
    }
  ],
  "urgency": "urgent, soon, or routine",
  "recommendations": ["actionable step"]
}

=== ANALYSIS GUIDELINES ===

1. POSSIBLE CONDITIONS:
   - List the 2-4 most probable conditions based on the symptoms
   - Order by probability, most likely first
   - Use only the defined probability and severity levels

2. URGENCY CLASSIFICATION:
   - Use "urgent", "soon", or "routine"
   - Classify based on the severity of the most probable condition and the presence of emergency symptoms

3. RECOMMENDATIONS:
   - Provide 5-7 specific, actionable steps
   - Always emphasize consulting a qualified healthcare provider

=== CRITICAL SAFETY RULES ===
1. BE CONSERVATIVE: When in doubt, recommend medical consultation
2. FLAG EMERGENCIES: Always mark serious symptoms as "urgent"
3. NO DIAGNOSIS: This is a preliminary assessment only, not a diagnosis
4. EVIDENCE-BASED: Only suggest well-established possibilities

=== EMERGENCY SYMPTOMS (if any of these apply, urgency MUST be "urgent") ===
- Chest pain or pressure
- Difficulty breathing or shortness of breath
- Severe bleeding that won't stop
- Sudden severe headache
- Sudden confusion or trouble speaking
- Sudden weakness or numbness, especially on one side
- Loss of consciousness or fainting
- Severe abdominal pain

Now analyze the symptoms and respond ONLY with the requested JSON structure.`

// BuildPrompt renders the instruction prompt for a validated request.
// The same request always yields byte-identical output. Symptom text
// longer than maxChars is truncated before interpolation.
func BuildPrompt(req SymptomRequest, maxChars int) string {
	symptoms := truncateRunes(strings.TrimSpace(req.Symptoms), maxChars)

	return fmt.Sprintf(promptTemplate,
		symptoms,
		displayValue(string(req.Age)),
		displayValue(req.Gender),
		displayValue(req.Duration),
		req.Severity,
	)
}

// displayValue maps unspecified fields to the wording the template
// uses for missing data.
func displayValue(v string) string {
	if v == "" || v == Unspecified {
		return "Not provided"
	}
	return v
}
