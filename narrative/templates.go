package narrative

import (
	"fmt"
	"strings"
)

// GenerateCompactSummary renders the short admission summary shown when only
// the determination is available. features is accepted for symmetry with
// GenerateRevisedHPI.
func GenerateCompactSummary(features *Features, results *Results) string {
	if results == nil {
		results = &Results{}
	}
	triggers := "None"
	if len(results.Triggers) > 0 {
		triggers = strings.Join(results.Triggers, ", ")
	}
	severity := "N/A"
	if results.SeverityScore != nil {
		severity = results.SeverityScore.String()
	}
	level := results.Level
	if level == "" {
		level = undeterminedLevel
	}
	return fmt.Sprintf("\nMCG Admission Summary\n\nTriggers Met: %s\nSeverity Score: %s\nDetermination: %s\n",
		triggers, severity, level)
}

// GenerateSafeOutput wraps the note when no structured determination exists.
func GenerateSafeOutput(originalNote string) string {
	return fmt.Sprintf("\nClinical Documentation Summary\n\nNo structured admission triggers identified."+
		"\n\n--- Original Documentation ---\n%s\n", originalNote)
}
