package narrative

import (
	"fmt"
	"strings"
)

const (
	HypoxemiaTrigger = "Hypoxemia"

	undeterminedLevel = "Undetermined"
	snippetLimit      = 200
	excerptLimit      = 800
)

// GenerateRevisedHPI rebuilds the HPI from extracted features and the
// determination results. The original note is appended unchanged after the
// revised text, in addition to the excerpt inside it, so reviewers can audit
// both.
func GenerateRevisedHPI(originalNote string, features *Features, results *Results) string {
	if features == nil {
		features = &Features{}
	}
	if results == nil {
		results = &Results{}
	}

	var paragraphs []string

	if features.Age.Present() {
		paragraphs = append(paragraphs, fmt.Sprintf(
			"The patient is an %s-year-old individual who presented to the emergency department with progressive respiratory symptoms.",
			features.Age))
	} else {
		paragraphs = append(paragraphs,
			"The patient presented to the emergency department with progressive respiratory symptoms.")
	}

	paragraphs = append(paragraphs, symptomCourse(features))

	if findings := edFindings(features); len(findings) > 0 {
		paragraphs = append(paragraphs, strings.Join(findings, " "))
	}

	if len(features.Comorbidities) > 0 {
		paragraphs = append(paragraphs,
			fmt.Sprintf("Relevant comorbidities include: %s.", strings.Join(features.Comorbidities, ", ")))
	}

	if components := determinationSummary(features, results); len(components) > 0 {
		paragraphs = append(paragraphs, "In summary, this patient demonstrates "+
			strings.Join(components, ", ")+", supporting inpatient-level management.")
	}

	if len(results.RiskFactors) > 0 {
		paragraphs = append(paragraphs,
			"Risk factors for severe disease include: "+strings.Join(results.RiskFactors, ", ")+".")
	}
	if results.SeverityScore != nil {
		paragraphs = append(paragraphs, fmt.Sprintf("Severity score: %s.", results.SeverityScore))
	}

	paragraphs = append(paragraphs, admissionDetermination(results))

	if features.RawText != "" {
		paragraphs = append(paragraphs,
			"--- Original Documentation excerpt ---",
			TruncateAtSentence(features.RawText, excerptLimit))
	}

	return fmt.Sprintf("\nRevised HPI\n\n%s\n\n--- Original Documentation ---\n%s\n",
		strings.Join(paragraphs, "\n\n"), originalNote)
}

func symptomCourse(features *Features) string {
	if features.OutpatientFailure {
		return "Per documentation, symptoms worsened despite recent outpatient therapy."
	}
	if snippet := firstLine(features.RawText, snippetLimit); snippet != "" {
		return snippet
	}
	return "Symptoms were reported to be progressive over several days and associated with shortness of breath."
}

func edFindings(features *Features) []string {
	var lines []string

	spo2 := features.Vitals.LowestSpO2
	if spo2 != nil {
		lines = append(lines, fmt.Sprintf("Emergency department monitoring demonstrated oxygen desaturation to %s%%.", spo2))
	} else if features.OxygenRequirement {
		lines = append(lines, "Emergency department monitoring documented an oxygen requirement.")
	}

	flow := features.OxygenFlowLPM
	if features.OxygenRequirement || flow.Present() {
		if flow.Present() {
			lines = append(lines, fmt.Sprintf(
				"Patient required supplemental oxygen via %s L/min nasal cannula to maintain saturations.", flow))
		} else {
			lines = append(lines, "Patient required supplemental oxygen to maintain adequate saturations.")
		}
	}

	if len(features.ImagingFindings) > 0 {
		lines = append(lines, "Chest imaging demonstrated findings consistent with pneumonia.")
	}

	if wbc := features.Labs.WBC; wbc != nil {
		if value, ok := wbc.decimal(); ok {
			lines = append(lines, fmt.Sprintf("Laboratory evaluation revealed WBC %s.", value))
		} else {
			lines = append(lines, fmt.Sprintf("Laboratory evaluation notable for WBC: %s.", wbc))
		}
	}

	if features.IVAbx {
		lines = append(lines, "Broad-spectrum intravenous antibiotics were initiated in the emergency department.")
	}
	return lines
}

func determinationSummary(features *Features, results *Results) []string {
	var components []string
	if containsString(results.Triggers, HypoxemiaTrigger) || features.Vitals.LowestSpO2.less(90) {
		components = append(components, "documented hypoxemia requiring supplemental oxygen")
	}
	if len(features.ImagingFindings) > 0 {
		components = append(components, "radiographic evidence of pneumonia")
	}
	if features.OutpatientFailure {
		components = append(components, "failure of outpatient therapy")
	}
	if wbc, ok := features.Labs.WBC.Float(); ok && wbc >= 10 {
		components = append(components, "laboratory evidence suggestive of infection")
	}
	return components
}

// admissionDetermination renders the level with its score. Scores above 100
// are not percentages and lose the percent sign.
func admissionDetermination(results *Results) string {
	level := results.Level
	if level == "" {
		level = undeterminedLevel
	}
	score := results.Percentage
	if !score.Present() {
		score = results.SeverityScore
	}
	value, ok := score.Float()
	if !ok {
		return fmt.Sprintf("Admission determination: %s.", level)
	}
	scoreText := score.String()
	if value <= 100 {
		scoreText += "%"
	}
	return fmt.Sprintf("Admission determination: %s (score %s).", level, scoreText)
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
