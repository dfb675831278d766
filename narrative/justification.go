package narrative

import (
	"fmt"
	"strings"
)

const (
	NoTriggersIdentified = "No major inpatient-level triggers identified."

	missingValue = "None"

	closingStatement = "Given the combination of respiratory compromise, radiographic pneumonia, " +
		"laboratory abnormalities, and comorbid risk factors, inpatient-level care is medically appropriate."
)

// BuildJustification narrates an admission decision from extracted clinical
// data. evaluated is part of the contract but no sentence cites it.
func BuildJustification(data *ClinicalData, evaluated []EvaluatedCriterion, decision *Decision) Justification {
	if data == nil {
		data = &ClinicalData{}
	}

	return Justification{
		ClinicalSummary:               clinicalSummary(data),
		MedicalNecessityJustification: medicalNecessity(data),
		RiskStratification:            riskStratification(data),
		Conclusion:                    conclusion(decision),
	}
}

// Text joins the non-empty sections with blank lines, the layout used when
// the justification is shown as one note.
func (j Justification) Text() string {
	var sections []string
	for _, s := range []string{j.ClinicalSummary, j.MedicalNecessityJustification, j.RiskStratification, j.Conclusion} {
		if s != "" {
			sections = append(sections, s)
		}
	}
	return strings.Join(sections, "\n\n")
}

func clinicalSummary(data *ClinicalData) string {
	var parts []string

	switch {
	case data.Age.Present() && data.Gender != "":
		parts = append(parts, fmt.Sprintf(
			"The patient is an %s-year-old %s presenting with acute respiratory illness.", data.Age, data.Gender))
	case data.Age.Present():
		parts = append(parts, fmt.Sprintf(
			"The patient is an %s-year-old individual presenting with acute respiratory illness.", data.Age))
	default:
		parts = append(parts, "The patient presented with acute respiratory illness.")
	}

	if len(data.Symptoms) > 0 {
		symptoms := FormatList(data.Symptoms)
		if data.SymptomDurationDays.Present() {
			parts = append(parts, fmt.Sprintf(
				"Symptoms including %s had been present for approximately %s days prior to admission and progressively worsened.",
				symptoms, data.SymptomDurationDays))
		} else {
			parts = append(parts, fmt.Sprintf("Reported symptoms included %s with clinical progression.", symptoms))
		}
	}

	if data.Hypoxemia {
		// Only the top-level reading is cited; a missing one prints as None.
		spo2 := missingValue
		if data.LowestSpO2 != nil {
			spo2 = data.LowestSpO2.String()
		}
		parts = append(parts, fmt.Sprintf(
			"Initial oxygen saturation was documented as low as %s%%, consistent with hypoxemia.", spo2))
	}
	if data.Tachypnea {
		parts = append(parts, "Objective tachypnea was noted, reflecting increased work of breathing.")
	}
	if data.Crackles {
		parts = append(parts,
			"Physical examination revealed bilateral crackles consistent with lower respiratory tract involvement.")
	}
	if data.Distress {
		parts = append(parts, "The patient appeared clinically ill with signs of respiratory distress.")
	}
	if data.OxygenRequirement {
		parts = append(parts, "Supplemental oxygen therapy was required to maintain adequate oxygenation.")
	}

	if len(data.ImagingFindings) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Chest imaging demonstrated findings consistent with %s.", FormatList(data.ImagingFindings)))
	}
	if data.BilateralPneumonia {
		parts = append(parts, "Bilateral pulmonary involvement further increases severity of illness.")
	}

	if labs := labAbnormalities(data.Labs); len(labs) > 0 {
		parts = append(parts,
			"Laboratory evaluation revealed "+FormatList(labs)+", indicating multi-system involvement.")
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

func labAbnormalities(labs Labs) []string {
	var details []string
	if labs.WBC != nil {
		details = append(details, fmt.Sprintf("leukocytosis (WBC %s)", labs.WBC))
	}
	if labs.BUN.greater(40) {
		details = append(details, fmt.Sprintf("elevated BUN (%s)", labs.BUN))
	}
	if labs.Creatinine != nil {
		details = append(details, fmt.Sprintf("creatinine %s", labs.Creatinine))
	}
	if labs.GFR.less(60) {
		details = append(details, fmt.Sprintf("reduced GFR (%s)", labs.GFR))
	}
	if labs.INR.greater(2) {
		details = append(details, fmt.Sprintf("elevated INR (%s)", labs.INR))
	}
	return details
}

func medicalNecessity(data *ClinicalData) string {
	var reasons []string
	if data.Hypoxemia {
		reasons = append(reasons,
			"Documented hypoxemia represents objective respiratory compromise requiring inpatient monitoring.")
	}
	if data.BilateralPneumonia {
		reasons = append(reasons, "Bilateral pneumonia increases risk of rapid clinical deterioration.")
	}
	if data.Labs.BUN.greater(40) {
		reasons = append(reasons, "Elevated BUN suggests renal dysfunction contributing to systemic illness.")
	}
	// A GFR of exactly zero is treated as unreported.
	if data.Labs.GFR.Present() && data.Labs.GFR.less(60) {
		reasons = append(reasons, "Reduced glomerular filtration rate indicates impaired renal reserve.")
	}
	if data.Labs.INR.greater(2) {
		reasons = append(reasons, "Supratherapeutic INR increases bleeding risk and complicates management.")
	}
	if data.IVAntibiotics {
		reasons = append(reasons,
			"Initiation of broad-spectrum intravenous antibiotics reflects escalation of care.")
	}

	if len(reasons) == 0 {
		return NoTriggersIdentified
	}
	return strings.Join(reasons, " ")
}

func riskStratification(data *ClinicalData) string {
	var parts []string
	if len(data.Comorbidities) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Comorbid conditions including %s increase baseline vulnerability.", FormatList(data.Comorbidities)))
	}
	if data.AssistedLiving {
		parts = append(parts, "Residence in an assisted living facility suggests baseline functional dependency.")
	}
	if data.DNRDNI {
		parts = append(parts,
			"Documented DNR/DNI status reflects advanced directive considerations in the setting of acute illness.")
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func conclusion(decision *Decision) string {
	var parts []string
	if decision != nil && decision.TotalScore != nil {
		parts = append(parts, fmt.Sprintf("Overall admission severity score is estimated at %s%%.", decision.TotalScore))
	}
	parts = append(parts, closingStatement)
	return strings.Join(parts, " ")
}
