package narrative

// Vitals holds the vital signs picked up by the extractor.
type Vitals struct {
	LowestSpO2 *Measure `json:"lowest_spo2,omitempty"`
}

type Labs struct {
	WBC        *Measure `json:"wbc,omitempty"`
	BUN        *Measure `json:"bun,omitempty"`
	Creatinine *Measure `json:"creatinine,omitempty"`
	GFR        *Measure `json:"gfr,omitempty"`
	INR        *Measure `json:"inr,omitempty"`
}

// ClinicalData is the structured extraction consumed by BuildJustification.
// Every field is optional.
type ClinicalData struct {
	Age                 *Measure `json:"age,omitempty"`
	Gender              string   `json:"gender,omitempty"`
	Symptoms            []string `json:"symptoms,omitempty"`
	SymptomDurationDays *Measure `json:"symptom_duration_days,omitempty"`
	Vitals              Vitals   `json:"vitals"`
	Labs                Labs     `json:"labs"`
	ImagingFindings     []string `json:"imagingFindings,omitempty"`
	Comorbidities       []string `json:"comorbidities,omitempty"`
	LowestSpO2          *Measure `json:"lowest_spo2,omitempty"`

	Hypoxemia          bool `json:"hypoxemia,omitempty"`
	OxygenRequirement  bool `json:"oxygenRequirement,omitempty"`
	Tachypnea          bool `json:"tachypnea,omitempty"`
	Distress           bool `json:"distress,omitempty"`
	Crackles           bool `json:"crackles,omitempty"`
	BilateralPneumonia bool `json:"bilateral_pneumonia,omitempty"`
	DNRDNI             bool `json:"dnr_dni,omitempty"`
	AssistedLiving     bool `json:"assisted_living,omitempty"`
	IVAntibiotics      bool `json:"iv_antibiotics,omitempty"`
}

// EvaluatedCriterion is a single admission criterion as scored upstream.
// BuildJustification accepts these but does not cite them yet.
type EvaluatedCriterion struct {
	Name     string   `json:"name"`
	Met      bool     `json:"met"`
	Evidence []string `json:"evidence,omitempty"`
}

type Decision struct {
	TotalScore *Measure `json:"totalScore,omitempty"`
}

// Features is the extractor output used by the HPI templates.
type Features struct {
	RawText           string   `json:"raw_text,omitempty"`
	Age               *Measure `json:"age,omitempty"`
	Vitals            Vitals   `json:"vitals"`
	OxygenRequirement bool     `json:"oxygenRequirement,omitempty"`
	OxygenFlowLPM     *Measure `json:"oxygen_flow_lpm,omitempty"`
	ImagingFindings   []string `json:"imagingFindings,omitempty"`
	Labs              Labs     `json:"labs"`
	OutpatientFailure bool     `json:"outpatientFailure,omitempty"`
	Comorbidities     []string `json:"comorbidities,omitempty"`
	IVAbx             bool     `json:"iv_abx,omitempty"`
}

// Results is the determination engine output.
type Results struct {
	Triggers      []string `json:"triggers,omitempty"`
	SeverityScore *Measure `json:"severityScore,omitempty"`
	RiskFactors   []string `json:"riskFactors,omitempty"`
	Level         string   `json:"level,omitempty"`
	Percentage    *Measure `json:"percentage,omitempty"`
}

// Justification is the four-part admission justification.
type Justification struct {
	ClinicalSummary               string `json:"clinicalSummary"`
	MedicalNecessityJustification string `json:"medicalNecessityJustification"`
	RiskStratification            string `json:"riskStratification"`
	Conclusion                    string `json:"conclusion"`
}
