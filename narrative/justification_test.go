package narrative

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestBuildJustificationEmpty(t *testing.T) {
	for name, data := range map[string]*ClinicalData{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			got := BuildJustification(data, nil, nil)
			want := Justification{
				ClinicalSummary:               "The patient presented with acute respiratory illness.",
				MedicalNecessityJustification: NoTriggersIdentified,
				RiskStratification:            "",
				Conclusion:                    closingStatement,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("unexpected justification (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildJustificationEndToEnd(t *testing.T) {
	var data ClinicalData
	require.NoError(t, json.Unmarshal([]byte(`{
		"age": 72,
		"gender": "male",
		"symptoms": ["fever", "cough"],
		"symptom_duration_days": 5,
		"hypoxemia": true,
		"lowest_spo2": 86,
		"labs": {"bun": 45, "gfr": 55}
	}`), &data))
	var decision Decision
	require.NoError(t, json.Unmarshal([]byte(`{"totalScore": 82}`), &decision))

	got := BuildJustification(&data, []EvaluatedCriterion{{Name: "Hypoxemia", Met: true}}, &decision)

	require.Equal(t,
		"The patient is an 72-year-old male presenting with acute respiratory illness. "+
			"Symptoms including fever, and cough had been present for approximately 5 days prior to admission and progressively worsened. "+
			"Initial oxygen saturation was documented as low as 86%, consistent with hypoxemia. "+
			"Laboratory evaluation revealed elevated BUN (45), and reduced GFR (55), indicating multi-system involvement.",
		got.ClinicalSummary)
	require.Equal(t,
		"Documented hypoxemia represents objective respiratory compromise requiring inpatient monitoring. "+
			"Elevated BUN suggests renal dysfunction contributing to systemic illness. "+
			"Reduced glomerular filtration rate indicates impaired renal reserve.",
		got.MedicalNecessityJustification)
	require.Equal(t, "", got.RiskStratification)
	require.True(t, strings.HasPrefix(got.Conclusion, "Overall admission severity score is estimated at 82%."))
	require.True(t, strings.HasSuffix(got.Conclusion, closingStatement))
}

func TestDemographicsAreExclusive(t *testing.T) {
	tests := []struct {
		name string
		data ClinicalData
		want string
	}{
		{"Age and gender", ClinicalData{Age: NewMeasure(64), Gender: "female"},
			"The patient is an 64-year-old female presenting with acute respiratory illness."},
		{"Age only", ClinicalData{Age: NewMeasure(80)},
			"The patient is an 80-year-old individual presenting with acute respiratory illness."},
		{"Gender only", ClinicalData{Gender: "female"},
			"The patient presented with acute respiratory illness."},
		{"Zero age", ClinicalData{Age: NewMeasure(0), Gender: "male"},
			"The patient presented with acute respiratory illness."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, BuildJustification(&tt.data, nil, nil).ClinicalSummary)
		})
	}
}

func TestSymptomCourse(t *testing.T) {
	withDuration := BuildJustification(&ClinicalData{
		Symptoms: []string{"dyspnea"}, SymptomDurationDays: NewMeasure(3),
	}, nil, nil)
	require.Contains(t, withDuration.ClinicalSummary,
		"Symptoms including dyspnea had been present for approximately 3 days prior to admission and progressively worsened.")

	withoutDuration := BuildJustification(&ClinicalData{Symptoms: []string{"cough", "fever", "chills"}}, nil, nil)
	require.Contains(t, withoutDuration.ClinicalSummary,
		"Reported symptoms included cough, fever, and chills with clinical progression.")

	noSymptoms := BuildJustification(&ClinicalData{SymptomDurationDays: NewMeasure(3)}, nil, nil)
	require.NotContains(t, noSymptoms.ClinicalSummary, "ymptoms")
}

func TestRespiratorySentenceOrder(t *testing.T) {
	got := BuildJustification(&ClinicalData{
		Hypoxemia:          true,
		LowestSpO2:         NewMeasure(84),
		Tachypnea:          true,
		Crackles:           true,
		Distress:           true,
		OxygenRequirement:  true,
		ImagingFindings:    []string{"right lower lobe consolidation", "small effusion"},
		BilateralPneumonia: true,
	}, nil, nil).ClinicalSummary

	ordered := []string{
		"as low as 84%",
		"Objective tachypnea",
		"bilateral crackles",
		"respiratory distress",
		"Supplemental oxygen therapy",
		"consistent with right lower lobe consolidation, and small effusion.",
		"Bilateral pulmonary involvement",
	}
	last := -1
	for _, fragment := range ordered {
		idx := strings.Index(got, fragment)
		require.Greater(t, idx, last, "fragment %q out of order in %q", fragment, got)
		last = idx
	}
}

func TestHypoxemiaCitesTopLevelSaturationOnly(t *testing.T) {
	got := BuildJustification(&ClinicalData{Hypoxemia: true}, nil, nil)
	require.Contains(t, got.ClinicalSummary,
		"Initial oxygen saturation was documented as low as None%, consistent with hypoxemia.")

	got = BuildJustification(&ClinicalData{Hypoxemia: true, Vitals: Vitals{LowestSpO2: NewMeasure(84)}}, nil, nil)
	require.Contains(t, got.ClinicalSummary,
		"Initial oxygen saturation was documented as low as None%, consistent with hypoxemia.")
	require.NotContains(t, got.ClinicalSummary, "84")

	got = BuildJustification(&ClinicalData{Hypoxemia: true, LowestSpO2: NewMeasure(84), Vitals: Vitals{LowestSpO2: NewMeasure(80)}}, nil, nil)
	require.Contains(t, got.ClinicalSummary, "as low as 84%")
}

func TestLabThresholdsAreStrict(t *testing.T) {
	tests := []struct {
		name     string
		labs     Labs
		fragment string
		fires    bool
	}{
		{"BUN 40", Labs{BUN: NewMeasure(40)}, "elevated BUN", false},
		{"BUN 41", Labs{BUN: NewMeasure(41)}, "elevated BUN (41)", true},
		{"GFR 60", Labs{GFR: NewMeasure(60)}, "reduced GFR", false},
		{"GFR 59", Labs{GFR: NewMeasure(59)}, "reduced GFR (59)", true},
		{"INR 2", Labs{INR: NewMeasure(2)}, "elevated INR", false},
		{"INR 2.01", Labs{INR: NewMeasure(2.01)}, "elevated INR (2.01)", true},
		{"Non-numeric BUN", Labs{BUN: ParseMeasure("high")}, "elevated BUN", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := BuildJustification(&ClinicalData{Labs: tt.labs}, nil, nil).ClinicalSummary
			if tt.fires {
				require.Contains(t, summary, tt.fragment)
				require.Contains(t, summary, "indicating multi-system involvement.")
			} else {
				require.NotContains(t, summary, tt.fragment)
				require.NotContains(t, summary, "Laboratory evaluation")
			}
		})
	}
}

func TestLabFragmentsWithoutThreshold(t *testing.T) {
	got := BuildJustification(&ClinicalData{
		Labs: Labs{WBC: NewMeasure(6.2), Creatinine: NewMeasure(1.1)},
	}, nil, nil)
	require.Contains(t, got.ClinicalSummary,
		"Laboratory evaluation revealed leukocytosis (WBC 6.2), and creatinine 1.1, indicating multi-system involvement.")
	require.Equal(t, NoTriggersIdentified, got.MedicalNecessityJustification)
}

func TestMedicalNecessityOrder(t *testing.T) {
	got := BuildJustification(&ClinicalData{
		Hypoxemia:          true,
		BilateralPneumonia: true,
		Labs:               Labs{BUN: NewMeasure(52), GFR: NewMeasure(41), INR: NewMeasure(3.4)},
		IVAntibiotics:      true,
	}, nil, nil).MedicalNecessityJustification

	require.Equal(t, strings.Join([]string{
		"Documented hypoxemia represents objective respiratory compromise requiring inpatient monitoring.",
		"Bilateral pneumonia increases risk of rapid clinical deterioration.",
		"Elevated BUN suggests renal dysfunction contributing to systemic illness.",
		"Reduced glomerular filtration rate indicates impaired renal reserve.",
		"Supratherapeutic INR increases bleeding risk and complicates management.",
		"Initiation of broad-spectrum intravenous antibiotics reflects escalation of care.",
	}, " "), got)
}

func TestZeroGFRSkipsNecessityOnly(t *testing.T) {
	got := BuildJustification(&ClinicalData{Labs: Labs{GFR: NewMeasure(0)}}, nil, nil)
	require.Contains(t, got.ClinicalSummary, "reduced GFR (0)")
	require.Equal(t, NoTriggersIdentified, got.MedicalNecessityJustification)
}

func TestRiskStratification(t *testing.T) {
	got := BuildJustification(&ClinicalData{
		Comorbidities:  []string{"COPD", "CHF"},
		AssistedLiving: true,
		DNRDNI:         true,
	}, nil, nil).RiskStratification

	require.Equal(t,
		"Comorbid conditions including COPD, and CHF increase baseline vulnerability. "+
			"Residence in an assisted living facility suggests baseline functional dependency. "+
			"Documented DNR/DNI status reflects advanced directive considerations in the setting of acute illness.",
		got)
}

func TestConclusionWithoutScore(t *testing.T) {
	require.Equal(t, closingStatement, BuildJustification(nil, nil, &Decision{}).Conclusion)
	require.Equal(t, closingStatement, BuildJustification(nil, nil, nil).Conclusion)
}

func TestJustificationText(t *testing.T) {
	j := Justification{ClinicalSummary: "A.", MedicalNecessityJustification: "B.", Conclusion: "D."}
	require.Equal(t, "A.\n\nB.\n\nD.", j.Text())
}
