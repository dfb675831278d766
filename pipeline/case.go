package pipeline

import (
	"fmt"

	"text2phenotype.com/admitnote/narrative"
)

// Case is everything known about one admission review: the note as written,
// the extractor output in both shapes and the upstream determination.
type Case struct {
	OriginalNote      string                         `json:"originalNote"`
	ClinicalData      *narrative.ClinicalData        `json:"clinicalData,omitempty"`
	EvaluatedCriteria []narrative.EvaluatedCriterion `json:"evaluatedCriteria,omitempty"`
	Decision          *narrative.Decision            `json:"decision,omitempty"`
	Features          *narrative.Features            `json:"features,omitempty"`
	Results           *narrative.Results             `json:"results,omitempty"`
}

// ParseCase rejects only broken JSON. Ill-typed parts of a case read as
// absent so the renderers fall back instead of failing the case.
func ParseCase(data []byte) (Case, error) {
	var c Case
	if err := narrative.DecodeRecord(data, &c); err != nil {
		return Case{}, fmt.Errorf("failed to unmarshal case: %w", err)
	}
	return c, nil
}

type Request struct {
	Tid  string `json:"tid"`
	Case Case   `json:"case"`
}
