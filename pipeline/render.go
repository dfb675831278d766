package pipeline

import (
	"text2phenotype.com/admitnote/narrative"
	"text2phenotype.com/admitnote/types"
)

type Result struct {
	ConfigName string
	Data       interface{}
	Err        error
}

// Render produces the output named by cfg for one case. Justifications are
// returned as narrative.Justification, every other output as a string.
func Render(cfg types.Configuration, c Case) (interface{}, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SafeFallback && c.Results == nil {
		return narrative.GenerateSafeOutput(c.OriginalNote), nil
	}

	switch cfg.Output {
	case types.JustificationOutput:
		return narrative.BuildJustification(c.ClinicalData, c.EvaluatedCriteria, c.Decision), nil
	case types.RevisedHPIOutput:
		if cfg.CompactFallback && c.Features == nil {
			return narrative.GenerateCompactSummary(c.Features, c.Results), nil
		}
		return narrative.GenerateRevisedHPI(c.OriginalNote, c.Features, c.Results), nil
	case types.CompactSummaryOutput:
		return narrative.GenerateCompactSummary(c.Features, c.Results), nil
	default:
		return narrative.GenerateSafeOutput(c.OriginalNote), nil
	}
}
