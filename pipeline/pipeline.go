package pipeline

import (
	"encoding/json"
	"errors"

	"text2phenotype.com/admitnote/logger"
	"text2phenotype.com/admitnote/types"
	"text2phenotype.com/admitnote/utils"
)

// Pipeline renders a request and sends the JSON response, keyed by
// configuration name, on the returned channel. A channel closed without a
// value means the response could not be built.
type Pipeline func(request Request) <-chan string

var ErrNoConfigurations = errors.New("no render configurations")

func Narrative(cfgs []types.Configuration) (Pipeline, error) {
	pplnLogger := logger.NewLogger("Narrative pipeline")
	if len(cfgs) == 0 {
		return nil, ErrNoConfigurations
	}
	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			pplnLogger.Err(err).Interface("configuration", cfg).Msg("Invalid configuration")
			return nil, err
		}
	}
	pplnLogger.Info().Int("configurations", len(cfgs)).Msg("Narrative pipeline ready")

	return func(request Request) <-chan string {
		responseChan := make(chan string, 1)
		reqLog := pplnLogger.With().Str("tid", request.Tid).Logger()
		reqLog.Info().Msg("Started narrative pipeline")

		go func() {
			defer close(responseChan)

			resultChan := make(chan Result, len(cfgs))
			for _, cfg := range cfgs {
				go func(cfg types.Configuration) {
					result := Result{ConfigName: cfg.Name}
					func() {
						defer utils.RecoverWithError(&result.Err)
						result.Data, result.Err = Render(cfg, request.Case)
					}()
					resultChan <- result
				}(cfg)
			}

			response := make(map[string]interface{}, len(cfgs))
			for range cfgs {
				res := <-resultChan
				if res.Err != nil {
					reqLog.Err(res.Err).Str("config_name", res.ConfigName).Msg("Failed to render configuration")
					return
				}
				reqLog.Debug().Str("config_name", res.ConfigName).Msg("Finished configuration")
				response[res.ConfigName] = res.Data
			}

			buf, err := json.Marshal(response)
			if err != nil {
				reqLog.Err(err).Msg("Failed to marshal response")
				return
			}
			reqLog.Info().Msg("Finished narrative pipeline")
			responseChan <- string(buf)
		}()

		return responseChan
	}, nil
}
