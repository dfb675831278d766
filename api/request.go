package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"text2phenotype.com/admitnote/narrative"
	"text2phenotype.com/admitnote/pipeline"
	"text2phenotype.com/admitnote/utils"
)

// TidHeader carries the tid a request was logged under.
const TidHeader = "X-Tid"

type justificationRequest struct {
	ClinicalData      *narrative.ClinicalData        `json:"clinicalData"`
	EvaluatedCriteria []narrative.EvaluatedCriterion `json:"evaluatedCriteria"`
	Decision          *narrative.Decision            `json:"decision"`
}

type revisedHPIRequest struct {
	OriginalNote string              `json:"originalNote"`
	Features     *narrative.Features `json:"features"`
	Results      *narrative.Results  `json:"results"`
}

type revisedHPIResponse struct {
	RevisedHPI string `json:"revisedHpi"`
}

type compactSummaryResponse struct {
	Summary string `json:"summary"`
}

// ProcessData runs the configured pipeline over a case document.
func (s *Server) ProcessData(w http.ResponseWriter, r *http.Request) {
	body, reqLogger, ok := readBody(w, r)
	if !ok {
		return
	}
	c, err := pipeline.ParseCase(body)
	if err != nil {
		reqLogger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not parse case")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	request := pipeline.Request{
		Tid:  w.Header().Get(TidHeader),
		Case: c,
	}
	reqLogger.Info().Msg("Starting pipeline for request from API")
	resp, ok := <-s.Pipeline(request)
	if !ok {
		reqLogger.Error().Int("status", http.StatusInternalServerError).Msg("Pipeline returned no response")
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(resp))
}

func handleJustification(w http.ResponseWriter, r *http.Request) {
	var req justificationRequest
	reqLogger, ok := decodeBody(w, r, &req)
	if !ok {
		return
	}
	writeJSON(w, reqLogger, narrative.BuildJustification(req.ClinicalData, req.EvaluatedCriteria, req.Decision))
}

func handleRevisedHPI(w http.ResponseWriter, r *http.Request) {
	var req revisedHPIRequest
	reqLogger, ok := decodeBody(w, r, &req)
	if !ok {
		return
	}
	if req.Results == nil {
		writeJSON(w, reqLogger, revisedHPIResponse{RevisedHPI: narrative.GenerateSafeOutput(req.OriginalNote)})
		return
	}
	writeJSON(w, reqLogger, revisedHPIResponse{
		RevisedHPI: narrative.GenerateRevisedHPI(req.OriginalNote, req.Features, req.Results),
	})
}

func handleCompactSummary(w http.ResponseWriter, r *http.Request) {
	var req revisedHPIRequest
	reqLogger, ok := decodeBody(w, r, &req)
	if !ok {
		return
	}
	writeJSON(w, reqLogger, compactSummaryResponse{Summary: narrative.GenerateCompactSummary(req.Features, req.Results)})
}

// readBody reads the request body and tags the request with its tid: the
// content hash of the body, echoed in the TidHeader response header.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, zerolog.Logger, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		reqLogger := makeRequestLogger(r)
		reqLogger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not read request body")
		http.Error(w, "", http.StatusBadRequest)
		return nil, reqLogger, false
	}
	tid := utils.ContentID(body)
	w.Header().Set(TidHeader, tid)
	return body, makeRequestLogger(r).With().Str("tid", tid).Logger(), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) (zerolog.Logger, bool) {
	body, reqLogger, ok := readBody(w, r)
	if !ok {
		return reqLogger, false
	}
	if err := narrative.DecodeRecord(body, dst); err != nil {
		reqLogger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not parse request body")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return reqLogger, false
	}
	reqLogger.Info().Msg("Rendering request from API")
	return reqLogger, true
}

func writeJSON(w http.ResponseWriter, reqLogger zerolog.Logger, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		reqLogger.Err(err).Int("status", http.StatusInternalServerError).Msg("Could not marshal response")
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf)
}
