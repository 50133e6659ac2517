package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"sec-rag/internal/contextutil"
	"sec-rag/internal/rag"
	"sec-rag/internal/service"
)

// maxRequestBytes bounds the answer request body.
const maxRequestBytes = 64 << 10

// AnswerHandler handles HTTP requests for questions about the filings.
type AnswerHandler struct {
	qaService service.QAService
}

// NewAnswerHandler creates a new AnswerHandler.
func NewAnswerHandler(qaService service.QAService) *AnswerHandler {
	return &AnswerHandler{qaService: qaService}
}

// AnswerRequest represents the HTTP request payload.
//
// swagger:model AnswerRequest
type AnswerRequest struct {
	Query string `json:"query"`
}

// AnswerResponse represents the HTTP response payload. Refusals use the
// same shape with empty sources.
//
// swagger:model AnswerResponse
type AnswerResponse struct {
	// The answer text, or one of the two fixed refusal strings.
	Answer string `json:"answer"`

	// [document, section, "p. <page>"] for answered questions, otherwise empty.
	Sources []string `json:"sources"`

	// Debug is present when ?debug=true is set.
	Debug *rag.DebugInfo `json:"debug,omitempty"`
}

// ServeHTTP handles HTTP requests for answers.
//
// swagger:route POST /api/v1/answer answer
//
// # Answer a question
//
// Returns a grounded answer with its source, or a refusal.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Answer or refusal
//	  schema:
//	    "$ref": "#/definitions/AnswerResponse"
//	'400':
//	  description: Invalid request
//	'503':
//	  description: Index or models not loaded
func (h *AnswerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	debug, _ := strconv.ParseBool(r.URL.Query().Get("debug"))

	svcResp, err := h.qaService.Ask(ctx, service.AskRequest{Query: req.Query, Debug: debug})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to answer question")
		return
	}

	writeJSON(w, ctx, http.StatusOK, AnswerResponse{
		Answer:  svcResp.Answer,
		Sources: svcResp.Sources,
		Debug:   svcResp.Debug,
	})
}
