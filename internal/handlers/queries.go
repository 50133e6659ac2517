package handlers

import (
	"net/http"
	"strconv"
	"time"

	"sec-rag/internal/contextutil"
	"sec-rag/internal/service"
)

const defaultQueryLimit = 50

// QueriesHandler serves the query audit log.
type QueriesHandler struct {
	qaService service.QAService
}

// NewQueriesHandler creates a new QueriesHandler.
func NewQueriesHandler(qaService service.QAService) *QueriesHandler {
	return &QueriesHandler{qaService: qaService}
}

// QueryLogEntry is one audit log entry.
//
// swagger:model QueryLogEntry
type QueryLogEntry struct {
	ID        string   `json:"id"`
	RequestID string   `json:"request_id,omitempty"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	Outcome   string   `json:"outcome"`
	Reason    string   `json:"reason"`
	LatencyMS int64    `json:"latency_ms"`
	CreatedAt string   `json:"created_at"`
}

// QueriesResponse lists recent queries, newest first.
//
// swagger:model QueriesResponse
type QueriesResponse struct {
	Queries []QueryLogEntry `json:"queries"`
}

// ServeHTTP handles GET /api/v1/queries?limit=N.
func (h *QueriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := defaultQueryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	records, err := h.qaService.RecentQueries(ctx, limit)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list queries")
		return
	}

	resp := QueriesResponse{Queries: make([]QueryLogEntry, 0, len(records))}
	for _, rec := range records {
		sources := rec.Sources
		if sources == nil {
			sources = []string{}
		}
		resp.Queries = append(resp.Queries, QueryLogEntry{
			ID:        rec.ID,
			RequestID: rec.RequestID,
			Question:  rec.Question,
			Answer:    rec.Answer,
			Sources:   sources,
			Outcome:   rec.Outcome,
			Reason:    rec.Reason,
			LatencyMS: rec.LatencyMS,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, ctx, http.StatusOK, resp)
}
