package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_answerer.go -package=mocks sec-rag/internal/service Answerer
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_qa_service.go -package=mocks -mock_names=QAService=MockQAService sec-rag/internal/service QAService

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"sec-rag/internal/contextutil"
	"sec-rag/internal/rag"
	"sec-rag/internal/storage"
)

// MaxQueryLength bounds the question size in runes.
const MaxQueryLength = 2000

// Answerer is the question-answering engine as seen by the service layer.
type Answerer interface {
	Answer(ctx context.Context, query string) rag.Outcome
	AnswerWithDebug(ctx context.Context, query string) (rag.Outcome, *rag.DebugInfo)
}

// EngineLoader builds the engine on first use.
type EngineLoader func(ctx context.Context) (Answerer, error)

// AskRequest represents a question in the domain layer.
type AskRequest struct {
	Query string
	Debug bool
}

// AskResponse represents an answer in the domain layer.
type AskResponse struct {
	rag.QueryResult
	Outcome rag.Kind
	Reason  rag.Reason
	// Debug is set only when requested.
	Debug *rag.DebugInfo
}

// QAService answers questions about the indexed filings.
type QAService interface {
	// Ask answers one question. Refusals are answers, not errors.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
	// Ready loads the engine if needed and reports whether it is usable.
	Ready(ctx context.Context) error
	// RecentQueries returns the newest entries of the query log.
	RecentQueries(ctx context.Context, limit int) ([]storage.QueryRecord, error)
}

type qaService struct {
	load     EngineLoader
	queryLog storage.QueryLogStore

	once    sync.Once
	engine  Answerer
	loadErr error

	now func() time.Time
}

// NewQAService creates a new QAService. The engine is built by load on the
// first call that needs it, and a failed load is not retried. queryLog may
// be nil to disable the audit log.
func NewQAService(load EngineLoader, queryLog storage.QueryLogStore) QAService {
	return &qaService{
		load:     load,
		queryLog: queryLog,
		now:      time.Now,
	}
}

func (s *qaService) Ready(ctx context.Context) error {
	_, err := s.warm(ctx)
	return err
}

func (s *qaService) warm(ctx context.Context) (Answerer, error) {
	s.once.Do(func() {
		logger := contextutil.LoggerFromContext(ctx)
		start := s.now()
		// The result is kept for the life of the process, so a cancelled
		// request must not abort the load for everyone.
		s.engine, s.loadErr = s.load(context.WithoutCancel(ctx))
		if s.loadErr != nil {
			logger.ErrorContext(ctx, "engine warm-up failed", "error", s.loadErr)
			return
		}
		logger.InfoContext(ctx, "engine ready", "duration", s.now().Sub(start))
	})
	if s.loadErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotReady, s.loadErr)
	}
	return s.engine, nil
}

func (s *qaService) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		logger.WarnContext(ctx, "empty query in ask request")
		return AskResponse{}, &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		logger.WarnContext(ctx, "query too long", "length", utf8.RuneCountInString(query))
		return AskResponse{}, &ValidationError{Field: "query", Message: "exceeds maximum length"}
	}

	engine, err := s.warm(ctx)
	if err != nil {
		return AskResponse{}, err
	}

	start := s.now()
	var out rag.Outcome
	var dbg *rag.DebugInfo
	if req.Debug {
		out, dbg = engine.AnswerWithDebug(ctx, query)
	} else {
		out = engine.Answer(ctx, query)
	}
	latency := s.now().Sub(start)

	resp := AskResponse{
		QueryResult: out.Result(),
		Outcome:     out.Kind,
		Reason:      out.Reason,
		Debug:       dbg,
	}

	logger.InfoContext(ctx, "query answered",
		"outcome", out.Kind.String(),
		"reason", string(out.Reason),
		"sources", len(resp.Sources),
		"latency_ms", latency.Milliseconds(),
	)
	s.record(ctx, query, resp, latency)
	return resp, nil
}

// record writes the query log entry. Failures are logged and dropped.
func (s *qaService) record(ctx context.Context, query string, resp AskResponse, latency time.Duration) {
	if s.queryLog == nil {
		return
	}
	reason := string(resp.Reason)
	if reason == "" {
		reason = "none"
	}
	rec := &storage.QueryRecord{
		RequestID: contextutil.RequestIDFromContext(ctx),
		Question:  query,
		Answer:    resp.Answer,
		Sources:   resp.Sources,
		Outcome:   resp.Outcome.String(),
		Reason:    reason,
		LatencyMS: latency.Milliseconds(),
	}
	if err := s.queryLog.Insert(ctx, rec); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record query", "error", err)
	}
}

func (s *qaService) RecentQueries(ctx context.Context, limit int) ([]storage.QueryRecord, error) {
	if s.queryLog == nil {
		return []storage.QueryRecord{}, nil
	}
	if limit <= 0 || limit > 500 {
		return nil, &ValidationError{Field: "limit", Message: "must be between 1 and 500"}
	}
	records, err := s.queryLog.ListRecent(ctx, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list queries")
	}
	return records, nil
}
