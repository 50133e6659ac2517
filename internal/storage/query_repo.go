package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_log_store.go -package=mocks sec-rag/internal/storage QueryLogStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// QueryLogStore defines the interface for the question audit log.
type QueryLogStore interface {
	// Insert stores a query. An empty ID is replaced with a new UUID.
	Insert(ctx context.Context, q *QueryRecord) error
	// ListRecent returns up to limit queries, newest first.
	ListRecent(ctx context.Context, limit int) ([]QueryRecord, error)
}

// QueryRepo provides methods for query log operations.
// It implements the QueryLogStore interface.
type QueryRepo struct {
	db *sql.DB
}

// NewQueryRepo creates a new QueryRepo.
func NewQueryRepo(db *sql.DB) *QueryRepo {
	return &QueryRepo{db: db}
}

// Insert stores a query. An empty ID is replaced with a new UUID.
func (r *QueryRepo) Insert(ctx context.Context, q *QueryRecord) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}

	sources := q.Sources
	if sources == nil {
		sources = []string{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO queries (id, request_id, question, answer, sources, outcome, reason, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.RequestID, q.Question, q.Answer, string(sourcesJSON), q.Outcome, q.Reason, q.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert query: %w", err)
	}
	return nil
}

// ListRecent returns up to limit queries, newest first.
func (r *QueryRepo) ListRecent(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, question, answer, sources, outcome, reason, latency_ms, created_at
		 FROM queries ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query log: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []QueryRecord{}
	for rows.Next() {
		var q QueryRecord
		var requestID sql.NullString
		var sourcesJSON string
		if err := rows.Scan(&q.ID, &requestID, &q.Question, &q.Answer, &sourcesJSON, &q.Outcome, &q.Reason, &q.LatencyMS, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		q.RequestID = requestID.String
		if err := json.Unmarshal([]byte(sourcesJSON), &q.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources for query %s: %w", q.ID, err)
		}
		records = append(records, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}
