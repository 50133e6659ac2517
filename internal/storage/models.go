package storage

import "time"

// BuildRecord is one completed index build.
type BuildRecord struct {
	ID             int64
	IndexDir       string
	IndexVersion   string
	ChunkerVersion string
	EmbedModel     string
	Docs           int
	Chunks         int
	CreatedAt      time.Time
}

// QueryRecord is one answered question in the audit log.
type QueryRecord struct {
	ID        string   // UUID
	RequestID string   // HTTP request ID, empty for CLI queries
	Question  string
	Answer    string
	Sources   []string // Stored as a JSON array
	Outcome   string   // answered, not_specified or out_of_scope
	Reason    string
	LatencyMS int64
	CreatedAt time.Time
}
