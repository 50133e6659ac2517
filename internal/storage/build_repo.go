package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// BuildRepo records completed index builds.
type BuildRepo struct {
	db *sql.DB
}

// NewBuildRepo creates a new BuildRepo.
func NewBuildRepo(db *sql.DB) *BuildRepo {
	return &BuildRepo{db: db}
}

// Record inserts a build and returns it with its ID and timestamp.
func (r *BuildRepo) Record(ctx context.Context, build BuildRecord) (BuildRecord, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO index_builds (index_dir, index_version, chunker_version, embed_model, docs, chunks)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		build.IndexDir, build.IndexVersion, build.ChunkerVersion, build.EmbedModel, build.Docs, build.Chunks,
	)
	if err != nil {
		return BuildRecord{}, fmt.Errorf("failed to insert build: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return BuildRecord{}, fmt.Errorf("failed to read build id: %w", err)
	}

	return r.get(ctx, "WHERE id = ?", id)
}

// Latest returns the most recent build for indexDir, or ErrNotFound.
func (r *BuildRepo) Latest(ctx context.Context, indexDir string) (BuildRecord, error) {
	return r.get(ctx, "WHERE index_dir = ? ORDER BY id DESC LIMIT 1", indexDir)
}

// ListAll returns all builds, newest first.
func (r *BuildRepo) ListAll(ctx context.Context) ([]BuildRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectBuild+" ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var builds []BuildRecord
	for rows.Next() {
		build, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, build)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return builds, nil
}

const selectBuild = `SELECT id, index_dir, index_version, chunker_version, embed_model, docs, chunks, created_at
	FROM index_builds`

func (r *BuildRepo) get(ctx context.Context, where string, args ...any) (BuildRecord, error) {
	build, err := scanBuild(r.db.QueryRowContext(ctx, selectBuild+" "+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return BuildRecord{}, ErrNotFound
	}
	return build, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(s scanner) (BuildRecord, error) {
	var b BuildRecord
	err := s.Scan(&b.ID, &b.IndexDir, &b.IndexVersion, &b.ChunkerVersion, &b.EmbedModel, &b.Docs, &b.Chunks, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BuildRecord{}, err
	}
	if err != nil {
		return BuildRecord{}, fmt.Errorf("failed to scan build: %w", err)
	}
	return b, nil
}
