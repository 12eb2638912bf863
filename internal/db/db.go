// Package db provides PostgreSQL database access for resumes, job
// descriptions, match results and workflow executions.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// IsUniqueViolation reports whether err is a unique-index violation.
// Callers map this onto the domain conflict errors (duplicate
// (resume_id, jd_id) pair, duplicate workflow_id).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// schema holds the DDL statements executed by InitSchema, in order.
// Index choices mirror the read paths: top matches by (jd_id, score),
// latest workflow by started_at, uniqueness on (resume_id, jd_id) and
// on workflow_id.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'recruiter',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (email)`,

	`CREATE TABLE IF NOT EXISTS resumes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		filename TEXT NOT NULL,
		text TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'direct',
		uploaded_by UUID,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS resumes_uploaded_at_idx ON resumes (uploaded_at DESC)`,

	`CREATE TABLE IF NOT EXISTS job_descriptions (
		id TEXT PRIMARY KEY,
		designation TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_by UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS job_descriptions_status_idx ON job_descriptions (status)`,

	`CREATE TABLE IF NOT EXISTS match_results (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		resume_id UUID NOT NULL,
		jd_id TEXT NOT NULL,
		workflow_id TEXT,
		match_score DOUBLE PRECISION NOT NULL,
		fit_category TEXT NOT NULL,
		jd_extracted JSONB,
		resume_extracted JSONB,
		match_breakdown JSONB,
		selection_reason TEXT NOT NULL DEFAULT '',
		confidence_score DOUBLE PRECISION,
		agent_version TEXT NOT NULL DEFAULT 'v1.0.0',
		processing_duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS match_results_pair_idx ON match_results (resume_id, jd_id)`,
	`CREATE INDEX IF NOT EXISTS match_results_jd_score_idx ON match_results (jd_id, match_score DESC)`,
	`CREATE INDEX IF NOT EXISTS match_results_workflow_idx ON match_results (workflow_id)`,

	`CREATE TABLE IF NOT EXISTS workflow_executions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		workflow_id TEXT NOT NULL,
		jd_id TEXT NOT NULL,
		jd_title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		started_by UUID,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ,
		resume_ids JSONB NOT NULL DEFAULT '[]',
		total_resumes INT NOT NULL DEFAULT 0,
		processed_resumes INT NOT NULL DEFAULT 0,
		agents JSONB NOT NULL DEFAULT '[]',
		progress JSONB NOT NULL DEFAULT '{}',
		metrics JSONB NOT NULL DEFAULT '{}',
		error TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS workflow_executions_workflow_id_idx ON workflow_executions (workflow_id)`,
	`CREATE INDEX IF NOT EXISTS workflow_executions_started_at_idx ON workflow_executions (started_at DESC)`,
	`CREATE INDEX IF NOT EXISTS workflow_executions_status_idx ON workflow_executions (status)`,
	`CREATE INDEX IF NOT EXISTS workflow_executions_jd_idx ON workflow_executions (jd_id)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		success BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_user_time_idx ON audit_logs (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_action_time_idx ON audit_logs (action, created_at DESC)`,
}

// InitSchema creates all tables and indexes if they do not exist
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
