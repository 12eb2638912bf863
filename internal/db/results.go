package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MatchResultInput holds the fields for creating a match result
type MatchResultInput struct {
	ResumeID             uuid.UUID
	JDID                 string
	WorkflowID           string
	MatchScore           float64
	FitCategory          string
	JDExtracted          map[string]any
	ResumeExtracted      map[string]any
	MatchBreakdown       map[string]any
	SelectionReason      string
	ConfidenceScore      *float64
	AgentVersion         string
	ProcessingDurationMs int64
}

const matchResultColumns = `id, resume_id, jd_id, workflow_id, match_score, fit_category,
	jd_extracted, resume_extracted, match_breakdown, selection_reason,
	confidence_score, agent_version, processing_duration_ms, created_at`

// CreateMatchResult inserts a new match result. A duplicate
// (resume_id, jd_id) pair surfaces as a unique violation; check with
// IsUniqueViolation.
func (db *DB) CreateMatchResult(ctx context.Context, input *MatchResultInput) (*MatchResult, error) {
	jdExtracted, err := json.Marshal(input.JDExtracted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jd_extracted: %w", err)
	}
	resumeExtracted, err := json.Marshal(input.ResumeExtracted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resume_extracted: %w", err)
	}
	breakdown, err := json.Marshal(input.MatchBreakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match_breakdown: %w", err)
	}

	agentVersion := input.AgentVersion
	if agentVersion == "" {
		agentVersion = "v1.0.0"
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO match_results (resume_id, jd_id, workflow_id, match_score, fit_category,
			jd_extracted, resume_extracted, match_breakdown, selection_reason,
			confidence_score, agent_version, processing_duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+matchResultColumns,
		input.ResumeID, input.JDID, nullableString(input.WorkflowID), input.MatchScore,
		input.FitCategory, jdExtracted, resumeExtracted, breakdown,
		input.SelectionReason, input.ConfidenceScore, agentVersion, input.ProcessingDurationMs,
	)

	result, err := scanMatchResult(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create match result: %w", err)
	}
	return result, nil
}

// GetMatchResultByID retrieves a match result by ID, returning nil if not found
func (db *DB) GetMatchResultByID(ctx context.Context, id uuid.UUID) (*MatchResult, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+matchResultColumns+` FROM match_results WHERE id = $1`, id)

	result, err := scanMatchResult(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match result: %w", err)
	}
	return result, nil
}

// GetMatchResultByPair retrieves the match result for a (resume, jd) pair,
// returning nil if none exists
func (db *DB) GetMatchResultByPair(ctx context.Context, resumeID uuid.UUID, jdID string) (*MatchResult, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+matchResultColumns+` FROM match_results WHERE resume_id = $1 AND jd_id = $2`,
		resumeID, jdID)

	result, err := scanMatchResult(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match result by pair: %w", err)
	}
	return result, nil
}

// DeleteMatchResult deletes a match result by ID
func (db *DB) DeleteMatchResult(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM match_results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match result: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("match result not found: %s", id)
	}
	return nil
}

// ListResultsOptions holds filters and pagination for listing results
type ListResultsOptions struct {
	MinScore *float64
	Limit    int
	Offset   int
}

// ListResultsByJD retrieves match results for a job description ordered by
// score, best first
func (db *DB) ListResultsByJD(ctx context.Context, jdID string, opts ListResultsOptions) ([]MatchResult, error) {
	if opts.Limit == 0 {
		opts.Limit = 100
	}

	query := `SELECT ` + matchResultColumns + ` FROM match_results WHERE jd_id = $1`
	args := []any{jdID}
	argNum := 2

	if opts.MinScore != nil {
		query += fmt.Sprintf(" AND match_score >= $%d", argNum)
		args = append(args, *opts.MinScore)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY match_score DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, opts.Limit, opts.Offset)

	return db.queryMatchResults(ctx, query, args...)
}

// TopMatches retrieves the highest scoring results for a job description
func (db *DB) TopMatches(ctx context.Context, jdID string, limit int) ([]MatchResult, error) {
	if limit == 0 {
		limit = 100
	}
	return db.queryMatchResults(ctx,
		`SELECT `+matchResultColumns+` FROM match_results
		 WHERE jd_id = $1 ORDER BY match_score DESC LIMIT $2`,
		jdID, limit)
}

// ListResultsForWorkflow retrieves all results for a workflow's resume set
// against its job description. Results are matched by (resume, jd) pair
// rather than workflow_id so single-match reruns are counted too.
func (db *DB) ListResultsForWorkflow(ctx context.Context, resumeIDs []uuid.UUID, jdID string) ([]MatchResult, error) {
	if len(resumeIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(resumeIDs))
	for i, id := range resumeIDs {
		ids[i] = id.String()
	}

	return db.queryMatchResults(ctx,
		`SELECT `+matchResultColumns+` FROM match_results
		 WHERE resume_id = ANY($1::uuid[]) AND jd_id = $2`,
		ids, jdID)
}

func (db *DB) queryMatchResults(ctx context.Context, query string, args ...any) ([]MatchResult, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query match results: %w", err)
	}
	defer rows.Close()

	var results []MatchResult
	for rows.Next() {
		result, err := scanMatchResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}
		results = append(results, *result)
	}
	return results, nil
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatchResult(row rowScanner) (*MatchResult, error) {
	var r MatchResult
	var workflowID *string
	var jdExtracted, resumeExtracted, breakdown []byte

	err := row.Scan(&r.ID, &r.ResumeID, &r.JDID, &workflowID, &r.MatchScore, &r.FitCategory,
		&jdExtracted, &resumeExtracted, &breakdown, &r.SelectionReason,
		&r.ConfidenceScore, &r.AgentVersion, &r.ProcessingDurationMs, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	if workflowID != nil {
		r.WorkflowID = *workflowID
	}
	if jdExtracted != nil {
		_ = json.Unmarshal(jdExtracted, &r.JDExtracted)
	}
	if resumeExtracted != nil {
		_ = json.Unmarshal(resumeExtracted, &r.ResumeExtracted)
	}
	if breakdown != nil {
		_ = json.Unmarshal(breakdown, &r.MatchBreakdown)
	}

	return &r, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
