package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const workflowColumns = `id, workflow_id, jd_id, jd_title, status, started_by, started_at,
	completed_at, resume_ids, total_resumes, processed_resumes, agents, progress,
	metrics, error, updated_at`

// CreateWorkflowExecution inserts a new workflow execution record. A
// duplicate workflow_id surfaces as a unique violation; check with
// IsUniqueViolation. The workflow id is never overwritten on collision.
func (db *DB) CreateWorkflowExecution(ctx context.Context, wf *WorkflowExecution) (*WorkflowExecution, error) {
	resumeIDs, err := json.Marshal(wf.ResumeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resume_ids: %w", err)
	}
	agents, err := json.Marshal(wf.Agents)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal agents: %w", err)
	}
	progress, err := json.Marshal(wf.Progress)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	metrics, err := json.Marshal(wf.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO workflow_executions (workflow_id, jd_id, jd_title, status, started_by,
			started_at, resume_ids, total_resumes, processed_resumes, agents, progress, metrics)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+workflowColumns,
		wf.WorkflowID, wf.JDID, wf.JDTitle, wf.Status, wf.StartedBy, wf.StartedAt,
		resumeIDs, wf.TotalResumes, wf.ProcessedResumes, agents, progress, metrics,
	)

	created, err := scanWorkflow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow execution: %w", err)
	}
	return created, nil
}

// GetWorkflowByID retrieves a workflow execution by its workflow_id,
// returning nil if not found
func (db *DB) GetWorkflowByID(ctx context.Context, workflowID string) (*WorkflowExecution, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflow_executions WHERE workflow_id = $1`,
		workflowID)

	wf, err := scanWorkflow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workflow execution: %w", err)
	}
	return wf, nil
}

// LatestWorkflow retrieves the most recently started workflow execution,
// returning nil if none exists
func (db *DB) LatestWorkflow(ctx context.Context) (*WorkflowExecution, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT ` + workflowColumns + ` FROM workflow_executions
		 ORDER BY started_at DESC LIMIT 1`)

	wf, err := scanWorkflow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest workflow: %w", err)
	}
	return wf, nil
}

// ListWorkflowsOptions holds filters and pagination for listing workflows
type ListWorkflowsOptions struct {
	StartedBy *uuid.UUID
	Status    string
	Limit     int
	Offset    int
}

// ListWorkflows retrieves workflow executions, most recently started first
func (db *DB) ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) ([]WorkflowExecution, error) {
	if opts.Limit == 0 {
		opts.Limit = 10
	}

	query := `SELECT ` + workflowColumns + ` FROM workflow_executions WHERE 1=1`
	args := []any{}
	argNum := 1

	if opts.StartedBy != nil {
		query += fmt.Sprintf(" AND started_by = $%d", argNum)
		args = append(args, *opts.StartedBy)
		argNum++
	}
	if opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, opts.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []WorkflowExecution
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, *wf)
	}
	return workflows, nil
}

// WorkflowUpdate holds the mutable fields of a workflow execution. Nil
// fields are left unchanged.
type WorkflowUpdate struct {
	Status           *string
	CompletedAt      *time.Time
	ProcessedResumes *int
	Agents           []AgentStage
	Progress         *Progress
	Metrics          *Metrics
	Error            *string
}

// UpdateWorkflowStatus applies a partial update to a workflow execution.
// Only the orchestrator (and the status-update endpoint it backs) may call
// this; read paths never mutate workflow records.
func (db *DB) UpdateWorkflowStatus(ctx context.Context, workflowID string, upd WorkflowUpdate) error {
	query := `UPDATE workflow_executions SET updated_at = NOW()`
	args := []any{}
	argNum := 1

	if upd.Status != nil {
		query += fmt.Sprintf(", status = $%d", argNum)
		args = append(args, *upd.Status)
		argNum++
	}
	if upd.CompletedAt != nil {
		query += fmt.Sprintf(", completed_at = $%d", argNum)
		args = append(args, *upd.CompletedAt)
		argNum++
	}
	if upd.ProcessedResumes != nil {
		query += fmt.Sprintf(", processed_resumes = $%d", argNum)
		args = append(args, *upd.ProcessedResumes)
		argNum++
	}
	if upd.Agents != nil {
		agents, err := json.Marshal(upd.Agents)
		if err != nil {
			return fmt.Errorf("failed to marshal agents: %w", err)
		}
		query += fmt.Sprintf(", agents = $%d", argNum)
		args = append(args, agents)
		argNum++
	}
	if upd.Progress != nil {
		progress, err := json.Marshal(upd.Progress)
		if err != nil {
			return fmt.Errorf("failed to marshal progress: %w", err)
		}
		query += fmt.Sprintf(", progress = $%d", argNum)
		args = append(args, progress)
		argNum++
	}
	if upd.Metrics != nil {
		metrics, err := json.Marshal(upd.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
		query += fmt.Sprintf(", metrics = $%d", argNum)
		args = append(args, metrics)
		argNum++
	}
	if upd.Error != nil {
		query += fmt.Sprintf(", error = $%d", argNum)
		args = append(args, *upd.Error)
		argNum++
	}

	query += fmt.Sprintf(" WHERE workflow_id = $%d", argNum)
	args = append(args, workflowID)

	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update workflow execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found: %s", workflowID)
	}
	return nil
}

// WorkflowIDsForResumes maps each resume id to the workflow_id of the
// most recent workflow that included it. Resumes no workflow has seen
// are absent from the map. The JSONB ?| operator matches against the
// stored resume_ids array.
func (db *DB) WorkflowIDsForResumes(ctx context.Context, resumeIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(resumeIDs))
	if len(resumeIDs) == 0 {
		return out, nil
	}

	ids := make([]string, len(resumeIDs))
	for i, id := range resumeIDs {
		ids[i] = id.String()
	}

	rows, err := db.pool.Query(ctx,
		`SELECT workflow_id, resume_ids FROM workflow_executions
		 WHERE resume_ids ?| $1
		 ORDER BY started_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up workflows for resumes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var workflowID string
		var raw []byte
		if err := rows.Scan(&workflowID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan workflow lookup row: %w", err)
		}
		var members []uuid.UUID
		if raw != nil {
			_ = json.Unmarshal(raw, &members)
		}
		for _, id := range members {
			if _, seen := out[id]; !seen {
				out[id] = workflowID
			}
		}
	}
	return out, nil
}

// DeleteWorkflow deletes a workflow execution by its workflow_id
func (db *DB) DeleteWorkflow(ctx context.Context, workflowID string) error {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM workflow_executions WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found: %s", workflowID)
	}
	return nil
}

// CountWorkflows returns the workflow count for a user, optionally
// filtered by status
func (db *DB) CountWorkflows(ctx context.Context, startedBy *uuid.UUID, status string) (int, error) {
	query := `SELECT COUNT(*) FROM workflow_executions WHERE 1=1`
	args := []any{}
	argNum := 1

	if startedBy != nil {
		query += fmt.Sprintf(" AND started_by = $%d", argNum)
		args = append(args, *startedBy)
		argNum++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, status)
	}

	var count int
	if err := db.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count workflows: %w", err)
	}
	return count, nil
}

func scanWorkflow(row rowScanner) (*WorkflowExecution, error) {
	var wf WorkflowExecution
	var resumeIDs, agents, progress, metrics []byte
	var errText *string

	err := row.Scan(&wf.ID, &wf.WorkflowID, &wf.JDID, &wf.JDTitle, &wf.Status, &wf.StartedBy,
		&wf.StartedAt, &wf.CompletedAt, &resumeIDs, &wf.TotalResumes, &wf.ProcessedResumes,
		&agents, &progress, &metrics, &errText, &wf.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if resumeIDs != nil {
		_ = json.Unmarshal(resumeIDs, &wf.ResumeIDs)
	}
	if agents != nil {
		_ = json.Unmarshal(agents, &wf.Agents)
	}
	if progress != nil {
		_ = json.Unmarshal(progress, &wf.Progress)
	}
	if metrics != nil {
		_ = json.Unmarshal(metrics, &wf.Metrics)
	}
	if errText != nil {
		wf.Error = *errText
	}

	return &wf, nil
}
