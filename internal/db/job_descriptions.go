package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JobDescriptionInput holds the fields for creating a job description
type JobDescriptionInput struct {
	ID          string
	Designation string
	Description string
	Status      string
	CreatedBy   *uuid.UUID
}

// CreateJobDescription inserts a new job description and returns the
// stored record. The ID is caller-assigned; duplicates surface as a
// unique violation on the primary key.
func (db *DB) CreateJobDescription(ctx context.Context, input *JobDescriptionInput) (*JobDescription, error) {
	status := input.Status
	if status == "" {
		status = "active"
	}

	var jd JobDescription
	err := db.pool.QueryRow(ctx,
		`INSERT INTO job_descriptions (id, designation, description, status, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, designation, description, status, created_by, created_at`,
		input.ID, input.Designation, input.Description, status, input.CreatedBy,
	).Scan(&jd.ID, &jd.Designation, &jd.Description, &jd.Status, &jd.CreatedBy, &jd.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create job description: %w", err)
	}
	return &jd, nil
}

// GetJobDescriptionByID retrieves a job description, returning nil if not found
func (db *DB) GetJobDescriptionByID(ctx context.Context, id string) (*JobDescription, error) {
	var jd JobDescription
	err := db.pool.QueryRow(ctx,
		`SELECT id, designation, description, status, created_by, created_at
		 FROM job_descriptions WHERE id = $1`,
		id,
	).Scan(&jd.ID, &jd.Designation, &jd.Description, &jd.Status, &jd.CreatedBy, &jd.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job description: %w", err)
	}
	return &jd, nil
}

// ListJobDescriptions retrieves job descriptions, newest first
func (db *DB) ListJobDescriptions(ctx context.Context, status string, limit, offset int) ([]JobDescription, error) {
	if limit == 0 {
		limit = 50
	}

	query := `SELECT id, designation, description, status, created_by, created_at
		FROM job_descriptions WHERE 1=1`
	args := []any{}
	argNum := 1

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job descriptions: %w", err)
	}
	defer rows.Close()

	var jds []JobDescription
	for rows.Next() {
		var jd JobDescription
		if err := rows.Scan(&jd.ID, &jd.Designation, &jd.Description, &jd.Status, &jd.CreatedBy, &jd.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job description: %w", err)
		}
		jds = append(jds, jd)
	}
	return jds, nil
}

// DeleteJobDescription deletes a job description by ID
func (db *DB) DeleteJobDescription(ctx context.Context, id string) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM job_descriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job description: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job description not found: %s", id)
	}
	return nil
}
