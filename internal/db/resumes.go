package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResumeInput holds the fields for creating a resume
type ResumeInput struct {
	Filename   string
	Text       string
	Source     string
	UploadedBy *uuid.UUID
}

// CreateResume inserts a new resume and returns the stored record
func (db *DB) CreateResume(ctx context.Context, input *ResumeInput) (*Resume, error) {
	source := input.Source
	if source == "" {
		source = "direct"
	}

	var r Resume
	err := db.pool.QueryRow(ctx,
		`INSERT INTO resumes (filename, text, source, uploaded_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, filename, text, source, uploaded_by, uploaded_at`,
		input.Filename, input.Text, source, input.UploadedBy,
	).Scan(&r.ID, &r.Filename, &r.Text, &r.Source, &r.UploadedBy, &r.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create resume: %w", err)
	}
	return &r, nil
}

// GetResumeByID retrieves a resume by ID, returning nil if not found
func (db *DB) GetResumeByID(ctx context.Context, id uuid.UUID) (*Resume, error) {
	var r Resume
	err := db.pool.QueryRow(ctx,
		`SELECT id, filename, text, source, uploaded_by, uploaded_at
		 FROM resumes WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Filename, &r.Text, &r.Source, &r.UploadedBy, &r.UploadedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return &r, nil
}

// ListResumesOptions holds filters and pagination for listing resumes
type ListResumesOptions struct {
	Source string
	Limit  int
	Offset int
}

// ListResumes retrieves resumes ordered by upload time, newest first
func (db *DB) ListResumes(ctx context.Context, opts ListResumesOptions) ([]Resume, error) {
	if opts.Limit == 0 {
		opts.Limit = 100
	}

	query := `SELECT id, filename, text, source, uploaded_by, uploaded_at
		FROM resumes WHERE 1=1`
	args := []any{}
	argNum := 1

	if opts.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argNum)
		args = append(args, opts.Source)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []Resume
	for rows.Next() {
		var r Resume
		if err := rows.Scan(&r.ID, &r.Filename, &r.Text, &r.Source, &r.UploadedBy, &r.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		resumes = append(resumes, r)
	}
	return resumes, nil
}

// AllResumeIDs retrieves up to limit resume IDs, newest first. Used when a
// batch match request does not name an explicit resume set.
func (db *DB) AllResumeIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id FROM resumes ORDER BY uploaded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list resume ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan resume id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ResumeUpdate holds optional fields for updating a resume
type ResumeUpdate struct {
	Filename *string
	Text     *string
	Source   *string
}

// UpdateResume updates the provided fields of a resume
func (db *DB) UpdateResume(ctx context.Context, id uuid.UUID, upd ResumeUpdate) error {
	query := `UPDATE resumes SET id = id`
	args := []any{}
	argNum := 1

	if upd.Filename != nil {
		query += fmt.Sprintf(", filename = $%d", argNum)
		args = append(args, *upd.Filename)
		argNum++
	}
	if upd.Text != nil {
		query += fmt.Sprintf(", text = $%d", argNum)
		args = append(args, *upd.Text)
		argNum++
	}
	if upd.Source != nil {
		query += fmt.Sprintf(", source = $%d", argNum)
		args = append(args, *upd.Source)
		argNum++
	}

	query += fmt.Sprintf(" WHERE id = $%d", argNum)
	args = append(args, id)

	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update resume: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("resume not found: %s", id)
	}
	return nil
}

// DeleteResume deletes a resume by ID
func (db *DB) DeleteResume(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM resumes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("resume not found: %s", id)
	}
	return nil
}

// SearchResumes performs a full-text search over resume text
func (db *DB) SearchResumes(ctx context.Context, query string, limit int) ([]Resume, error) {
	if limit == 0 {
		limit = 20
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, filename, text, source, uploaded_by, uploaded_at
		 FROM resumes
		 WHERE to_tsvector('english', text) @@ websearch_to_tsquery('english', $1)
		 ORDER BY uploaded_at DESC
		 LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search resumes: %w", err)
	}
	defer rows.Close()

	var resumes []Resume
	for rows.Next() {
		var r Resume
		if err := rows.Scan(&r.ID, &r.Filename, &r.Text, &r.Source, &r.UploadedBy, &r.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		resumes = append(resumes, r)
	}
	return resumes, nil
}

// CountResumes returns the total resume count, optionally filtered by source
func (db *DB) CountResumes(ctx context.Context, source string) (int, error) {
	query := `SELECT COUNT(*) FROM resumes`
	args := []any{}
	if source != "" {
		query += ` WHERE source = $1`
		args = append(args, source)
	}

	var count int
	if err := db.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count resumes: %w", err)
	}
	return count, nil
}
