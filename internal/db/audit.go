package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AuditLogInput holds the fields for recording an audit log entry
type AuditLogInput struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	Success      bool
}

// CreateAuditLog records one API action. Audit writes are best-effort
// plumbing; callers typically ignore the error after logging it.
func (db *DB) CreateAuditLog(ctx context.Context, input *AuditLogInput) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO audit_logs (user_id, action, resource_type, resource_id, ip_address, user_agent, success)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		input.UserID, input.Action, input.ResourceType, input.ResourceID,
		input.IPAddress, input.UserAgent, input.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// ListRecentAuditLogs retrieves the most recent audit log entries
func (db *DB) ListRecentAuditLogs(ctx context.Context, limit int) ([]AuditLog, error) {
	if limit == 0 {
		limit = 20
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, action, resource_type, resource_id, ip_address, user_agent, success, created_at
		 FROM audit_logs ORDER BY created_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var l AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.ResourceType, &l.ResourceID,
			&l.IPAddress, &l.UserAgent, &l.Success, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}
