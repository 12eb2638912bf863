package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/resume-matcher/internal/db"
)

// Store is the persistence surface the HTTP handlers depend on. *db.DB
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	// Resumes
	CreateResume(ctx context.Context, input *db.ResumeInput) (*db.Resume, error)
	GetResumeByID(ctx context.Context, id uuid.UUID) (*db.Resume, error)
	ListResumes(ctx context.Context, opts db.ListResumesOptions) ([]db.Resume, error)
	UpdateResume(ctx context.Context, id uuid.UUID, upd db.ResumeUpdate) error
	DeleteResume(ctx context.Context, id uuid.UUID) error
	SearchResumes(ctx context.Context, query string, limit int) ([]db.Resume, error)
	CountResumes(ctx context.Context, source string) (int, error)

	// Job descriptions
	CreateJobDescription(ctx context.Context, input *db.JobDescriptionInput) (*db.JobDescription, error)
	GetJobDescriptionByID(ctx context.Context, id string) (*db.JobDescription, error)
	ListJobDescriptions(ctx context.Context, status string, limit, offset int) ([]db.JobDescription, error)
	DeleteJobDescription(ctx context.Context, id string) error

	// Match results
	CreateMatchResult(ctx context.Context, input *db.MatchResultInput) (*db.MatchResult, error)
	GetMatchResultByID(ctx context.Context, id uuid.UUID) (*db.MatchResult, error)
	GetMatchResultByPair(ctx context.Context, resumeID uuid.UUID, jdID string) (*db.MatchResult, error)
	DeleteMatchResult(ctx context.Context, id uuid.UUID) error
	ListResultsByJD(ctx context.Context, jdID string, opts db.ListResultsOptions) ([]db.MatchResult, error)
	TopMatches(ctx context.Context, jdID string, limit int) ([]db.MatchResult, error)
	WorkflowIDsForResumes(ctx context.Context, resumeIDs []uuid.UUID) (map[uuid.UUID]string, error)

	// Workflow executions
	GetWorkflowByID(ctx context.Context, workflowID string) (*db.WorkflowExecution, error)
	ListWorkflows(ctx context.Context, opts db.ListWorkflowsOptions) ([]db.WorkflowExecution, error)
	UpdateWorkflowStatus(ctx context.Context, workflowID string, upd db.WorkflowUpdate) error
	DeleteWorkflow(ctx context.Context, workflowID string) error
	CountWorkflows(ctx context.Context, startedBy *uuid.UUID, status string) (int, error)

	// Audit trail
	CreateAuditLog(ctx context.Context, input *db.AuditLogInput) error
}
