package db

import (
	"time"

	"github.com/google/uuid"
)

// Workflow status constants
const (
	WorkflowStatusPending    = "pending"
	WorkflowStatusInProgress = "in_progress"
	WorkflowStatusCompleted  = "completed"
	WorkflowStatusFailed     = "failed"
)

// Agent stage status constants
const (
	StageStatusIdle       = "idle"
	StageStatusPending    = "pending"
	StageStatusInProgress = "in-progress"
	StageStatusCompleted  = "completed"
	StageStatusFailed     = "failed"
)

// Agent stage identifiers. The pipeline always runs these three stages in
// order; only the HR comparator is backed by the external scoring agent.
const (
	StageJDReader     = "jd-reader"
	StageResumeReader = "resume-reader"
	StageHRComparator = "hr-comparator"
)

// Display names for the agent stages
const (
	StageNameJDReader     = "JD Reader Agent"
	StageNameResumeReader = "Resume Reader Agent"
	StageNameHRComparator = "HR Comparator Agent"
)

// Audit log action constants
const (
	ActionUploadResume   = "upload_resume"
	ActionViewResume     = "view_resume"
	ActionDeleteResume   = "delete_resume"
	ActionCreateJD       = "create_jd"
	ActionDeleteJD       = "delete_jd"
	ActionRunMatching    = "run_matching"
	ActionDeleteResult   = "delete_result"
	ActionDeleteWorkflow = "delete_workflow"
)

// Resume represents an uploaded resume with its parsed text
type Resume struct {
	ID         uuid.UUID  `json:"id"`
	Filename   string     `json:"filename"`
	Text       string     `json:"text"`
	Source     string     `json:"source"`
	UploadedBy *uuid.UUID `json:"uploaded_by,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at"`
}

// JobDescription represents a job description with a caller-assigned ID
// (e.g. "JD-1")
type JobDescription struct {
	ID          string     `json:"id"`
	Designation string     `json:"designation"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MatchResult is one scored resume x job-description pair. At most one
// non-deleted row exists per (resume_id, jd_id); reprocessing deletes the
// prior row and inserts a fresh one.
type MatchResult struct {
	ID                   uuid.UUID      `json:"id"`
	ResumeID             uuid.UUID      `json:"resume_id"`
	JDID                 string         `json:"jd_id"`
	WorkflowID           string         `json:"workflow_id,omitempty"`
	MatchScore           float64        `json:"match_score"`
	FitCategory          string         `json:"fit_category"`
	JDExtracted          map[string]any `json:"jd_extracted,omitempty"`
	ResumeExtracted      map[string]any `json:"resume_extracted,omitempty"`
	MatchBreakdown       map[string]any `json:"match_breakdown,omitempty"`
	SelectionReason      string         `json:"selection_reason"`
	ConfidenceScore      *float64       `json:"confidence_score,omitempty"`
	AgentVersion         string         `json:"agent_version"`
	ProcessingDurationMs int64          `json:"processing_duration_ms"`
	CreatedAt            time.Time      `json:"created_at"`
}

// AgentStage is one step of the matching pipeline as recorded on a
// workflow execution
type AgentStage struct {
	AgentID     string         `json:"agent_id"`
	Name        string         `json:"name"`
	Status      string         `json:"status"`
	IsAIAgent   bool           `json:"is_ai_agent"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DurationMs  *int64         `json:"duration_ms,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metrics     map[string]any `json:"metrics,omitempty"`
}

// Progress summarizes stage completion on a workflow execution
type Progress struct {
	CompletedAgents int `json:"completed_agents"`
	TotalAgents     int `json:"total_agents"`
	Percentage      int `json:"percentage"`
}

// Metrics summarizes the outcome of a workflow execution
type Metrics struct {
	TotalCandidates  int   `json:"total_candidates"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
	MatchRate        int   `json:"match_rate"`
	TopMatches       int   `json:"top_matches"`
}

// WorkflowExecution is one batch-matching run. The workflow_id is
// time-derived ("WF-<epoch-millis>"), globally unique and immutable; only
// the orchestrator mutates status and stages after creation.
type WorkflowExecution struct {
	ID               uuid.UUID    `json:"id"`
	WorkflowID       string       `json:"workflow_id"`
	JDID             string       `json:"jd_id"`
	JDTitle          string       `json:"jd_title"`
	Status           string       `json:"status"`
	StartedBy        *uuid.UUID   `json:"started_by,omitempty"`
	StartedAt        time.Time    `json:"started_at"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
	ResumeIDs        []uuid.UUID  `json:"resume_ids"`
	TotalResumes     int          `json:"total_resumes"`
	ProcessedResumes int          `json:"processed_resumes"`
	Agents           []AgentStage `json:"agents"`
	Progress         Progress     `json:"progress"`
	Metrics          Metrics      `json:"metrics"`
	Error            string       `json:"error,omitempty"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// User represents an authenticated API user
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditLog records one API action for the audit trail
type AuditLog struct {
	ID           uuid.UUID  `json:"id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	Action       string     `json:"action"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	IPAddress    string     `json:"ip_address"`
	UserAgent    string     `json:"user_agent"`
	Success      bool       `json:"success"`
	CreatedAt    time.Time  `json:"created_at"`
}
