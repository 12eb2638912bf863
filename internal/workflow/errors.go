package workflow

import "fmt"

// NotFoundError indicates a referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// QuotaExceededError indicates a batch request named more resumes than
// the plan allows.
type QuotaExceededError struct {
	Limit     int
	Requested int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("maximum %d resumes allowed per workflow, got %d", e.Limit, e.Requested)
}

// BatchScoringError indicates the scoring call for a workflow failed.
// The workflow record has already been marked failed when this is
// returned.
type BatchScoringError struct {
	WorkflowID string
	Err        error
}

func (e *BatchScoringError) Error() string {
	return fmt.Sprintf("batch scoring failed for %s: %v", e.WorkflowID, e.Err)
}

func (e *BatchScoringError) Unwrap() error {
	return e.Err
}

// ConflictError indicates a store-level uniqueness violation, such as
// two workflows minting the same id.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.ID)
}

// UnauthorizedError indicates the acting user may not perform the
// operation on this resource.
type UnauthorizedError struct {
	Action string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("not authorized to %s", e.Action)
}
