package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/server/middleware"
	"github.com/jonathan/resume-matcher/internal/workflow"
)

// UpdateWorkflowStatusRequest is a partial status update for a workflow
// execution, used by background tasks.
type UpdateWorkflowStatusRequest struct {
	Status           *string `json:"status" validate:"omitempty,oneof=pending in_progress completed failed"`
	ProcessedResumes *int    `json:"processed_resumes"`
	Error            *string `json:"error"`
}

// handleWorkflowStatus serves the live dashboard snapshot.
func (s *Server) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.projector.ProjectStatus(r.Context())
	s.jsonResponse(w, http.StatusOK, snap)
}

// handleListExecutions lists the authenticated user's workflow
// executions, most recent first.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	opts := db.ListWorkflowsOptions{
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 10, 50),
		Offset: queryInt(r, "skip", 0, 0),
	}
	if userID, err := middleware.GetUserID(r); err == nil {
		opts.StartedBy = &userID
	}

	workflows, err := s.store.ListWorkflows(r.Context(), opts)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list workflows")
		return
	}
	if workflows == nil {
		workflows = []db.WorkflowExecution{}
	}
	s.jsonResponse(w, http.StatusOK, workflows)
}

// handleGetExecution returns one workflow execution by workflow_id.
func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("workflow_id")

	wf, err := s.store.GetWorkflowByID(r.Context(), workflowID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get workflow")
		return
	}
	if wf == nil {
		s.errorResponse(w, http.StatusNotFound, "Workflow not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, wf)
}

// handleUpdateExecutionStatus applies a status update to a workflow
// execution. Setting status to completed stamps completed_at.
func (s *Server) handleUpdateExecutionStatus(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("workflow_id")

	var req UpdateWorkflowStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	wf, err := s.store.GetWorkflowByID(r.Context(), workflowID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get workflow")
		return
	}
	if wf == nil {
		s.errorResponse(w, http.StatusNotFound, "Workflow not found")
		return
	}

	upd := db.WorkflowUpdate{
		Status:           req.Status,
		ProcessedResumes: req.ProcessedResumes,
		Error:            req.Error,
	}
	if req.Status != nil && *req.Status == db.WorkflowStatusCompleted {
		now := time.Now().UTC()
		upd.CompletedAt = &now
	}

	if err := s.store.UpdateWorkflowStatus(r.Context(), workflowID, upd); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to update workflow")
		return
	}

	s.messageResponse(w, "Workflow status updated successfully")
}

// handleDeleteExecution deletes a workflow execution. Only the user who
// started the workflow may delete it.
func (s *Server) handleDeleteExecution(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("workflow_id")

	wf, err := s.store.GetWorkflowByID(r.Context(), workflowID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get workflow")
		return
	}
	if wf == nil {
		s.errorResponse(w, http.StatusNotFound, "Workflow not found")
		return
	}

	userID, err := middleware.GetUserID(r)
	if err != nil || wf.StartedBy == nil || *wf.StartedBy != userID {
		unauthorizedErr := &workflow.UnauthorizedError{Action: "delete this workflow"}
		s.errorResponse(w, HTTPStatus(unauthorizedErr), unauthorizedErr.Error())
		return
	}

	if err := s.store.DeleteWorkflow(r.Context(), workflowID); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to delete workflow")
		return
	}

	s.audit(r, db.ActionDeleteWorkflow, "workflow", workflowID)
	s.messageResponse(w, "Workflow deleted successfully")
}

// handleExecutionCount returns the authenticated user's workflow count,
// optionally filtered by status.
func (s *Server) handleExecutionCount(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	count, err := s.countWorkflowsForUser(r, status)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to count workflows")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"total":  count,
		"status": status,
	})
}

func (s *Server) countWorkflowsForUser(r *http.Request, status string) (int, error) {
	if userID, err := middleware.GetUserID(r); err == nil {
		return s.store.CountWorkflows(r.Context(), &userID, status)
	}
	return s.store.CountWorkflows(r.Context(), nil, status)
}
