package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/server/middleware"
)

// CreateJDRequest is the payload for creating a job description. The id
// is caller-assigned (e.g. "JD-1").
type CreateJDRequest struct {
	ID          string `json:"id" validate:"required"`
	Designation string `json:"designation" validate:"required"`
	Description string `json:"description" validate:"required"`
	Status      string `json:"status" validate:"omitempty,oneof=active closed draft"`
}

// handleCreateJD stores a new job description.
func (s *Server) handleCreateJD(w http.ResponseWriter, r *http.Request) {
	var req CreateJDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	var createdBy *uuid.UUID
	if userID, err := middleware.GetUserID(r); err == nil {
		createdBy = &userID
	}

	jd, err := s.store.CreateJobDescription(r.Context(), &db.JobDescriptionInput{
		ID:          req.ID,
		Designation: req.Designation,
		Description: req.Description,
		Status:      req.Status,
		CreatedBy:   createdBy,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			s.errorResponse(w, http.StatusConflict, "job description already exists: "+req.ID)
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "failed to create job description")
		return
	}

	s.audit(r, db.ActionCreateJD, "job_description", jd.ID)
	s.jsonResponse(w, http.StatusCreated, jd)
}

// handleListJDs lists job descriptions with an optional status filter.
func (s *Server) handleListJDs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 100, 200)
	offset := queryInt(r, "skip", 0, 0)

	jds, err := s.store.ListJobDescriptions(r.Context(), status, limit, offset)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list job descriptions")
		return
	}
	if jds == nil {
		jds = []db.JobDescription{}
	}
	s.jsonResponse(w, http.StatusOK, jds)
}

// handleGetJD returns a job description by its custom id.
func (s *Server) handleGetJD(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	jd, err := s.store.GetJobDescriptionByID(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get job description")
		return
	}
	if jd == nil {
		s.errorResponse(w, http.StatusNotFound, "Job Description not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, jd)
}

// handleDeleteJD deletes a job description.
func (s *Server) handleDeleteJD(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	jd, err := s.store.GetJobDescriptionByID(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get job description")
		return
	}
	if jd == nil {
		s.errorResponse(w, http.StatusNotFound, "Job Description not found")
		return
	}

	if err := s.store.DeleteJobDescription(r.Context(), id); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to delete job description")
		return
	}

	s.audit(r, db.ActionDeleteJD, "job_description", id)
	s.messageResponse(w, "Job description deleted successfully")
}
