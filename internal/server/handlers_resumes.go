package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/server/middleware"
)

// CreateResumeRequest is the payload for uploading a parsed resume.
type CreateResumeRequest struct {
	Filename string `json:"filename" validate:"required"`
	Text     string `json:"text" validate:"required"`
	Source   string `json:"source" validate:"omitempty,oneof=direct LinkedIn Indeed Naukri.com"`
}

// UpdateResumeRequest is a partial resume update. Nil fields are left
// unchanged.
type UpdateResumeRequest struct {
	Filename *string `json:"filename"`
	Text     *string `json:"text"`
	Source   *string `json:"source"`
}

// resumeSummary is the list/search projection of a resume: the full text
// is replaced by a short preview.
type resumeSummary struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	Source      string     `json:"source"`
	UploadedBy  *uuid.UUID `json:"uploaded_by,omitempty"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	TextPreview string     `json:"text_preview"`
}

const resumePreviewLen = 200

func summarizeResume(r *db.Resume) resumeSummary {
	preview := r.Text
	if len(preview) > resumePreviewLen {
		preview = preview[:resumePreviewLen]
	}
	return resumeSummary{
		ID:          r.ID,
		Filename:    r.Filename,
		Source:      r.Source,
		UploadedBy:  r.UploadedBy,
		UploadedAt:  r.UploadedAt,
		TextPreview: preview,
	}
}

// handleCreateResume stores a new resume for the authenticated user.
func (s *Server) handleCreateResume(w http.ResponseWriter, r *http.Request) {
	var req CreateResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	var uploadedBy *uuid.UUID
	if userID, err := middleware.GetUserID(r); err == nil {
		uploadedBy = &userID
	}

	resume, err := s.store.CreateResume(r.Context(), &db.ResumeInput{
		Filename:   req.Filename,
		Text:       req.Text,
		Source:     req.Source,
		UploadedBy: uploadedBy,
	})
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to create resume")
		return
	}

	s.audit(r, db.ActionUploadResume, "resume", resume.ID.String())
	s.jsonResponse(w, http.StatusCreated, resume)
}

// handleListResumes lists resumes with pagination and an optional source
// filter. List responses carry a text preview, not the full text.
func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	opts := db.ListResumesOptions{
		Source: r.URL.Query().Get("source"),
		Limit:  queryInt(r, "limit", 100, 130),
		Offset: queryInt(r, "skip", 0, 0),
	}

	resumes, err := s.store.ListResumes(r.Context(), opts)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list resumes")
		return
	}

	summaries := make([]resumeSummary, 0, len(resumes))
	for i := range resumes {
		summaries = append(summaries, summarizeResume(&resumes[i]))
	}
	s.jsonResponse(w, http.StatusOK, summaries)
}

// handleGetResume returns a resume with its full text.
func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid resume id")
		return
	}

	resume, err := s.store.GetResumeByID(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get resume")
		return
	}
	if resume == nil {
		s.errorResponse(w, http.StatusNotFound, "Resume not found")
		return
	}

	s.audit(r, db.ActionViewResume, "resume", id.String())
	s.jsonResponse(w, http.StatusOK, resume)
}

// handleUpdateResume applies a partial update to a resume.
func (s *Server) handleUpdateResume(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid resume id")
		return
	}

	var req UpdateResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := s.store.GetResumeByID(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get resume")
		return
	}
	if existing == nil {
		s.errorResponse(w, http.StatusNotFound, "Resume not found")
		return
	}

	upd := db.ResumeUpdate{Filename: req.Filename, Text: req.Text, Source: req.Source}
	if err := s.store.UpdateResume(r.Context(), id, upd); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to update resume")
		return
	}

	s.messageResponse(w, "Resume updated successfully")
}

// handleDeleteResume deletes a resume.
func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid resume id")
		return
	}

	existing, err := s.store.GetResumeByID(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get resume")
		return
	}
	if existing == nil {
		s.errorResponse(w, http.StatusNotFound, "Resume not found")
		return
	}

	if err := s.store.DeleteResume(r.Context(), id); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to delete resume")
		return
	}

	s.audit(r, db.ActionDeleteResume, "resume", id.String())
	s.messageResponse(w, "Resume deleted successfully")
}

// handleSearchResumes runs a full-text search over resume texts.
func (s *Server) handleSearchResumes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if len(query) < 3 {
		s.errorResponse(w, http.StatusBadRequest, "search query must be at least 3 characters")
		return
	}
	limit := queryInt(r, "limit", 20, 50)

	results, err := s.store.SearchResumes(r.Context(), query, limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to search resumes")
		return
	}

	summaries := make([]resumeSummary, 0, len(results))
	for i := range results {
		summaries = append(summaries, summarizeResume(&results[i]))
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(summaries),
		"results": summaries,
	})
}

// handleResumeCount returns the resume count, optionally filtered by
// source.
func (s *Server) handleResumeCount(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")

	count, err := s.store.CountResumes(r.Context(), source)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to count resumes")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"total":  count,
		"source": source,
	})
}
