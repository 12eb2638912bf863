package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/scoring"
	"github.com/jonathan/resume-matcher/internal/server/middleware"
	"github.com/jonathan/resume-matcher/internal/workflow"
)

// MatchRequest asks for a single resume to be scored against a JD.
type MatchRequest struct {
	ResumeID       string `json:"resume_id" validate:"required"`
	JDID           string `json:"jd_id" validate:"required"`
	ForceReprocess bool   `json:"force_reprocess"`
}

// BatchMatchRequest asks for a batch workflow. An empty resume_ids list
// means every stored resume.
type BatchMatchRequest struct {
	JDID      string   `json:"jd_id" validate:"required"`
	ResumeIDs []string `json:"resume_ids"`
}

type batchMatchResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	workflow.BatchSummary
}

// jdResultSummary is the list projection of a match result.
type jdResultSummary struct {
	ID            uuid.UUID `json:"id"`
	ResumeID      uuid.UUID `json:"resume_id"`
	JDID          string    `json:"jd_id"`
	CandidateName string    `json:"candidate_name"`
	MatchScore    float64   `json:"match_score"`
	FitCategory   string    `json:"fit_category"`
	Timestamp     time.Time `json:"timestamp"`
}

// topMatch is one ranked candidate in the top-matches view, built from
// the canonical candidate profile.
type topMatch struct {
	ID         uuid.UUID `json:"id"`
	ResumeID   uuid.UUID `json:"resume_id"`
	JDID       string    `json:"jd_id"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	scoring.CandidateProfile
	MatchScore     float64        `json:"match_score"`
	FitCategory    string         `json:"fit_category"`
	MatchBreakdown map[string]int `json:"match_breakdown"`
	Timestamp      time.Time      `json:"timestamp"`
}

// handleMatchSingle scores one resume against one JD. An existing result
// for the pair is returned as-is unless force_reprocess is set.
func (s *Server) handleMatchSingle(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}
	resumeID, err := uuid.Parse(req.ResumeID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid resume id")
		return
	}

	resume, err := s.store.GetResumeByID(r.Context(), resumeID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get resume")
		return
	}
	if resume == nil {
		s.errorResponse(w, http.StatusNotFound, "Resume not found")
		return
	}

	jd, err := s.store.GetJobDescriptionByID(r.Context(), req.JDID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get job description")
		return
	}
	if jd == nil {
		s.errorResponse(w, http.StatusNotFound, "Job Description not found")
		return
	}

	existing, err := s.store.GetMatchResultByPair(r.Context(), resumeID, req.JDID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to look up existing result")
		return
	}
	if existing != nil && !req.ForceReprocess {
		s.jsonResponse(w, http.StatusOK, existing)
		return
	}

	batch, err := s.scorer.ScoreBatch(r.Context(), &scoring.BatchRequest{
		WorkflowID: fmt.Sprintf("WF-%d", time.Now().UnixMilli()),
		JDText:     jd.Description,
		Resumes: []scoring.ResumeInput{
			{ResumeID: resume.ID.String(), ResumeText: resume.Text},
		},
	})
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var item *scoring.ItemResult
	for i := range batch.Results {
		if batch.Results[i].ResumeID == resume.ID.String() {
			item = &batch.Results[i]
			break
		}
	}
	if item == nil || item.Error != "" {
		s.errorResponse(w, http.StatusBadGateway, "scoring agent returned no result for resume")
		return
	}

	// Replace semantics: one result per (resume, jd) pair.
	if existing != nil {
		if err := s.store.DeleteMatchResult(r.Context(), existing.ID); err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "failed to replace existing result")
			return
		}
	}

	result, err := s.store.CreateMatchResult(r.Context(), &db.MatchResultInput{
		ResumeID:             resumeID,
		JDID:                 req.JDID,
		MatchScore:           item.MatchScore,
		FitCategory:          item.FitCategory,
		JDExtracted:          item.JDExtracted,
		ResumeExtracted:      item.ResumeExtracted,
		MatchBreakdown:       item.MatchBreakdown,
		SelectionReason:      item.SelectionReason,
		ConfidenceScore:      item.ConfidenceScore,
		ProcessingDurationMs: batch.ProcessingTimeMs,
	})
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to save result")
		return
	}

	s.audit(r, db.ActionRunMatching, "match_result", result.ID.String())
	s.jsonResponse(w, http.StatusOK, result)
}

// handleBatchMatch runs a batch matching workflow through the
// orchestrator.
func (s *Server) handleBatchMatch(w http.ResponseWriter, r *http.Request) {
	var req BatchMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	resumeIDs := make([]uuid.UUID, 0, len(req.ResumeIDs))
	for _, raw := range req.ResumeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid resume id: "+raw)
			return
		}
		resumeIDs = append(resumeIDs, id)
	}

	var startedBy *uuid.UUID
	if userID, err := middleware.GetUserID(r); err == nil {
		startedBy = &userID
	}

	summary, err := s.orchestrator.StartBatchMatch(r.Context(), &workflow.BatchRequest{
		JDID:      req.JDID,
		ResumeIDs: resumeIDs,
		StartedBy: startedBy,
	})
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.audit(r, db.ActionRunMatching, "workflow", summary.WorkflowID)
	s.jsonResponse(w, http.StatusOK, batchMatchResponse{
		Success:      true,
		Message:      "Batch matching completed",
		BatchSummary: *summary,
	})
}

// handleJDResults lists the match results for a JD, best score first.
func (s *Server) handleJDResults(w http.ResponseWriter, r *http.Request) {
	jdID := r.PathValue("jd_id")

	opts := db.ListResultsOptions{
		Limit:  queryInt(r, "limit", 100, 100),
		Offset: queryInt(r, "skip", 0, 0),
	}
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		minScore, err := strconv.ParseFloat(raw, 64)
		if err != nil || minScore < 0 || minScore > 100 {
			s.errorResponse(w, http.StatusBadRequest, "min_score must be between 0 and 100")
			return
		}
		opts.MinScore = &minScore
	}

	results, err := s.store.ListResultsByJD(r.Context(), jdID, opts)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	summaries := make([]jdResultSummary, 0, len(results))
	for i := range results {
		res := &results[i]
		profile := scoring.NormalizeCandidate(res.ResumeExtracted)
		summaries = append(summaries, jdResultSummary{
			ID:            res.ID,
			ResumeID:      res.ResumeID,
			JDID:          res.JDID,
			CandidateName: profile.CandidateName,
			MatchScore:    res.MatchScore,
			FitCategory:   res.FitCategory,
			Timestamp:     res.CreatedAt,
		})
	}
	s.jsonResponse(w, http.StatusOK, summaries)
}

// handleTopMatches returns the best-scoring candidates for a JD in the
// canonical candidate shape, each tagged with the workflow that produced
// it.
func (s *Server) handleTopMatches(w http.ResponseWriter, r *http.Request) {
	jdID := r.PathValue("jd_id")
	limit := queryInt(r, "limit", 100, 500)

	jd, err := s.store.GetJobDescriptionByID(r.Context(), jdID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get job description")
		return
	}
	if jd == nil {
		s.errorResponse(w, http.StatusNotFound, "Job Description not found")
		return
	}

	results, err := s.store.TopMatches(r.Context(), jdID, limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get top matches")
		return
	}

	resumeIDs := make([]uuid.UUID, 0, len(results))
	for i := range results {
		resumeIDs = append(resumeIDs, results[i].ResumeID)
	}
	workflowMap, err := s.store.WorkflowIDsForResumes(r.Context(), resumeIDs)
	if err != nil {
		// The workflow tag is decoration; serve the candidates without it.
		s.log.Warn("failed to look up workflows for top matches", zap.Error(err))
		workflowMap = map[uuid.UUID]string{}
	}

	matches := make([]topMatch, 0, len(results))
	for i := range results {
		res := &results[i]
		matches = append(matches, topMatch{
			ID:               res.ID,
			ResumeID:         res.ResumeID,
			JDID:             res.JDID,
			WorkflowID:       workflowMap[res.ResumeID],
			CandidateProfile: scoring.NormalizeCandidate(res.ResumeExtracted),
			MatchScore:       res.MatchScore,
			FitCategory:      res.FitCategory,
			MatchBreakdown:   scoring.NormalizeBreakdown(res.MatchBreakdown, nil),
			Timestamp:        res.CreatedAt,
		})
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jd_id":            jdID,
		"jd_designation":   jd.Designation,
		"total_candidates": len(matches),
		"top_matches":      matches,
	})
}

// handleGetResult returns one match result in full detail.
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("result_id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid result id")
		return
	}

	result, err := s.store.GetMatchResultByID(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get result")
		return
	}
	if result == nil {
		s.errorResponse(w, http.StatusNotFound, "Result not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleDeleteResult deletes a match result.
func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("result_id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid result id")
		return
	}

	result, err := s.store.GetMatchResultByID(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get result")
		return
	}
	if result == nil {
		s.errorResponse(w, http.StatusNotFound, "Result not found")
		return
	}

	if err := s.store.DeleteMatchResult(r.Context(), id); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to delete result")
		return
	}

	s.audit(r, db.ActionDeleteResult, "match_result", id.String())
	s.messageResponse(w, "Result deleted successfully")
}
