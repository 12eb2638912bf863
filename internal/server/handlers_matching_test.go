package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-matcher/internal/db"
)

func seedMatchFixtures(t *testing.T, store *fakeStore) (*db.Resume, *db.JobDescription) {
	t.Helper()

	resume, err := store.CreateResume(context.Background(), &db.ResumeInput{
		Filename: "alice.pdf",
		Text:     "Senior Go engineer with eight years of backend experience.",
	})
	require.NoError(t, err)

	jd, err := store.CreateJobDescription(context.Background(), &db.JobDescriptionInput{
		ID:          "JD-1",
		Designation: "Backend Engineer",
		Description: "Go, Postgres, distributed systems.",
	})
	require.NoError(t, err)

	return resume, jd
}

func postJSON(t *testing.T, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleMatchSingle_CreatesResult(t *testing.T) {
	s, store := newTestServer(t)
	resume, jd := seedMatchFixtures(t, store)

	req := postJSON(t, "/matching/match", MatchRequest{
		ResumeID: resume.ID.String(),
		JDID:     jd.ID,
	})
	w := httptest.NewRecorder()
	s.handleMatchSingle(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result db.MatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, resume.ID, result.ResumeID)
	assert.Equal(t, jd.ID, result.JDID)
	assert.GreaterOrEqual(t, result.MatchScore, 0.0)
	assert.NotEmpty(t, result.FitCategory)

	// An audit entry is recorded for the run.
	require.Len(t, store.auditLogs, 1)
	assert.Equal(t, db.ActionRunMatching, store.auditLogs[0].Action)
}

func TestHandleMatchSingle_ReturnsExistingWithoutReprocess(t *testing.T) {
	s, store := newTestServer(t)
	resume, jd := seedMatchFixtures(t, store)

	existing, err := store.CreateMatchResult(context.Background(), &db.MatchResultInput{
		ResumeID:    resume.ID,
		JDID:        jd.ID,
		MatchScore:  77,
		FitCategory: "Good Match",
	})
	require.NoError(t, err)

	req := postJSON(t, "/matching/match", MatchRequest{
		ResumeID: resume.ID.String(),
		JDID:     jd.ID,
	})
	w := httptest.NewRecorder()
	s.handleMatchSingle(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result db.MatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, existing.ID, result.ID)
	assert.Equal(t, 77.0, result.MatchScore)
	// No scoring ran, so no audit entry.
	assert.Empty(t, store.auditLogs)
}

func TestHandleMatchSingle_ForceReprocessReplaces(t *testing.T) {
	s, store := newTestServer(t)
	resume, jd := seedMatchFixtures(t, store)

	existing, err := store.CreateMatchResult(context.Background(), &db.MatchResultInput{
		ResumeID:    resume.ID,
		JDID:        jd.ID,
		MatchScore:  12,
		FitCategory: "Poor Match",
	})
	require.NoError(t, err)

	req := postJSON(t, "/matching/match", MatchRequest{
		ResumeID:       resume.ID.String(),
		JDID:           jd.ID,
		ForceReprocess: true,
	})
	w := httptest.NewRecorder()
	s.handleMatchSingle(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result db.MatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEqual(t, existing.ID, result.ID)

	// The old row is gone; exactly one result remains for the pair.
	stored, err := store.GetMatchResultByPair(context.Background(), resume.ID, jd.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, stored.ID)
	assert.Len(t, store.results, 1)
}

func TestHandleMatchSingle_NotFound(t *testing.T) {
	s, store := newTestServer(t)
	_, jd := seedMatchFixtures(t, store)

	t.Run("unknown resume", func(t *testing.T) {
		req := postJSON(t, "/matching/match", MatchRequest{
			ResumeID: uuid.NewString(),
			JDID:     jd.ID,
		})
		w := httptest.NewRecorder()
		s.handleMatchSingle(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown jd", func(t *testing.T) {
		resume, err := store.CreateResume(context.Background(), &db.ResumeInput{Filename: "b.pdf", Text: "text"})
		require.NoError(t, err)
		req := postJSON(t, "/matching/match", MatchRequest{
			ResumeID: resume.ID.String(),
			JDID:     "JD-missing",
		})
		w := httptest.NewRecorder()
		s.handleMatchSingle(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed resume id", func(t *testing.T) {
		req := postJSON(t, "/matching/match", MatchRequest{
			ResumeID: "not-a-uuid",
			JDID:     jd.ID,
		})
		w := httptest.NewRecorder()
		s.handleMatchSingle(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing jd_id", func(t *testing.T) {
		req := postJSON(t, "/matching/match", MatchRequest{ResumeID: uuid.NewString()})
		w := httptest.NewRecorder()
		s.handleMatchSingle(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation error")
	})
}

func TestHandleBatchMatch(t *testing.T) {
	s, store := newTestServer(t)
	_, jd := seedMatchFixtures(t, store)

	var ids []string
	for i := 0; i < 4; i++ {
		resume, err := store.CreateResume(context.Background(), &db.ResumeInput{
			Filename: fmt.Sprintf("cand-%d.pdf", i),
			Text:     "experience",
		})
		require.NoError(t, err)
		ids = append(ids, resume.ID.String())
	}

	req := postJSON(t, "/matching/batch", BatchMatchRequest{JDID: jd.ID, ResumeIDs: ids})
	w := httptest.NewRecorder()
	s.handleBatchMatch(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp batchMatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, jd.ID, resp.JDID)
	assert.Equal(t, 4, resp.TotalResumes)
	assert.Equal(t, 4, resp.ProcessedResumes)
	assert.Len(t, store.results, 4)

	wf, err := store.LatestWorkflow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, db.WorkflowStatusCompleted, wf.Status)
}

func TestHandleBatchMatch_ExplicitIDsOnly(t *testing.T) {
	s, store := newTestServer(t)
	_, jd := seedMatchFixtures(t, store)

	resume, err := store.CreateResume(context.Background(), &db.ResumeInput{
		Filename: "only.pdf",
		Text:     "text",
	})
	require.NoError(t, err)

	req := postJSON(t, "/matching/batch", BatchMatchRequest{
		JDID:      jd.ID,
		ResumeIDs: []string{resume.ID.String()},
	})
	w := httptest.NewRecorder()
	s.handleBatchMatch(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp batchMatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalResumes)
	assert.Equal(t, 1, resp.ProcessedResumes)
	assert.Len(t, store.results, 1)
}

func TestHandleBatchMatch_Validation(t *testing.T) {
	s, store := newTestServer(t)
	seedMatchFixtures(t, store)

	t.Run("missing jd_id", func(t *testing.T) {
		req := postJSON(t, "/matching/batch", BatchMatchRequest{})
		w := httptest.NewRecorder()
		s.handleBatchMatch(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed resume id", func(t *testing.T) {
		req := postJSON(t, "/matching/batch", BatchMatchRequest{
			JDID:      "JD-1",
			ResumeIDs: []string{"nope"},
		})
		w := httptest.NewRecorder()
		s.handleBatchMatch(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown jd", func(t *testing.T) {
		req := postJSON(t, "/matching/batch", BatchMatchRequest{JDID: "JD-missing"})
		w := httptest.NewRecorder()
		s.handleBatchMatch(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleJDResults(t *testing.T) {
	s, store := newTestServer(t)
	resume, jd := seedMatchFixtures(t, store)

	_, err := store.CreateMatchResult(context.Background(), &db.MatchResultInput{
		ResumeID:    resume.ID,
		JDID:        jd.ID,
		MatchScore:  88,
		FitCategory: "Excellent Match",
		ResumeExtracted: map[string]any{
			"Name": "Alice Example",
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/matching/results/"+jd.ID, nil)
	req.SetPathValue("jd_id", jd.ID)
	w := httptest.NewRecorder()
	s.handleJDResults(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var summaries []jdResultSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "Alice Example", summaries[0].CandidateName)
	assert.Equal(t, 88.0, summaries[0].MatchScore)
}

func TestHandleJDResults_MinScoreFilter(t *testing.T) {
	s, store := newTestServer(t)
	_, jd := seedMatchFixtures(t, store)

	for _, score := range []float64{30, 60, 90} {
		resume, err := store.CreateResume(context.Background(), &db.ResumeInput{
			Filename: fmt.Sprintf("r-%.0f.pdf", score),
			Text:     "text",
		})
		require.NoError(t, err)
		_, err = store.CreateMatchResult(context.Background(), &db.MatchResultInput{
			ResumeID:    resume.ID,
			JDID:        jd.ID,
			MatchScore:  score,
			FitCategory: "Fair Match",
		})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/matching/results/"+jd.ID+"?min_score=50", nil)
	req.SetPathValue("jd_id", jd.ID)
	w := httptest.NewRecorder()
	s.handleJDResults(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var summaries []jdResultSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	assert.Len(t, summaries, 2)

	t.Run("out of range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/matching/results/"+jd.ID+"?min_score=150", nil)
		req.SetPathValue("jd_id", jd.ID)
		w := httptest.NewRecorder()
		s.handleJDResults(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleTopMatches(t *testing.T) {
	s, store := newTestServer(t)
	user, err := store.CreateUser(context.Background(), &db.UserInput{
		Email: "u@example.com", PasswordHash: "x", Name: "U",
	})
	require.NoError(t, err)
	_, jd := seedMatchFixtures(t, store)

	// Run a real batch so results carry extracted profiles and a workflow
	// record exists.
	resume, err := store.CreateResume(context.Background(), &db.ResumeInput{
		Filename: "top.pdf",
		Text:     "Go engineer",
	})
	require.NoError(t, err)

	req := postJSON(t, "/matching/batch", BatchMatchRequest{
		JDID:      jd.ID,
		ResumeIDs: []string{resume.ID.String()},
	})
	req = asUser(req, user.ID)
	w := httptest.NewRecorder()
	s.handleBatchMatch(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	wf, err := store.LatestWorkflow(context.Background())
	require.NoError(t, err)

	getReq := httptest.NewRequest(http.MethodGet, "/matching/top-matches/"+jd.ID, nil)
	getReq.SetPathValue("jd_id", jd.ID)
	getW := httptest.NewRecorder()
	s.handleTopMatches(getW, getReq)

	require.Equal(t, http.StatusOK, getW.Code, getW.Body.String())

	var resp struct {
		JDID            string     `json:"jd_id"`
		JDDesignation   string     `json:"jd_designation"`
		TotalCandidates int        `json:"total_candidates"`
		TopMatches      []topMatch `json:"top_matches"`
	}
	require.NoError(t, json.Unmarshal(getW.Body.Bytes(), &resp))
	assert.Equal(t, jd.ID, resp.JDID)
	assert.Equal(t, jd.Designation, resp.JDDesignation)
	require.Equal(t, 1, resp.TotalCandidates)

	match := resp.TopMatches[0]
	assert.Equal(t, resume.ID, match.ResumeID)
	assert.Equal(t, wf.WorkflowID, match.WorkflowID)
	assert.NotEmpty(t, match.CandidateName)
	assert.Contains(t, match.MatchBreakdown, "skills_match")
}

func TestHandleTopMatches_UnknownJD(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/matching/top-matches/JD-missing", nil)
	req.SetPathValue("jd_id", "JD-missing")
	w := httptest.NewRecorder()
	s.handleTopMatches(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetAndDeleteResult(t *testing.T) {
	s, store := newTestServer(t)
	resume, jd := seedMatchFixtures(t, store)

	result, err := store.CreateMatchResult(context.Background(), &db.MatchResultInput{
		ResumeID:    resume.ID,
		JDID:        jd.ID,
		MatchScore:  55,
		FitCategory: "Fair Match",
	})
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/matching/result/"+result.ID.String(), nil)
		req.SetPathValue("result_id", result.ID.String())
		w := httptest.NewRecorder()
		s.handleGetResult(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var got db.MatchResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, result.ID, got.ID)
	})

	t.Run("get unknown", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/matching/result/"+id, nil)
		req.SetPathValue("result_id", id)
		w := httptest.NewRecorder()
		s.handleGetResult(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/matching/result/"+result.ID.String(), nil)
		req.SetPathValue("result_id", result.ID.String())
		w := httptest.NewRecorder()
		s.handleDeleteResult(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, store.results)
	})

	t.Run("delete already gone", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/matching/result/"+result.ID.String(), nil)
		req.SetPathValue("result_id", result.ID.String())
		w := httptest.NewRecorder()
		s.handleDeleteResult(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
