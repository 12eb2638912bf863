package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/config"
	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/scoring"
	"github.com/jonathan/resume-matcher/internal/server/middleware"
	"github.com/jonathan/resume-matcher/internal/server/ratelimit"
	"github.com/jonathan/resume-matcher/internal/workflow"
)

// fakeStore is an in-memory Store (plus the workflow and user store
// surfaces) for handler tests.
type fakeStore struct {
	mu           sync.Mutex
	resumes      map[uuid.UUID]*db.Resume
	jds          map[string]*db.JobDescription
	results      map[uuid.UUID]*db.MatchResult
	workflows    map[string]*db.WorkflowExecution
	users        map[uuid.UUID]*db.User
	usersByEmail map[string]uuid.UUID
	auditLogs    []db.AuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		resumes:      make(map[uuid.UUID]*db.Resume),
		jds:          make(map[string]*db.JobDescription),
		results:      make(map[uuid.UUID]*db.MatchResult),
		workflows:    make(map[string]*db.WorkflowExecution),
		users:        make(map[uuid.UUID]*db.User),
		usersByEmail: make(map[string]uuid.UUID),
	}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

// Resumes

func (f *fakeStore) CreateResume(_ context.Context, input *db.ResumeInput) (*db.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	source := input.Source
	if source == "" {
		source = "direct"
	}
	r := &db.Resume{
		ID:         uuid.New(),
		Filename:   input.Filename,
		Text:       input.Text,
		Source:     source,
		UploadedBy: input.UploadedBy,
		UploadedAt: time.Now(),
	}
	f.resumes[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetResumeByID(_ context.Context, id uuid.UUID) (*db.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumes[id], nil
}

func (f *fakeStore) ListResumes(_ context.Context, opts db.ListResumesOptions) ([]db.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Resume
	for _, r := range f.resumes {
		if opts.Source != "" && r.Source != opts.Source {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (f *fakeStore) UpdateResume(_ context.Context, id uuid.UUID, upd db.ResumeUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[id]
	if !ok {
		return assert.AnError
	}
	if upd.Filename != nil {
		r.Filename = *upd.Filename
	}
	if upd.Text != nil {
		r.Text = *upd.Text
	}
	if upd.Source != nil {
		r.Source = *upd.Source
	}
	return nil
}

func (f *fakeStore) DeleteResume(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.resumes, id)
	return nil
}

func (f *fakeStore) SearchResumes(_ context.Context, query string, limit int) ([]db.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Resume
	for _, r := range f.resumes {
		if len(out) >= limit {
			break
		}
		if containsFold(r.Text, query) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) CountResumes(_ context.Context, source string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.resumes {
		if source == "" || r.Source == source {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) AllResumeIDs(_ context.Context, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id := range f.resumes {
		if len(ids) >= limit {
			break
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Job descriptions

func (f *fakeStore) CreateJobDescription(_ context.Context, input *db.JobDescriptionInput) (*db.JobDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.jds[input.ID]; exists {
		return nil, uniqueViolation()
	}
	status := input.Status
	if status == "" {
		status = "active"
	}
	jd := &db.JobDescription{
		ID:          input.ID,
		Designation: input.Designation,
		Description: input.Description,
		Status:      status,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   time.Now(),
	}
	f.jds[jd.ID] = jd
	return jd, nil
}

func (f *fakeStore) GetJobDescriptionByID(_ context.Context, id string) (*db.JobDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jds[id], nil
}

func (f *fakeStore) ListJobDescriptions(_ context.Context, status string, limit, offset int) ([]db.JobDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.JobDescription
	for _, jd := range f.jds {
		if status != "" && jd.Status != status {
			continue
		}
		out = append(out, *jd)
	}
	return out, nil
}

func (f *fakeStore) DeleteJobDescription(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jds, id)
	return nil
}

// Match results

func (f *fakeStore) CreateMatchResult(_ context.Context, input *db.MatchResultInput) (*db.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.results {
		if existing.ResumeID == input.ResumeID && existing.JDID == input.JDID {
			return nil, uniqueViolation()
		}
	}
	version := input.AgentVersion
	if version == "" {
		version = "v1.0.0"
	}
	res := &db.MatchResult{
		ID:                   uuid.New(),
		ResumeID:             input.ResumeID,
		JDID:                 input.JDID,
		WorkflowID:           input.WorkflowID,
		MatchScore:           input.MatchScore,
		FitCategory:          input.FitCategory,
		JDExtracted:          input.JDExtracted,
		ResumeExtracted:      input.ResumeExtracted,
		MatchBreakdown:       input.MatchBreakdown,
		SelectionReason:      input.SelectionReason,
		ConfidenceScore:      input.ConfidenceScore,
		AgentVersion:         version,
		ProcessingDurationMs: input.ProcessingDurationMs,
		CreatedAt:            time.Now(),
	}
	f.results[res.ID] = res
	return res, nil
}

func (f *fakeStore) GetMatchResultByID(_ context.Context, id uuid.UUID) (*db.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[id], nil
}

func (f *fakeStore) GetMatchResultByPair(_ context.Context, resumeID uuid.UUID, jdID string) (*db.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, res := range f.results {
		if res.ResumeID == resumeID && res.JDID == jdID {
			return res, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteMatchResult(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.results, id)
	return nil
}

func (f *fakeStore) ListResultsByJD(_ context.Context, jdID string, opts db.ListResultsOptions) ([]db.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.MatchResult
	for _, res := range f.results {
		if res.JDID != jdID {
			continue
		}
		if opts.MinScore != nil && res.MatchScore < *opts.MinScore {
			continue
		}
		out = append(out, *res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	return out, nil
}

func (f *fakeStore) TopMatches(ctx context.Context, jdID string, limit int) ([]db.MatchResult, error) {
	results, err := f.ListResultsByJD(ctx, jdID, db.ListResultsOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeStore) ListResultsForWorkflow(_ context.Context, resumeIDs []uuid.UUID, jdID string) ([]db.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make(map[uuid.UUID]bool, len(resumeIDs))
	for _, id := range resumeIDs {
		members[id] = true
	}
	var out []db.MatchResult
	for _, res := range f.results {
		if res.JDID == jdID && members[res.ResumeID] {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (f *fakeStore) WorkflowIDsForResumes(_ context.Context, resumeIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]string)
	var workflows []*db.WorkflowExecution
	for _, wf := range f.workflows {
		workflows = append(workflows, wf)
	}
	sort.Slice(workflows, func(i, j int) bool { return workflows[i].StartedAt.After(workflows[j].StartedAt) })
	for _, wf := range workflows {
		for _, member := range wf.ResumeIDs {
			for _, id := range resumeIDs {
				if member == id {
					if _, seen := out[id]; !seen {
						out[id] = wf.WorkflowID
					}
				}
			}
		}
	}
	return out, nil
}

// Workflow executions

func (f *fakeStore) CreateWorkflowExecution(_ context.Context, wf *db.WorkflowExecution) (*db.WorkflowExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.workflows[wf.WorkflowID]; exists {
		return nil, uniqueViolation()
	}
	stored := *wf
	stored.ID = uuid.New()
	f.workflows[wf.WorkflowID] = &stored
	return &stored, nil
}

func (f *fakeStore) GetWorkflowByID(_ context.Context, workflowID string) (*db.WorkflowExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workflows[workflowID], nil
}

func (f *fakeStore) LatestWorkflow(_ context.Context) (*db.WorkflowExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *db.WorkflowExecution
	for _, wf := range f.workflows {
		if latest == nil || wf.StartedAt.After(latest.StartedAt) {
			latest = wf
		}
	}
	return latest, nil
}

func (f *fakeStore) ListWorkflows(_ context.Context, opts db.ListWorkflowsOptions) ([]db.WorkflowExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.WorkflowExecution
	for _, wf := range f.workflows {
		if opts.StartedBy != nil && (wf.StartedBy == nil || *wf.StartedBy != *opts.StartedBy) {
			continue
		}
		if opts.Status != "" && wf.Status != opts.Status {
			continue
		}
		out = append(out, *wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (f *fakeStore) UpdateWorkflowStatus(_ context.Context, workflowID string, upd db.WorkflowUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	wf, ok := f.workflows[workflowID]
	if !ok {
		return assert.AnError
	}
	if upd.Status != nil {
		wf.Status = *upd.Status
	}
	if upd.CompletedAt != nil {
		wf.CompletedAt = upd.CompletedAt
	}
	if upd.ProcessedResumes != nil {
		wf.ProcessedResumes = *upd.ProcessedResumes
	}
	if upd.Agents != nil {
		wf.Agents = upd.Agents
	}
	if upd.Progress != nil {
		wf.Progress = *upd.Progress
	}
	if upd.Metrics != nil {
		wf.Metrics = *upd.Metrics
	}
	if upd.Error != nil {
		wf.Error = *upd.Error
	}
	return nil
}

func (f *fakeStore) DeleteWorkflow(_ context.Context, workflowID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.workflows, workflowID)
	return nil
}

func (f *fakeStore) CountWorkflows(_ context.Context, startedBy *uuid.UUID, status string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, wf := range f.workflows {
		if startedBy != nil && (wf.StartedBy == nil || *wf.StartedBy != *startedBy) {
			continue
		}
		if status != "" && wf.Status != status {
			continue
		}
		count++
	}
	return count, nil
}

// Audit trail

func (f *fakeStore) CreateAuditLog(_ context.Context, input *db.AuditLogInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auditLogs = append(f.auditLogs, db.AuditLog{
		ID:           uuid.New(),
		UserID:       input.UserID,
		Action:       input.Action,
		ResourceType: input.ResourceType,
		ResourceID:   input.ResourceID,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
		Success:      input.Success,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (f *fakeStore) ListRecentAuditLogs(_ context.Context, limit int) ([]db.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	logs := make([]db.AuditLog, len(f.auditLogs))
	copy(logs, f.auditLogs)
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// Users

func (f *fakeStore) CreateUser(_ context.Context, input *db.UserInput) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.usersByEmail[input.Email]; exists {
		return nil, uniqueViolation()
	}
	role := input.Role
	if role == "" {
		role = "recruiter"
	}
	u := &db.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Name:         input.Name,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	f.usersByEmail[u.Email] = u.ID
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	return f.users[id], nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeStore) UpdateUserPassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return assert.AnError
	}
	u.PasswordHash = passwordHash
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// newTestServer builds a Server over the fake store with the mock
// scorer and rate limiting disabled.
func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	log := zap.NewNop()
	scorer := scoring.NewMockScorer()

	passwordConfig := &config.PasswordConfig{BcryptCost: 10}
	jwtConfig := &config.JWTConfig{Secret: "test-secret", ExpirationHours: 1}

	s := &Server{
		store:       store,
		log:         log,
		scorer:      scorer,
		rateLimiter: ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
		validate:    validator.New(),
	}
	s.userService = NewUserService(store, passwordConfig)
	s.jwtService = NewJWTService(jwtConfig)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)
	s.orchestrator = workflow.NewOrchestrator(store, scorer, 100, 1000, log)
	s.projector = workflow.NewStatusProjector(store, log)

	return s, store
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRoutes_RequireAuth(t *testing.T) {
	s, _ := newTestServer(t)
	handler := s.routes()

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/resumes"},
		{http.MethodPost, "/matching/batch"},
		{http.MethodGet, "/workflow/status"},
		{http.MethodDelete, "/jds/JD-1"},
	}

	for _, route := range protected {
		req := httptest.NewRequest(route.method, route.path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestRoutes_HealthIsPublic(t *testing.T) {
	s, _ := newTestServer(t)
	handler := s.routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_ValidTokenPasses(t *testing.T) {
	s, store := newTestServer(t)
	handler := s.routes()

	user, err := store.CreateUser(context.Background(), &db.UserInput{
		Email:        "recruiter@example.com",
		PasswordHash: "x",
		Name:         "Recruiter",
	})
	require.NoError(t, err)

	token, err := s.jwtService.GenerateToken(user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/resumes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// asUser marks the request as authenticated, the way the auth
// middleware would.
func asUser(r *http.Request, userID uuid.UUID) *http.Request {
	return middleware.WithUserID(r, userID)
}
