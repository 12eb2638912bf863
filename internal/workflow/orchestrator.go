// Package workflow runs batch matching workflows and projects their
// status for the dashboard.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/scoring"
)

// resumeFetchWorkers bounds concurrent resume loads per batch.
const resumeFetchWorkers = 8

// Store is the persistence surface the orchestrator needs. *db.DB
// satisfies it.
type Store interface {
	GetJobDescriptionByID(ctx context.Context, id string) (*db.JobDescription, error)
	GetResumeByID(ctx context.Context, id uuid.UUID) (*db.Resume, error)
	AllResumeIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	CreateWorkflowExecution(ctx context.Context, wf *db.WorkflowExecution) (*db.WorkflowExecution, error)
	UpdateWorkflowStatus(ctx context.Context, workflowID string, upd db.WorkflowUpdate) error
	GetMatchResultByPair(ctx context.Context, resumeID uuid.UUID, jdID string) (*db.MatchResult, error)
	DeleteMatchResult(ctx context.Context, id uuid.UUID) error
	CreateMatchResult(ctx context.Context, input *db.MatchResultInput) (*db.MatchResult, error)
}

// Orchestrator executes batch matching workflows end to end: it creates
// the workflow record, calls the scorer, persists results, and settles
// the record into a terminal status.
type Orchestrator struct {
	store      Store
	scorer     scoring.Scorer
	log        *zap.Logger
	batchLimit int
	defaultCap int
	now        func() time.Time
}

// NewOrchestrator creates an orchestrator. batchLimit caps resumes per
// workflow; defaultCap bounds the implicit all-resumes set.
func NewOrchestrator(store Store, scorer scoring.Scorer, batchLimit, defaultCap int, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		scorer:     scorer,
		log:        log,
		batchLimit: batchLimit,
		defaultCap: defaultCap,
		now:        time.Now,
	}
}

// BatchRequest names what to match. An empty ResumeIDs list means every
// stored resume, up to the default cap.
type BatchRequest struct {
	JDID      string
	ResumeIDs []uuid.UUID
	StartedBy *uuid.UUID
}

// BatchSummary reports a finished batch run.
type BatchSummary struct {
	WorkflowID       string `json:"workflow_id"`
	JDID             string `json:"jd_id"`
	TotalResumes     int    `json:"total_resumes"`
	ProcessedResumes int    `json:"processed_resumes"`
	Status           string `json:"status"`
}

// StartBatchMatch runs one batch matching workflow synchronously. On a
// scoring failure the workflow record is marked failed and a
// BatchScoringError is returned; per-item persistence failures do not
// fail the workflow.
func (o *Orchestrator) StartBatchMatch(ctx context.Context, req *BatchRequest) (*BatchSummary, error) {
	jd, err := o.store.GetJobDescriptionByID(ctx, req.JDID)
	if err != nil {
		return nil, err
	}
	if jd == nil {
		return nil, &NotFoundError{Resource: "job description", ID: req.JDID}
	}

	resumeIDs := req.ResumeIDs
	if len(resumeIDs) == 0 {
		resumeIDs, err = o.store.AllResumeIDs(ctx, o.defaultCap)
		if err != nil {
			return nil, err
		}
	}
	if len(resumeIDs) > o.batchLimit {
		return nil, &QuotaExceededError{Limit: o.batchLimit, Requested: len(resumeIDs)}
	}

	startedAt := o.now().UTC()
	workflowID := fmt.Sprintf("WF-%d", startedAt.UnixMilli())

	_, err = o.store.CreateWorkflowExecution(ctx, &db.WorkflowExecution{
		WorkflowID:   workflowID,
		JDID:         jd.ID,
		JDTitle:      jdTitle(jd),
		Status:       db.WorkflowStatusInProgress,
		StartedBy:    req.StartedBy,
		StartedAt:    startedAt,
		ResumeIDs:    resumeIDs,
		TotalResumes: len(resumeIDs),
		Agents:       initialStages(startedAt),
		Progress:     db.Progress{CompletedAgents: 2, TotalAgents: 3, Percentage: 66},
		Metrics:      db.Metrics{TotalCandidates: len(resumeIDs)},
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, &ConflictError{Resource: "workflow", ID: workflowID}
		}
		return nil, err
	}

	o.log.Info("workflow started",
		zap.String("workflow_id", workflowID),
		zap.String("jd_id", jd.ID),
		zap.Int("resumes", len(resumeIDs)))

	inputs, err := o.loadResumes(ctx, resumeIDs)
	if err != nil {
		return nil, o.failWorkflow(ctx, workflowID, err)
	}

	batch, err := o.scorer.ScoreBatch(ctx, &scoring.BatchRequest{
		WorkflowID: workflowID,
		JDText:     jd.Description,
		Resumes:    inputs,
	})
	if err != nil {
		return nil, o.failWorkflow(ctx, workflowID, err)
	}

	processed := o.saveResults(ctx, workflowID, jd.ID, batch)

	completedAt := o.now().UTC()
	status := db.WorkflowStatusCompleted
	upd := db.WorkflowUpdate{
		Status:           &status,
		CompletedAt:      &completedAt,
		ProcessedResumes: &processed,
		Agents:           completedStages(startedAt, completedAt, batch.ProcessingTimeMs),
		Progress:         &db.Progress{CompletedAgents: 3, TotalAgents: 3, Percentage: 100},
		Metrics: &db.Metrics{
			TotalCandidates:  len(resumeIDs),
			ProcessingTimeMs: batch.ProcessingTimeMs,
			MatchRate:        100,
			TopMatches:       processed,
		},
	}
	if err := o.store.UpdateWorkflowStatus(ctx, workflowID, upd); err != nil {
		return nil, fmt.Errorf("failed to complete workflow %s: %w", workflowID, err)
	}

	o.log.Info("workflow completed",
		zap.String("workflow_id", workflowID),
		zap.Int("processed", processed),
		zap.Int("total", len(resumeIDs)))

	return &BatchSummary{
		WorkflowID:       workflowID,
		JDID:             jd.ID,
		TotalResumes:     len(resumeIDs),
		ProcessedResumes: processed,
		Status:           db.WorkflowStatusCompleted,
	}, nil
}

// loadResumes fetches resume texts concurrently. Resumes that no longer
// exist are skipped; only store errors abort the load.
func (o *Orchestrator) loadResumes(ctx context.Context, resumeIDs []uuid.UUID) ([]scoring.ResumeInput, error) {
	var mu sync.Mutex
	inputs := make([]scoring.ResumeInput, 0, len(resumeIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resumeFetchWorkers)

	for _, id := range resumeIDs {
		g.Go(func() error {
			resume, err := o.store.GetResumeByID(ctx, id)
			if err != nil {
				return err
			}
			if resume == nil {
				o.log.Warn("resume missing, skipping", zap.String("resume_id", id.String()))
				return nil
			}
			mu.Lock()
			inputs = append(inputs, scoring.ResumeInput{
				ResumeID:   resume.ID.String(),
				ResumeText: resume.Text,
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// saveResults persists every scored item with replace semantics: an
// existing (resume, jd) result is deleted before the fresh insert. A
// failing item is logged and skipped.
func (o *Orchestrator) saveResults(ctx context.Context, workflowID, jdID string, batch *scoring.BatchResponse) int {
	processed := 0
	for _, item := range batch.Results {
		resumeID, err := uuid.Parse(item.ResumeID)
		if err != nil {
			o.log.Error("unparseable resume id in batch response",
				zap.String("workflow_id", workflowID),
				zap.String("resume_id", item.ResumeID))
			continue
		}
		if item.Error != "" {
			o.log.Warn("agent reported item failure",
				zap.String("workflow_id", workflowID),
				zap.String("resume_id", item.ResumeID),
				zap.String("error", item.Error))
			continue
		}

		existing, err := o.store.GetMatchResultByPair(ctx, resumeID, jdID)
		if err == nil && existing != nil {
			err = o.store.DeleteMatchResult(ctx, existing.ID)
		}
		if err == nil {
			_, err = o.store.CreateMatchResult(ctx, &db.MatchResultInput{
				ResumeID:             resumeID,
				JDID:                 jdID,
				WorkflowID:           workflowID,
				MatchScore:           item.MatchScore,
				FitCategory:          item.FitCategory,
				JDExtracted:          item.JDExtracted,
				ResumeExtracted:      item.ResumeExtracted,
				MatchBreakdown:       item.MatchBreakdown,
				SelectionReason:      item.SelectionReason,
				ConfidenceScore:      item.ConfidenceScore,
				ProcessingDurationMs: batch.ProcessingTimeMs,
			})
		}
		if err != nil {
			o.log.Error("failed to save match result",
				zap.String("workflow_id", workflowID),
				zap.String("resume_id", item.ResumeID),
				zap.Error(err))
			continue
		}
		processed++
	}
	return processed
}

// failWorkflow marks the workflow failed and wraps the cause. The
// original error always reaches the caller even if the status write
// fails too.
func (o *Orchestrator) failWorkflow(ctx context.Context, workflowID string, cause error) error {
	status := db.WorkflowStatusFailed
	errText := cause.Error()
	upd := db.WorkflowUpdate{
		Status: &status,
		Error:  &errText,
		Agents: failedStages(errText),
	}
	if updErr := o.store.UpdateWorkflowStatus(ctx, workflowID, upd); updErr != nil {
		o.log.Error("failed to mark workflow failed",
			zap.String("workflow_id", workflowID),
			zap.Error(updErr))
	}

	o.log.Error("workflow failed",
		zap.String("workflow_id", workflowID),
		zap.Error(cause))

	return &BatchScoringError{WorkflowID: workflowID, Err: cause}
}

func jdTitle(jd *db.JobDescription) string {
	if jd.Designation != "" {
		return jd.Designation
	}
	return "Job Description"
}

// initialStages is the stage template at workflow creation: the two
// synthetic parsing stages are already complete, the comparator is
// running.
func initialStages(startedAt time.Time) []db.AgentStage {
	return []db.AgentStage{
		{AgentID: db.StageJDReader, Name: db.StageNameJDReader, Status: db.StageStatusCompleted},
		{AgentID: db.StageResumeReader, Name: db.StageNameResumeReader, Status: db.StageStatusCompleted},
		{AgentID: db.StageHRComparator, Name: db.StageNameHRComparator, Status: db.StageStatusInProgress,
			IsAIAgent: true, StartedAt: &startedAt},
	}
}

func completedStages(startedAt, completedAt time.Time, durationMs int64) []db.AgentStage {
	return []db.AgentStage{
		{AgentID: db.StageJDReader, Name: db.StageNameJDReader, Status: db.StageStatusCompleted},
		{AgentID: db.StageResumeReader, Name: db.StageNameResumeReader, Status: db.StageStatusCompleted},
		{AgentID: db.StageHRComparator, Name: db.StageNameHRComparator, Status: db.StageStatusCompleted,
			IsAIAgent: true, StartedAt: &startedAt, CompletedAt: &completedAt, DurationMs: &durationMs},
	}
}

func failedStages(errText string) []db.AgentStage {
	return []db.AgentStage{
		{AgentID: db.StageJDReader, Name: db.StageNameJDReader, Status: db.StageStatusCompleted},
		{AgentID: db.StageResumeReader, Name: db.StageNameResumeReader, Status: db.StageStatusCompleted},
		{AgentID: db.StageHRComparator, Name: db.StageNameHRComparator, Status: db.StageStatusFailed,
			IsAIAgent: true, Error: errText},
	}
}
