package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/db"
)

// StatusStore is the read surface of the status projector. *db.DB
// satisfies it.
type StatusStore interface {
	LatestWorkflow(ctx context.Context) (*db.WorkflowExecution, error)
	ListResultsForWorkflow(ctx context.Context, resumeIDs []uuid.UUID, jdID string) ([]db.MatchResult, error)
	GetJobDescriptionByID(ctx context.Context, id string) (*db.JobDescription, error)
	ListRecentAuditLogs(ctx context.Context, limit int) ([]db.AuditLog, error)
}

// StatusProjector derives a live dashboard snapshot from the most recent
// workflow and its results. It never mutates workflow records.
type StatusProjector struct {
	store StatusStore
	log   *zap.Logger
}

// NewStatusProjector creates a status projector
func NewStatusProjector(store StatusStore, log *zap.Logger) *StatusProjector {
	return &StatusProjector{store: store, log: log}
}

// StageStatus is one pipeline stage as shown on the dashboard.
type StageStatus struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      string         `json:"status"`
	Timestamp   *time.Time     `json:"timestamp"`
	Description string         `json:"description"`
	IsAIAgent   bool           `json:"is_ai_agent"`
	Metrics     map[string]any `json:"metrics,omitempty"`
}

// SnapshotMetrics summarizes the latest workflow's outcomes. Counters
// bucket results by score: best fit >= 80, partial fit [50, 80), not
// fit < 50.
type SnapshotMetrics struct {
	TotalCandidates int    `json:"totalCandidates"`
	ProcessingTime  string `json:"processingTime"`
	MatchRate       string `json:"matchRate"`
	TopMatches      int    `json:"topMatches"`
	BestFit         int    `json:"bestFit"`
	PartialFit      int    `json:"partialFit"`
	NotFit          int    `json:"notFit"`
}

// SnapshotProgress counts completed pipeline stages.
type SnapshotProgress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Snapshot is the full dashboard view of the matching pipeline.
type Snapshot struct {
	Success    bool             `json:"success"`
	Status     string           `json:"status"`
	Agents     []StageStatus    `json:"agents"`
	Metrics    SnapshotMetrics  `json:"metrics"`
	Progress   SnapshotProgress `json:"progress"`
	Monitoring bool             `json:"monitoring"`
	WorkflowID string           `json:"workflowId,omitempty"`
	JDID       string           `json:"jdId,omitempty"`
	JDTitle    string           `json:"jdTitle,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// ProjectStatus builds a snapshot from the latest workflow. Store
// failures are absorbed into an idle snapshot so the dashboard always
// renders.
func (p *StatusProjector) ProjectStatus(ctx context.Context) *Snapshot {
	wf, err := p.store.LatestWorkflow(ctx)
	if err != nil {
		p.log.Error("failed to load latest workflow", zap.Error(err))
		return errorSnapshot(err)
	}
	if wf == nil {
		snap := idleSnapshot()
		snap.Success = true
		return snap
	}

	results, err := p.store.ListResultsForWorkflow(ctx, wf.ResumeIDs, wf.JDID)
	if err != nil {
		p.log.Error("failed to load workflow results", zap.Error(err))
		return errorSnapshot(err)
	}

	totalResumes := len(wf.ResumeIDs)
	totalJDs := 0
	if wf.JDID != "" {
		totalJDs = 1
	}
	totalMatches := len(results)

	bestFit, partialFit, notFit := 0, 0, 0
	for _, r := range results {
		switch {
		case r.MatchScore >= 80:
			bestFit++
		case r.MatchScore >= 50:
			partialFit++
		default:
			notFit++
		}
	}
	matchRate := 0
	if totalMatches > 0 {
		matchRate = bestFit * 100 / totalMatches
	}

	jdTimestamp, resumeTimestamp, matchTimestamp := p.stageTimestamps(ctx)

	agents := []StageStatus{
		jdReaderStage(totalJDs, jdTimestamp),
		resumeReaderStage(totalResumes, resumeTimestamp),
		comparatorStage(wf.Status, totalResumes, totalJDs, totalMatches, bestFit, matchTimestamp),
	}

	completed := 0
	for _, a := range agents {
		if a.Status == db.StageStatusCompleted {
			completed++
		}
	}

	jdTitle := "Job Description"
	if jd, err := p.store.GetJobDescriptionByID(ctx, wf.JDID); err == nil && jd != nil && jd.Designation != "" {
		jdTitle = jd.Designation
	}

	return &Snapshot{
		Success: true,
		Status:  wf.Status,
		Agents:  agents,
		Metrics: SnapshotMetrics{
			TotalCandidates: totalResumes,
			ProcessingTime:  formatSeconds(wf.Metrics.ProcessingTimeMs),
			MatchRate:       fmt.Sprintf("%d%%", matchRate),
			TopMatches:      bestFit,
			BestFit:         bestFit,
			PartialFit:      partialFit,
			NotFit:          notFit,
		},
		Progress: SnapshotProgress{
			Completed:  completed,
			Total:      len(agents),
			Percentage: completed * 100 / len(agents),
		},
		Monitoring: wf.Status == db.WorkflowStatusInProgress || wf.Status == db.WorkflowStatusPending,
		WorkflowID: wf.WorkflowID,
		JDID:       wf.JDID,
		JDTitle:    jdTitle,
	}
}

// stageTimestamps mines the recent audit trail for per-stage activity
// timestamps. Missing logs just leave the timestamps nil.
func (p *StatusProjector) stageTimestamps(ctx context.Context) (jd, resume, match *time.Time) {
	logs, err := p.store.ListRecentAuditLogs(ctx, 20)
	if err != nil {
		p.log.Warn("failed to load audit logs for status", zap.Error(err))
		return nil, nil, nil
	}

	for i := range logs {
		action := strings.ToLower(logs[i].Action)
		ts := logs[i].CreatedAt
		if jd == nil && (strings.Contains(action, "jd") || strings.Contains(action, "job")) {
			jd = &ts
		}
		if resume == nil && strings.Contains(action, "resume") && strings.Contains(action, "upload") {
			resume = &ts
		}
		if match == nil && strings.Contains(action, "match") {
			match = &ts
		}
	}
	return jd, resume, match
}

func jdReaderStage(totalJDs int, timestamp *time.Time) StageStatus {
	status := db.StageStatusIdle
	description := "Waiting for JD upload"
	criteria := "Pending"
	if totalJDs > 0 {
		status = db.StageStatusCompleted
		description = fmt.Sprintf("Parsed %d job description(s) and extracted requirements (Direct Parsing)", totalJDs)
		criteria = "Complete"
	}

	return StageStatus{
		ID:          db.StageJDReader,
		Name:        db.StageNameJDReader,
		Status:      status,
		Timestamp:   timestamp,
		Description: description,
		Metrics: map[string]any{
			"jdsProcessed":      totalJDs,
			"criteriaExtracted": criteria,
		},
	}
}

func resumeReaderStage(totalResumes int, timestamp *time.Time) StageStatus {
	status := db.StageStatusIdle
	description := "Waiting for resumes"
	completeness := "0%"
	if totalResumes > 0 {
		status = db.StageStatusCompleted
		description = fmt.Sprintf("Parsed %d resume(s) and extracted candidate details (Direct Parsing)", totalResumes)
		completeness = "100%"
	}

	return StageStatus{
		ID:          db.StageResumeReader,
		Name:        db.StageNameResumeReader,
		Status:      status,
		Timestamp:   timestamp,
		Description: description,
		Metrics: map[string]any{
			"candidatesProcessed": totalResumes,
			"structuredProfiles":  totalResumes,
			"completenessScore":   completeness,
		},
	}
}

func comparatorStage(workflowStatus string, totalResumes, totalJDs, totalMatches, highMatches int, timestamp *time.Time) StageStatus {
	status := db.StageStatusIdle
	description := "Waiting for matching to start"

	switch {
	case totalMatches > 0:
		status = db.StageStatusCompleted
		description = fmt.Sprintf("AI-powered matching: Compared and scored %d candidate(s)", totalMatches)
	case workflowStatus == db.WorkflowStatusInProgress:
		status = db.StageStatusInProgress
		description = fmt.Sprintf("AI agent analyzing %d candidates in real-time...", totalResumes)
	case workflowStatus == db.WorkflowStatusPending && totalResumes > 0 && totalJDs > 0:
		status = db.StageStatusPending
		description = "Ready to start matching"
	}

	topMatches := "Processing..."
	if highMatches > 0 {
		topMatches = fmt.Sprintf("%d candidates ready", highMatches)
	}

	return StageStatus{
		ID:          db.StageHRComparator,
		Name:        db.StageNameHRComparator,
		Status:      status,
		Timestamp:   timestamp,
		Description: description,
		IsAIAgent:   true,
		Metrics: map[string]any{
			"candidateProfiles": totalResumes,
			"candidatesScored":  totalMatches,
			"highMatches":       highMatches,
			"topMatches":        topMatches,
		},
	}
}

// idleSnapshot is the empty-state view: three idle stages, zero metrics.
func idleSnapshot() *Snapshot {
	return &Snapshot{
		Status: "idle",
		Agents: []StageStatus{
			{ID: db.StageJDReader, Name: db.StageNameJDReader, Status: db.StageStatusIdle, Description: "No data yet"},
			{ID: db.StageResumeReader, Name: db.StageNameResumeReader, Status: db.StageStatusIdle, Description: "No data yet"},
			{ID: db.StageHRComparator, Name: db.StageNameHRComparator, Status: db.StageStatusIdle, Description: "No data yet", IsAIAgent: true},
		},
		Metrics: SnapshotMetrics{
			ProcessingTime: "0s",
			MatchRate:      "0%",
		},
		Progress: SnapshotProgress{Total: 3},
	}
}

func errorSnapshot(err error) *Snapshot {
	snap := idleSnapshot()
	snap.Error = err.Error()
	return snap
}

func formatSeconds(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}
