package scoring

import (
	"context"
	"fmt"
	"hash/fnv"
)

// MockScorer implements Scorer with deterministic local scores. It is
// used when the comparison agent is disabled and in tests; it never
// fails.
type MockScorer struct{}

// NewMockScorer creates a mock scorer
func NewMockScorer() *MockScorer {
	return &MockScorer{}
}

// ScoreBatch scores every resume deterministically from its id, spread
// across the full score range so downstream bucketing sees all
// categories.
func (s *MockScorer) ScoreBatch(_ context.Context, req *BatchRequest) (*BatchResponse, error) {
	results := make([]ItemResult, 0, len(req.Resumes))
	for _, resume := range req.Resumes {
		results = append(results, scoreMock(resume))
	}

	return &BatchResponse{
		WorkflowID:       req.WorkflowID,
		Results:          results,
		ProcessingTimeMs: int64(len(req.Resumes)) * 5,
		AgentVersion:     "mock",
	}, nil
}

// Close releases resources held by the scorer
func (s *MockScorer) Close() error {
	return nil
}

func scoreMock(resume ResumeInput) ItemResult {
	h := fnv.New32a()
	h.Write([]byte(resume.ResumeID))
	seed := h.Sum32()

	// Score in [40, 96) keeps every fit bucket reachable.
	score := float64(40 + seed%56)
	confidence := float64(70 + seed%30)

	return ItemResult{
		ResumeID:    resume.ResumeID,
		MatchScore:  score,
		FitCategory: fitCategory(score),
		MatchBreakdown: map[string]any{
			"skills_match":     clampScore(score + float64(seed%11) - 5),
			"experience_match": clampScore(score + float64(seed%7) - 3),
			"education_match":  clampScore(score + float64(seed%15) - 7),
		},
		SelectionReason:      fmt.Sprintf("Deterministic mock score %.0f for resume %s", score, resume.ResumeID),
		ConfidenceScore:      &confidence,
		ProcessingDurationMs: 5,
	}
}

func fitCategory(score float64) string {
	switch {
	case score >= 80:
		return "Excellent Match"
	case score >= 65:
		return "Good Match"
	case score >= 50:
		return "Fair Match"
	default:
		return "Poor Match"
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
