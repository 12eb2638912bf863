// Package scoring calls the comparison agent that scores resumes against
// a job description, and normalizes what comes back.
package scoring

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/config"
)

// Scorer is an abstraction over batch scoring providers
type Scorer interface {
	// ScoreBatch scores every resume in the request against the job
	// description. A nil error means the batch as a whole succeeded;
	// individual items may still carry per-item errors.
	ScoreBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error)
	// Close releases any resources held by the scorer
	Close() error
}

// New creates a scorer based on configuration
func New(ctx context.Context, cfg config.ScoringConfig, log *zap.Logger) (Scorer, error) {
	switch cfg.Provider {
	case "mock":
		return NewMockScorer(), nil
	case "gemini":
		return NewGeminiScorer(ctx, cfg.APIKey)
	case "agent":
		return NewAgentScorer(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown scoring provider: %q", cfg.Provider)
	}
}
