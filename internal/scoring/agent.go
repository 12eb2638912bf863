package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/config"
	"github.com/jonathan/resume-matcher/internal/schemas"
)

// AgentScorer implements Scorer against the comparison agent's HTTP API.
type AgentScorer struct {
	baseURL string
	client  *http.Client
	budget  time.Duration
	log     *zap.Logger
}

// NewAgentScorer creates a scorer that calls the comparison agent over
// HTTP. The timeout phases map onto the transport: ConnectTimeout bounds
// the dial, ReadTimeout bounds the wait for response headers, and the
// sum of all phases caps the whole call.
func NewAgentScorer(cfg config.ScoringConfig, log *zap.Logger) *AgentScorer {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		IdleConnTimeout:       cfg.PoolTimeout,
		MaxIdleConns:          10,
	}

	return &AgentScorer{
		baseURL: cfg.AgentURL,
		client:  &http.Client{Transport: transport},
		budget:  cfg.ConnectTimeout + cfg.ReadTimeout + cfg.WriteTimeout,
		log:     log,
	}
}

// ScoreBatch sends the batch to the agent's compare endpoint and
// validates the response envelope before returning it.
func (s *AgentScorer) ScoreBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	s.log.Info("calling comparison agent",
		zap.String("workflow_id", req.WorkflowID),
		zap.Int("resumes", len(req.Resumes)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/compare-batch", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build agent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newError(KindBadResponse,
			fmt.Sprintf("agent returned status %d: %s", resp.StatusCode, preview(body)), nil)
	}

	if err := schemas.ValidateBatchResponse(body); err != nil {
		return nil, newError(KindBadResponse, "agent response failed validation", err)
	}

	var batch BatchResponse
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, newError(KindBadResponse, "failed to parse agent response", err)
	}

	s.log.Info("comparison agent responded",
		zap.String("workflow_id", batch.WorkflowID),
		zap.Int("results", len(batch.Results)),
		zap.Int("bytes", len(body)))

	return &batch, nil
}

// Close releases resources held by the scorer
func (s *AgentScorer) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// classifyTransportError maps a low-level HTTP client error to a scoring
// failure kind. Timeouts are checked first: a dial timeout is a timeout,
// not a connect failure.
func classifyTransportError(err error) *Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, "agent call timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, "agent call timed out", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return newError(KindConnectFailed, "cannot connect to comparison agent", err)
	}

	return newError(KindTransport, "agent call failed", err)
}

func preview(body []byte) string {
	const max = 500
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
