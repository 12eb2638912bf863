package scoring

// ResumeInput is one resume in a batch scoring request.
type ResumeInput struct {
	ResumeID   string `json:"resume_id"`
	ResumeText string `json:"resume_text"`
}

// BatchRequest is the payload sent to the comparison agent.
type BatchRequest struct {
	WorkflowID string        `json:"workflow_id"`
	JDText     string        `json:"jd_text"`
	Resumes    []ResumeInput `json:"resumes"`
}

// ItemResult is one scored resume in a batch response.
type ItemResult struct {
	ResumeID             string         `json:"resume_id"`
	MatchScore           float64        `json:"match_score"`
	FitCategory          string         `json:"fit_category"`
	JDExtracted          map[string]any `json:"jd_extracted,omitempty"`
	ResumeExtracted      map[string]any `json:"resume_extracted,omitempty"`
	MatchBreakdown       map[string]any `json:"match_breakdown,omitempty"`
	SelectionReason      string         `json:"selection_reason,omitempty"`
	ConfidenceScore      *float64       `json:"confidence_score,omitempty"`
	ProcessingDurationMs int64          `json:"processing_duration_ms,omitempty"`
	Error                string         `json:"error,omitempty"`
}

// BatchResponse is the comparison agent's answer for a whole batch.
type BatchResponse struct {
	WorkflowID       string       `json:"workflow_id"`
	Results          []ItemResult `json:"results"`
	ProcessingTimeMs int64        `json:"processing_time_ms,omitempty"`
	AgentVersion     string       `json:"agent_version,omitempty"`
}
