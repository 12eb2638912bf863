package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-1.5-flash"

// GeminiScorer implements Scorer using Google Gemini directly, for
// deployments without a standalone comparison agent.
type GeminiScorer struct {
	client *genai.Client
}

// NewGeminiScorer creates a new Gemini-backed scorer
func NewGeminiScorer(ctx context.Context, apiKey string) (*GeminiScorer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiScorer{client: client}, nil
}

// ScoreBatch asks the model to score every resume in one call and parses
// the JSON it returns.
func (s *GeminiScorer) ScoreBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	model := s.client.GenerativeModel(geminiModel)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(buildBatchPrompt(req)))
	if err != nil {
		return nil, newError(KindTransport, "failed to generate scores", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, newError(KindBadResponse, "empty model response", err)
	}

	var batch BatchResponse
	if err := json.Unmarshal([]byte(cleanJSONBlock(text)), &batch); err != nil {
		return nil, newError(KindBadResponse, "failed to parse model response", err)
	}
	batch.WorkflowID = req.WorkflowID

	return &batch, nil
}

// Close releases resources held by the scorer
func (s *GeminiScorer) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func buildBatchPrompt(req *BatchRequest) string {
	var sb strings.Builder
	sb.WriteString("You are an HR screening assistant. Score each resume below against the job description.\n")
	sb.WriteString("Return JSON: {\"results\": [{\"resume_id\", \"match_score\" (0-100), \"fit_category\", ")
	sb.WriteString("\"match_breakdown\" (object of 0-100 numbers), \"selection_reason\", \"confidence_score\"}]}.\n\n")
	sb.WriteString("JOB DESCRIPTION:\n")
	sb.WriteString(req.JDText)
	sb.WriteString("\n\n")

	for _, r := range req.Resumes {
		sb.WriteString(fmt.Sprintf("RESUME %s:\n%s\n\n", r.ResumeID, r.ResumeText))
	}

	return sb.String()
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// cleanJSONBlock removes markdown code block wrappers from JSON
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
