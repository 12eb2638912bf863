package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBatchResponse_Valid(t *testing.T) {
	body := `{
		"workflow_id": "WF-1731427200000",
		"results": [
			{
				"resume_id": "550e8400-e29b-41d4-a716-446655440000",
				"match_score": 85.5,
				"fit_category": "Excellent Match",
				"match_breakdown": {"skills_match": 95.0},
				"selection_reason": "Strong skills overlap",
				"confidence_score": 92.0
			}
		],
		"processing_time_ms": 2500
	}`

	err := ValidateBatchResponse([]byte(body))
	assert.NoError(t, err)
}

func TestValidateBatchResponse_ItemError(t *testing.T) {
	// Per-item failures carry only resume_id and error.
	body := `{
		"workflow_id": "WF-1731427200000",
		"results": [
			{"resume_id": "550e8400-e29b-41d4-a716-446655440000", "error": "extraction failed"}
		]
	}`

	err := ValidateBatchResponse([]byte(body))
	assert.NoError(t, err)
}

func TestValidateBatchResponse_MissingWorkflowID(t *testing.T) {
	body := `{"results": []}`

	err := ValidateBatchResponse([]byte(body))
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateBatchResponse_ScoreOutOfRange(t *testing.T) {
	body := `{
		"workflow_id": "WF-1731427200000",
		"results": [
			{"resume_id": "550e8400-e29b-41d4-a716-446655440000", "match_score": 150}
		]
	}`

	err := ValidateBatchResponse([]byte(body))
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateBatchResponse_NotJSON(t *testing.T) {
	err := ValidateBatchResponse([]byte("<html>bad gateway</html>"))
	assert.Error(t, err)
}

func TestValidateJSONString_InvalidSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 42}`, `{}`)
	require.Error(t, err)

	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok, "error should be SchemaLoadError type")
}
