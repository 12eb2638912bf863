package schemas

// BatchResponseSchema describes the comparison agent's batch response.
// Per-item extraction payloads are free-form objects; only the envelope
// and the scoring fields are constrained.
const BatchResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["workflow_id", "results"],
  "properties": {
    "workflow_id": {
      "type": "string",
      "minLength": 1
    },
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["resume_id"],
        "properties": {
          "resume_id": {
            "type": "string",
            "minLength": 1
          },
          "match_score": {
            "type": "number",
            "minimum": 0,
            "maximum": 100
          },
          "fit_category": {
            "type": "string"
          },
          "jd_extracted": {
            "type": "object"
          },
          "resume_extracted": {
            "type": "object"
          },
          "match_breakdown": {
            "type": "object"
          },
          "selection_reason": {
            "type": "string"
          },
          "confidence_score": {
            "type": ["number", "null"]
          },
          "processing_duration_ms": {
            "type": "integer"
          },
          "error": {
            "type": "string"
          }
        }
      }
    },
    "processing_time_ms": {
      "type": "integer"
    },
    "agent_version": {
      "type": "string"
    }
  }
}`
