package models

// AnalysisResponseSchema returns the JSON Schema enforced on single-failure
// LLM responses. Schema enforcement keeps the response parseable, but the
// parser still applies defaults for missing fields because the LLM backend
// is untrusted.
func AnalysisResponseSchema() string {
	return `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "CI Failure Analysis",
  "type": "object",
  "required": ["status", "primary_error", "error_type", "confidence"],
  "properties": {
    "status": {
      "type": "string",
      "enum": ["SUCCESS", "FAILURE", "PARTIAL"],
      "description": "Classification outcome"
    },
    "primary_error": {
      "type": "string",
      "description": "Main blocking error"
    },
    "error_type": {
      "type": "string",
      "description": "Category tag, e.g. dependency, docker_build, python_import"
    },
    "confidence": {
      "type": "number",
      "description": "Certainty: integer 1-10 or fraction 0.0-1.0"
    },
    "blocking": {
      "type": "boolean",
      "description": "Whether the error blocks the build"
    },
    "suggested_actions": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Ordered fix steps"
    },
    "verification_steps": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Checks that confirm the fix"
    },
    "github_commands": {
      "type": "array",
      "items": {"type": "string"},
      "description": "gh CLI follow-up commands"
    }
  },
  "additionalProperties": false
}`
}

// BatchAnalysisResponseSchema returns the JSON Schema for batched LLM
// responses: an array of per-failure objects keyed by failure_index.
func BatchAnalysisResponseSchema() string {
	return `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "CI Failure Batch Analysis",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["failure_index", "status", "primary_error", "error_type", "confidence"],
    "properties": {
      "failure_index": {
        "type": "integer",
        "minimum": 1,
        "description": "1-based position of the failure within the batch prompt"
      },
      "status": {"type": "string", "enum": ["SUCCESS", "FAILURE", "PARTIAL"]},
      "primary_error": {"type": "string"},
      "error_type": {"type": "string"},
      "confidence": {"type": "number"},
      "suggested_actions": {
        "type": "array",
        "items": {"type": "string"}
      }
    },
    "additionalProperties": false
  }
}`
}
