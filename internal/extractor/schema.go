package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// extractionSchema is the contract every LLM extraction payload must satisfy
// before any value from it is trusted. Violations are not repaired; the
// whole payload is discarded and the rule engine takes over.
const extractionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["fields"],
  "properties": {
    "fields": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["value", "confidence"],
        "properties": {
          "value": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "language_preference": {"type": "string"},
    "overall_confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "updated_fields": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

var extractionSchemaLoader = gojsonschema.NewStringLoader(extractionSchema)

// ValidateExtractionPayload checks a raw LLM response against the extraction
// contract. A non-nil error means the payload must not be decoded.
func ValidateExtractionPayload(raw json.RawMessage) error {
	result, err := gojsonschema.Validate(extractionSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}
	return fmt.Errorf("extraction payload rejected: %s", strings.Join(details, "; "))
}
