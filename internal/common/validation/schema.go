package validation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// VerdictSchema is the document shape the verdict stage must return.
func VerdictSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"final_verdict", "confidence_score", "summary"},
		"properties": map[string]interface{}{
			"final_verdict": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
			"confidence_score": map[string]interface{}{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
			"summary": map[string]interface{}{
				"type": "string",
			},
			"risk_level": map[string]interface{}{
				"type": "string",
			},
			"visual_red_flags": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	}
}

// ValidateDocument validates a decoded JSON document against a schema.
func ValidateDocument(doc interface{}, schema map[string]interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out, nil
}

// ValidateJSON parses raw text and validates it. A parse failure is reported
// as a validation error on the "(root)" field rather than as an error.
func ValidateJSON(raw string, schema map[string]interface{}) (map[string]interface{}, *ValidationResult, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: fmt.Sprintf("not a JSON object: %v", err),
				Code:    "INVALID_JSON",
			}},
		}, nil
	}

	result, err := ValidateDocument(doc, schema)
	if err != nil {
		return nil, nil, err
	}
	return doc, result, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

var urlPattern = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)

// ValidateURL validates URL format
func ValidateURL(raw string) bool {
	return urlPattern.MatchString(raw)
}

// ValidateSourceURL checks that a request names a fetchable http(s) URL.
func ValidateSourceURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	if !ValidateURL(raw) {
		return fmt.Errorf("url %q is not a valid http(s) URL", raw)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
