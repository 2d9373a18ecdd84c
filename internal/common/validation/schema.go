package validation

import (
	"fmt"
	"strings"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/pkg/registry"

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

// Validator checks job variables against the input schemas of a registry.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles every input schema of reg once.
func NewValidator(reg *registry.ActivityRegistry) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(reg.Activities))}
	for _, a := range reg.Activities {
		if a.InputSchema == nil {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(a.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile input schema for %s: %w", a.TaskType, err)
		}
		v.schemas[a.TaskType] = schema
	}
	return v, nil
}

// Validate checks raw JSON variables. Task types without a schema pass.
func (v *Validator) Validate(taskType, variables string) *ValidationResult {
	schema, ok := v.schemas[taskType]
	if !ok {
		return &ValidationResult{Valid: true}
	}
	if strings.TrimSpace(variables) == "" {
		variables = "{}"
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(variables))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "MALFORMED_JSON",
		}}}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out
}

// Check is Validate returning a PAYLOAD_VALIDATION_FAILED error on failure.
func (v *Validator) Check(taskType, variables string) error {
	res := v.Validate(taskType, variables)
	if res.Valid {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return errors.NewPayloadValidationError(strings.Join(msgs, "; "))
}
