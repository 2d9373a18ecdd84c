// Package errors provides standardized error handling for the scoring engine
// and its BPMN job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput             ErrorCode = "INVALID_INPUT"
	ErrCodeInsufficientData         ErrorCode = "INSUFFICIENT_DATA"
	ErrCodeClassifierUnavailable    ErrorCode = "CLASSIFIER_UNAVAILABLE"
	ErrCodeSubjectNotFound          ErrorCode = "SUBJECT_NOT_FOUND"
	ErrCodeConcurrentUpdateConflict ErrorCode = "CONCURRENT_UPDATE_CONFLICT"
	ErrCodeUnknownProductType       ErrorCode = "UNKNOWN_PRODUCT_TYPE"
	ErrCodeUnknownEventType         ErrorCode = "UNKNOWN_EVENT_TYPE"
	ErrCodePayloadValidationFailed  ErrorCode = "PAYLOAD_VALIDATION_FAILED"
	ErrCodeTrainingInProgress       ErrorCode = "TRAINING_IN_PROGRESS"

	ErrCodeDatabaseQueryFailed    ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeCacheUnavailable       ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code, so errors.Is(err, &StandardError{Code: X}) works.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidInputError rejects a request with a missing identity or malformed mandatory field.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false, nil)
}

// NewInsufficientDataError aborts a training run; the active model stays in place.
func NewInsufficientDataError(details string) *StandardError {
	return newError(ErrCodeInsufficientData, "Insufficient training data", details, false, nil)
}

// NewClassifierUnavailableError never leaves the engine; it selects the rule path.
func NewClassifierUnavailableError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return newError(ErrCodeClassifierUnavailable, "Classifier unavailable", details, false, err)
}

func NewSubjectNotFoundError(subjectID string) *StandardError {
	return newError(ErrCodeSubjectNotFound, "Subject not found",
		fmt.Sprintf("subjectId: %s", subjectID), false, nil)
}

func NewConcurrentUpdateConflictError(subjectID string, err error) *StandardError {
	return newError(ErrCodeConcurrentUpdateConflict, "Concurrent score update conflict",
		fmt.Sprintf("subjectId: %s", subjectID), true, err)
}

func NewUnknownProductTypeError(productType string) *StandardError {
	return newError(ErrCodeUnknownProductType, "Unsupported credit product",
		fmt.Sprintf("productType: %s", productType), false, nil)
}

func NewUnknownEventTypeError(eventType string) *StandardError {
	return newError(ErrCodeUnknownEventType, "Unsupported transaction event",
		fmt.Sprintf("eventType: %s", eventType), false, nil)
}

func NewPayloadValidationError(details string) *StandardError {
	return newError(ErrCodePayloadValidationFailed, "Job variables failed schema validation", details, false, nil)
}

func NewTrainingInProgressError() *StandardError {
	return newError(ErrCodeTrainingInProgress, "A classifier training is already running", "", true, nil)
}

func NewDatabaseQueryError(operation string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true, err)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Score cache unavailable", err.Error(), true, err)
}

func NewSearchQueryError(operation string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true, err)
}

func NewNotificationSendError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %v", channel, err), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Classification helpers
// ==========================

// As extracts a *StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseQueryFailed,
		ErrCodeCacheUnavailable,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeConcurrentUpdateConflict,
		ErrCodeTrainingInProgress:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CLASSIFIER") || strings.Contains(codeStr, "TRAINING") || strings.Contains(codeStr, "DATA"):
		return "MODEL"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "UNKNOWN"):
		return "VALIDATION"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "CONFLICT"):
		return "STATE"
	default:
		return "OTHER"
	}
}
