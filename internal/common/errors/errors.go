// Package errors provides standardized error handling shared by the HTTP
// surface and the BPMN job worker.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	ErrCodeAcquisitionFailed   ErrorCode = "ACQUISITION_FAILED"
	ErrCodeDecodeFailed        ErrorCode = "DECODE_FAILED"
	ErrCodeTaskTimeout         ErrorCode = "TASK_TIMEOUT"
	ErrCodeLookupFailed        ErrorCode = "LOOKUP_FAILED"
	ErrCodeConsolidationFailed ErrorCode = "CONSOLIDATION_FAILED"
	ErrCodeAdjudicationFailed  ErrorCode = "ADJUDICATION_FAILED"

	ErrCodePipelineCancelled ErrorCode = "PIPELINE_CANCELLED"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
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

// Unwrap exposes the stage error the StandardError was built from.
func (e *StandardError) Unwrap() error {
	return e.cause
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

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidRequestError creates a non-retryable request validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid analysis request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAcquisitionFailedError is raised once download retries (and the
// synthetic fallback, when enabled) are exhausted.
func NewAcquisitionFailedError(err error) *StandardError {
	return newError(ErrCodeAcquisitionFailed, "Media could not be acquired", err, true)
}

func NewDecodeFailedError(err error) *StandardError {
	return newError(ErrCodeDecodeFailed, "Media could not be decoded", err, false)
}

// NewTaskTimeoutError is informational; triage timeouts degrade a finding
// rather than failing a run.
func NewTaskTimeoutError(err error) *StandardError {
	return newError(ErrCodeTaskTimeout, "Analysis task timed out", err, true)
}

func NewLookupFailedError(err error) *StandardError {
	return newError(ErrCodeLookupFailed, "Claim lookup unavailable", err, true)
}

func NewConsolidationFailedError(err error) *StandardError {
	return newError(ErrCodeConsolidationFailed, "Findings could not be consolidated", err, true)
}

// NewAdjudicationFailedError creates the fatal verdict error; there is no
// degraded substitute for a verdict.
func NewAdjudicationFailedError(err error) *StandardError {
	return newError(ErrCodeAdjudicationFailed, "Verdict could not be produced", err, true)
}

func NewPipelineCancelledError(err error) *StandardError {
	return newError(ErrCodePipelineCancelled, "Analysis was cancelled", err, false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// ==========================
// 4. Error Conversion
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeAcquisitionFailed,
		ErrCodeConsolidationFailed:
		return 2
	case ErrCodeAdjudicationFailed,
		ErrCodeLookupFailed:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
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

// HTTPStatus maps an error code onto the status the API returns.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeAcquisitionFailed, ErrCodeConsolidationFailed, ErrCodeAdjudicationFailed:
		return http.StatusBadGateway
	case ErrCodePipelineCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the pipeline stage family of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ACQUISITION") || strings.Contains(codeStr, "DECODE"):
		return "MEDIA"
	case strings.Contains(codeStr, "TASK") || strings.Contains(codeStr, "LOOKUP"):
		return "TRIAGE"
	case strings.Contains(codeStr, "CONSOLIDATION") || strings.Contains(codeStr, "ADJUDICATION"):
		return "SYNTHESIS"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
