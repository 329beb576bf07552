package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Tango error code.
type ErrorCode string

const (
	ErrInvalidRequest          ErrorCode = "INVALID_REQUEST"          // 400
	ErrNotFound                ErrorCode = "NOT_FOUND"                // 404
	ErrConflict                ErrorCode = "CONFLICT"                 // 409
	ErrPayloadTooLarge         ErrorCode = "PAYLOAD_TOO_LARGE"        // 413
	ErrUnsupportedInput        ErrorCode = "UNSUPPORTED_INPUT"        // 415
	ErrNoTermsExtracted        ErrorCode = "NO_TERMS_EXTRACTED"       // 422
	ErrUnresolvedClarification ErrorCode = "UNRESOLVED_CLARIFICATION" // 422
	ErrUpstream                ErrorCode = "UPSTREAM_FAILURE"         // 502
	ErrSchemaMismatch          ErrorCode = "SCHEMA_MISMATCH"          // 502
	ErrInternal                ErrorCode = "INTERNAL"                 // 500
)

// TangoError represents a structured error with code, status, and details.
type TangoError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *TangoError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TangoError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TangoError {
	return &TangoError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a flashcard cannot be found.
func NewNotFound(identifier string) *TangoError {
	return &TangoError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("flashcard not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *TangoError {
	return &TangoError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string, details map[string]any) *TangoError {
	return &TangoError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
		Details: details,
	}
}

// NewPayloadTooLarge creates a 413 error when an upload exceeds the size limit.
func NewPayloadTooLarge(max, actual int64) *TangoError {
	return &TangoError{
		Code:    ErrPayloadTooLarge,
		Status:  413,
		Message: fmt.Sprintf("upload too large: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewUnsupportedInput creates a 415 error for file types the pipeline cannot read.
func NewUnsupportedInput(fileType string) *TangoError {
	return &TangoError{
		Code:    ErrUnsupportedInput,
		Status:  415,
		Message: fmt.Sprintf("unsupported input type %q; paste the text content instead", fileType),
		Details: map[string]any{"file_type": fileType},
	}
}

// NewNoTermsExtracted creates a 422 error when extraction yields nothing.
func NewNoTermsExtracted() *TangoError {
	return &TangoError{
		Code:    ErrNoTermsExtracted,
		Status:  422,
		Message: "no vocabulary terms could be extracted from the content",
	}
}

// NewUnresolvedClarification creates a 422 error when only ambiguous records remain.
func NewUnresolvedClarification(unresolved int) *TangoError {
	return &TangoError{
		Code:    ErrUnresolvedClarification,
		Status:  422,
		Message: fmt.Sprintf("%d vocabulary records still need clarification; resolve them before confirming", unresolved),
		Details: map[string]any{"unresolved": unresolved},
	}
}

// NewUpstream creates a 502 error for a failed Language Service call.
// The stage names the pipeline step that made the call.
func NewUpstream(stage string, err error) *TangoError {
	return &TangoError{
		Code:    ErrUpstream,
		Status:  502,
		Message: fmt.Sprintf("%s failed: %v", stage, err),
		Details: map[string]any{"stage": stage},
		cause:   err,
	}
}

// NewSchemaMismatch creates a 502 error when a Language Service payload
// does not match the schema expected by the stage.
func NewSchemaMismatch(stage string, err error) *TangoError {
	return &TangoError{
		Code:    ErrSchemaMismatch,
		Status:  502,
		Message: fmt.Sprintf("%s returned an unexpected payload: %v", stage, err),
		Details: map[string]any{"stage": stage},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TangoError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TangoError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// WithDetails returns a copy of e with extra detail keys merged in.
func (e *TangoError) WithDetails(details map[string]any) *TangoError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	out := *e
	out.Details = merged
	return &out
}

// As returns the TangoError in err's chain, or nil.
func As(err error) *TangoError {
	var tErr *TangoError
	if stderrors.As(err, &tErr) {
		return tErr
	}
	return nil
}

// Is checks if an error is a TangoError with the given code.
func Is(err error, code ErrorCode) bool {
	if tErr := As(err); tErr != nil {
		return tErr.Code == code
	}
	return false
}
