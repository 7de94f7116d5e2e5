package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Retryable bool   `json:"retryable,omitempty"`
	Err       error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned errors still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Infrastructure wraps err as the provided (generic, retryable) error, keeping the cause for logs.
func Infrastructure(err error, base *Error) *Error {
	clone := *base
	clone.Err = err
	clone.Retryable = true
	return &clone
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Access-control failures. Messages stay generic so callers cannot probe request ids.
var (
	ErrInvalidToken    = New("INVALID_TOKEN", http.StatusUnauthorized, "upload link is invalid")
	ErrTokenExpired    = New("TOKEN_EXPIRED", http.StatusUnauthorized, "upload link has expired")
	ErrTokenRevoked    = New("TOKEN_REVOKED", http.StatusUnauthorized, "upload link is no longer active")
	ErrRequestClosed   = New("REQUEST_CLOSED", http.StatusConflict, "upload request is closed")
	ErrTooManyAttempts = New("TOO_MANY_ATTEMPTS", http.StatusTooManyRequests, "too many attempts, try again later")
)

// Quota and validation failures.
var (
	ErrDocTypeNotAllowed = New("DOC_TYPE_NOT_ALLOWED", http.StatusUnprocessableEntity, "document type is not allowed for this request")
	ErrMimeNotAllowed    = New("MIME_NOT_ALLOWED", http.StatusUnprocessableEntity, "file type is not allowed")
	ErrFileTooLarge      = New("FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "file exceeds the maximum size")
	ErrTooManyFiles      = New("TOO_MANY_FILES", http.StatusUnprocessableEntity, "maximum number of files reached")
	ErrTotalSizeExceeded = New("TOTAL_SIZE_EXCEEDED", http.StatusRequestEntityTooLarge, "total upload size limit exceeded")
	ErrSizeMismatch      = New("SIZE_MISMATCH", http.StatusUnprocessableEntity, "uploaded size does not match the declared size")
	ErrNoFilesUploaded   = New("NO_FILES_UPLOADED", http.StatusUnprocessableEntity, "at least one file must be uploaded before completing")
)

// Infrastructure failures. Details are logged server-side only.
var (
	ErrUploadPreparationFailed = New("UPLOAD_PREPARATION_FAILED", http.StatusServiceUnavailable, "could not prepare upload, please retry")
	ErrFileNotFound            = New("FILE_NOT_FOUND", http.StatusNotFound, "file not found")
	ErrUploadNotInStorage      = New("UPLOAD_NOT_IN_STORAGE", http.StatusConflict, "uploaded file was not found in storage, please retry")
	ErrStorageUnavailable      = New("STORAGE_UNAVAILABLE", http.StatusServiceUnavailable, "storage is temporarily unavailable, please retry")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
