// Package apperr defines the typed failures surfaced by the assessment engine.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a failure class
type Code string

const (
	CodeInputInvalid            Code = "INPUT_INVALID"
	CodeDocumentNotFound        Code = "DOCUMENT_NOT_FOUND"
	CodeAssessmentNotFound      Code = "ASSESSMENT_NOT_FOUND"
	CodeShareNotFound           Code = "SHARE_NOT_FOUND"
	CodeDocumentUnprocessable   Code = "DOCUMENT_UNPROCESSABLE"
	CodeCollaboratorUnavailable Code = "COLLABORATOR_UNAVAILABLE"
	CodeProcessingFailed        Code = "PROCESSING_FAILED"
	CodeIngestionFailed         Code = "INGESTION_FAILED"
	CodeConfigInvalid           Code = "CONFIG_INVALID"
)

// Sentinels for errors.Is. Any *AppError with the same code matches.
var (
	ErrInputInvalid            = New(CodeInputInvalid, "invalid input")
	ErrDocumentNotFound        = New(CodeDocumentNotFound, "document not found")
	ErrAssessmentNotFound      = New(CodeAssessmentNotFound, "assessment not found")
	ErrShareNotFound           = New(CodeShareNotFound, "shared assessment not found")
	ErrDocumentUnprocessable   = New(CodeDocumentUnprocessable, "document unprocessable")
	ErrCollaboratorUnavailable = New(CodeCollaboratorUnavailable, "collaborator unavailable")
	ErrProcessingFailed        = New(CodeProcessingFailed, "processing failed")
	ErrIngestionFailed         = New(CodeIngestionFailed, "ingestion failed")
	ErrConfigInvalid           = New(CodeConfigInvalid, "invalid configuration")
)

// AppError carries a code, a message and an optional cause
type AppError struct {
	Code    Code
	Message string
	Detail  string
	Cause   error
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any AppError with the same code
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy with detail set
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

// New creates an AppError
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code to an underlying error. Returns nil for a nil err.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Newf is New with a formatted detail
func Newf(code Code, message, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: message, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) Code {
	var e *AppError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is any of the not-found codes
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case CodeDocumentNotFound, CodeAssessmentNotFound, CodeShareNotFound:
		return true
	}
	return false
}
