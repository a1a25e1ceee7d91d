// Package errors defines the structured error taxonomy shared by the build
// pipeline and the CLI.
//
// Every component error is a *SiteError carrying an ErrorType (what failed), a
// stable Code, an optional Path and the underlying Cause. Errors propagate
// unhandled up to the CLI boundary which maps them to exit codes.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeInvalidCommand ErrorType = "invalid_command"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeSourceRead     ErrorType = "source_read"
	ErrorTypeRender         ErrorType = "render"
	ErrorTypeWrite          ErrorType = "write"
	ErrorTypeClean          ErrorType = "clean"
	ErrorTypeBuild          ErrorType = "build"
	ErrorTypeConfig         ErrorType = "config"
	ErrorTypeIO             ErrorType = "io"
)

// Error codes.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeDirectoryNotFound = "DIRECTORY_NOT_FOUND"
	ErrCodeSourceRead        = "SOURCE_READ_FAILED"
	ErrCodeRender            = "RENDER_FAILED"
	ErrCodeWrite             = "WRITE_FAILED"
	ErrCodeCleanMissing      = "CLEAN_OUTPUT_MISSING"
	ErrCodeCleanFailed       = "CLEAN_FAILED"
	ErrCodeBuildFailed       = "BUILD_FAILED"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeIO                = "IO_FAILED"
)

// SiteError is a structured error type with context.
type SiteError struct {
	Type    ErrorType
	Code    string
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path+":")
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *SiteError with the same type and code.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithPath attaches the file or directory the error refers to.
func (e *SiteError) WithPath(path string) *SiteError {
	e.Path = path

	return e
}

// NewInvalidCommand creates an error for missing or unrecognised CLI input.
func NewInvalidCommand(message string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeInvalidCommand,
		Code:    ErrCodeInvalidCommand,
		Message: message,
	}
}

// NewDirectoryNotFound creates an error for a required directory that does not exist.
func NewDirectoryNotFound(path string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeDirectoryNotFound,
		Message: "directory not found",
		Path:    path,
		Cause:   cause,
	}
}

// NewSourceReadError creates an error for an unreadable template source file.
func NewSourceReadError(path string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeSourceRead,
		Code:    ErrCodeSourceRead,
		Message: "failed to read source",
		Path:    path,
		Cause:   cause,
	}
}

// NewRenderError creates an error for a template that failed to parse or execute.
func NewRenderError(path string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeRender,
		Code:    ErrCodeRender,
		Message: "failed to render template",
		Path:    path,
		Cause:   cause,
	}
}

// NewWriteError creates an error for a destination that could not be written.
func NewWriteError(path string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeWrite,
		Code:    ErrCodeWrite,
		Message: "failed to write output",
		Path:    path,
		Cause:   cause,
	}
}

// NewCleanError creates a clean error.
func NewCleanError(code, path string, cause error) *SiteError {
	message := "failed to clean output"
	if code == ErrCodeCleanMissing {
		message = "output directory does not exist"
	}

	return &SiteError{
		Type:    ErrorTypeClean,
		Code:    code,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// NewBuildError wraps the first component error that aborted a build.
func NewBuildError(root string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeBuild,
		Code:    ErrCodeBuildFailed,
		Message: "build failed",
		Path:    root,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeInvalidConfig,
		Message: message,
	}
}
