package errors

import (
	"errors"
)

// WrapIO wraps an error as an I/O error
func WrapIO(err error, path, message string) *SiteError {
	if err == nil {
		return nil
	}

	return &SiteError{
		Type:    ErrorTypeIO,
		Code:    ErrCodeIO,
		Message: message,
		Path:    path,
		Cause:   err,
	}
}

// IsType reports whether any *SiteError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var se *SiteError
		if !errors.As(err, &se) {
			return false
		}
		if se.Type == errType {
			return true
		}
		err = se.Cause
	}

	return false
}

// IsNotFound checks if an error reports a missing directory.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsCleanMissing checks if an error reports a clean of an absent output directory.
func IsCleanMissing(err error) bool {
	var se *SiteError
	return errors.As(err, &se) && se.Type == ErrorTypeClean && se.Code == ErrCodeCleanMissing
}

// IsInvalidCommand checks if an error reports bad CLI input.
func IsInvalidCommand(err error) bool {
	return IsType(err, ErrorTypeInvalidCommand)
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	return IsType(err, ErrorTypeConfig)
}

// TypeOf returns the type of the outermost *SiteError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type
	}

	return ""
}
