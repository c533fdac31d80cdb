package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeTransport    ErrorType = "transport"
	ErrorTypeContentType  ErrorType = "content_type"
	ErrorTypeStaleCache   ErrorType = "stale_cache"
	ErrorTypeCacheCorrupt ErrorType = "cache_corrupt"
	ErrorTypeFileWrite    ErrorType = "file_write"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error represents a scrape error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error without an HTTP status code
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// NewWithCode creates a typed error carrying an HTTP status code
func NewWithCode(t ErrorType, message string, code int) *Error {
	return &Error{Type: t, Message: message, Code: code}
}

// TypeOf returns the ErrorType of err, unwrapping as needed.
// Returns ErrorTypeUnknown for errors outside this taxonomy.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsStaleCache reports whether err signals a 304 that policy forbade reusing.
// Callers use this to tell "nothing changed" from a real failure.
func IsStaleCache(err error) bool {
	return TypeOf(err) == ErrorTypeStaleCache
}

// IsCacheCorrupt reports whether err signals an unreadable cache entry.
func IsCacheCorrupt(err error) bool {
	return TypeOf(err) == ErrorTypeCacheCorrupt
}

// IsFileWrite reports whether err signals an unwritable destination.
// File write failures are fatal to the whole run.
func IsFileWrite(err error) bool {
	return TypeOf(err) == ErrorTypeFileWrite
}
