// Package domerr defines the failure taxonomy for jsondom.
//
// Every error returned by the parser, the tree mutators, the serializer, or
// the CLI maps to exactly one Class, which determines the exit code and lets
// tests verify failure classification, not just "did it fail."
package domerr

import (
	"errors"
	"fmt"
)

// Class is a stable failure category.
type Class string

const (
	// Parse failures.
	UnexpectedToken Class = "UNEXPECTED_TOKEN"
	BadString       Class = "BAD_STRING"
	BadEscape       Class = "BAD_ESCAPE"
	LoneSurrogate   Class = "LONE_SURROGATE"
	InvalidUTF8     Class = "INVALID_UTF8"
	BadNumber       Class = "BAD_NUMBER"
	NumberOverflow  Class = "NUMBER_OVERFLOW"
	DepthExceeded   Class = "DEPTH_EXCEEDED"
	DuplicateKey    Class = "DUPLICATE_KEY"

	// Tree mutation failures.
	HasParent   Class = "HAS_PARENT"
	KeyNotFound Class = "KEY_NOT_FOUND"
	BadKey      Class = "BAD_KEY"
	IndexRange  Class = "INDEX_RANGE"
	WrongType   Class = "WRONG_TYPE"

	// Resource and environment failures.
	AllocFailed   Class = "ALLOC_FAILED"
	ShortBuffer   Class = "SHORT_BUFFER"
	CLIUsage      Class = "CLI_USAGE"
	InternalIO    Class = "INTERNAL_IO"
	InternalError Class = "INTERNAL_ERROR"
)

// ExitCode returns the process exit code for this failure class.
func (c Class) ExitCode() int {
	switch c {
	case AllocFailed, InternalIO, InternalError:
		return 10
	default:
		return 2
	}
}

// Error is the structured error type for all jsondom failures.
//
// Offset is a byte position into the input for parse failures, or -1 when no
// position applies.
type Error struct {
	Class   Class
	Offset  int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var s string
	if e.Offset >= 0 {
		s = fmt.Sprintf("domerr: %s at byte %d: %s", e.Class, e.Offset, e.Message)
	} else {
		s = fmt.Sprintf("domerr: %s: %s", e.Class, e.Message)
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class Class, offset int, message string) *Error {
	return &Error{Class: class, Offset: offset, Message: message}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class Class, offset int, message string, cause error) *Error {
	return &Error{Class: class, Offset: offset, Message: message, Cause: cause}
}

// ClassOf extracts the failure class from err, or InternalError when no
// *Error is found in its chain.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return InternalError
}
