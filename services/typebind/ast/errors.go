// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"errors"
	"fmt"
)

// Sentinel errors for parse failures. Check with errors.Is().
var (
	// ErrUnsupportedLanguage indicates no parser is registered for a
	// language or file extension.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrParseFailed indicates parsing failed completely.
	ErrParseFailed = errors.New("parse failed")

	// ErrInvalidContent indicates content that cannot be processed, such as
	// non-UTF-8 bytes.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge is returned when input exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")

	// ErrInvalidResult is returned by ParseResult.Validate.
	ErrInvalidResult = errors.New("invalid parse result")
)

// ParseError locates a failure in a source file.
//
// Example:
//
//	var parseErr *ParseError
//	if errors.As(err, &parseErr) {
//	    fmt.Printf("%s:%d: %s\n", parseErr.FilePath, parseErr.Line, parseErr.Message)
//	}
type ParseError struct {
	// FilePath is the file where the error occurred.
	FilePath string

	// Line is 1-indexed; 0 if unknown.
	Line int

	// Column is 1-indexed; 0 if unknown.
	Column int

	// Message describes the error.
	Message string

	// Cause is the underlying error. May be nil.
	Cause error
}

// Error formats the location and message.
//
// Format depends on available location information:
//   - With line and column: "Box.java:10:5: unexpected token"
//   - With line only:       "Box.java:10: unexpected token"
//   - Without location:     "Box.java: unexpected token"
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a ParseError without a cause.
func NewParseError(filePath string, line, column int, message string) *ParseError {
	return &ParseError{FilePath: filePath, Line: line, Column: column, Message: message}
}

// WrapParseError attaches file context to err. ParseErrors are returned
// unchanged; nil stays nil.
func WrapParseError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}
	return &ParseError{FilePath: filePath, Message: err.Error(), Cause: err}
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}
