// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

// Sentinel errors for resolution failures.
//
// None of these are recoverable: resolution is deterministic over static
// metadata, so a retry fails the same way. Check with errors.Is().
var (
	// ErrUnreachableAncestor indicates the leaf does not extend or implement
	// the ancestor, or the hierarchy between them is cyclic.
	ErrUnreachableAncestor = errors.New("unreachable ancestor")

	// ErrMalformedTypeExpression indicates a type expression outside the five
	// recognised shapes, or a shape that cannot appear where it was found.
	ErrMalformedTypeExpression = errors.New("malformed type expression")

	// ErrParameterIndexOutOfRange indicates a position outside a class's
	// declared parameter list, or a type variable not declared by the class
	// that uses it.
	ErrParameterIndexOutOfRange = errors.New("type parameter index out of range")
)

// ResolutionError carries the context of a failed resolution.
//
// Example:
//
//	_, err := resolver.Resolve(ancestor, leaf, 0)
//	var resErr *resolve.ResolutionError
//	if errors.As(err, &resErr) {
//	    fmt.Printf("stuck at %s on %s\n", resErr.Node, resErr.Expr)
//	}
type ResolutionError struct {
	// Kind is one of the package sentinels.
	Kind error

	// Ancestor is the class whose parameter was requested.
	Ancestor *typeexpr.Class

	// Leaf is the class the caller resolved through.
	Leaf *typeexpr.Class

	// Node is the class being inspected when resolution failed. May be nil.
	Node *typeexpr.Class

	// Expr is the expression being inspected. May be nil.
	Expr typeexpr.Expr

	// Position is the parameter position at the time of failure.
	Position int

	// Message describes the failure.
	Message string
}

// Error formats the failure with its full context.
//
// Format: "<kind>: <message> (ancestor=A leaf=L node=N expr=E position=P)"
func (e *ResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %s (ancestor=%s leaf=%s", e.Kind, e.Message, e.Ancestor, e.Leaf)
	if e.Node != nil {
		fmt.Fprintf(&b, " node=%s", e.Node)
	}
	if e.Expr != nil {
		fmt.Fprintf(&b, " expr=%s", e.Expr)
	}
	fmt.Fprintf(&b, " position=%d)", e.Position)
	return b.String()
}

// Unwrap returns the sentinel so errors.Is works.
func (e *ResolutionError) Unwrap() error {
	return e.Kind
}

func newUnreachable(ancestor, leaf, node *typeexpr.Class, format string, args ...any) *ResolutionError {
	return &ResolutionError{
		Kind:     ErrUnreachableAncestor,
		Ancestor: ancestor,
		Leaf:     leaf,
		Node:     node,
		Message:  fmt.Sprintf(format, args...),
	}
}

func newMalformed(ancestor, leaf, node *typeexpr.Class, expr typeexpr.Expr, position int, format string, args ...any) *ResolutionError {
	return &ResolutionError{
		Kind:     ErrMalformedTypeExpression,
		Ancestor: ancestor,
		Leaf:     leaf,
		Node:     node,
		Expr:     expr,
		Position: position,
		Message:  fmt.Sprintf(format, args...),
	}
}

func newOutOfRange(ancestor, leaf, node *typeexpr.Class, expr typeexpr.Expr, position int, format string, args ...any) *ResolutionError {
	return &ResolutionError{
		Kind:     ErrParameterIndexOutOfRange,
		Ancestor: ancestor,
		Leaf:     leaf,
		Node:     node,
		Expr:     expr,
		Position: position,
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsUnreachableAncestor reports whether err is or wraps ErrUnreachableAncestor.
func IsUnreachableAncestor(err error) bool {
	return errors.Is(err, ErrUnreachableAncestor)
}

// IsMalformedTypeExpression reports whether err is or wraps ErrMalformedTypeExpression.
func IsMalformedTypeExpression(err error) bool {
	return errors.Is(err, ErrMalformedTypeExpression)
}

// IsParameterIndexOutOfRange reports whether err is or wraps ErrParameterIndexOutOfRange.
func IsParameterIndexOutOfRange(err error) bool {
	return errors.Is(err, ErrParameterIndexOutOfRange)
}
