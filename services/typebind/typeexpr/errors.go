// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typeexpr

import "errors"

// Sentinel errors for universe operations.
var (
	// ErrUniverseFrozen is returned when modifying a frozen universe.
	ErrUniverseFrozen = errors.New("universe is frozen and cannot be modified")

	// ErrDuplicateClass is returned when declaring a name twice.
	ErrDuplicateClass = errors.New("duplicate class name")

	// ErrForeignClass is returned when a class from another universe is used.
	ErrForeignClass = errors.New("class does not belong to this universe")

	// ErrNotArray is returned by ComponentType for non-array expressions.
	ErrNotArray = errors.New("expression is not an array type")

	// ErrInvalidName is returned for empty or malformed class names.
	ErrInvalidName = errors.New("invalid class name")

	// ErrInvalidExpression is returned by ParseExpr for malformed input.
	ErrInvalidExpression = errors.New("invalid type expression")

	// ErrUnknownClass is returned by ParseExpr for a name the universe does
	// not declare.
	ErrUnknownClass = errors.New("unknown class")
)
