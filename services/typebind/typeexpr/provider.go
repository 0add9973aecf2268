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

// Provider exposes reflective facts about classes.
//
// Description:
//
//	Provider is the only boundary a binding resolver depends on. It answers
//	per-class questions about declared type parameters and supertypes, and
//	decomposes or builds array types.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use once they are handed to a
//	resolver.
type Provider interface {
	// TypeParameters returns the declared type parameters of c, in order.
	TypeParameters(c *Class) []*TypeParam

	// Supertype returns the declared superclass expression of c.
	// Returns nil for root classes, interfaces and primitives.
	Supertype(c *Class) Expr

	// Superinterfaces returns the declared superinterface expressions of c,
	// in declaration order.
	Superinterfaces(c *Class) []Expr

	// IsAssignableFrom reports whether a value of descendant is assignable to
	// ancestor, following supertypes and superinterfaces transitively.
	IsAssignableFrom(ancestor, descendant *Class) bool

	// ComponentType removes one array dimension from e.
	// Returns ErrNotArray if e is not an array expression or array class.
	ComponentType(e Expr) (Expr, error)

	// ArrayOf returns the interned one-dimensional array class of component.
	ArrayOf(component *Class) *Class
}
