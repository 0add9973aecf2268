// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package typeexpr models reified classes and generic type expressions.
//
// The package provides the metadata a generic binding resolver needs: for each
// class, its declared type parameters, its direct supertype expression and its
// superinterface expressions. A Universe holds a closed set of classes and
// implements Provider.
//
// # Ownership Model
//
// Classes, type parameters and expressions are owned by the Universe that
// created them. They MUST NOT be mutated after Freeze() is called.
//
// # Thread Safety
//
// A Universe is built by a single writer. After Freeze() it can be read from
// multiple goroutines; ArrayOf may still intern new array classes and is
// guarded by a mutex.
package typeexpr

import (
	"fmt"
	"strings"
)

// Kind classifies a Class.
type Kind int

const (
	// KindClass is an ordinary class.
	KindClass Kind = iota

	// KindInterface is an interface.
	KindInterface

	// KindEnum is an enum type.
	KindEnum

	// KindRecord is a record type.
	KindRecord

	// KindAnnotation is an annotation type.
	KindAnnotation

	// KindPrimitive is a primitive type such as int or void.
	KindPrimitive

	// KindArray is an array class. Component() is non-nil.
	KindArray

	// KindExternal is a placeholder for a name that could not be resolved
	// to a declaration. External classes have no supertypes.
	KindExternal
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindRecord:
		return "record"
	case KindAnnotation:
		return "annotation"
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ParseKind converts a kind name back to a Kind.
//
// Outputs:
//   - Kind: The parsed kind.
//   - bool: False if the name is not a known kind.
func ParseKind(name string) (Kind, bool) {
	for k := KindClass; k <= KindExternal; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Class is a reified class: a declared type, a primitive, an external
// placeholder or an array class.
//
// Classes are interned by their Universe, so pointer equality is class
// equality.
type Class struct {
	// Name is the canonical name, e.g. "java.util.List" or "com.acme.Outer.Inner".
	// Array classes are named after their component with "[]" appended.
	Name string

	// Kind classifies the class.
	Kind Kind

	// File is the source file that declared the class (empty for builtins).
	File string

	// Line is the 1-indexed declaration line (0 if unknown).
	Line int

	component  *Class
	params     []*TypeParam
	super      Expr
	interfaces []Expr
}

// Component returns the component class of an array class, or nil.
func (c *Class) Component() *Class {
	return c.component
}

// IsArray reports whether c is an array class.
func (c *Class) IsArray() bool {
	return c.component != nil
}

// IsInterface reports whether c is an interface or annotation type.
func (c *Class) IsInterface() bool {
	return c.Kind == KindInterface || c.Kind == KindAnnotation
}

// IsGeneric reports whether c declares at least one type parameter.
func (c *Class) IsGeneric() bool {
	return len(c.params) > 0
}

// SimpleName returns the last segment of the canonical name.
func (c *Class) SimpleName() string {
	if i := strings.LastIndexByte(c.Name, '.'); i >= 0 && !c.IsArray() {
		return c.Name[i+1:]
	}
	return c.Name
}

// String returns the canonical name.
func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}

// TypeParam is a type parameter declared by a class.
type TypeParam struct {
	// Name is the declared identifier, e.g. "T".
	Name string

	// Index is the position in the owner's parameter list.
	Index int

	// Owner is the declaring class.
	Owner *Class

	// Bounds are the declared upper bounds (T extends A & B). Empty means
	// unbounded.
	Bounds []Expr

	object *Class
}

// Bound returns the declared bound used for erasure.
//
// Description:
//
//	Returns the first declared bound. An unbounded parameter is bounded by
//	java.lang.Object.
//
// Outputs:
//   - Expr: The bound expression. Never nil for parameters created by a Universe.
func (p *TypeParam) Bound() Expr {
	if len(p.Bounds) > 0 {
		return p.Bounds[0]
	}
	if p.object == nil {
		return nil
	}
	return &ClassExpr{Class: p.object}
}

// String renders the parameter with its bounds, e.g. "T extends Number".
func (p *TypeParam) String() string {
	if len(p.Bounds) == 0 {
		return p.Name
	}
	parts := make([]string, len(p.Bounds))
	for i, b := range p.Bounds {
		parts[i] = b.String()
	}
	return fmt.Sprintf("%s extends %s", p.Name, strings.Join(parts, " & "))
}
