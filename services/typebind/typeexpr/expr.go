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

import (
	"strings"
)

// Shape names the variant of an Expr.
type Shape string

const (
	ShapeClass         Shape = "class"
	ShapeVariable      Shape = "variable"
	ShapeParameterized Shape = "parameterized"
	ShapeArray         Shape = "array"
	ShapeWildcard      Shape = "wildcard"
)

// Expr is a type expression as written in a declaration.
//
// Description:
//
//	Expr is a closed set of five shapes: *ClassExpr, *VariableExpr,
//	*ParameterizedExpr, *ArrayExpr and *WildcardExpr. The set is sealed by an
//	unexported method; code that switches over shapes must treat any other
//	value as malformed.
type Expr interface {
	// Shape returns the variant name.
	Shape() Shape

	// String renders the expression in Java syntax.
	String() string

	sealed()
}

// ClassExpr is a fully reified class or array class.
type ClassExpr struct {
	Class *Class
}

// VariableExpr is a reference to a declared type parameter.
type VariableExpr struct {
	Param *TypeParam
}

// ParameterizedExpr is a raw class applied to type arguments, e.g. List<String>.
type ParameterizedExpr struct {
	Raw  *Class
	Args []Expr
}

// ArrayExpr is a generic array: a component expression with Dims >= 1
// dimensions, e.g. T[][] or List<String>[].
type ArrayExpr struct {
	Elem Expr
	Dims int
}

// WildcardExpr is ?, ? extends Upper or ? super Lower.
type WildcardExpr struct {
	Upper []Expr
	Lower []Expr
}

func (*ClassExpr) sealed()         {}
func (*VariableExpr) sealed()      {}
func (*ParameterizedExpr) sealed() {}
func (*ArrayExpr) sealed()         {}
func (*WildcardExpr) sealed()      {}

func (*ClassExpr) Shape() Shape         { return ShapeClass }
func (*VariableExpr) Shape() Shape      { return ShapeVariable }
func (*ParameterizedExpr) Shape() Shape { return ShapeParameterized }
func (*ArrayExpr) Shape() Shape         { return ShapeArray }
func (*WildcardExpr) Shape() Shape      { return ShapeWildcard }

func (e *ClassExpr) String() string {
	return e.Class.String()
}

func (e *VariableExpr) String() string {
	if e.Param == nil {
		return "<nil>"
	}
	return e.Param.Name
}

func (e *ParameterizedExpr) String() string {
	var b strings.Builder
	b.WriteString(e.Raw.String())
	b.WriteByte('<')
	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte('>')
	return b.String()
}

func (e *ArrayExpr) String() string {
	return e.Elem.String() + strings.Repeat("[]", e.Dims)
}

func (e *WildcardExpr) String() string {
	switch {
	case len(e.Lower) > 0:
		return "? super " + joinExprs(e.Lower, " & ")
	case len(e.Upper) > 0:
		return "? extends " + joinExprs(e.Upper, " & ")
	default:
		return "?"
	}
}

// Component returns the expression with one array dimension removed.
func (e *ArrayExpr) Component() Expr {
	if e.Dims <= 1 {
		return e.Elem
	}
	return &ArrayExpr{Elem: e.Elem, Dims: e.Dims - 1}
}

// NewClassExpr wraps a class.
func NewClassExpr(c *Class) *ClassExpr {
	return &ClassExpr{Class: c}
}

// NewVariableExpr wraps a type parameter.
func NewVariableExpr(p *TypeParam) *VariableExpr {
	return &VariableExpr{Param: p}
}

// NewParameterizedExpr applies raw to args.
func NewParameterizedExpr(raw *Class, args ...Expr) *ParameterizedExpr {
	return &ParameterizedExpr{Raw: raw, Args: args}
}

// NewArrayExpr builds a generic array of elem with dims dimensions.
//
// Nested arrays are flattened, so NewArrayExpr(NewArrayExpr(T, 1), 2) is T[][][].
// A dims value below 1 returns elem unchanged.
func NewArrayExpr(elem Expr, dims int) Expr {
	if dims < 1 {
		return elem
	}
	if inner, ok := elem.(*ArrayExpr); ok {
		return &ArrayExpr{Elem: inner.Elem, Dims: inner.Dims + dims}
	}
	return &ArrayExpr{Elem: elem, Dims: dims}
}

// NewWildcardExpr builds a wildcard with the given bounds.
func NewWildcardExpr(upper, lower []Expr) *WildcardExpr {
	return &WildcardExpr{Upper: upper, Lower: lower}
}

// RawClassOf returns the class named by a supertype-position expression.
//
// Outputs:
//   - *Class: The class for ClassExpr, or the raw class for ParameterizedExpr.
//   - bool: False for every other shape.
func RawClassOf(e Expr) (*Class, bool) {
	switch v := e.(type) {
	case *ClassExpr:
		return v.Class, v.Class != nil
	case *ParameterizedExpr:
		return v.Raw, v.Raw != nil
	default:
		return nil, false
	}
}

func joinExprs(es []Expr, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}
