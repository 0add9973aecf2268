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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpr_String(t *testing.T) {
	u := NewUniverse()
	mp, _ := u.Declare("java.util.Map", KindInterface)
	str, _ := u.Declare("java.lang.String", KindClass)
	num, _ := u.Declare("java.lang.Number", KindClass)
	params, err := u.SetTypeParams(mp, "K", "V")
	require.NoError(t, err)

	tests := []struct {
		name  string
		expr  Expr
		want  string
		shape Shape
	}{
		{"class", NewClassExpr(str), "java.lang.String", ShapeClass},
		{"variable", NewVariableExpr(params[0]), "K", ShapeVariable},
		{"parameterized", NewParameterizedExpr(mp, NewClassExpr(str), NewVariableExpr(params[1])), "java.util.Map<java.lang.String, V>", ShapeParameterized},
		{"array", NewArrayExpr(NewVariableExpr(params[0]), 2), "K[][]", ShapeArray},
		{"unbounded wildcard", NewWildcardExpr(nil, nil), "?", ShapeWildcard},
		{"upper wildcard", NewWildcardExpr([]Expr{NewClassExpr(num)}, nil), "? extends java.lang.Number", ShapeWildcard},
		{"lower wildcard", NewWildcardExpr(nil, []Expr{NewClassExpr(num)}), "? super java.lang.Number", ShapeWildcard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.String())
			assert.Equal(t, tt.shape, tt.expr.Shape())
		})
	}
}

func TestNewArrayExpr(t *testing.T) {
	u := NewUniverse()
	c, _ := u.Declare("x.C", KindClass)
	p, err := u.SetTypeParams(c, "T")
	require.NoError(t, err)
	v := NewVariableExpr(p[0])

	t.Run("flattens nested arrays", func(t *testing.T) {
		e := NewArrayExpr(NewArrayExpr(v, 1), 2)
		arr, ok := e.(*ArrayExpr)
		require.True(t, ok)
		assert.Equal(t, 3, arr.Dims)
		assert.Same(t, v, arr.Elem)
	})

	t.Run("zero dims returns element", func(t *testing.T) {
		assert.Same(t, v, NewArrayExpr(v, 0))
	})
}

func TestRawClassOf(t *testing.T) {
	u := NewUniverse()
	list, _ := u.Declare("java.util.List", KindInterface)
	p, _ := u.SetTypeParams(list, "E")

	raw, ok := RawClassOf(NewParameterizedExpr(list, NewVariableExpr(p[0])))
	assert.True(t, ok)
	assert.Same(t, list, raw)

	raw, ok = RawClassOf(NewClassExpr(list))
	assert.True(t, ok)
	assert.Same(t, list, raw)

	_, ok = RawClassOf(NewVariableExpr(p[0]))
	assert.False(t, ok)
	_, ok = RawClassOf(nil)
	assert.False(t, ok)
}

func TestKind_RoundTrip(t *testing.T) {
	for k := KindClass; k <= KindExternal; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("struct")
	assert.False(t, ok)
}
