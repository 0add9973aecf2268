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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

func TestSubtypeChecker(t *testing.T) {
	f := newGenericsFixture(t)
	checker := NewSubtypeChecker(f.resolver())

	tests := []struct {
		child, base string
		want        bool
	}{
		// raw classes
		{"java.lang.Integer", "java.lang.Number", true},
		{"java.lang.Number", "java.lang.Integer", false},
		{"t.Other", "java.lang.Object", true},

		// bindings made by the hierarchy
		{"t.Direct", "t.Base<java.lang.String>", true},
		{"t.Direct", "t.Base<java.lang.Integer>", false},
		{"t.Direct", "t.Base<?>", true},
		{"t.Leaf", "t.Base<java.lang.String>", true},
		{"t.Leaf", "t.Mid<java.lang.String>", true},
		{"t.Leaf", "t.Base<java.lang.Integer>", false},
		{"t.Impl", "t.Source<java.lang.Integer>", true},
		{"t.Impl", "t.Source<java.lang.String>", false},
		{"t.Other", "t.Base<?>", false},

		// parameterized children
		{"t.Mid<java.lang.Integer>", "t.Base<java.lang.Integer>", true},
		{"t.Mid<java.lang.Integer>", "t.Base<java.lang.Number>", false},
		{"t.Mid<java.lang.Integer>", "t.Base<? extends java.lang.Number>", true},
		{"t.Mid<java.lang.Number>", "t.Base<? super java.lang.Integer>", true},
		{"t.Mid<java.lang.String>", "t.Base<? super java.lang.Integer>", false},
		{"t.Mid<java.lang.Integer>", "t.Mid<java.lang.Integer>", true},
		{"t.Mid<? extends java.lang.Integer>", "t.Mid<? extends java.lang.Number>", true},
		{"t.Mid<? extends java.lang.Number>", "t.Mid<? extends java.lang.Integer>", false},
		{"t.Mid<? extends java.lang.Number>", "t.Mid<java.lang.Number>", false},

		// nested arguments
		{"t.ListLeaf", "t.Base<java.util.List<java.lang.Integer>>", true},
		{"t.ListLeaf", "t.Base<java.util.List<java.lang.String>>", false},
		{"t.ListLeaf", "t.Base<? extends java.util.List<? extends java.lang.Number>>", true},

		// wildcard bindings
		{"t.WildUpper", "t.Base<? extends java.lang.Number>", true},
		{"t.WildUpper", "t.Base<java.lang.Number>", false},
		{"t.WildUpper", "t.Base<?>", true},

		// raw children
		{"t.Mid", "t.Base<java.lang.String>", true},
		{"t.BoundedMid", "t.Base<java.lang.Integer>", true},
		{"t.BoundedMid", "t.Base<java.lang.String>", false},

		// arrays
		{"java.lang.Integer[]", "java.lang.Number[]", true},
		{"java.lang.String[]", "java.lang.Number[]", false},
		{"java.lang.String[][]", "java.lang.Object", true},
		{"java.util.List<java.lang.String>[]", "java.util.List<?>[]", true},
		{"java.util.List<java.lang.String>[]", "java.util.List<java.lang.Integer>[]", false},
		{"java.util.List<java.lang.String>[]", "java.util.List<?>", false},

		// primitives and their wrappers
		{"int", "java.lang.Integer", true},
		{"java.lang.Integer", "int", true},
		{"int", "long", false},
		{"int", "java.lang.Object", true},

		// type variable bases
		{"java.lang.Integer", "t.BoundedMid#N", true},
		{"java.lang.String", "t.BoundedMid#N", false},
		{"java.lang.String", "t.Mid#U", true},
		{"int", "t.Mid#U", false},
		{"t.BoundedMid#N", "t.BoundedMid#N", true},

		// type variable children
		{"t.BoundedMid#N", "java.lang.Number", true},
		{"t.BoundedMid#N", "java.lang.String", false},
		{"t.Mid#U", "java.lang.String", false},
	}

	for _, tt := range tests {
		t.Run(tt.child+" <: "+tt.base, func(t *testing.T) {
			child, err := typeexpr.ParseExpr(f.b.u, tt.child)
			require.NoError(t, err)
			base, err := typeexpr.ParseExpr(f.b.u, tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, checker.IsSubtype(child, base))
		})
	}

	t.Run("nil expressions", func(t *testing.T) {
		assert.False(t, checker.IsSubtype(nil, cls(f.str)))
		assert.False(t, checker.IsSubtype(cls(f.str), nil))
	})
}

func TestSubtypeChecker_SelfReferentialBound(t *testing.T) {
	b := newUniverseBuilder(t)
	// abstract class Enum<E extends Enum<E>>
	enum := b.class("java.lang.Enum", "E")
	b.bound(enum, 0, of(enum, b.v(enum, 0)))
	// enum Color extends Enum<Color>; enum Size extends Enum<Size>
	color := b.class("t.Color")
	b.extends(color, of(enum, cls(color)))
	size := b.class("t.Size")
	b.extends(size, of(enum, cls(size)))
	b.u.Freeze()

	checker := NewSubtypeChecker(NewResolver(b.u))

	assert.True(t, checker.IsSubtype(cls(color), of(enum, cls(color))))
	assert.False(t, checker.IsSubtype(cls(color), of(enum, cls(size))))
	assert.True(t, checker.IsSubtype(cls(color), of(enum, wild(nil, nil))))
	assert.True(t, checker.IsSubtype(cls(color), b.v(enum, 0)))
	assert.False(t, checker.IsSubtype(cls(b.u.Object()), b.v(enum, 0)))
}

func TestSubtypeChecker_Concurrent(t *testing.T) {
	f := newGenericsFixture(t)
	checker := NewSubtypeChecker(f.resolver())
	child := of(f.mid, cls(f.integer))
	base := of(f.base, wild([]typeexpr.Expr{cls(f.number)}, nil))

	done := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		go func() {
			done <- checker.IsSubtype(child, base)
		}()
	}
	for i := 0; i < 16; i++ {
		assert.True(t, <-done)
	}
}
