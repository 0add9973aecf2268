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

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

// universeBuilder declares classes with terse helpers for tests.
type universeBuilder struct {
	t *testing.T
	u *typeexpr.Universe
}

func newUniverseBuilder(t *testing.T) *universeBuilder {
	t.Helper()
	return &universeBuilder{t: t, u: typeexpr.NewUniverse()}
}

func (b *universeBuilder) class(name string, params ...string) *typeexpr.Class {
	return b.declare(name, typeexpr.KindClass, params...)
}

func (b *universeBuilder) iface(name string, params ...string) *typeexpr.Class {
	return b.declare(name, typeexpr.KindInterface, params...)
}

func (b *universeBuilder) declare(name string, kind typeexpr.Kind, params ...string) *typeexpr.Class {
	b.t.Helper()
	c, err := b.u.Declare(name, kind)
	require.NoError(b.t, err)
	if len(params) > 0 {
		_, err = b.u.SetTypeParams(c, params...)
		require.NoError(b.t, err)
	}
	if kind != typeexpr.KindInterface {
		require.NoError(b.t, b.u.SetSupertype(c, typeexpr.NewClassExpr(b.u.Object())))
	}
	return c
}

func (b *universeBuilder) extends(c *typeexpr.Class, e typeexpr.Expr) {
	b.t.Helper()
	require.NoError(b.t, b.u.SetSupertype(c, e))
}

func (b *universeBuilder) implements(c *typeexpr.Class, es ...typeexpr.Expr) {
	b.t.Helper()
	for _, e := range es {
		require.NoError(b.t, b.u.AddInterface(c, e))
	}
}

func (b *universeBuilder) bound(c *typeexpr.Class, index int, bounds ...typeexpr.Expr) {
	b.t.Helper()
	require.NoError(b.t, b.u.SetBounds(b.u.TypeParameters(c)[index], bounds...))
}

// v returns a variable expression for c's parameter at index.
func (b *universeBuilder) v(c *typeexpr.Class, index int) typeexpr.Expr {
	return typeexpr.NewVariableExpr(b.u.TypeParameters(c)[index])
}

func cls(c *typeexpr.Class) typeexpr.Expr {
	return typeexpr.NewClassExpr(c)
}

func of(raw *typeexpr.Class, args ...typeexpr.Expr) typeexpr.Expr {
	return typeexpr.NewParameterizedExpr(raw, args...)
}

func arr(e typeexpr.Expr, dims int) typeexpr.Expr {
	return typeexpr.NewArrayExpr(e, dims)
}

func wild(upper, lower []typeexpr.Expr) typeexpr.Expr {
	return typeexpr.NewWildcardExpr(upper, lower)
}

// genericsFixture is a small hierarchy covering every resolution path.
type genericsFixture struct {
	b *universeBuilder

	str, integer, number, list, base, pair *typeexpr.Class

	// class Direct extends Base<String>
	direct *typeexpr.Class
	// class Mid<U> extends Base<U>; class Leaf extends Mid<String>
	mid, leaf *typeexpr.Class
	// class Arr1 extends Base<String[]>; class Arr2 extends Base<String[][]>
	arr1, arr2 *typeexpr.Class
	// class ListArg extends Base<List<String>>
	listArg *typeexpr.Class
	// class RawLeaf extends Mid
	rawLeaf *typeexpr.Class
	// class WildUpper extends Base<? extends Number>; WildLower extends Base<? super Integer>; WildAny extends Base<?>
	wildUpper, wildLower, wildAny *typeexpr.Class
	// class GenArr<V> extends Base<V[]>; class GenArrLeaf extends GenArr<String>
	genArr, genArrLeaf *typeexpr.Class
	// class Swap<X, Y> extends Pair<Y, X>; class SwapLeaf extends Swap<String, Integer>
	swap, swapLeaf *typeexpr.Class
	// class BoundedMid<N extends Number> extends Base<N>
	boundedMid *typeexpr.Class
	// class ListMid<U> extends Base<List<U>>; class ListLeaf extends ListMid<Integer>
	listMid, listLeaf *typeexpr.Class
	// interface Source<E>; class Impl implements Source<Integer>
	source, impl *typeexpr.Class
	// class Other
	other *typeexpr.Class
}

func newGenericsFixture(t *testing.T) *genericsFixture {
	t.Helper()
	b := newUniverseBuilder(t)
	f := &genericsFixture{b: b}

	f.str = b.class("java.lang.String")
	f.number = b.class("java.lang.Number")
	f.integer = b.class("java.lang.Integer")
	b.extends(f.integer, cls(f.number))
	f.list = b.iface("java.util.List", "E")

	f.base = b.class("t.Base", "T")
	f.pair = b.class("t.Pair", "A", "B")

	f.direct = b.class("t.Direct")
	b.extends(f.direct, of(f.base, cls(f.str)))

	f.mid = b.class("t.Mid", "U")
	b.extends(f.mid, of(f.base, b.v(f.mid, 0)))
	f.leaf = b.class("t.Leaf")
	b.extends(f.leaf, of(f.mid, cls(f.str)))

	f.arr1 = b.class("t.Arr1")
	b.extends(f.arr1, of(f.base, arr(cls(f.str), 1)))
	f.arr2 = b.class("t.Arr2")
	b.extends(f.arr2, of(f.base, arr(cls(f.str), 2)))

	f.listArg = b.class("t.ListArg")
	b.extends(f.listArg, of(f.base, of(f.list, cls(f.str))))

	f.rawLeaf = b.class("t.RawLeaf")
	b.extends(f.rawLeaf, cls(f.mid))

	f.wildUpper = b.class("t.WildUpper")
	b.extends(f.wildUpper, of(f.base, wild([]typeexpr.Expr{cls(f.number)}, nil)))
	f.wildLower = b.class("t.WildLower")
	b.extends(f.wildLower, of(f.base, wild(nil, []typeexpr.Expr{cls(f.integer)})))
	f.wildAny = b.class("t.WildAny")
	b.extends(f.wildAny, of(f.base, wild(nil, nil)))

	f.genArr = b.class("t.GenArr", "V")
	b.extends(f.genArr, of(f.base, arr(b.v(f.genArr, 0), 1)))
	f.genArrLeaf = b.class("t.GenArrLeaf")
	b.extends(f.genArrLeaf, of(f.genArr, cls(f.str)))

	f.swap = b.class("t.Swap", "X", "Y")
	b.extends(f.swap, of(f.pair, b.v(f.swap, 1), b.v(f.swap, 0)))
	f.swapLeaf = b.class("t.SwapLeaf")
	b.extends(f.swapLeaf, of(f.swap, cls(f.str), cls(f.integer)))

	f.boundedMid = b.class("t.BoundedMid", "N")
	b.bound(f.boundedMid, 0, cls(f.number))
	b.extends(f.boundedMid, of(f.base, b.v(f.boundedMid, 0)))

	f.listMid = b.class("t.ListMid", "U")
	b.extends(f.listMid, of(f.base, of(f.list, b.v(f.listMid, 0))))
	f.listLeaf = b.class("t.ListLeaf")
	b.extends(f.listLeaf, of(f.listMid, cls(f.integer)))

	f.source = b.iface("t.Source", "E")
	f.impl = b.class("t.Impl")
	b.implements(f.impl, of(f.source, cls(f.integer)))

	f.other = b.class("t.Other")

	b.u.Freeze()
	return f
}

func (f *genericsFixture) resolver() *Resolver {
	return NewResolver(f.b.u)
}
