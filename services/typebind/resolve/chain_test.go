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
)

func TestBuildChain(t *testing.T) {
	f := newGenericsFixture(t)
	u := f.b.u

	t.Run("two hops", func(t *testing.T) {
		chain, err := BuildChain(u, f.base, f.leaf)
		require.NoError(t, err)
		require.Equal(t, 2, chain.Len())

		nodes := chain.Nodes()
		assert.Same(t, f.mid, nodes[0].Class)
		assert.Same(t, f.leaf, nodes[1].Class)
		assert.Same(t, chain.Head, nodes[0])
		assert.Same(t, chain.Tail, nodes[1])
		assert.Nil(t, chain.Head.Parent)
		assert.Same(t, chain.Head, chain.Tail.Parent)
		assert.True(t, chain.Tail.IsLeaf())
		assert.False(t, chain.Head.IsLeaf())
		assert.Equal(t, "extends", chain.Head.Slot.String())
	})

	t.Run("single node", func(t *testing.T) {
		chain, err := BuildChain(u, f.base, f.direct)
		require.NoError(t, err)
		assert.Equal(t, 1, chain.Len())
		assert.Same(t, chain.Head, chain.Tail)
	})

	t.Run("implements slot", func(t *testing.T) {
		chain, err := BuildChain(u, f.source, f.impl)
		require.NoError(t, err)
		assert.Equal(t, Slot{Kind: SlotImplements, Index: 0}, chain.Head.Slot)
		assert.Equal(t, "implements[0]", chain.Head.Slot.String())
	})

	t.Run("leaf equal to ancestor", func(t *testing.T) {
		_, err := BuildChain(u, f.base, f.base)
		assert.True(t, IsUnreachableAncestor(err))
	})

	t.Run("unrelated leaf", func(t *testing.T) {
		_, err := BuildChain(u, f.source, f.leaf)
		assert.True(t, IsUnreachableAncestor(err))
	})
}

func TestBuildChain_InterfaceIndex(t *testing.T) {
	b := newUniverseBuilder(t)
	str := b.class("java.lang.String")
	a := b.iface("t.A")
	c := b.iface("t.C")
	src := b.iface("t.Source", "E")
	leaf := b.class("t.Leaf")
	b.implements(leaf, cls(a), cls(c), of(src, cls(str)))

	chain, err := BuildChain(b.u, src, leaf)
	require.NoError(t, err)
	assert.Equal(t, Slot{Kind: SlotImplements, Index: 2}, chain.Head.Slot)
}

func TestBuildChain_FreshNodesPerCall(t *testing.T) {
	f := newGenericsFixture(t)

	c1, err := BuildChain(f.b.u, f.base, f.leaf)
	require.NoError(t, err)
	c2, err := BuildChain(f.b.u, f.base, f.leaf)
	require.NoError(t, err)
	assert.NotSame(t, c1.Head, c2.Head)
}
