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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniverse_Declare(t *testing.T) {
	t.Run("builtins present", func(t *testing.T) {
		u := NewUniverse()

		obj, ok := u.Lookup(ObjectName)
		require.True(t, ok)
		assert.Same(t, u.Object(), obj)

		i, ok := u.Lookup("int")
		require.True(t, ok)
		assert.Equal(t, KindPrimitive, i.Kind)
	})

	t.Run("duplicate returns existing", func(t *testing.T) {
		u := NewUniverse()
		first, err := u.Declare("com.acme.Box", KindClass)
		require.NoError(t, err)

		again, err := u.Declare("com.acme.Box", KindInterface)
		assert.ErrorIs(t, err, ErrDuplicateClass)
		assert.Same(t, first, again)
		assert.Equal(t, KindClass, again.Kind)
	})

	t.Run("invalid names", func(t *testing.T) {
		u := NewUniverse()
		for _, name := range []string{"", "com.acme.Box[]"} {
			_, err := u.Declare(name, KindClass)
			assert.ErrorIs(t, err, ErrInvalidName, name)
		}
		_, err := u.Declare("com.acme.Arr", KindArray)
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("frozen rejects writes", func(t *testing.T) {
		u := NewUniverse()
		c, err := u.Declare("com.acme.Box", KindClass)
		require.NoError(t, err)
		u.Freeze()
		assert.True(t, u.IsFrozen())

		_, err = u.Declare("com.acme.Other", KindClass)
		assert.ErrorIs(t, err, ErrUniverseFrozen)
		_, err = u.SetTypeParams(c, "T")
		assert.ErrorIs(t, err, ErrUniverseFrozen)
		assert.ErrorIs(t, u.SetSupertype(c, NewClassExpr(u.Object())), ErrUniverseFrozen)
	})

	t.Run("foreign class rejected", func(t *testing.T) {
		u1 := NewUniverse()
		u2 := NewUniverse()
		c, err := u1.Declare("com.acme.Box", KindClass)
		require.NoError(t, err)

		assert.ErrorIs(t, u2.AddInterface(c, NewClassExpr(u2.Object())), ErrForeignClass)
	})

	t.Run("external placeholder is reused", func(t *testing.T) {
		u := NewUniverse()
		a, err := u.DeclareExternal("org.other.Thing")
		require.NoError(t, err)
		b, err := u.DeclareExternal("org.other.Thing")
		require.NoError(t, err)
		assert.Same(t, a, b)
		assert.Equal(t, KindExternal, a.Kind)
	})
}

func TestUniverse_Classes(t *testing.T) {
	u := NewUniverse()
	_, err := u.Declare("b.B", KindClass)
	require.NoError(t, err)
	_, err = u.Declare("a.A", KindClass)
	require.NoError(t, err)

	classes := u.Classes()
	require.Equal(t, u.Len(), len(classes))
	for i := 1; i < len(classes); i++ {
		assert.Less(t, classes[i-1].Name, classes[i].Name)
	}
}

func TestUniverse_TypeParams(t *testing.T) {
	u := NewUniverse()
	box, err := u.Declare("com.acme.Box", KindClass)
	require.NoError(t, err)
	num, err := u.Declare("java.lang.Number", KindClass)
	require.NoError(t, err)

	params, err := u.SetTypeParams(box, "K", "V")
	require.NoError(t, err)
	require.Len(t, params, 2)
	require.NoError(t, u.SetBounds(params[1], NewClassExpr(num)))

	assert.True(t, box.IsGeneric())
	assert.Equal(t, 1, params[1].Index)
	assert.Same(t, box, params[0].Owner)
	assert.Equal(t, ObjectName, params[0].Bound().String())
	assert.Equal(t, "java.lang.Number", params[1].Bound().String())
	assert.Equal(t, "V extends java.lang.Number", params[1].String())
}

func TestUniverse_ArrayOf(t *testing.T) {
	u := NewUniverse()
	str, err := u.Declare("java.lang.String", KindClass)
	require.NoError(t, err)

	t.Run("interned", func(t *testing.T) {
		a := u.ArrayOf(str)
		assert.Same(t, a, u.ArrayOf(str))
		assert.Equal(t, "java.lang.String[]", a.Name)
		assert.Same(t, str, a.Component())
		assert.True(t, a.IsArray())
	})

	t.Run("dims", func(t *testing.T) {
		a2 := u.ArrayOfDims(str, 2)
		assert.Equal(t, "java.lang.String[][]", a2.Name)
		assert.Same(t, u.ArrayOf(u.ArrayOf(str)), a2)
		assert.Same(t, str, u.ArrayOfDims(str, 0))
	})

	t.Run("lookup by array name", func(t *testing.T) {
		a, ok := u.Lookup("java.lang.String[][]")
		require.True(t, ok)
		assert.Same(t, u.ArrayOfDims(str, 2), a)

		_, ok = u.Lookup("com.missing.Type[]")
		assert.False(t, ok)
	})

	t.Run("allowed after freeze", func(t *testing.T) {
		u.Freeze()
		i, _ := u.Lookup("int")
		assert.Equal(t, "int[]", u.ArrayOf(i).Name)
	})

	t.Run("concurrent", func(t *testing.T) {
		v := NewUniverse()
		c, err := v.Declare("com.acme.C", KindClass)
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([]*Class, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = v.ArrayOf(c)
			}(i)
		}
		wg.Wait()
		for _, r := range results {
			assert.Same(t, results[0], r)
		}
	})
}

func TestUniverse_IsAssignableFrom(t *testing.T) {
	u := NewUniverse()
	iface, _ := u.Declare("com.acme.Shape", KindInterface)
	base, _ := u.Declare("com.acme.Base", KindClass)
	leaf, _ := u.Declare("com.acme.Leaf", KindClass)
	other, _ := u.Declare("com.acme.Other", KindClass)
	cloneable, _ := u.Declare(CloneableName, KindInterface)
	intCls, _ := u.Lookup("int")

	require.NoError(t, u.SetSupertype(base, NewClassExpr(u.Object())))
	require.NoError(t, u.AddInterface(base, NewClassExpr(iface)))
	require.NoError(t, u.SetSupertype(leaf, NewClassExpr(base)))
	require.NoError(t, u.SetSupertype(other, NewClassExpr(u.Object())))

	tests := []struct {
		name       string
		ancestor   *Class
		descendant *Class
		want       bool
	}{
		{"identity", leaf, leaf, true},
		{"direct superclass", base, leaf, true},
		{"transitive interface", iface, leaf, true},
		{"object root", u.Object(), other, true},
		{"unrelated", base, other, false},
		{"reverse", leaf, base, false},
		{"primitive", u.Object(), intCls, false},
		{"covariant arrays", u.ArrayOf(base), u.ArrayOf(leaf), true},
		{"array to cloneable", cloneable, u.ArrayOf(leaf), true},
		{"array to unrelated", base, u.ArrayOf(leaf), false},
		{"nil", nil, leaf, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, u.IsAssignableFrom(tt.ancestor, tt.descendant))
		})
	}
}

func TestUniverse_IsAssignableFrom_Cycle(t *testing.T) {
	u := NewUniverse()
	a, _ := u.Declare("x.A", KindInterface)
	b, _ := u.Declare("x.B", KindInterface)
	target, _ := u.Declare("x.Target", KindInterface)
	require.NoError(t, u.AddInterface(a, NewClassExpr(b)))
	require.NoError(t, u.AddInterface(b, NewClassExpr(a)))

	assert.False(t, u.IsAssignableFrom(target, a))
}

func TestUniverse_ArraySupertypes(t *testing.T) {
	u := NewUniverse()
	_, _ = u.Declare(CloneableName, KindInterface)
	_, _ = u.Declare(SerializableName, KindInterface)
	i, _ := u.Lookup("int")
	arr := u.ArrayOf(i)

	assert.Equal(t, ObjectName, u.Supertype(arr).String())
	ifaces := u.Superinterfaces(arr)
	require.Len(t, ifaces, 2)
	assert.Equal(t, CloneableName, ifaces[0].String())
	assert.Equal(t, SerializableName, ifaces[1].String())
}

func TestUniverse_ComponentType(t *testing.T) {
	u := NewUniverse()
	list, _ := u.Declare("java.util.List", KindInterface)
	params, err := u.SetTypeParams(list, "E")
	require.NoError(t, err)
	str, _ := u.Declare("java.lang.String", KindClass)

	t.Run("generic array", func(t *testing.T) {
		e := NewArrayExpr(NewVariableExpr(params[0]), 2)
		c, err := u.ComponentType(e)
		require.NoError(t, err)
		assert.Equal(t, "E[]", c.String())

		c, err = u.ComponentType(c)
		require.NoError(t, err)
		assert.Equal(t, "E", c.String())
	})

	t.Run("array class", func(t *testing.T) {
		c, err := u.ComponentType(NewClassExpr(u.ArrayOf(str)))
		require.NoError(t, err)
		assert.Equal(t, "java.lang.String", c.String())
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := u.ComponentType(NewClassExpr(str))
		assert.ErrorIs(t, err, ErrNotArray)
		_, err = u.ComponentType(NewParameterizedExpr(list, NewClassExpr(str)))
		assert.ErrorIs(t, err, ErrNotArray)
	})
}
