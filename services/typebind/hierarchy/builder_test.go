// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hierarchy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/typebind/services/typebind/ast"
	"github.com/AleutianAI/typebind/services/typebind/resolve"
	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

func parse(t *testing.T, path, src string) *ast.ParseResult {
	t.Helper()
	r, err := ast.NewJavaParser().Parse(context.Background(), []byte(src), path)
	require.NoError(t, err)
	require.Empty(t, r.Errors)
	return r
}

func build(t *testing.T, results ...*ast.ParseResult) *BuildResult {
	t.Helper()
	res, err := NewBuilder().Build(context.Background(), results)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func mustLookup(t *testing.T, u *typeexpr.Universe, name string) *typeexpr.Class {
	t.Helper()
	c, ok := u.Lookup(name)
	require.True(t, ok, "class %s not declared", name)
	return c
}

const repoSrc = `package com.acme.repo;

import java.util.List;
import java.util.function.*;
import com.acme.model.Entity;

public abstract class Repository<ID extends Comparable<ID>, E extends Entity<ID>> implements Function<ID, E> {
    public static class Page<T> extends java.util.ArrayList<T> {}
    public interface Listener<X> extends Consumer<List<X>> {}
}

class UserRepository extends Repository<Long, com.acme.model.User> {
    class Cache extends Repository.Page<String[]> {}
}

enum Status implements Supplier<Status> { ACTIVE }

record Point(int x, int y) implements Comparable<Point> {}

class Mystery extends org.other.Base<String> implements Unknown {}
`

const modelSrc = `package com.acme.model;

public interface Entity<K> {}
public class User implements Entity<Long> {}
`

func TestBuilder_Declarations(t *testing.T) {
	res := build(t, parse(t, "repo/Repository.java", repoSrc), parse(t, "model/Entity.java", modelSrc))
	u := res.Universe

	assert.True(t, u.IsFrozen())
	assert.False(t, res.Incomplete)
	assert.Empty(t, res.FileErrors)
	assert.Equal(t, 2, res.Stats.FilesProcessed)
	assert.Equal(t, 10, res.Stats.TypesDeclared)
	assert.Greater(t, res.Stats.StubTypes, 50)

	repo := mustLookup(t, u, "com.acme.repo.Repository")
	assert.Equal(t, typeexpr.KindClass, repo.Kind)
	assert.Equal(t, "repo/Repository.java", repo.File)
	assert.Equal(t, 7, repo.Line)

	params := u.TypeParameters(repo)
	require.Len(t, params, 2)
	assert.Equal(t, "ID extends java.lang.Comparable<ID>", params[0].String())
	assert.Equal(t, "E extends com.acme.model.Entity<ID>", params[1].String())

	require.Len(t, u.Superinterfaces(repo), 1)
	assert.Equal(t, "java.util.function.Function<ID, E>", u.Superinterfaces(repo)[0].String())
	assert.Equal(t, typeexpr.ObjectName, u.Supertype(repo).String())

	listener := mustLookup(t, u, "com.acme.repo.Repository.Listener")
	assert.Nil(t, u.Supertype(listener))
	assert.Equal(t, "java.util.function.Consumer<java.util.List<X>>", u.Superinterfaces(listener)[0].String())

	cache := mustLookup(t, u, "com.acme.repo.UserRepository.Cache")
	assert.Equal(t, "com.acme.repo.Repository.Page<java.lang.String[]>", u.Supertype(cache).String())
}

func TestBuilder_ImplicitSupertypes(t *testing.T) {
	res := build(t, parse(t, "repo/Repository.java", repoSrc), parse(t, "model/Entity.java", modelSrc))
	u := res.Universe

	status := mustLookup(t, u, "com.acme.repo.Status")
	assert.Equal(t, typeexpr.KindEnum, status.Kind)
	assert.Equal(t, "java.lang.Enum<com.acme.repo.Status>", u.Supertype(status).String())

	point := mustLookup(t, u, "com.acme.repo.Point")
	assert.Equal(t, typeexpr.KindRecord, point.Kind)
	assert.Equal(t, "java.lang.Record", u.Supertype(point).String())

	assert.Nil(t, u.Supertype(u.Object()))
}

func TestBuilder_Externals(t *testing.T) {
	res := build(t, parse(t, "repo/Repository.java", repoSrc), parse(t, "model/Entity.java", modelSrc))
	u := res.Universe

	assert.Equal(t, []string{"Unknown", "org.other.Base"}, res.Externals)
	assert.Equal(t, 2, res.Stats.ExternalTypes)

	base := mustLookup(t, u, "org.other.Base")
	assert.Equal(t, typeexpr.KindExternal, base.Kind)
	assert.Nil(t, u.Supertype(base))
}

func TestBuilder_Duplicates(t *testing.T) {
	a := parse(t, "a/Box.java", "package a; class Box<T> {}")
	b := parse(t, "b/Box.java", "package a; class Box {}")

	res := build(t, a, b)
	require.Len(t, res.FileErrors, 1)
	assert.Equal(t, "b/Box.java", res.FileErrors[0].FilePath)
	assert.ErrorIs(t, res.FileErrors[0], typeexpr.ErrDuplicateClass)

	box := mustLookup(t, res.Universe, "a.Box")
	assert.True(t, box.IsGeneric(), "first declaration wins")
}

func TestBuilder_InvalidInputs(t *testing.T) {
	bad := &ast.ParseResult{FilePath: "", Language: "java"}
	res := build(t, nil, bad)

	assert.Len(t, res.FileErrors, 2)
	assert.Equal(t, 2, res.Stats.FilesFailed)
	assert.True(t, res.HasErrors())
	assert.False(t, res.Success())
}

func TestBuilder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewBuilder().Build(ctx, []*ast.ParseResult{parse(t, "a/A.java", "package a; class A {}")})
	require.NoError(t, err)
	assert.True(t, res.Incomplete)
	assert.False(t, res.Universe.IsFrozen())
}

func TestBuilder_WithoutStubs(t *testing.T) {
	res, err := NewBuilder(WithStubs(false)).Build(context.Background(), []*ast.ParseResult{
		parse(t, "a/A.java", "package a; import java.util.List; class A implements List<String> {}"),
	})
	require.NoError(t, err)
	assert.Zero(t, res.Stats.StubTypes)
	assert.Equal(t, []string{"String", "java.util.List"}, res.Externals)
}

func TestStubs(t *testing.T) {
	stubs, err := Stubs()
	require.NoError(t, err)
	require.NotEmpty(t, stubs)

	again, err := Stubs()
	require.NoError(t, err)
	assert.Same(t, stubs[0], again[0])

	res := build(t)
	u := res.Universe
	for _, name := range []string{
		"java.lang.String", "java.lang.Enum", "java.io.Serializable",
		"java.util.Map.Entry", "java.util.AbstractMap.SimpleEntry",
		"java.util.function.UnaryOperator", "java.util.concurrent.ConcurrentHashMap",
	} {
		mustLookup(t, u, name)
	}
	assert.Empty(t, res.Externals, "stubs must resolve among themselves")
}

func TestBuilder_ResolvesThroughStubs(t *testing.T) {
	src := `package app;

import java.util.*;
import java.util.function.UnaryOperator;

public class Names extends ArrayList<String> {}
public class Index<V> extends HashMap<String, List<V>> {}
public class Users extends Index<Integer> {}
public class Upper implements UnaryOperator<String> {}
public class Entries extends AbstractMap.SimpleEntry<String, Long[]> {}
`
	res := build(t, parse(t, "app/Names.java", src))
	u := res.Universe
	r := resolve.NewResolver(u)

	tests := []struct {
		ancestor string
		leaf     string
		position int
		class    string
		expr     string
	}{
		{"java.lang.Iterable", "app.Names", 0, "java.lang.String", "java.lang.String"},
		{"java.util.Collection", "app.Names", 0, "java.lang.String", "java.lang.String"},
		{"java.util.Map", "app.Users", 1, "java.util.List", "java.util.List<java.lang.Integer>"},
		{"java.util.Map", "app.Users", 0, "java.lang.String", "java.lang.String"},
		{"java.util.function.Function", "app.Upper", 1, "java.lang.String", "java.lang.String"},
		{"java.util.Map.Entry", "app.Entries", 1, "java.lang.Long[]", "java.lang.Long[]"},
		{"java.lang.Comparable", "java.lang.Integer", 0, "java.lang.Integer", "java.lang.Integer"},
	}
	for _, tt := range tests {
		t.Run(tt.ancestor+"/"+tt.leaf, func(t *testing.T) {
			anc := mustLookup(t, u, tt.ancestor)
			leaf := mustLookup(t, u, tt.leaf)

			cls, err := r.ResolveClass(anc, leaf, tt.position)
			require.NoError(t, err)
			assert.Equal(t, tt.class, cls.Name)

			expr, err := r.ResolveExpression(anc, leaf, tt.position)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, expr.String())
		})
	}
}
