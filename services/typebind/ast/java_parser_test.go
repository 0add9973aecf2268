// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJava = `package com.acme.store;

import java.util.List;
import java.util.*;
import static java.util.Collections.emptyList;

public abstract class Repository<K extends Comparable<K>, V> extends Base<V[]> implements Store<K, List<? extends V>>, java.io.Serializable {

    public interface Listener<E> extends java.util.EventListener, Consumer<E> {
        void on(E event);
    }

    static final class Entry<X> implements Map.Entry<String, X[][]> {
    }

    enum Mode implements Supplier<? super Integer> {
        READ, WRITE;

        static class Holder {}
    }

    record Pair<A, B>(A left, B right) implements Comparable<Pair<A, B>> {}

    @interface Marker {}

    void work() {
        class Local extends Object {}
    }
}

interface Store<K, V> {}
`

func parseSample(t *testing.T) *ParseResult {
	t.Helper()
	result, err := NewJavaParser().Parse(context.Background(), []byte(sampleJava), "src/com/acme/store/Repository.java")
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestJavaParser_PackageAndImports(t *testing.T) {
	result := parseSample(t)

	assert.Equal(t, "java", result.Language)
	assert.Equal(t, "com.acme.store", result.Package)
	assert.Len(t, result.Hash, 64)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Imports, 3)
	assert.Equal(t, Import{Path: "java.util.List", Line: 3}, result.Imports[0])
	assert.Equal(t, "java.util", result.Imports[1].Path)
	assert.True(t, result.Imports[1].OnDemand)
	assert.True(t, result.Imports[2].Static)
	assert.Equal(t, "java.util.Collections.emptyList", result.Imports[2].Path)
}

func TestJavaParser_ClassHeader(t *testing.T) {
	result := parseSample(t)
	require.Len(t, result.Types, 2)

	repo := result.Types[0]
	assert.Equal(t, "Repository", repo.Name)
	assert.Equal(t, DeclClass, repo.Kind)
	assert.Equal(t, 7, repo.StartLine)

	require.Len(t, repo.TypeParams, 2)
	assert.Equal(t, "K", repo.TypeParams[0].Name)
	require.Len(t, repo.TypeParams[0].Bounds, 1)
	assert.Equal(t, "Comparable<K>", repo.TypeParams[0].Bounds[0].String())
	assert.Equal(t, "V", repo.TypeParams[1].Name)
	assert.Empty(t, repo.TypeParams[1].Bounds)

	require.NotNil(t, repo.Extends)
	assert.Equal(t, "Base<V[]>", repo.Extends.String())
	require.Len(t, repo.Extends.Args, 1)
	assert.Equal(t, 1, repo.Extends.Args[0].Dims)

	require.Len(t, repo.Implements, 2)
	assert.Equal(t, "Store<K, List<? extends V>>", repo.Implements[0].String())
	assert.Equal(t, "java.io.Serializable", repo.Implements[1].Name)

	wild := repo.Implements[0].Args[1].Args[0]
	assert.Equal(t, RefWildcard, wild.Kind)
	require.NotNil(t, wild.Upper)
	assert.Equal(t, "V", wild.Upper.Name)

	store := result.Types[1]
	assert.Equal(t, DeclInterface, store.Kind)
	assert.Nil(t, store.Extends)
}

func TestJavaParser_Members(t *testing.T) {
	result := parseSample(t)
	repo := result.Types[0]

	byName := make(map[string]*TypeDecl)
	for _, m := range repo.Members {
		byName[m.Name] = m
	}
	require.Len(t, byName, 5, "local classes in method bodies are not members")

	listener := byName["Listener"]
	require.NotNil(t, listener)
	assert.Equal(t, DeclInterface, listener.Kind)
	require.Len(t, listener.Implements, 2)
	assert.Equal(t, "java.util.EventListener", listener.Implements[0].Name)
	assert.Equal(t, "Consumer<E>", listener.Implements[1].String())

	entry := byName["Entry"]
	require.NotNil(t, entry)
	require.Len(t, entry.Implements, 1)
	assert.Equal(t, "Map.Entry", entry.Implements[0].Name)
	assert.Equal(t, 2, entry.Implements[0].Args[1].Dims)

	mode := byName["Mode"]
	require.NotNil(t, mode)
	assert.Equal(t, DeclEnum, mode.Kind)
	require.Len(t, mode.Implements, 1)
	lower := mode.Implements[0].Args[0]
	assert.Equal(t, RefWildcard, lower.Kind)
	require.NotNil(t, lower.Lower)
	assert.Equal(t, "Integer", lower.Lower.Name)
	require.Len(t, mode.Members, 1)
	assert.Equal(t, "Holder", mode.Members[0].Name)

	pair := byName["Pair"]
	require.NotNil(t, pair)
	assert.Equal(t, DeclRecord, pair.Kind)
	require.Len(t, pair.TypeParams, 2)
	assert.Equal(t, "Comparable<Pair<A, B>>", pair.Implements[0].String())

	assert.Equal(t, DeclAnnotation, byName["Marker"].Kind)
	assert.Equal(t, 8, result.TypeCount())
}

func TestJavaParser_Primitives(t *testing.T) {
	src := `class Holder extends Base<int[]> {}`
	result, err := NewJavaParser().Parse(context.Background(), []byte(src), "Holder.java")
	require.NoError(t, err)
	require.Len(t, result.Types, 1)

	arg := result.Types[0].Extends.Args[0]
	assert.Equal(t, RefPrimitive, arg.Kind)
	assert.Equal(t, "int", arg.Name)
	assert.Equal(t, 1, arg.Dims)
	assert.Equal(t, "", result.Package)
}

func TestJavaParser_Errors(t *testing.T) {
	p := NewJavaParser(WithMaxFileSize(64))
	ctx := context.Background()

	t.Run("too large", func(t *testing.T) {
		_, err := p.Parse(ctx, []byte(strings.Repeat("a", 65)), "Big.java")
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		_, err := p.Parse(ctx, []byte{0xff, 0xfe, 0xfd}, "Bad.java")
		assert.ErrorIs(t, err, ErrInvalidContent)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.Parse(canceled, []byte("class A {}"), "A.java")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("syntax errors are partial", func(t *testing.T) {
		src := "class Good extends Base<String> {}\nclass Broken extends {"
		result, err := NewJavaParser().Parse(ctx, []byte(src), "Broken.java")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Errors)
		require.NotEmpty(t, result.Types)
		assert.Equal(t, "Good", result.Types[0].Name)
	})
}

func TestParseResult_JSON(t *testing.T) {
	result := parseSample(t)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded ParseResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Validate())
	assert.Equal(t, result.Types[0].Implements[0].String(), decoded.Types[0].Implements[0].String())
	assert.Equal(t, result.TypeCount(), decoded.TypeCount())
}

func TestParseResult_Validate(t *testing.T) {
	valid := func() *ParseResult {
		return &ParseResult{
			FilePath: "A.java",
			Language: "java",
			Types: []*TypeDecl{{
				Name:       "A",
				Kind:       DeclClass,
				TypeParams: []TypeParamDecl{{Name: "T"}},
				Extends:    &TypeRef{Kind: RefNamed, Name: "Base", Args: []*TypeRef{{Kind: RefWildcard}}},
			}},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(r *ParseResult)
	}{
		{"empty path", func(r *ParseResult) { r.FilePath = "" }},
		{"empty language", func(r *ParseResult) { r.Language = "" }},
		{"unnamed type", func(r *ParseResult) { r.Types[0].Name = "" }},
		{"unknown kind", func(r *ParseResult) { r.Types[0].Kind = "struct" }},
		{"duplicate param", func(r *ParseResult) {
			r.Types[0].TypeParams = append(r.Types[0].TypeParams, TypeParamDecl{Name: "T"})
		}},
		{"wildcard supertype", func(r *ParseResult) { r.Types[0].Extends = &TypeRef{Kind: RefWildcard} }},
		{"empty import", func(r *ParseResult) { r.Imports = []Import{{Line: 1}} }},
		{"nested member", func(r *ParseResult) { r.Types[0].Members = []*TypeDecl{{Kind: DeclClass}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			assert.ErrorIs(t, r.Validate(), ErrInvalidResult)
		})
	}
}

func TestParserRegistry(t *testing.T) {
	r := DefaultRegistry()

	p, ok := r.GetByExtension(".java")
	require.True(t, ok)
	assert.Equal(t, "java", p.Language())

	_, ok = r.GetByLanguage("java")
	assert.True(t, ok)
	_, ok = r.GetByExtension(".kt")
	assert.False(t, ok)
	assert.Equal(t, []string{".java"}, r.Extensions())

	r.Register(nil)
	assert.Equal(t, []string{".java"}, r.Extensions())
}

func TestParseError(t *testing.T) {
	assert.Equal(t, "A.java:3:4: bad", NewParseError("A.java", 3, 4, "bad").Error())
	assert.Equal(t, "A.java:3: bad", NewParseError("A.java", 3, 0, "bad").Error())
	assert.Equal(t, "A.java: bad", NewParseError("A.java", 0, 0, "bad").Error())

	wrapped := WrapParseError(ErrParseFailed, "A.java")
	assert.True(t, IsParseError(wrapped))
	assert.ErrorIs(t, wrapped, ErrParseFailed)
	assert.Same(t, wrapped, WrapParseError(wrapped, "B.java"))
	assert.Nil(t, WrapParseError(nil, "A.java"))
}
