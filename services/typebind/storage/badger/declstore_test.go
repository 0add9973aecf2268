// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/typebind/services/typebind/ast"
)

func newTestStore(t *testing.T) *DeclStore {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDeclStore(db)
}

func sampleResult(path, content string) *ast.ParseResult {
	return &ast.ParseResult{
		FilePath: path,
		Language: "java",
		Hash:     ast.ContentHash([]byte(content)),
		Package:  "com.acme",
		Imports:  []ast.Import{{Path: "java.util.List", Line: 3}},
		Types: []*ast.TypeDecl{{
			Name:       "Repo",
			Kind:       ast.DeclClass,
			TypeParams: []ast.TypeParamDecl{{Name: "T"}},
		}},
	}
}

func TestDeclStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	result := sampleResult("src/Repo.java", "class Repo<T> {}")

	require.NoError(t, store.Put(ctx, "/proj", result))

	got, ok, err := store.Get(ctx, "/proj", "src/Repo.java", result.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "com.acme", got.Package)
	require.Len(t, got.Types, 1)
	assert.Equal(t, "Repo", got.Types[0].Name)
	assert.Equal(t, "T", got.Types[0].TypeParams[0].Name)
}

func TestDeclStore_Misses(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	result := sampleResult("src/Repo.java", "class Repo<T> {}")
	require.NoError(t, store.Put(ctx, "/proj", result))

	t.Run("stale hash", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "/proj", "src/Repo.java", ast.ContentHash([]byte("changed")))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other root", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "/other", "src/Repo.java", result.Hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing path", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "/proj", "src/Nope.java", result.Hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty key", func(t *testing.T) {
		_, _, err := store.Get(ctx, "", "src/Repo.java", result.Hash)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := store.Get(cctx, "/proj", "src/Repo.java", result.Hash)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDeclStore_PathsAndPrune(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, p := range []string{"a/A.java", "b/B.java", "c/C.java"} {
		require.NoError(t, store.Put(ctx, "/proj", sampleResult(p, p)))
	}
	require.NoError(t, store.Put(ctx, "/proj2", sampleResult("a/A.java", "x")))

	paths, err := store.Paths(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/A.java", "b/B.java", "c/C.java"}, paths)

	removed, err := store.Prune(ctx, "/proj", map[string]struct{}{"b/B.java": {}})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	paths, err = store.Paths(ctx, "/proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/B.java"}, paths)

	other, err := store.Paths(ctx, "/proj2")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/A.java"}, other, "prune is scoped to one root")
}

func TestDeclStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Path = dir
	cfg.SyncWrites = false

	db, err := Open(cfg)
	require.NoError(t, err)
	result := sampleResult("Repo.java", "class Repo<T> {}")
	require.NoError(t, NewDeclStore(db).Put(ctx, "/proj", result))
	require.NoError(t, db.Close())

	db, err = Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	_, ok, err := NewDeclStore(db).Get(ctx, "/proj", "Repo.java", result.Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(DefaultConfig())
	assert.Error(t, err)
}
