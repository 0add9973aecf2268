// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupe(t *testing.T) {
	in := []Change{
		{Path: "A.java", Op: OpCreate},
		{Path: "B.java", Op: OpWrite},
		{Path: "A.java", Op: OpWrite},
		{Path: "A.java", Op: OpRemove},
	}
	out := dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, Change{Path: "A.java", Op: OpRemove}, out[0])
	assert.Equal(t, "B.java", out[1].Path)
}

func TestAccepts(t *testing.T) {
	w, err := New(t.TempDir(), nil, DefaultOptions())
	require.NoError(t, err)
	defer w.Stop()

	tests := []struct {
		path string
		want bool
	}{
		{"/p/src/Repo.java", true},
		{"/p/src/Repo.kt", false},
		{"/p/src/.Repo.java.swp", false},
		{"/p/target", false},
		{"/p/src/Repo.java~", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.accepts(tt.path), tt.path)
	}
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", Op(42).String())
}

func TestWatcher_DeliversJavaChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	batches := make(chan []Change, 4)
	opts := DefaultOptions()
	opts.Debounce = 50 * time.Millisecond

	w, err := New(root, func(c []Change) { batches <- c }, opts)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	assert.ErrorIs(t, w.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "notes.txt"), []byte("x"), 0o644))
	javaPath := filepath.Join(root, "src", "Repo.java")
	require.NoError(t, os.WriteFile(javaPath, []byte("class Repo {}"), 0o644))

	select {
	case batch := <-batches:
		paths := make([]string, len(batch))
		for i, c := range batch {
			paths[i] = c.Path
		}
		assert.Equal(t, []string{javaPath}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}
}

func TestNew_MissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "absent"), nil, DefaultOptions())
	require.NoError(t, err)
	defer w.Stop()
	assert.Error(t, w.Start(context.Background()))
}

func TestWatcher_Done(t *testing.T) {
	w, err := New(t.TempDir(), nil, DefaultOptions())
	require.NoError(t, err)

	select {
	case <-w.Done():
		t.Fatal("done before Stop")
	default:
	}

	w.Stop()
	w.Stop()
	select {
	case <-w.Done():
	default:
		t.Fatal("not done after Stop")
	}
}
