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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/typebind/services/typebind/ast"
)

const declPrefix = "decl/"

// ErrInvalidKey is returned for an empty project root or file path.
var ErrInvalidKey = errors.New("project root and file path are required")

// DeclStore persists parse results per project file.
//
// Description:
//
//	Entries are keyed by (projectRoot, relPath) and stored as JSON. A
//	lookup hits only when the stored content hash equals the caller's, so a
//	changed file is always re-parsed. Entries are written with the current
//	hash and overwrite older ones.
//
// Thread Safety: Safe for concurrent use.
type DeclStore struct {
	db *DB
}

// NewDeclStore wraps an open database.
func NewDeclStore(db *DB) *DeclStore {
	return &DeclStore{db: db}
}

func rootPrefix(root string) []byte {
	return []byte(declPrefix + root + "\x00")
}

func declKey(root, relPath string) []byte {
	return append(rootPrefix(root), relPath...)
}

// Get returns the stored result for relPath if its hash matches.
//
// Outputs:
//   - *ast.ParseResult: The cached result, nil on a miss.
//   - bool: True on a hit.
//   - error: Context, key or decode errors. A miss is not an error.
func (s *DeclStore) Get(ctx context.Context, root, relPath, hash string) (*ast.ParseResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if root == "" || relPath == "" {
		return nil, false, ErrInvalidKey
	}

	var result *ast.ParseResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(declKey(root, relPath))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var r ast.ParseResult
			if err := json.Unmarshal(val, &r); err != nil {
				return fmt.Errorf("decode %s: %w", relPath, err)
			}
			result = &r
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if result.Hash != hash {
		return nil, false, nil
	}
	return result, true, nil
}

// Put stores result under its FilePath.
func (s *DeclStore) Put(ctx context.Context, root string, result *ast.ParseResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result == nil {
		return errors.New("result must not be nil")
	}
	if root == "" || result.FilePath == "" {
		return ErrInvalidKey
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s: %w", result.FilePath, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(declKey(root, result.FilePath), data)
	})
}

// Delete removes the entry for relPath. Deleting a missing entry succeeds.
func (s *DeclStore) Delete(ctx context.Context, root, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if root == "" || relPath == "" {
		return ErrInvalidKey
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(declKey(root, relPath))
	})
}

// Paths returns the stored file paths for root in key order.
func (s *DeclStore) Paths(ctx context.Context, root string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := rootPrefix(root)
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			out = append(out, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return out, err
}

// Prune deletes every entry for root whose path is not in keep and returns
// the number removed.
func (s *DeclStore) Prune(ctx context.Context, root string, keep map[string]struct{}) (int, error) {
	paths, err := s.Paths(ctx, root)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if _, ok := keep[p]; ok {
			continue
		}
		if err := s.Delete(ctx, root, p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
