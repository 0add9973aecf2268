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
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

var (
	memoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "typebind",
		Subsystem: "resolve",
		Name:      "memo_lookups_total",
		Help:      "Memoized resolution lookups by result (hit, miss).",
	}, []string{"result"})

	memoEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "typebind",
		Subsystem: "resolve",
		Name:      "memo_evictions_total",
		Help:      "Contracts evicted from the resolution memo.",
	})
)

// memoKey identifies one resolution.
type memoKey struct {
	ancestor *typeexpr.Class
	leaf     *typeexpr.Class
	position int
}

// Memo wraps a Resolver with an LRU of resolved contracts.
//
// Description:
//
//	Concurrent misses on the same key are collapsed into a single resolution
//	with singleflight. Successful contracts are stored with last-writer-wins;
//	resolution is deterministic so every writer stores an equivalent value.
//	Errors are never cached. Cached contracts are detached from the chain
//	they were resolved on; Expand rebuilds it on demand.
//
// Thread Safety: Safe for concurrent use.
type Memo struct {
	resolver *Resolver
	cache    *lruCache[memoKey, *Contract]
	flight   singleflight.Group
}

// NewMemo creates a Memo over r holding at most capacity contracts.
func NewMemo(r *Resolver, capacity int) *Memo {
	return &Memo{
		resolver: r,
		cache:    newLRUCache[memoKey, *Contract](capacity),
	}
}

// Resolver returns the wrapped resolver.
func (m *Memo) Resolver() *Resolver {
	return m.resolver
}

// Resolve is Resolver.Resolve with memoization.
func (m *Memo) Resolve(ancestor, leaf *typeexpr.Class, position int) (*Contract, error) {
	key := memoKey{ancestor: ancestor, leaf: leaf, position: position}
	if c, ok := m.cache.get(key); ok {
		memoLookups.WithLabelValues("hit").Inc()
		return c, nil
	}
	memoLookups.WithLabelValues("miss").Inc()

	v, err, _ := m.flight.Do(flightKey(key), func() (any, error) {
		c, err := m.resolver.Resolve(ancestor, leaf, position)
		if err != nil {
			return nil, err
		}
		c = c.detach()
		if m.cache.set(key, c) {
			memoEvictions.Inc()
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Contract), nil
}

// ResolveClass is Resolver.ResolveClass with memoization.
func (m *Memo) ResolveClass(ancestor, leaf *typeexpr.Class, position int) (*typeexpr.Class, error) {
	c, err := m.Resolve(ancestor, leaf, position)
	if err != nil {
		return nil, err
	}
	return m.resolver.Erase(c, ancestor, leaf)
}

// ResolveExpression is Resolver.ResolveExpression with memoization.
func (m *Memo) ResolveExpression(ancestor, leaf *typeexpr.Class, position int) (typeexpr.Expr, error) {
	c, err := m.Resolve(ancestor, leaf, position)
	if err != nil {
		return nil, err
	}
	return m.resolver.Expand(c, ancestor, leaf)
}

// Len returns the number of cached contracts.
func (m *Memo) Len() int {
	return m.cache.len()
}

// Purge drops every cached contract.
func (m *Memo) Purge() {
	m.cache.purge()
}

// flightKey renders key for singleflight. Class names are unique within a
// universe and a Memo never spans universes.
func flightKey(k memoKey) string {
	return fmt.Sprintf("%s|%s|%d", k.ancestor, k.leaf, k.position)
}
