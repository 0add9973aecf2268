// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typebind

import (
	"time"

	"github.com/AleutianAI/typebind/services/typebind/hierarchy"
	"github.com/AleutianAI/typebind/services/typebind/resolve"
	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

// Resolve modes.
const (
	// ModeClass erases the binding to a concrete class.
	ModeClass = "class"

	// ModeExpression substitutes the binding into a full type expression.
	ModeExpression = "expression"
)

// InitRequest is the request body for POST /v1/typebind/init.
type InitRequest struct {
	// ProjectRoot is the absolute path to the Java source tree. Required.
	ProjectRoot string `json:"project_root" binding:"required"`

	// ExcludePatterns replaces the configured exclude globs when non-empty.
	ExcludePatterns []string `json:"exclude_patterns"`
}

// InitResponse is the response for POST /v1/typebind/init.
type InitResponse struct {
	// UniverseID identifies the project. It is stable across rebuilds.
	UniverseID string `json:"universe_id"`

	// BuildID is unique per build.
	BuildID string `json:"build_id"`

	// IsRefresh indicates an existing universe was replaced.
	IsRefresh bool `json:"is_refresh"`

	// FilesParsed counts files run through the parser.
	FilesParsed int `json:"files_parsed"`

	// FilesCached counts files served from the declaration store.
	FilesCached int `json:"files_cached"`

	// TypesDeclared counts project declarations, excluding stubs.
	TypesDeclared int `json:"types_declared"`

	// ExternalTypes counts unresolved names turned into placeholders.
	ExternalTypes int `json:"external_types"`

	// ParseTimeMs is the total init time in milliseconds.
	ParseTimeMs int64 `json:"parse_time_ms"`

	// Errors are non-fatal per-file problems.
	Errors []string `json:"errors,omitempty"`
}

// ResolveRequest is the request body for POST /v1/typebind/resolve.
type ResolveRequest struct {
	UniverseID string `json:"universe_id" binding:"required"`

	// Ancestor is the canonical name of the generic class, e.g. "java.util.List".
	Ancestor string `json:"ancestor" binding:"required"`

	// Leaf is the canonical name of the class to resolve through.
	Leaf string `json:"leaf" binding:"required"`

	// Position is the zero-based index into the ancestor's type parameters.
	Position int `json:"position"`

	// Mode is "class" (default) or "expression".
	Mode string `json:"mode"`

	// IncludeChain adds the inheritance chain to the response.
	IncludeChain bool `json:"include_chain"`

	// Candidate, when set, is a class name checked against the binding's
	// bounds. The verdict is returned in ResolveResponse.Accepts.
	Candidate string `json:"candidate,omitempty"`
}

// ResolveResponse is the response for POST /v1/typebind/resolve.
type ResolveResponse struct {
	Mode string `json:"mode"`

	// Kind is "class", "variable" or "wildcard".
	Kind string `json:"kind"`

	// Binding is the expression found at the binding site.
	Binding string `json:"binding"`

	// Class is the erased class. Set in class mode.
	Class string `json:"class,omitempty"`

	// Expression is the substituted expression. Set in expression mode.
	Expression string `json:"expression,omitempty"`

	// Approximate is true when the binding is a variable or wildcard, so
	// Class is an erased bound rather than an exact argument.
	Approximate bool `json:"approximate"`

	// Dims counts array dimensions around a variable or wildcard binding.
	Dims int `json:"dims,omitempty"`

	// Accepts reports whether the request's candidate satisfies the
	// binding. Nil when no candidate was given.
	Accepts *bool `json:"accepts,omitempty"`

	Chain []ChainNode `json:"chain,omitempty"`
}

// SubtypeRequest is the request body for POST /v1/typebind/subtype.
type SubtypeRequest struct {
	UniverseID string `json:"universe_id" binding:"required"`

	// Child and Base are type expressions in Java syntax, e.g.
	// "java.util.List<? extends java.lang.Number>". Type parameters are
	// written Owner#Name.
	Child string `json:"child" binding:"required"`
	Base  string `json:"base" binding:"required"`
}

// SubtypeResponse is the response for POST /v1/typebind/subtype.
type SubtypeResponse struct {
	Child   string `json:"child"`
	Base    string `json:"base"`
	Subtype bool   `json:"subtype"`
}

// ChainRequest is the request body for POST /v1/typebind/chain.
type ChainRequest struct {
	UniverseID string `json:"universe_id" binding:"required"`
	Ancestor   string `json:"ancestor" binding:"required"`
	Leaf       string `json:"leaf" binding:"required"`
}

// ChainNode is one step of an inheritance chain.
type ChainNode struct {
	// Class is the canonical name of the node's class.
	Class string `json:"class"`

	// Slot is "extends" or "implements[i]".
	Slot string `json:"slot"`

	// Supertype is the expression the slot names.
	Supertype string `json:"supertype"`
}

// ChainResponse is the response for POST /v1/typebind/chain.
type ChainResponse struct {
	Ancestor string `json:"ancestor"`
	Leaf     string `json:"leaf"`

	// Nodes run from the ancestor's direct subtype down to the leaf.
	Nodes []ChainNode `json:"nodes"`
}

// TypeParamInfo describes a declared type parameter.
type TypeParamInfo struct {
	Name   string   `json:"name"`
	Bounds []string `json:"bounds,omitempty"`
}

// TypeInfo describes one class, returned by GET /v1/typebind/types/:name.
type TypeInfo struct {
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	TypeParams []TypeParamInfo `json:"type_params,omitempty"`
	Supertype  string          `json:"supertype,omitempty"`
	Interfaces []string        `json:"interfaces,omitempty"`
	File       string          `json:"file,omitempty"`
	Line       int             `json:"line,omitempty"`
}

// TypeSummary is one entry of GET /v1/typebind/types.
type TypeSummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file,omitempty"`
}

// TypesResponse is the response for GET /v1/typebind/types.
type TypesResponse struct {
	UniverseID string        `json:"universe_id"`
	Types      []TypeSummary `json:"types"`
	Total      int           `json:"total"`
}

// HealthResponse is the response for GET /v1/typebind/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/typebind/ready.
type ReadyResponse struct {
	Ready         bool `json:"ready"`
	UniverseCount int  `json:"universe_count"`
	StoreEnabled  bool `json:"store_enabled"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CachedUniverse is a built universe with its resolver.
type CachedUniverse struct {
	ID          string
	BuildID     string
	ProjectRoot string
	Excludes    []string

	Universe *typeexpr.Universe
	Memo     *resolve.Memo
	Subtypes *resolve.SubtypeChecker
	Build    *hierarchy.BuildResult

	BuiltAtMilli   int64
	ExpiresAtMilli int64

	builtAt time.Time
}
