// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hierarchy builds a type universe from parsed declarations.
//
// The Builder declares every parsed type under its canonical name, resolves
// the names written in type parameter bounds and supertype clauses with
// Java's scoping rules, and attaches the resulting type expressions to a
// typeexpr.Universe. Names that resolve nowhere become external placeholder
// classes, so a partially indexed project still yields a usable universe.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/typebind/services/typebind/ast"
	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

var tracer = otel.Tracer("typebind.hierarchy")

const (
	enumName   = "java.lang.Enum"
	recordName = "java.lang.Record"
)

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// IncludeStubs declares the embedded JDK stubs before user sources.
	// Default: true.
	IncludeStubs bool

	// Logger receives build diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// BuilderOption configures BuilderOptions.
type BuilderOption func(*BuilderOptions)

// WithStubs enables or disables the JDK stubs.
func WithStubs(enabled bool) BuilderOption {
	return func(o *BuilderOptions) {
		o.IncludeStubs = enabled
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// Builder constructs universes from parse results.
//
// Thread Safety: Safe for concurrent use. Each Build call has its own state.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := BuilderOptions{IncludeStubs: true, Logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{options: options}
}

// declInfo tracks one declaration through the build phases.
type declInfo struct {
	decl      *ast.TypeDecl
	file      *ast.ParseResult
	class     *typeexpr.Class
	enclosing []*declInfo
	stub      bool
}

type buildState struct {
	universe  *typeexpr.Universe
	result    *BuildResult
	decls     []*declInfo
	externals map[string]struct{}
}

// Build constructs a frozen universe.
//
// Description:
//
//	Runs three phases over the stubs (if enabled) followed by results in
//	the given order:
//
//	 1. DECLARE: every type, including member types, under its canonical
//	    name "pkg.Outer.Inner". A second declaration of a name is a file
//	    error and the first one wins.
//	 2. PARAMETERS: declared type parameters.
//	 3. SUPERTYPES: parameter bounds, superclass and superinterfaces, with
//	    implicit supertypes for classes (Object), enums (Enum<Self>) and
//	    records (Record).
//
//	The universe is frozen afterwards.
//
// Inputs:
//   - ctx: Checked between files.
//   - results: Parse results. Nil or invalid entries become file errors.
//
// Outputs:
//   - *BuildResult: Never nil. Incomplete when ctx was cancelled.
//   - error: Non-nil only if the stubs could not be loaded.
func (b *Builder) Build(ctx context.Context, results []*ast.ParseResult) (*BuildResult, error) {
	ctx, span := tracer.Start(ctx, "Builder.Build",
		trace.WithAttributes(attribute.Int("hierarchy.files", len(results))))
	defer span.End()

	start := time.Now()
	state := &buildState{
		universe:  typeexpr.NewUniverse(),
		result:    &BuildResult{FileErrors: make([]FileError, 0)},
		externals: make(map[string]struct{}),
	}
	state.result.Universe = state.universe

	if b.options.IncludeStubs {
		stubs, err := Stubs()
		if err != nil {
			return nil, fmt.Errorf("load jdk stubs: %w", err)
		}
		for _, r := range stubs {
			b.declareFile(state, r, true)
		}
	}

	for i, r := range results {
		if err := ctx.Err(); err != nil {
			return b.finish(span, state, start, true), nil
		}
		if r == nil {
			state.result.FileErrors = append(state.result.FileErrors, FileError{
				FilePath: fmt.Sprintf("result[%d]", i),
				Err:      errors.New("nil parse result"),
			})
			state.result.Stats.FilesFailed++
			continue
		}
		if err := r.Validate(); err != nil {
			state.result.FileErrors = append(state.result.FileErrors, FileError{FilePath: r.FilePath, Err: err})
			state.result.Stats.FilesFailed++
			continue
		}
		b.declareFile(state, r, false)
		state.result.Stats.FilesProcessed++
	}

	for _, info := range state.decls {
		b.declareParams(state, info)
	}

	for i, info := range state.decls {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return b.finish(span, state, start, true), nil
			}
		}
		b.attachSupertypes(state, info)
	}

	state.universe.Freeze()
	return b.finish(span, state, start, false), nil
}

func (b *Builder) finish(span trace.Span, state *buildState, start time.Time, incomplete bool) *BuildResult {
	res := state.result
	res.Incomplete = incomplete
	res.Stats.ExternalTypes = len(state.externals)
	res.Externals = make([]string, 0, len(state.externals))
	for name := range state.externals {
		res.Externals = append(res.Externals, name)
	}
	sort.Strings(res.Externals)
	res.Stats.DurationMilli = time.Since(start).Milliseconds()

	span.SetAttributes(
		attribute.Int("hierarchy.types", res.Stats.TypesDeclared),
		attribute.Int("hierarchy.externals", res.Stats.ExternalTypes),
		attribute.Int("hierarchy.file_errors", len(res.FileErrors)),
		attribute.Bool("hierarchy.incomplete", incomplete),
	)
	b.options.Logger.Debug("hierarchy built",
		slog.Int("types", res.Stats.TypesDeclared),
		slog.Int("stub_types", res.Stats.StubTypes),
		slog.Int("externals", res.Stats.ExternalTypes),
		slog.Int("file_errors", len(res.FileErrors)),
		slog.Bool("incomplete", incomplete),
	)
	return res
}

// declareFile declares every type in r, depth first.
func (b *Builder) declareFile(state *buildState, r *ast.ParseResult, stub bool) {
	for _, top := range r.Types {
		b.declareTree(state, r, top, nil, stub)
	}
}

func (b *Builder) declareTree(state *buildState, r *ast.ParseResult, d *ast.TypeDecl, enclosing []*declInfo, stub bool) {
	name := canonicalName(r.Package, enclosing, d.Name)
	cls, err := state.universe.Declare(name, declKind(d.Kind))
	if err != nil {
		state.result.FileErrors = append(state.result.FileErrors, FileError{
			FilePath: r.FilePath,
			Err:      fmt.Errorf("line %d: declare %s: %w", d.StartLine, name, err),
		})
		return
	}
	cls.File = r.FilePath
	cls.Line = d.StartLine

	info := &declInfo{decl: d, file: r, class: cls, enclosing: enclosing, stub: stub}
	state.decls = append(state.decls, info)
	if stub {
		state.result.Stats.StubTypes++
	} else {
		state.result.Stats.TypesDeclared++
	}

	inner := append(enclosing[:len(enclosing):len(enclosing)], info)
	for _, m := range d.Members {
		b.declareTree(state, r, m, inner, stub)
	}
}

func (b *Builder) declareParams(state *buildState, info *declInfo) {
	if len(info.decl.TypeParams) == 0 {
		return
	}
	names := make([]string, len(info.decl.TypeParams))
	for i, p := range info.decl.TypeParams {
		names[i] = p.Name
	}
	if _, err := state.universe.SetTypeParams(info.class, names...); err != nil {
		b.fileError(state, info, fmt.Errorf("type parameters of %s: %w", info.class, err))
	}
}

func (b *Builder) attachSupertypes(state *buildState, info *declInfo) {
	s := newScope(state, info)
	u := state.universe

	params := u.TypeParameters(info.class)
	for i, p := range info.decl.TypeParams {
		if len(p.Bounds) == 0 || i >= len(params) {
			continue
		}
		bounds := make([]typeexpr.Expr, len(p.Bounds))
		for j, ref := range p.Bounds {
			bounds[j] = s.expr(ref)
		}
		if err := u.SetBounds(params[i], bounds...); err != nil {
			b.fileError(state, info, fmt.Errorf("bounds of %s.%s: %w", info.class, p.Name, err))
		}
	}

	if super := b.superclass(s, info); super != nil {
		if err := u.SetSupertype(info.class, super); err != nil {
			b.fileError(state, info, fmt.Errorf("superclass of %s: %w", info.class, err))
		}
	}

	for _, ref := range info.decl.Implements {
		if err := u.AddInterface(info.class, s.expr(ref)); err != nil {
			b.fileError(state, info, fmt.Errorf("superinterface of %s: %w", info.class, err))
		}
	}
}

// superclass returns the declared or implicit superclass expression, or nil
// for interfaces, annotations and java.lang.Object.
func (b *Builder) superclass(s *scope, info *declInfo) typeexpr.Expr {
	u := s.state.universe
	switch info.decl.Kind {
	case ast.DeclInterface, ast.DeclAnnotation:
		return nil
	case ast.DeclEnum:
		if enum, ok := u.Lookup(enumName); ok && len(u.TypeParameters(enum)) == 1 {
			return typeexpr.NewParameterizedExpr(enum, typeexpr.NewClassExpr(info.class))
		}
	case ast.DeclRecord:
		if rec, ok := u.Lookup(recordName); ok {
			return typeexpr.NewClassExpr(rec)
		}
	case ast.DeclClass:
		if info.decl.Extends != nil {
			return s.expr(info.decl.Extends)
		}
	}
	if info.class == u.Object() {
		return nil
	}
	return typeexpr.NewClassExpr(u.Object())
}

func (b *Builder) fileError(state *buildState, info *declInfo, err error) {
	state.result.FileErrors = append(state.result.FileErrors, FileError{FilePath: info.file.FilePath, Err: err})
}

func canonicalName(pkg string, enclosing []*declInfo, name string) string {
	if len(enclosing) > 0 {
		return enclosing[len(enclosing)-1].class.Name + "." + name
	}
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func declKind(k ast.DeclKind) typeexpr.Kind {
	switch k {
	case ast.DeclInterface:
		return typeexpr.KindInterface
	case ast.DeclEnum:
		return typeexpr.KindEnum
	case ast.DeclRecord:
		return typeexpr.KindRecord
	case ast.DeclAnnotation:
		return typeexpr.KindAnnotation
	default:
		return typeexpr.KindClass
	}
}
