// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package typebind provides the typebind HTTP service.
//
// The service builds type universes from Java source trees and answers
// generic type-parameter resolution queries against them:
//   - Initializing and caching universes per project root
//   - Resolving an ancestor's type parameter through a leaf class
//   - Inspecting inheritance chains and declared types
//   - Re-indexing projects when their sources change
package typebind

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/typebind/services/typebind/ast"
	"github.com/AleutianAI/typebind/services/typebind/hierarchy"
	"github.com/AleutianAI/typebind/services/typebind/resolve"
	"github.com/AleutianAI/typebind/services/typebind/storage/badger"
	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
	"github.com/AleutianAI/typebind/services/typebind/watch"
)

// ServiceVersion is the typebind service version.
const ServiceVersion = "0.1.0"

var tracer = otel.Tracer("typebind.service")

// ServiceConfig configures the typebind service.
type ServiceConfig struct {
	// MaxInitDuration bounds a single Init. Default: 60s.
	MaxInitDuration time.Duration

	// MaxProjectFiles is the maximum number of source files. Default: 20000.
	MaxProjectFiles int

	// MaxProjectSize is the maximum total source size in bytes. Default: 200MB.
	MaxProjectSize int64

	// MaxCachedUniverses is how many universes stay cached. Default: 5.
	MaxCachedUniverses int

	// UniverseTTL expires cached universes. Default: 0 (no expiry).
	UniverseTTL time.Duration

	// AllowedRoots restricts project roots to these directories when set.
	AllowedRoots []string

	// Excludes are glob patterns matched against relative paths and base
	// names. Used when an Init call passes none.
	Excludes []string

	// ParseWorkers bounds parallel parsing. Zero means runtime.NumCPU().
	ParseWorkers int

	// MemoCapacity is the per-universe resolution memo size. Default: 4096.
	MemoCapacity int

	// IncludeStubs declares the built-in JDK stubs. Default: true.
	IncludeStubs bool

	// WatchOnInit starts watching a project after its first successful Init.
	WatchOnInit bool

	// WatchDebounce is the quiet period before a re-index. Default: 500ms.
	WatchDebounce time.Duration
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxInitDuration:    60 * time.Second,
		MaxProjectFiles:    20000,
		MaxProjectSize:     200 * 1024 * 1024,
		MaxCachedUniverses: 5,
		Excludes:           []string{"build", "target", ".git", "node_modules"},
		MemoCapacity:       4096,
		IncludeStubs:       true,
		WatchDebounce:      500 * time.Millisecond,
	}
}

// Service is the typebind service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Init calls for the same project
//	root are serialised: a second concurrent call fails fast with
//	ErrInitInProgress.
type Service struct {
	config    ServiceConfig
	universes map[string]*CachedUniverse
	mu        sync.RWMutex
	initLocks sync.Map // projectRoot -> *sync.Mutex

	registry *ast.ParserRegistry
	builder  *hierarchy.Builder
	store    *badger.DeclStore
	logger   *slog.Logger

	lifetime context.Context
	cancel   context.CancelFunc
	watchMu  sync.Mutex
	watchers map[string]*watch.Watcher
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore enables the declaration store so unchanged files are not
// re-parsed.
func WithStore(store *badger.DeclStore) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger sets the service logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a service with no cached universes.
func NewService(config ServiceConfig, opts ...ServiceOption) *Service {
	lifetime, cancel := context.WithCancel(context.Background())
	s := &Service{
		config:    config,
		universes: make(map[string]*CachedUniverse),
		registry:  ast.DefaultRegistry(),
		logger:    slog.Default(),
		lifetime:  lifetime,
		cancel:    cancel,
		watchers:  make(map[string]*watch.Watcher),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("service", "typebind"))
	s.builder = hierarchy.NewBuilder(
		hierarchy.WithStubs(config.IncludeStubs),
		hierarchy.WithLogger(s.logger),
	)
	return s
}

// Close stops every watcher. Cached universes stay readable.
func (s *Service) Close() {
	s.cancel()
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for root, w := range s.watchers {
		w.Stop()
		delete(s.watchers, root)
	}
}

// UniverseID returns the stable universe ID for a project root.
func UniverseID(projectRoot string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(projectRoot)))
	return hex.EncodeToString(hash[:])[:16]
}

// Init builds and caches the universe for a project.
//
// Description:
//
//	Walks projectRoot for files with a registered parser, parses them in
//	parallel (reusing stored parse results whose content hash still
//	matches), builds a frozen universe with the JDK stubs and caches it
//	under UniverseID(projectRoot). An existing universe for the same root
//	is replaced.
//
// Inputs:
//   - ctx: Cancellation. Bounded further by MaxInitDuration.
//   - projectRoot: Absolute path to the source tree.
//   - excludes: Glob patterns. Empty uses the configured defaults.
//
// Outputs:
//   - *InitResponse: Build statistics and non-fatal per-file errors.
//   - error: Non-nil if validation, limits or the build fail.
//
// Errors:
//
//	ErrRelativePath, ErrPathTraversal, ErrPathNotAllowed - Invalid root
//	ErrProjectTooLarge - MaxProjectFiles or MaxProjectSize exceeded
//	ErrInitInProgress - Another Init is running for this root
//	ErrInitTimeout - MaxInitDuration elapsed
func (s *Service) Init(ctx context.Context, projectRoot string, excludes []string) (*InitResponse, error) {
	if err := s.validateProjectRoot(projectRoot); err != nil {
		return nil, err
	}
	projectRoot = filepath.Clean(projectRoot)
	if len(excludes) == 0 {
		excludes = s.config.Excludes
	}

	lock := s.getInitLock(projectRoot)
	if !lock.TryLock() {
		return nil, ErrInitInProgress
	}
	defer lock.Unlock()

	ctx, span := tracer.Start(ctx, "Service.Init",
		trace.WithAttributes(attribute.String("typebind.project_root", projectRoot)))
	defer span.End()

	if s.config.MaxInitDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.MaxInitDuration)
		defer cancel()
	}

	start := time.Now()
	id := UniverseID(projectRoot)

	s.mu.RLock()
	_, isRefresh := s.universes[id]
	s.mu.RUnlock()

	files, err := s.collectFiles(ctx, projectRoot, excludes)
	if err != nil {
		return nil, s.initFailed(ctx, span, err)
	}

	parsed, err := s.parseFiles(ctx, projectRoot, files)
	if err != nil {
		return nil, s.initFailed(ctx, span, err)
	}

	build, err := s.builder.Build(ctx, parsed.results)
	if err != nil {
		return nil, s.initFailed(ctx, span, fmt.Errorf("build universe: %w", err))
	}
	if build.Incomplete {
		return nil, s.initFailed(ctx, span, ctx.Err())
	}

	s.pruneStore(ctx, projectRoot, files)

	now := time.Now()
	resolver := resolve.NewResolver(build.Universe)
	cached := &CachedUniverse{
		ID:           id,
		BuildID:      uuid.NewString(),
		ProjectRoot:  projectRoot,
		Excludes:     excludes,
		Universe:     build.Universe,
		Memo:         resolve.NewMemo(resolver, s.config.MemoCapacity),
		Subtypes:     resolve.NewSubtypeChecker(resolver),
		Build:        build,
		BuiltAtMilli: now.UnixMilli(),
		builtAt:      now,
	}
	if s.config.UniverseTTL > 0 {
		cached.ExpiresAtMilli = now.Add(s.config.UniverseTTL).UnixMilli()
	}

	s.mu.Lock()
	s.universes[id] = cached
	s.evictIfNeeded()
	s.mu.Unlock()

	errs := parsed.errors
	for _, fe := range build.FileErrors {
		errs = append(errs, fe.Error())
	}

	resp := &InitResponse{
		UniverseID:    id,
		BuildID:       cached.BuildID,
		IsRefresh:     isRefresh,
		FilesParsed:   parsed.parsed,
		FilesCached:   parsed.cached,
		TypesDeclared: build.Stats.TypesDeclared,
		ExternalTypes: build.Stats.ExternalTypes,
		ParseTimeMs:   time.Since(start).Milliseconds(),
		Errors:        errs,
	}

	span.SetAttributes(
		attribute.Int("typebind.files_parsed", resp.FilesParsed),
		attribute.Int("typebind.files_cached", resp.FilesCached),
		attribute.Int("typebind.types_declared", resp.TypesDeclared),
	)
	s.logger.Info("universe built",
		slog.String("universe_id", id),
		slog.String("project_root", projectRoot),
		slog.Int("files_parsed", resp.FilesParsed),
		slog.Int("files_cached", resp.FilesCached),
		slog.Int("types_declared", resp.TypesDeclared),
		slog.Int("external_types", resp.ExternalTypes),
		slog.Int64("duration_ms", resp.ParseTimeMs))

	if s.config.WatchOnInit {
		if err := s.Watch(s.lifetime, projectRoot); err != nil {
			s.logger.Warn("could not watch project",
				slog.String("project_root", projectRoot),
				slog.String("error", err.Error()))
		}
	}

	return resp, nil
}

// initFailed maps deadline errors to ErrInitTimeout and records err on span.
func (s *Service) initFailed(ctx context.Context, span trace.Span, err error) error {
	if err == nil {
		err = errors.New("build cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrInitTimeout, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// projectFile is a source file selected for parsing.
type projectFile struct {
	abs string
	rel string
}

// collectFiles walks root for parseable files, enforcing project limits.
func (s *Service) collectFiles(ctx context.Context, root string, excludes []string) ([]projectFile, error) {
	var (
		files     []projectFile
		totalSize int64
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if excluded(rel, excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := s.registry.GetByExtension(filepath.Ext(path)); !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		totalSize += info.Size()
		if s.config.MaxProjectSize > 0 && totalSize > s.config.MaxProjectSize {
			return fmt.Errorf("%w: more than %d bytes", ErrProjectTooLarge, s.config.MaxProjectSize)
		}
		if s.config.MaxProjectFiles > 0 && len(files) >= s.config.MaxProjectFiles {
			return fmt.Errorf("%w: more than %d files", ErrProjectTooLarge, s.config.MaxProjectFiles)
		}

		files = append(files, projectFile{abs: path, rel: rel})
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrProjectTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("walking project: %w", err)
	}
	return files, nil
}

// excluded reports whether rel or its base name matches a pattern.
func excluded(rel string, patterns []string) bool {
	base := filepath.Base(rel)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

type parsedProject struct {
	results []*ast.ParseResult
	parsed  int
	cached  int
	errors  []string
}

// parseFiles parses files concurrently, bounded by ParseWorkers.
//
// Per-file failures are collected as errors; only cancellation aborts.
func (s *Service) parseFiles(ctx context.Context, root string, files []projectFile) (*parsedProject, error) {
	results := make([]*ast.ParseResult, len(files))
	failures := make([]string, len(files))
	var parsed, cached atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i, f := range files {
		g.Go(func() error {
			r, fromStore, err := s.parseFile(gctx, root, f)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = fmt.Sprintf("%s: %v", f.rel, err)
				return nil
			}
			results[i] = r
			if fromStore {
				cached.Add(1)
			} else {
				parsed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &parsedProject{
		results: make([]*ast.ParseResult, 0, len(files)),
		parsed:  int(parsed.Load()),
		cached:  int(cached.Load()),
	}
	for i, r := range results {
		if failures[i] != "" {
			out.errors = append(out.errors, failures[i])
		}
		if r == nil {
			continue
		}
		out.results = append(out.results, r)
		for _, msg := range r.Errors {
			out.errors = append(out.errors, fmt.Sprintf("%s: %s", r.FilePath, msg))
		}
	}
	return out, nil
}

// parseFile returns the stored result when the content is unchanged and
// parses otherwise.
func (s *Service) parseFile(ctx context.Context, root string, f projectFile) (*ast.ParseResult, bool, error) {
	content, err := os.ReadFile(f.abs)
	if err != nil {
		return nil, false, err
	}

	hash := ast.ContentHash(content)
	if s.store != nil {
		r, ok, err := s.store.Get(ctx, root, f.rel, hash)
		if err != nil {
			s.logger.Warn("declaration store read failed",
				slog.String("file", f.rel), slog.String("error", err.Error()))
		} else if ok {
			return r, true, nil
		}
	}

	parser, ok := s.registry.GetByExtension(filepath.Ext(f.rel))
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ast.ErrUnsupportedLanguage, filepath.Ext(f.rel))
	}
	r, err := parser.Parse(ctx, content, f.rel)
	if err != nil {
		return nil, false, err
	}

	if s.store != nil {
		if err := s.store.Put(ctx, root, r); err != nil {
			s.logger.Warn("declaration store write failed",
				slog.String("file", f.rel), slog.String("error", err.Error()))
		}
	}
	return r, false, nil
}

// pruneStore drops stored results for files that no longer exist.
func (s *Service) pruneStore(ctx context.Context, root string, files []projectFile) {
	if s.store == nil {
		return
	}
	keep := make(map[string]struct{}, len(files))
	for _, f := range files {
		keep[f.rel] = struct{}{}
	}
	removed, err := s.store.Prune(ctx, root, keep)
	if err != nil {
		s.logger.Warn("declaration store prune failed", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		s.logger.Debug("pruned declaration store", slog.Int("removed", removed))
	}
}

func (s *Service) workers() int {
	if s.config.ParseWorkers > 0 {
		return s.config.ParseWorkers
	}
	return runtime.NumCPU()
}

// GetUniverse returns a cached universe by ID.
//
// Outputs:
//   - *CachedUniverse: The universe.
//   - error: ErrUniverseNotFound or ErrUniverseExpired.
func (s *Service) GetUniverse(id string) (*CachedUniverse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached, ok := s.universes[id]
	if !ok {
		return nil, ErrUniverseNotFound
	}
	if cached.ExpiresAtMilli > 0 && time.Now().UnixMilli() > cached.ExpiresAtMilli {
		return nil, ErrUniverseExpired
	}
	return cached, nil
}

// UniverseCount returns the number of cached universes.
func (s *Service) UniverseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.universes)
}

// StoreEnabled reports whether a declaration store is configured.
func (s *Service) StoreEnabled() bool {
	return s.store != nil
}

// lookup finds a class by canonical name.
func (u *CachedUniverse) lookup(name string) (*typeexpr.Class, error) {
	c, ok := u.Universe.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, name)
	}
	return c, nil
}

func (u *CachedUniverse) parse(expr string) (typeexpr.Expr, error) {
	e, err := typeexpr.ParseExpr(u.Universe, expr)
	if errors.Is(err, typeexpr.ErrUnknownClass) {
		return nil, fmt.Errorf("%w: %v", ErrTypeNotFound, err)
	}
	return e, err
}

func (u *CachedUniverse) lookupPair(ancestor, leaf string) (*typeexpr.Class, *typeexpr.Class, error) {
	a, err := u.lookup(ancestor)
	if err != nil {
		return nil, nil, err
	}
	l, err := u.lookup(leaf)
	if err != nil {
		return nil, nil, err
	}
	return a, l, nil
}

// Resolve answers which type a leaf binds to an ancestor's type parameter.
//
// Description:
//
//	Resolves through the universe's memo. In class mode the binding is
//	erased to a class; in expression mode type variables declared between
//	the binding site and the leaf are substituted.
//
// Inputs:
//   - ctx: Used for tracing.
//   - req: Universe, class names, position and mode.
//
// Outputs:
//   - *ResolveResponse: The binding.
//   - error: ErrUniverseNotFound, ErrTypeNotFound, ErrInvalidMode or a
//     *resolve.ResolutionError.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*ResolveResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeClass
	}
	if mode != ModeClass && mode != ModeExpression {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}

	cached, err := s.GetUniverse(req.UniverseID)
	if err != nil {
		return nil, err
	}
	ancestor, leaf, err := cached.lookupPair(req.Ancestor, req.Leaf)
	if err != nil {
		return nil, err
	}

	_, span := tracer.Start(ctx, "Service.Resolve", trace.WithAttributes(
		attribute.String("typebind.ancestor", ancestor.Name),
		attribute.String("typebind.leaf", leaf.Name),
		attribute.Int("typebind.position", req.Position),
		attribute.String("typebind.mode", mode),
	))
	defer span.End()

	contract, err := cached.Memo.Resolve(ancestor, leaf, req.Position)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resp := &ResolveResponse{
		Mode:        mode,
		Kind:        contract.Kind().String(),
		Binding:     contract.String(),
		Approximate: contract.Approximate(),
		Dims:        contract.Dims,
	}

	resolver := cached.Memo.Resolver()
	switch mode {
	case ModeClass:
		c, err := resolver.Erase(contract, ancestor, leaf)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		resp.Class = c.Name
	case ModeExpression:
		e, err := resolver.Expand(contract, ancestor, leaf)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		resp.Expression = e.String()
	}

	if req.Candidate != "" {
		cand, err := cached.lookup(req.Candidate)
		if err != nil {
			return nil, err
		}
		accepts := contract.Accepts(cached.Universe, cand)
		resp.Accepts = &accepts
		span.SetAttributes(attribute.Bool("typebind.accepts", accepts))
	}

	if req.IncludeChain && ancestor != leaf {
		chain, err := resolve.BuildChain(cached.Universe, ancestor, leaf)
		if err != nil {
			return nil, err
		}
		resp.Chain = chainNodes(cached.Universe, chain)
	}

	span.SetAttributes(attribute.String("typebind.kind", resp.Kind))
	return resp, nil
}

// Subtype reports whether one type expression is a subtype of another.
//
// Description:
//
//	Both expressions are parsed against the universe, so they may carry type
//	arguments, wildcards, arrays and Owner#Param variables. Type arguments
//	of the base are compared against the bindings the child's hierarchy
//	makes, not just the raw classes.
//
// Outputs:
//   - *SubtypeResponse: The verdict with both expressions as parsed.
//   - error: ErrTypeNotFound for undeclared names, or
//     typeexpr.ErrInvalidExpression for syntax errors.
func (s *Service) Subtype(ctx context.Context, req SubtypeRequest) (*SubtypeResponse, error) {
	cached, err := s.GetUniverse(req.UniverseID)
	if err != nil {
		return nil, err
	}
	child, err := cached.parse(req.Child)
	if err != nil {
		return nil, err
	}
	base, err := cached.parse(req.Base)
	if err != nil {
		return nil, err
	}

	_, span := tracer.Start(ctx, "Service.Subtype", trace.WithAttributes(
		attribute.String("typebind.child", child.String()),
		attribute.String("typebind.base", base.String()),
	))
	defer span.End()

	ok := cached.Subtypes.IsSubtype(child, base)
	span.SetAttributes(attribute.Bool("typebind.subtype", ok))
	return &SubtypeResponse{
		Child:   child.String(),
		Base:    base.String(),
		Subtype: ok,
	}, nil
}

// Chain returns the inheritance path used for a resolution.
func (s *Service) Chain(ctx context.Context, req ChainRequest) (*ChainResponse, error) {
	cached, err := s.GetUniverse(req.UniverseID)
	if err != nil {
		return nil, err
	}
	ancestor, leaf, err := cached.lookupPair(req.Ancestor, req.Leaf)
	if err != nil {
		return nil, err
	}

	_, span := tracer.Start(ctx, "Service.Chain")
	defer span.End()

	chain, err := resolve.BuildChain(cached.Universe, ancestor, leaf)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &ChainResponse{
		Ancestor: ancestor.Name,
		Leaf:     leaf.Name,
		Nodes:    chainNodes(cached.Universe, chain),
	}, nil
}

func chainNodes(p typeexpr.Provider, chain *resolve.Chain) []ChainNode {
	nodes := chain.Nodes()
	out := make([]ChainNode, len(nodes))
	for i, n := range nodes {
		out[i] = ChainNode{
			Class:     n.Class.Name,
			Slot:      n.Slot.String(),
			Supertype: exprString(resolve.ConnectingExpr(p, n)),
		}
	}
	return out
}

func exprString(e typeexpr.Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}

// Type describes one declared class.
func (s *Service) Type(_ context.Context, universeID, name string) (*TypeInfo, error) {
	cached, err := s.GetUniverse(universeID)
	if err != nil {
		return nil, err
	}
	c, err := cached.lookup(name)
	if err != nil {
		return nil, err
	}

	u := cached.Universe
	info := &TypeInfo{
		Name:      c.Name,
		Kind:      c.Kind.String(),
		Supertype: exprString(u.Supertype(c)),
		File:      c.File,
		Line:      c.Line,
	}
	for _, p := range u.TypeParameters(c) {
		tp := TypeParamInfo{Name: p.Name}
		for _, b := range p.Bounds {
			tp.Bounds = append(tp.Bounds, exprString(b))
		}
		info.TypeParams = append(info.TypeParams, tp)
	}
	for _, iface := range u.Superinterfaces(c) {
		info.Interfaces = append(info.Interfaces, exprString(iface))
	}
	return info, nil
}

// ListTypes lists non-primitive classes whose name starts with prefix,
// sorted by name.
func (s *Service) ListTypes(_ context.Context, universeID, prefix string) (*TypesResponse, error) {
	cached, err := s.GetUniverse(universeID)
	if err != nil {
		return nil, err
	}

	resp := &TypesResponse{UniverseID: universeID, Types: make([]TypeSummary, 0)}
	for _, c := range cached.Universe.Classes() {
		if c.Kind == typeexpr.KindPrimitive || !strings.HasPrefix(c.Name, prefix) {
			continue
		}
		resp.Types = append(resp.Types, TypeSummary{Name: c.Name, Kind: c.Kind.String(), File: c.File})
	}
	sort.Slice(resp.Types, func(i, j int) bool { return resp.Types[i].Name < resp.Types[j].Name })
	resp.Total = len(resp.Types)
	return resp, nil
}

// validateProjectRoot checks the root is absolute, free of traversal
// segments, exists and lies under an allowed root when any are configured.
func (s *Service) validateProjectRoot(projectRoot string) error {
	if !filepath.IsAbs(projectRoot) {
		return ErrRelativePath
	}
	for _, seg := range strings.Split(filepath.ToSlash(projectRoot), "/") {
		if seg == ".." {
			return ErrPathTraversal
		}
	}

	resolved, err := filepath.EvalSymlinks(projectRoot)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if len(s.config.AllowedRoots) == 0 {
		return nil
	}
	for _, allowed := range s.config.AllowedRoots {
		if r, err := filepath.EvalSymlinks(allowed); err == nil {
			allowed = r
		}
		rel, err := filepath.Rel(allowed, resolved)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, "../") {
			return nil
		}
	}
	return ErrPathNotAllowed
}

func (s *Service) getInitLock(projectRoot string) *sync.Mutex {
	lock, _ := s.initLocks.LoadOrStore(projectRoot, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// evictIfNeeded drops the oldest universes above capacity. Caller must
// hold the write lock.
func (s *Service) evictIfNeeded() {
	limit := s.config.MaxCachedUniverses
	if limit <= 0 {
		return
	}
	for len(s.universes) > limit {
		var oldest *CachedUniverse
		for _, u := range s.universes {
			if oldest == nil || u.builtAt.Before(oldest.builtAt) {
				oldest = u
			}
		}
		delete(s.universes, oldest.ID)
		s.logger.Debug("evicted universe", slog.String("universe_id", oldest.ID))
	}
}
