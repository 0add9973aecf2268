// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch reports debounced changes to source files under a project
// root.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("watcher already started")

// Op is the kind of change seen for a file.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

// String returns "create", "write", "remove" or "rename".
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one file event.
type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler receives a batch of changes, at most one entry per path.
type Handler func(changes []Change)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a batch is delivered.
	Debounce time.Duration

	// Extensions limits file events to these suffixes. Empty means all files.
	Extensions []string

	// Ignore holds directory or file base names, or glob patterns matched
	// against base names, that are skipped.
	Ignore []string

	// BufferSize bounds pending events. Events beyond it are dropped.
	BufferSize int

	Logger *slog.Logger
}

// DefaultOptions watches .java files with a 500ms debounce.
func DefaultOptions() Options {
	return Options{
		Debounce:   500 * time.Millisecond,
		Extensions: []string{".java"},
		Ignore:     []string{".git", ".idea", "build", "target", "node_modules", "*.swp", "*~"},
		BufferSize: 1024,
	}
}

// Watcher watches a directory tree.
//
// Description:
//
//	Every directory below root that is not ignored is registered with
//	fsnotify, including directories created later. File events that pass
//	the extension filter are collected until Debounce passes without new
//	events, then delivered to the handler deduplicated by path (latest op
//	wins).
//
// Thread Safety:
//
//	Start and Stop are safe for concurrent use. The handler runs on a
//	single goroutine.
type Watcher struct {
	root    string
	opts    Options
	handler Handler
	logger  *slog.Logger
	fsw     *fsnotify.Watcher

	events   chan Change
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
}

// New creates a watcher for root. Call Start to begin delivering changes.
func New(root string, handler Handler, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:    root,
		opts:    opts,
		handler: handler,
		logger:  logger.With(slog.String("component", "watch"), slog.String("root", root)),
		fsw:     fsw,
		events:  make(chan Change, opts.BufferSize),
		done:    make(chan struct{}),
	}, nil
}

// Start registers the tree and starts the event and debounce goroutines.
// Both exit on Stop or when ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.started = true

	go w.readEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop closes the watcher. Pending changes are flushed to the handler.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
	})
}

// Done is closed once Stop has been called.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.opts.Ignore {
		if base == pattern {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// accepts reports whether path should produce a change.
func (w *Watcher) accepts(path string) bool {
	if w.ignored(path) {
		return false
	}
	if len(w.opts.Extensions) == 0 {
		return true
	}
	for _, ext := range w.opts.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func (w *Watcher) readEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if !w.ignored(ev.Name) {
						if err := w.addTree(ev.Name); err != nil {
							w.logger.Warn("watch new directory", slog.String("dir", ev.Name), slog.String("error", err.Error()))
						}
					}
					continue
				}
			}
			if !w.accepts(ev.Name) {
				continue
			}
			select {
			case w.events <- Change{Path: ev.Name, Op: convertOp(ev.Op), Time: time.Now()}:
			default:
				w.logger.Warn("change buffer full, dropping event", slog.String("path", ev.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", slog.String("error", err.Error()))
		}
	}
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var (
		batch  []Change
		timer  *time.Timer
		timerC <-chan time.Time
	)
	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(batch) == 0 {
			return
		}
		changes := dedupe(batch)
		batch = nil
		if w.handler != nil {
			w.handler(changes)
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case ch := <-w.events:
			batch = append(batch, ch)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			flush()
		}
	}
}

// dedupe keeps the latest change per path, in first-seen order.
func dedupe(changes []Change) []Change {
	index := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, ch := range changes {
		if i, ok := index[ch.Path]; ok {
			out[i] = ch
			continue
		}
		index[ch.Path] = len(out)
		out = append(out, ch)
	}
	return out
}
