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
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/AleutianAI/typebind/services/typebind/watch"
)

// reindexRetryDelay is the pause between re-index attempts while another
// init holds the project lock.
const reindexRetryDelay = 100 * time.Millisecond

// Watch re-initializes projectRoot whenever its sources change.
//
// Description:
//
//	Starts a watcher on projectRoot that calls Init after each debounced
//	batch of source changes, reusing the excludes of the cached universe.
//	Watching an already watched root is a no-op. The watcher stops when ctx
//	is done, on Unwatch or on Close.
//
// Outputs:
//   - error: A project root validation error, or a watcher start error.
func (s *Service) Watch(ctx context.Context, projectRoot string) error {
	if err := s.validateProjectRoot(projectRoot); err != nil {
		return err
	}
	root := filepath.Clean(projectRoot)

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if _, ok := s.watchers[root]; ok {
		return nil
	}

	opts := watch.DefaultOptions()
	opts.Logger = s.logger
	if s.config.WatchDebounce > 0 {
		opts.Debounce = s.config.WatchDebounce
	}
	opts.Ignore = append(opts.Ignore, s.config.Excludes...)

	w, err := watch.New(root, func(changes []watch.Change) {
		s.reindex(ctx, root, changes)
	}, opts)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	s.watchers[root] = w
	s.logger.Info("watching project", slog.String("project_root", root))

	go func() {
		select {
		case <-ctx.Done():
			s.unwatchIf(root, w)
		case <-w.Done():
		}
	}()
	return nil
}

// unwatchIf stops w only while it is still the watcher registered for root.
func (s *Service) unwatchIf(root string, w *watch.Watcher) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watchers[root] != w {
		return
	}
	w.Stop()
	delete(s.watchers, root)
}

// Unwatch stops watching projectRoot and reports whether it was watched.
func (s *Service) Unwatch(projectRoot string) bool {
	root := filepath.Clean(projectRoot)
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	w, ok := s.watchers[root]
	if !ok {
		return false
	}
	w.Stop()
	delete(s.watchers, root)
	return true
}

// Watching reports whether projectRoot has an active watcher.
func (s *Service) Watching(projectRoot string) bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	_, ok := s.watchers[filepath.Clean(projectRoot)]
	return ok
}

func (s *Service) reindex(ctx context.Context, root string, changes []watch.Change) {
	if ctx.Err() != nil {
		return
	}
	var excludes []string
	if cached, err := s.GetUniverse(UniverseID(root)); err == nil {
		excludes = cached.Excludes
	}

	// Retry while another init holds the lock, for at most MaxInitDuration.
	var deadline time.Time
	if s.config.MaxInitDuration > 0 {
		deadline = time.Now().Add(s.config.MaxInitDuration)
	}
	resp, err := s.Init(ctx, root, excludes)
	for errors.Is(err, ErrInitInProgress) {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		s.logger.Debug("re-index waiting for running init", slog.String("project_root", root))
		select {
		case <-ctx.Done():
			return
		case <-time.After(reindexRetryDelay):
		}
		resp, err = s.Init(ctx, root, excludes)
	}

	if err != nil {
		s.logger.Warn("re-index failed",
			slog.String("project_root", root),
			slog.Int("changes", len(changes)),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Info("re-indexed project",
		slog.String("project_root", root),
		slog.Int("changes", len(changes)),
		slog.Int("files_parsed", resp.FilesParsed),
		slog.Int("files_cached", resp.FilesCached))
}
