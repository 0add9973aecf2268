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

import "errors"

// Sentinel errors for the typebind service.
var (
	// ErrUniverseNotFound indicates no universe has been built for the ID.
	ErrUniverseNotFound = errors.New("universe not initialized")

	// ErrUniverseExpired indicates the cached universe outlived its TTL.
	ErrUniverseExpired = errors.New("universe expired")

	// ErrTypeNotFound indicates a class name is not declared in the universe.
	ErrTypeNotFound = errors.New("type not found")

	// ErrRelativePath indicates the project root was a relative path.
	ErrRelativePath = errors.New("project root must be absolute path")

	// ErrPathTraversal indicates the path contains .. traversal sequences.
	ErrPathTraversal = errors.New("path contains traversal sequences")

	// ErrPathNotAllowed indicates the root is outside the configured allowed roots.
	ErrPathNotAllowed = errors.New("project root is not under an allowed root")

	// ErrProjectTooLarge indicates the project exceeds file count or size limits.
	ErrProjectTooLarge = errors.New("project exceeds size limits")

	// ErrInitInProgress indicates another init is already running for this project.
	ErrInitInProgress = errors.New("initialization in progress")

	// ErrInitTimeout indicates the init operation timed out.
	ErrInitTimeout = errors.New("initialization timed out")

	// ErrInvalidMode indicates a resolve mode other than "class" or "expression".
	ErrInvalidMode = errors.New("invalid resolve mode")
)
