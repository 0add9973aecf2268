// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hierarchy

import (
	"fmt"

	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

// FileError is a problem with one input file. The file's remaining
// declarations are still built where possible.
type FileError struct {
	FilePath string
	Err      error
}

// Error implements error.
func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.FilePath, e.Err)
}

// Unwrap returns the underlying error.
func (e FileError) Unwrap() error {
	return e.Err
}

// BuildStats summarises a build.
type BuildStats struct {
	// FilesProcessed counts input files whose declarations were added.
	FilesProcessed int `json:"files_processed"`

	// FilesFailed counts input files rejected before declaration.
	FilesFailed int `json:"files_failed"`

	// TypesDeclared counts declarations from input files, excluding stubs.
	TypesDeclared int `json:"types_declared"`

	// StubTypes counts declarations from the built-in JDK stubs.
	StubTypes int `json:"stub_types"`

	// ExternalTypes counts placeholder classes created for unresolved names.
	ExternalTypes int `json:"external_types"`

	// DurationMilli is the build time in milliseconds.
	DurationMilli int64 `json:"duration_ms"`
}

// BuildResult is the outcome of Builder.Build.
type BuildResult struct {
	// Universe holds every declared, stub and external class. It is frozen
	// unless Incomplete is set.
	Universe *typeexpr.Universe

	// FileErrors lists per-file problems.
	FileErrors []FileError

	// Externals lists the names that could not be resolved, sorted.
	Externals []string

	// Stats summarises the build.
	Stats BuildStats

	// Incomplete is true if the build was cancelled part way.
	Incomplete bool
}

// HasErrors reports whether any file errors occurred.
func (r *BuildResult) HasErrors() bool {
	return len(r.FileErrors) > 0
}

// Success reports whether the build completed without errors.
func (r *BuildResult) Success() bool {
	return !r.Incomplete && !r.HasErrors()
}
