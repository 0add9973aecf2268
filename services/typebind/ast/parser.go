// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts type declarations from source files.
//
// Parsers turn a single compilation unit into a ParseResult: its package,
// imports and every type declaration with type parameters and supertype
// references written out as TypeRefs. Names are kept exactly as written;
// resolving them to canonical classes is the hierarchy builder's job.
package ast

import (
	"context"
	"sort"
	"sync"
)

// Parser defines the contract for language-specific declaration parsing.
//
// Description:
//
//	Implementations are context-aware and error-tolerant: syntax errors are
//	reported in ParseResult.Errors while whatever declarations could be
//	recognised are still returned.
//
// Inputs:
//
//	ctx      - Context for cancellation.
//	content  - Raw source bytes. Must be valid UTF-8.
//	filePath - Path of the file, relative to the project root.
//
// Outputs:
//
//	*ParseResult - Extracted declarations. Never nil on success.
//	error        - Non-nil only when nothing useful could be produced.
//
// Example:
//
//	parser := NewJavaParser()
//	content, _ := os.ReadFile("src/com/acme/Box.java")
//	result, err := parser.Parse(ctx, content, "src/com/acme/Box.java")
//	if err != nil {
//	    return fmt.Errorf("parse failed: %w", err)
//	}
//	for _, decl := range result.Types {
//	    fmt.Printf("%s %s at line %d\n", decl.Kind, decl.Name, decl.StartLine)
//	}
//
// Limitations:
//
//   - Single-file analysis only; names are not resolved across files
//   - Local and anonymous classes inside method bodies are ignored
type Parser interface {
	// Parse extracts declarations from source code.
	//
	// Thread Safety: Implementations must be safe for concurrent use.
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)

	// Language returns the lowercase language name, e.g. "java".
	Language() string

	// Extensions returns the handled file extensions including the dot.
	Extensions() []string
}

// ParserRegistry manages parser instances by language and file extension.
//
// Thread Safety: All methods are safe for concurrent use.
type ParserRegistry struct {
	mu          sync.RWMutex
	byLanguage  map[string]Parser
	byExtension map[string]Parser
}

// NewParserRegistry creates an empty ParserRegistry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		byLanguage:  make(map[string]Parser),
		byExtension: make(map[string]Parser),
	}
}

// Register adds a parser under its language name and all its extensions.
// Existing registrations for the same language or extension are replaced.
func (r *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[parser.Language()] = parser
	for _, ext := range parser.Extensions() {
		r.byExtension[ext] = parser
	}
}

// GetByLanguage returns the parser for a language name.
func (r *ParserRegistry) GetByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byLanguage[language]
	return parser, ok
}

// GetByExtension returns the parser for a file extension such as ".java".
func (r *ParserRegistry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byExtension[ext]
	return parser, ok
}

// Extensions returns every registered extension, sorted.
func (r *ParserRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	extensions := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

// DefaultRegistry returns a registry with every built-in parser registered.
func DefaultRegistry() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewJavaParser())
	return r
}
