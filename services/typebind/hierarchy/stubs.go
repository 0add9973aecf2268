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
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/AleutianAI/typebind/services/typebind/ast"
)

//go:embed stubs/*.java
var stubFS embed.FS

var (
	stubOnce    sync.Once
	stubResults []*ast.ParseResult
	stubErr     error
)

// Stubs returns the parsed JDK stub declarations.
//
// Description:
//
//	The stubs declare the generic signatures of common java.lang, java.io,
//	java.util, java.util.function and java.util.concurrent types so user
//	sources can be resolved through List, Map, Comparable and friends. They
//	are parsed once per process and shared; callers must not modify them.
//
// Outputs:
//   - []*ast.ParseResult: One result per stub file, sorted by path.
//   - error: Non-nil if a stub fails to parse.
func Stubs() ([]*ast.ParseResult, error) {
	stubOnce.Do(func() {
		stubResults, stubErr = parseStubs(context.Background())
	})
	return stubResults, stubErr
}

func parseStubs(ctx context.Context) ([]*ast.ParseResult, error) {
	paths, err := fs.Glob(stubFS, "stubs/*.java")
	if err != nil {
		return nil, fmt.Errorf("list stubs: %w", err)
	}
	sort.Strings(paths)

	parser := ast.NewJavaParser()
	out := make([]*ast.ParseResult, 0, len(paths))
	for _, path := range paths {
		content, err := stubFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read stub %s: %w", path, err)
		}
		result, err := parser.Parse(ctx, content, "jdk/"+path)
		if err != nil {
			return nil, fmt.Errorf("parse stub %s: %w", path, err)
		}
		if len(result.Errors) > 0 {
			return nil, fmt.Errorf("parse stub %s: %s", path, result.Errors[0])
		}
		out = append(out, result)
	}
	return out, nil
}
