// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// DeclKind classifies a type declaration.
type DeclKind string

const (
	DeclClass      DeclKind = "class"
	DeclInterface  DeclKind = "interface"
	DeclEnum       DeclKind = "enum"
	DeclRecord     DeclKind = "record"
	DeclAnnotation DeclKind = "annotation"
)

// Valid reports whether k is one of the declared kinds.
func (k DeclKind) Valid() bool {
	switch k {
	case DeclClass, DeclInterface, DeclEnum, DeclRecord, DeclAnnotation:
		return true
	}
	return false
}

// RefKind classifies a TypeRef.
type RefKind string

const (
	// RefNamed is a class or interface name, possibly with type arguments.
	RefNamed RefKind = "named"

	// RefPrimitive is a primitive type such as int.
	RefPrimitive RefKind = "primitive"

	// RefWildcard is ?, ? extends X or ? super X. Only valid as a type argument.
	RefWildcard RefKind = "wildcard"
)

// ParseResult holds the declarations extracted from one file.
//
// ParseResult is JSON-serialisable so it can be persisted by the
// declaration store and reused while the file's Hash is unchanged.
type ParseResult struct {
	// FilePath is the file path relative to the project root.
	FilePath string `json:"file_path"`

	// Language is the parser's language name.
	Language string `json:"language"`

	// Hash is the hex SHA-256 of the parsed content.
	Hash string `json:"hash"`

	// ParsedAtMilli is the parse time in Unix milliseconds.
	ParsedAtMilli int64 `json:"parsed_at_milli"`

	// Package is the declared package, empty for the default package.
	Package string `json:"package,omitempty"`

	// Imports are the import declarations in source order.
	Imports []Import `json:"imports"`

	// Types are the top-level type declarations in source order. Member
	// types are nested under their enclosing declaration.
	Types []*TypeDecl `json:"types"`

	// Errors are non-fatal problems such as syntax errors.
	Errors []string `json:"errors,omitempty"`
}

// Import is one import declaration.
type Import struct {
	// Path is the imported name without a trailing ".*".
	Path string `json:"path"`

	// OnDemand is true for "import a.b.*".
	OnDemand bool `json:"on_demand,omitempty"`

	// Static is true for "import static".
	Static bool `json:"static,omitempty"`

	// Line is the 1-indexed source line.
	Line int `json:"line"`
}

// TypeDecl is a class, interface, enum, record or annotation declaration.
type TypeDecl struct {
	// Name is the simple name.
	Name string `json:"name"`

	// Kind classifies the declaration.
	Kind DeclKind `json:"kind"`

	// TypeParams are the declared type parameters in order.
	TypeParams []TypeParamDecl `json:"type_params,omitempty"`

	// Extends is the superclass reference of a class. Nil when omitted.
	Extends *TypeRef `json:"extends,omitempty"`

	// Implements lists the implemented interfaces of a class, enum or
	// record, or the extended interfaces of an interface.
	Implements []*TypeRef `json:"implements,omitempty"`

	// Members are the member type declarations.
	Members []*TypeDecl `json:"members,omitempty"`

	// StartLine and EndLine are 1-indexed.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// TypeParamDecl is a declared type parameter such as "T extends A & B".
type TypeParamDecl struct {
	Name   string     `json:"name"`
	Bounds []*TypeRef `json:"bounds,omitempty"`
}

// TypeRef is a type as written in source.
type TypeRef struct {
	// Kind classifies the reference.
	Kind RefKind `json:"kind"`

	// Name is the dotted name as written, e.g. "List", "java.util.Map" or
	// "Map.Entry". Empty for wildcards.
	Name string `json:"name,omitempty"`

	// Args are the type arguments of the last name segment.
	Args []*TypeRef `json:"args,omitempty"`

	// Dims counts trailing array dimensions.
	Dims int `json:"dims,omitempty"`

	// Upper is the bound of "? extends X".
	Upper *TypeRef `json:"upper,omitempty"`

	// Lower is the bound of "? super X".
	Lower *TypeRef `json:"lower,omitempty"`
}

// String renders the reference in source syntax.
func (r *TypeRef) String() string {
	if r == nil {
		return "<nil>"
	}

	var b strings.Builder
	switch r.Kind {
	case RefWildcard:
		b.WriteByte('?')
		if r.Upper != nil {
			b.WriteString(" extends " + r.Upper.String())
		} else if r.Lower != nil {
			b.WriteString(" super " + r.Lower.String())
		}
	default:
		b.WriteString(r.Name)
		if len(r.Args) > 0 {
			b.WriteByte('<')
			for i, a := range r.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(a.String())
			}
			b.WriteByte('>')
		}
	}
	b.WriteString(strings.Repeat("[]", r.Dims))
	return b.String()
}

// Walk calls fn for d and every nested member, depth first. enclosing lists
// the outer declarations from outermost to innermost.
func (d *TypeDecl) Walk(fn func(decl *TypeDecl, enclosing []*TypeDecl)) {
	d.walk(nil, fn)
}

func (d *TypeDecl) walk(enclosing []*TypeDecl, fn func(*TypeDecl, []*TypeDecl)) {
	fn(d, enclosing)
	inner := append(enclosing[:len(enclosing):len(enclosing)], d)
	for _, m := range d.Members {
		m.walk(inner, fn)
	}
}

// TypeCount returns the number of declarations including nested members.
func (r *ParseResult) TypeCount() int {
	n := 0
	for _, t := range r.Types {
		t.Walk(func(*TypeDecl, []*TypeDecl) { n++ })
	}
	return n
}

// Validate checks structural invariants of the result.
//
// Outputs:
//   - error: Wraps ErrInvalidResult describing the first violation, or nil.
func (r *ParseResult) Validate() error {
	if r.FilePath == "" {
		return fmt.Errorf("%w: empty file path", ErrInvalidResult)
	}
	if r.Language == "" {
		return fmt.Errorf("%w: %s: empty language", ErrInvalidResult, r.FilePath)
	}
	for _, imp := range r.Imports {
		if imp.Path == "" {
			return fmt.Errorf("%w: %s:%d: empty import path", ErrInvalidResult, r.FilePath, imp.Line)
		}
	}

	var err error
	for _, t := range r.Types {
		t.Walk(func(d *TypeDecl, _ []*TypeDecl) {
			if err == nil {
				err = d.validate(r.FilePath)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *TypeDecl) validate(filePath string) error {
	if d.Name == "" {
		return fmt.Errorf("%w: %s:%d: unnamed declaration", ErrInvalidResult, filePath, d.StartLine)
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: %s: %s has unknown kind %q", ErrInvalidResult, filePath, d.Name, d.Kind)
	}
	seen := make(map[string]struct{}, len(d.TypeParams))
	for _, p := range d.TypeParams {
		if p.Name == "" {
			return fmt.Errorf("%w: %s: %s has an unnamed type parameter", ErrInvalidResult, filePath, d.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %s: %s declares type parameter %s twice", ErrInvalidResult, filePath, d.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
		for _, b := range p.Bounds {
			if err := b.validate(false); err != nil {
				return fmt.Errorf("%w: %s: bound of %s.%s: %v", ErrInvalidResult, filePath, d.Name, p.Name, err)
			}
		}
	}
	if d.Extends != nil {
		if err := d.Extends.validate(false); err != nil {
			return fmt.Errorf("%w: %s: superclass of %s: %v", ErrInvalidResult, filePath, d.Name, err)
		}
	}
	for _, ref := range d.Implements {
		if err := ref.validate(false); err != nil {
			return fmt.Errorf("%w: %s: superinterface of %s: %v", ErrInvalidResult, filePath, d.Name, err)
		}
	}
	return nil
}

func (r *TypeRef) validate(asArgument bool) error {
	if r == nil {
		return errors.New("nil type reference")
	}
	switch r.Kind {
	case RefNamed, RefPrimitive:
		if r.Name == "" {
			return errors.New("empty type name")
		}
	case RefWildcard:
		if !asArgument {
			return errors.New("wildcard outside a type argument")
		}
		if r.Upper != nil && r.Lower != nil {
			return errors.New("wildcard with both bounds")
		}
		for _, b := range []*TypeRef{r.Upper, r.Lower} {
			if b != nil {
				if err := b.validate(false); err != nil {
					return err
				}
			}
		}
	default:
		return fmt.Errorf("unknown reference kind %q", r.Kind)
	}
	if r.Dims < 0 {
		return errors.New("negative array dimensions")
	}
	for _, a := range r.Args {
		if err := a.validate(true); err != nil {
			return err
		}
	}
	return nil
}

// ContentHash returns the hex SHA-256 recorded in ParseResult.Hash.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
