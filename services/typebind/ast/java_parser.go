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
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

const (
	// DefaultMaxFileSize is the largest file the parser accepts (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the size above which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024

	languageJava = "java"
)

// JavaParserOption configures a JavaParser.
type JavaParserOption func(*JavaParser)

// WithMaxFileSize sets the maximum accepted content size in bytes.
func WithMaxFileSize(bytes int64) JavaParserOption {
	return func(p *JavaParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// JavaParser extracts type declarations from Java source with tree-sitter.
//
// Description:
//
//	Recognises class, interface, enum, record and annotation declarations at
//	any nesting depth inside type bodies, with their type parameters, bounds
//	and supertype references in full generic syntax.
//
// Thread Safety:
//
//	Safe for concurrent use. A tree-sitter parser is created per call.
type JavaParser struct {
	maxFileSize int64
}

// NewJavaParser creates a JavaParser.
func NewJavaParser(opts ...JavaParserOption) *JavaParser {
	p := &JavaParser{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "java".
func (p *JavaParser) Language() string {
	return languageJava
}

// Extensions returns []string{".java"}.
func (p *JavaParser) Extensions() []string {
	return []string{".java"}
}

// Parse extracts declarations from one Java compilation unit.
//
// Description:
//
//	Validates size and encoding, parses with tree-sitter and walks the tree
//	for the package, imports and type declarations. Syntax errors do not
//	fail the parse; they are reported in ParseResult.Errors with the line of
//	the first error node.
//
// Outputs:
//   - *ParseResult: The extracted declarations.
//   - error: ErrFileTooLarge, ErrInvalidContent, ErrParseFailed or a context
//     error.
//
// Thread Safety: Safe for concurrent use.
func (p *JavaParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, run := beginParse(ctx, filePath, len(content))
	fail := func(err error) (*ParseResult, error) {
		run.end(ctx, nil, err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled before start: %w", err))
	}
	if int64(len(content)) > p.maxFileSize {
		return fail(fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize))
	}
	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}
	if !utf8.Valid(content) {
		return fail(fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent))
	}

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrParseFailed, WrapParseError(err, filePath)))
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled after tree-sitter: %w", err))
	}

	result := &ParseResult{
		FilePath:      filePath,
		Language:      languageJava,
		Hash:          ContentHash(content),
		ParsedAtMilli: time.Now().UnixMilli(),
		Imports:       make([]Import, 0),
		Types:         make([]*TypeDecl, 0),
	}

	root := tree.RootNode()
	if root == nil {
		result.Errors = append(result.Errors, "tree-sitter returned nil root node")
		run.end(ctx, result, nil)
		return result, nil
	}
	if root.HasError() {
		line := firstErrorLine(root)
		result.Errors = append(result.Errors, NewParseError(filePath, line, 0, "source contains syntax errors").Error())
	}

	w := &javaWalker{content: content}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			result.Package = w.packageName(child)
		case "import_declaration":
			if imp, ok := w.importDecl(child); ok {
				result.Imports = append(result.Imports, imp)
			}
		default:
			if decl := w.typeDecl(child); decl != nil {
				result.Types = append(result.Types, decl)
			}
		}
	}

	if err := result.Validate(); err != nil {
		return fail(fmt.Errorf("result validation failed: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled after extraction: %w", err))
	}

	run.end(ctx, result, nil)
	return result, nil
}

// javaWalker converts tree-sitter nodes of one file.
type javaWalker struct {
	content []byte
}

func (w *javaWalker) text(n *sitter.Node) string {
	return n.Content(w.content)
}

func (w *javaWalker) packageName(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
			return stripSpace(w.text(c))
		}
	}
	return ""
}

func (w *javaWalker) importDecl(n *sitter.Node) (Import, bool) {
	imp := Import{Line: int(n.StartPoint().Row) + 1}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "static":
			imp.Static = true
		case "asterisk":
			imp.OnDemand = true
		case "scoped_identifier", "identifier":
			imp.Path = stripSpace(w.text(c))
		}
	}
	return imp, imp.Path != ""
}

// typeDecl converts a declaration node, or returns nil for any other node.
func (w *javaWalker) typeDecl(n *sitter.Node) *TypeDecl {
	var kind DeclKind
	switch n.Type() {
	case "class_declaration":
		kind = DeclClass
	case "interface_declaration":
		kind = DeclInterface
	case "enum_declaration":
		kind = DeclEnum
	case "record_declaration":
		kind = DeclRecord
	case "annotation_type_declaration":
		kind = DeclAnnotation
	default:
		return nil
	}

	nameNode := n.ChildByFieldName("name")
	if nameNode == nil || nameNode.IsMissing() || w.text(nameNode) == "" {
		return nil
	}
	decl := &TypeDecl{
		Name:      w.text(nameNode),
		Kind:      kind,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "type_parameters":
			decl.TypeParams = w.typeParams(c)
		case "superclass":
			if t := firstTypeChild(c); t != nil {
				decl.Extends = w.typeRef(t)
			}
		case "super_interfaces", "extends_interfaces":
			decl.Implements = append(decl.Implements, w.typeList(c)...)
		case "class_body", "interface_body", "annotation_type_body":
			decl.Members = w.members(c)
		case "enum_body":
			decl.Members = w.enumMembers(c)
		}
	}
	return decl
}

func (w *javaWalker) members(body *sitter.Node) []*TypeDecl {
	var out []*TypeDecl
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if d := w.typeDecl(body.NamedChild(i)); d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (w *javaWalker) enumMembers(body *sitter.Node) []*TypeDecl {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "enum_body_declarations" {
			return w.members(c)
		}
	}
	return nil
}

func (w *javaWalker) typeParams(n *sitter.Node) []TypeParamDecl {
	var out []TypeParamDecl
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_parameter" {
			continue
		}
		var p TypeParamDecl
		for j := 0; j < int(c.NamedChildCount()); j++ {
			part := c.NamedChild(j)
			switch part.Type() {
			case "type_identifier", "identifier":
				if p.Name == "" {
					p.Name = w.text(part)
				}
			case "type_bound":
				for k := 0; k < int(part.NamedChildCount()); k++ {
					if t := part.NamedChild(k); isTypeNode(t.Type()) {
						p.Bounds = appendRef(p.Bounds, w.typeRef(t))
					}
				}
			}
		}
		if p.Name != "" {
			out = append(out, p)
		}
	}
	return out
}

// typeList collects the types under a super_interfaces, extends_interfaces
// or type_list node.
func (w *javaWalker) typeList(n *sitter.Node) []*TypeRef {
	var out []*TypeRef
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "type_list" {
			out = append(out, w.typeList(c)...)
			continue
		}
		if isTypeNode(c.Type()) {
			out = appendRef(out, w.typeRef(c))
		}
	}
	return out
}

// typeRef converts a type node. Returns nil for nodes that carry no usable
// name, which only happens in error-recovered trees.
func (w *javaWalker) typeRef(n *sitter.Node) *TypeRef {
	switch n.Type() {
	case "type_identifier", "identifier":
		return namedRef(w.text(n))

	case "scoped_type_identifier":
		return namedRef(w.scopedName(n))

	case "generic_type":
		ref := &TypeRef{Kind: RefNamed}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "type_identifier":
				ref.Name = w.text(c)
			case "scoped_type_identifier":
				ref.Name = w.scopedName(c)
			case "type_arguments":
				ref.Args = w.typeArgs(c)
			}
		}
		if ref.Name == "" {
			return nil
		}
		return ref

	case "array_type":
		elem := n.ChildByFieldName("element")
		if elem == nil {
			return nil
		}
		ref := w.typeRef(elem)
		if ref == nil {
			return nil
		}
		if dims := n.ChildByFieldName("dimensions"); dims != nil {
			ref.Dims += countDims(dims)
		}
		return ref

	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		if name := stripSpace(w.text(n)); name != "" {
			return &TypeRef{Kind: RefPrimitive, Name: name}
		}

	case "annotated_type":
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			if c := n.NamedChild(i); isTypeNode(c.Type()) {
				return w.typeRef(c)
			}
		}

	case "wildcard":
		return w.wildcard(n)
	}
	return nil
}

func namedRef(name string) *TypeRef {
	if name == "" {
		return nil
	}
	return &TypeRef{Kind: RefNamed, Name: name}
}

func appendRef(refs []*TypeRef, ref *TypeRef) []*TypeRef {
	if ref == nil {
		return refs
	}
	return append(refs, ref)
}

// scopedName flattens Outer<X>.Inner style names to "Outer.Inner". Type
// arguments of enclosing segments are dropped.
func (w *javaWalker) scopedName(n *sitter.Node) string {
	var parts []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "type_identifier", "identifier":
			parts = append(parts, w.text(c))
		case "scoped_type_identifier":
			parts = append(parts, w.scopedName(c))
		case "generic_type":
			if ref := w.typeRef(c); ref != nil {
				parts = append(parts, ref.Name)
			}
		}
	}
	return strings.Join(parts, ".")
}

func (w *javaWalker) typeArgs(n *sitter.Node) []*TypeRef {
	var out []*TypeRef
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if isTypeNode(c.Type()) {
			out = appendRef(out, w.typeRef(c))
		}
	}
	return out
}

func (w *javaWalker) wildcard(n *sitter.Node) *TypeRef {
	ref := &TypeRef{Kind: RefWildcard}
	lower := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch {
		case c.Type() == "super":
			lower = true
		case c.IsNamed() && isTypeNode(c.Type()) && c.Type() != "wildcard":
			if lower {
				ref.Lower = w.typeRef(c)
			} else {
				ref.Upper = w.typeRef(c)
			}
		}
	}
	return ref
}

// isTypeNode reports whether a node type denotes a type.
func isTypeNode(t string) bool {
	switch t {
	case "type_identifier", "scoped_type_identifier", "generic_type", "array_type",
		"integral_type", "floating_point_type", "boolean_type", "void_type",
		"annotated_type", "wildcard":
		return true
	}
	return false
}

func firstTypeChild(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); isTypeNode(c.Type()) {
			return c
		}
	}
	return nil
}

// countDims counts "[" tokens under a dimensions node.
func countDims(n *sitter.Node) int {
	count := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "[" {
			count++
		}
	}
	return count
}

// firstErrorLine returns the 1-indexed line of the first ERROR or missing
// node, or 0.
func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.HasError() && !c.IsMissing() {
			continue
		}
		if line := firstErrorLine(c); line > 0 {
			return line
		}
	}
	return 0
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
