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
	"strings"

	"github.com/AleutianAI/typebind/services/typebind/ast"
	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

const javaLang = "java.lang"

// scope resolves names written inside one declaration.
//
// Simple names are looked up in this order:
//
//  1. type parameters of the declaration, then of enclosing declarations
//  2. member types of the declaration, then of enclosing declarations
//  3. single-type imports
//  4. the declaration's own package
//  5. on-demand imports, in source order
//  6. java.lang
//
// Member types inherited from supertypes are not searched.
type scope struct {
	state *buildState
	info  *declInfo
	vars  map[string]*typeexpr.TypeParam
}

func newScope(state *buildState, info *declInfo) *scope {
	s := &scope{state: state, info: info, vars: make(map[string]*typeexpr.TypeParam)}

	// Outermost first so inner declarations shadow.
	chain := append(info.enclosing[:len(info.enclosing):len(info.enclosing)], info)
	for _, d := range chain {
		for _, p := range state.universe.TypeParameters(d.class) {
			s.vars[p.Name] = p
		}
	}
	return s
}

// expr converts a written type to a type expression.
func (s *scope) expr(ref *ast.TypeRef) typeexpr.Expr {
	u := s.state.universe

	var base typeexpr.Expr
	switch ref.Kind {
	case ast.RefWildcard:
		var upper, lower []typeexpr.Expr
		if ref.Upper != nil {
			upper = []typeexpr.Expr{s.expr(ref.Upper)}
		}
		if ref.Lower != nil {
			lower = []typeexpr.Expr{s.expr(ref.Lower)}
		}
		return typeexpr.NewWildcardExpr(upper, lower)

	case ast.RefPrimitive:
		cls, ok := u.Lookup(ref.Name)
		if !ok {
			cls = s.external(ref.Name)
		}
		base = typeexpr.NewClassExpr(cls)

	default:
		if p, ok := s.vars[ref.Name]; ok && len(ref.Args) == 0 {
			base = typeexpr.NewVariableExpr(p)
			break
		}
		cls := s.class(ref.Name)
		if len(ref.Args) == 0 {
			base = typeexpr.NewClassExpr(cls)
			break
		}
		args := make([]typeexpr.Expr, len(ref.Args))
		for i, a := range ref.Args {
			args[i] = s.expr(a)
		}
		base = typeexpr.NewParameterizedExpr(cls, args...)
	}

	if ref.Dims == 0 {
		return base
	}
	if ce, ok := base.(*typeexpr.ClassExpr); ok {
		return typeexpr.NewClassExpr(u.ArrayOfDims(ce.Class, ref.Dims))
	}
	return typeexpr.NewArrayExpr(base, ref.Dims)
}

// class resolves a possibly qualified class name, creating an external
// placeholder when nothing matches.
func (s *scope) class(name string) *typeexpr.Class {
	parts := strings.Split(name, ".")

	if head := s.simple(parts[0]); head != nil {
		if c := s.members(head, parts[1:]); c != nil {
			return c
		}
		return s.external(head.Name + "." + strings.Join(parts[1:], "."))
	}
	if len(parts) == 1 {
		return s.external(name)
	}

	if c := s.qualified(parts); c != nil {
		return c
	}
	return s.external(name)
}

// qualified resolves a fully qualified name, possibly naming a member type
// as in a.b.Outer.Inner. Returns nil if nothing matches.
func (s *scope) qualified(parts []string) *typeexpr.Class {
	for i := len(parts); i >= 1; i-- {
		if c, ok := s.state.universe.Lookup(strings.Join(parts[:i], ".")); ok {
			if m := s.members(c, parts[i:]); m != nil {
				return m
			}
		}
	}
	return nil
}

// simple resolves an unqualified class name, or returns nil.
func (s *scope) simple(name string) *typeexpr.Class {
	u := s.state.universe

	// Member types of this declaration and its enclosing declarations.
	if c, ok := u.Lookup(s.info.class.Name + "." + name); ok {
		return c
	}
	for i := len(s.info.enclosing) - 1; i >= 0; i-- {
		encl := s.info.enclosing[i].class
		if encl.SimpleName() == name {
			return encl
		}
		if c, ok := u.Lookup(encl.Name + "." + name); ok {
			return c
		}
	}
	if s.info.class.SimpleName() == name && len(s.info.enclosing) > 0 {
		return s.info.class
	}

	file := s.info.file
	for _, imp := range file.Imports {
		if imp.Static || imp.OnDemand {
			continue
		}
		if lastSegment(imp.Path) == name {
			if c := s.qualified(strings.Split(imp.Path, ".")); c != nil {
				return c
			}
			return s.external(imp.Path)
		}
	}

	if c, ok := u.Lookup(qualify(file.Package, name)); ok {
		return c
	}

	for _, imp := range file.Imports {
		if !imp.OnDemand {
			continue
		}
		if c, ok := u.Lookup(imp.Path + "." + name); ok {
			return c
		}
	}

	if c, ok := u.Lookup(javaLang + "." + name); ok {
		return c
	}
	return nil
}

// members follows member type names below c. Returns nil if any is missing.
func (s *scope) members(c *typeexpr.Class, names []string) *typeexpr.Class {
	for _, n := range names {
		next, ok := s.state.universe.Lookup(c.Name + "." + n)
		if !ok {
			return nil
		}
		c = next
	}
	return c
}

// external returns the placeholder for an unresolved name.
func (s *scope) external(name string) *typeexpr.Class {
	u := s.state.universe
	if c, ok := u.Lookup(name); ok {
		return c
	}
	c, err := u.DeclareExternal(name)
	if err != nil {
		// Only reachable for names the universe rejects, such as "".
		c, _ = u.DeclareExternal("<invalid>")
	}
	s.state.externals[c.Name] = struct{}{}
	return c
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
