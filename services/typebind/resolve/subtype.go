// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"strings"

	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

// maxSubtypeDepth caps the nesting SubtypeChecker follows before giving up.
const maxSubtypeDepth = 128

// SubtypeChecker decides subtyping between full type expressions.
//
// Description:
//
//	Unlike Provider.IsAssignableFrom, which compares raw classes, the checker
//	looks at type arguments: ArrayList<String> is a subtype of
//	List<? extends CharSequence> but not of List<Object>. Arguments of a
//	parameterized base are found by resolving each base parameter against
//	the child's class with the Resolver, so bindings made anywhere in the
//	hierarchy count.
//
//	Rules:
//	  - every reference type is a subtype of java.lang.Object;
//	  - a primitive matches itself and its wrapper class;
//	  - arrays are covariant and are subtypes of Cloneable and Serializable;
//	  - concrete type arguments are invariant, wildcard arguments contain
//	    what fits their bounds;
//	  - a type variable base is satisfied by anything that fits its bounds;
//	  - a raw child is accepted wherever its class is assignable.
//
//	Self-referential bounds such as E extends Enum<E> are checked
//	coinductively: a question already being asked higher up answers true.
//
// Thread Safety: Safe for concurrent use. Each IsSubtype call has its own
// state.
type SubtypeChecker struct {
	resolver *Resolver
}

// NewSubtypeChecker creates a checker that resolves bindings with r.
func NewSubtypeChecker(r *Resolver) *SubtypeChecker {
	return &SubtypeChecker{resolver: r}
}

// IsSubtype reports whether child is a subtype of base.
func (s *SubtypeChecker) IsSubtype(child, base typeexpr.Expr) bool {
	if child == nil || base == nil {
		return false
	}
	w := &subtypeWalk{
		resolver: s.resolver,
		provider: s.resolver.Provider(),
		active:   make(map[subtypeKey]struct{}),
	}
	return w.subtype(child, base, 0)
}

type subtypeKey struct {
	child, base string
}

type subtypeWalk struct {
	resolver *Resolver
	provider typeexpr.Provider
	active   map[subtypeKey]struct{}
}

func (w *subtypeWalk) subtype(child, base typeexpr.Expr, depth int) bool {
	if depth > maxSubtypeDepth {
		return false
	}
	key := subtypeKey{child: exprKey(child), base: exprKey(base)}
	if _, ok := w.active[key]; ok {
		return true
	}
	w.active[key] = struct{}{}
	defer delete(w.active, key)

	depth++
	switch b := base.(type) {
	case *typeexpr.ClassExpr:
		return w.belowClass(child, b.Class, depth)
	case *typeexpr.ParameterizedExpr:
		return w.belowParameterized(child, b, depth)
	case *typeexpr.ArrayExpr:
		return w.belowArray(child, b, depth)
	case *typeexpr.WildcardExpr:
		return w.fitsWildcard(child, b, depth)
	case *typeexpr.VariableExpr:
		return w.fitsVariable(child, b, depth)
	}
	return false
}

func (w *subtypeWalk) belowClass(child typeexpr.Expr, base *typeexpr.Class, depth int) bool {
	if base == nil {
		return false
	}
	if base.Name == typeexpr.ObjectName {
		return true
	}
	switch c := child.(type) {
	case *typeexpr.ClassExpr:
		if c.Class == nil {
			return false
		}
		if c.Class.Kind == typeexpr.KindPrimitive || base.Kind == typeexpr.KindPrimitive {
			return boxedName(c.Class) == boxedName(base)
		}
		return w.provider.IsAssignableFrom(base, c.Class)
	case *typeexpr.ParameterizedExpr:
		return c.Raw != nil && w.provider.IsAssignableFrom(base, c.Raw)
	case *typeexpr.ArrayExpr:
		if base.IsArray() {
			return w.subtype(c.Component(), typeexpr.NewClassExpr(base.Component()), depth)
		}
		return base.Name == typeexpr.CloneableName || base.Name == typeexpr.SerializableName
	case *typeexpr.WildcardExpr:
		return w.anyBelow(c.Upper, typeexpr.NewClassExpr(base), depth)
	case *typeexpr.VariableExpr:
		return c.Param != nil && w.anyBelow(c.Param.Bounds, typeexpr.NewClassExpr(base), depth)
	}
	return false
}

func (w *subtypeWalk) belowParameterized(child typeexpr.Expr, base *typeexpr.ParameterizedExpr, depth int) bool {
	if base.Raw == nil {
		return false
	}
	switch c := child.(type) {
	case *typeexpr.ClassExpr:
		if c.Class == nil || c.Class.IsArray() || c.Class.Kind == typeexpr.KindPrimitive {
			return false
		}
		if !w.provider.IsAssignableFrom(base.Raw, c.Class) {
			return false
		}
		if c.Class == base.Raw {
			return true
		}
		return w.argsContained(c.Class, nil, base, depth)
	case *typeexpr.ParameterizedExpr:
		if c.Raw == nil || !w.provider.IsAssignableFrom(base.Raw, c.Raw) {
			return false
		}
		if c.Raw == base.Raw {
			return w.pairwiseContained(c.Args, base.Args, depth)
		}
		return w.argsContained(c.Raw, c.Args, base, depth)
	case *typeexpr.WildcardExpr:
		return w.anyBelow(c.Upper, base, depth)
	case *typeexpr.VariableExpr:
		return c.Param != nil && w.anyBelow(c.Param.Bounds, base, depth)
	}
	return false
}

// argsContained checks base's arguments against the bindings childRaw makes
// for base.Raw. childArgs, when set, fill childRaw's own parameters.
func (w *subtypeWalk) argsContained(childRaw *typeexpr.Class, childArgs []typeexpr.Expr, base *typeexpr.ParameterizedExpr, depth int) bool {
	for i, want := range base.Args {
		if isObjectExpr(want) {
			continue
		}
		got, err := w.resolver.ResolveExpression(base.Raw, childRaw, i)
		if err != nil {
			return false
		}
		if childArgs != nil {
			got = bindArgs(got, childRaw, childArgs)
		}
		if !w.contained(got, want, depth) {
			return false
		}
	}
	return true
}

func (w *subtypeWalk) pairwiseContained(got, want []typeexpr.Expr, depth int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !w.contained(got[i], want[i], depth) {
			return false
		}
	}
	return true
}

// contained reports whether the actual argument got is contained by the
// expected argument want.
func (w *subtypeWalk) contained(got, want typeexpr.Expr, depth int) bool {
	switch e := want.(type) {
	case *typeexpr.WildcardExpr:
		g, ok := got.(*typeexpr.WildcardExpr)
		if !ok {
			return w.fitsWildcard(got, e, depth)
		}
		for _, u := range e.Upper {
			if !w.anyBelow(g.Upper, u, depth) {
				return false
			}
		}
		for _, l := range e.Lower {
			if !w.anyAbove(l, g.Lower, depth) {
				return false
			}
		}
		return true
	case *typeexpr.VariableExpr:
		return w.subtype(got, want, depth)
	}

	switch g := got.(type) {
	case *typeexpr.WildcardExpr:
		return false
	case *typeexpr.VariableExpr:
		// An unbound variable of a raw child admits any argument that
		// fits its bounds.
		return w.subtype(want, g, depth)
	}
	return w.subtype(got, want, depth) && w.subtype(want, got, depth)
}

func (w *subtypeWalk) belowArray(child typeexpr.Expr, base *typeexpr.ArrayExpr, depth int) bool {
	switch c := child.(type) {
	case *typeexpr.ClassExpr:
		if c.Class == nil || !c.Class.IsArray() {
			return false
		}
		return w.subtype(typeexpr.NewClassExpr(c.Class.Component()), base.Component(), depth)
	case *typeexpr.ArrayExpr:
		return w.subtype(c.Component(), base.Component(), depth)
	case *typeexpr.VariableExpr:
		return c.Param != nil && w.anyBelow(c.Param.Bounds, base, depth)
	}
	return false
}

func (w *subtypeWalk) fitsWildcard(child typeexpr.Expr, base *typeexpr.WildcardExpr, depth int) bool {
	for _, u := range base.Upper {
		if !w.subtype(child, u, depth) {
			return false
		}
	}
	for _, l := range base.Lower {
		if !w.subtype(l, child, depth) {
			return false
		}
	}
	return true
}

func (w *subtypeWalk) fitsVariable(child typeexpr.Expr, base *typeexpr.VariableExpr, depth int) bool {
	if base.Param == nil {
		return false
	}
	if c, ok := child.(*typeexpr.VariableExpr); ok && c.Param == base.Param {
		return true
	}
	if c, ok := child.(*typeexpr.ClassExpr); ok && c.Class != nil && c.Class.Kind == typeexpr.KindPrimitive {
		return false
	}
	for _, b := range base.Param.Bounds {
		if !w.subtype(child, b, depth) {
			return false
		}
	}
	return true
}

// anyBelow reports whether some expression in es is a subtype of base. An
// empty es stands for java.lang.Object.
func (w *subtypeWalk) anyBelow(es []typeexpr.Expr, base typeexpr.Expr, depth int) bool {
	if len(es) == 0 {
		return isObjectExpr(base)
	}
	for _, e := range es {
		if w.subtype(e, base, depth) {
			return true
		}
	}
	return false
}

// anyAbove reports whether child is a subtype of some expression in es.
func (w *subtypeWalk) anyAbove(child typeexpr.Expr, es []typeexpr.Expr, depth int) bool {
	for _, e := range es {
		if w.subtype(child, e, depth) {
			return true
		}
	}
	return false
}

// bindArgs replaces owner's type variables in e with args.
func bindArgs(e typeexpr.Expr, owner *typeexpr.Class, args []typeexpr.Expr) typeexpr.Expr {
	switch v := e.(type) {
	case *typeexpr.VariableExpr:
		if v.Param != nil && v.Param.Owner == owner && v.Param.Index < len(args) {
			return args[v.Param.Index]
		}
	case *typeexpr.ParameterizedExpr:
		out := make([]typeexpr.Expr, len(v.Args))
		for i, a := range v.Args {
			out[i] = bindArgs(a, owner, args)
		}
		return typeexpr.NewParameterizedExpr(v.Raw, out...)
	case *typeexpr.ArrayExpr:
		return typeexpr.NewArrayExpr(bindArgs(v.Elem, owner, args), v.Dims)
	case *typeexpr.WildcardExpr:
		return typeexpr.NewWildcardExpr(bindAll(v.Upper, owner, args), bindAll(v.Lower, owner, args))
	}
	return e
}

func bindAll(es []typeexpr.Expr, owner *typeexpr.Class, args []typeexpr.Expr) []typeexpr.Expr {
	if len(es) == 0 {
		return nil
	}
	out := make([]typeexpr.Expr, len(es))
	for i, e := range es {
		out[i] = bindArgs(e, owner, args)
	}
	return out
}

// exprKey renders e like String but qualifies type variables with their
// owner, so T of one class never matches T of another.
func exprKey(e typeexpr.Expr) string {
	var b strings.Builder
	writeExprKey(&b, e)
	return b.String()
}

func writeExprKey(b *strings.Builder, e typeexpr.Expr) {
	switch v := e.(type) {
	case *typeexpr.VariableExpr:
		if v.Param != nil {
			b.WriteString(v.Param.Owner.String())
			b.WriteByte('#')
		}
		b.WriteString(v.String())
	case *typeexpr.ParameterizedExpr:
		b.WriteString(v.Raw.String())
		b.WriteByte('<')
		writeExprKeys(b, "", v.Args)
		b.WriteByte('>')
	case *typeexpr.ArrayExpr:
		writeExprKey(b, v.Elem)
		b.WriteString(strings.Repeat("[]", v.Dims))
	case *typeexpr.WildcardExpr:
		b.WriteByte('?')
		writeExprKeys(b, " extends ", v.Upper)
		writeExprKeys(b, " super ", v.Lower)
	default:
		b.WriteString(e.String())
	}
}

func writeExprKeys(b *strings.Builder, prefix string, es []typeexpr.Expr) {
	for i, e := range es {
		if i == 0 {
			b.WriteString(prefix)
		} else {
			b.WriteByte(',')
		}
		writeExprKey(b, e)
	}
}

func isObjectExpr(e typeexpr.Expr) bool {
	c, ok := e.(*typeexpr.ClassExpr)
	return ok && c.Class != nil && c.Class.Name == typeexpr.ObjectName
}

func boxedName(c *typeexpr.Class) string {
	if name, ok := typeexpr.BoxedName(c.Name); ok {
		return name
	}
	return c.Name
}
