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
	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

// ContractKind says which field of a Contract is populated.
type ContractKind int

const (
	// ContractClass means a concrete class was found.
	ContractClass ContractKind = iota

	// ContractVariable means the binding is still a type variable.
	ContractVariable

	// ContractWildcard means the binding is a wildcard.
	ContractWildcard
)

// String returns "class", "variable" or "wildcard".
func (k ContractKind) String() string {
	switch k {
	case ContractClass:
		return "class"
	case ContractVariable:
		return "variable"
	case ContractWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Contract is the outcome of a resolution.
//
// Description:
//
//	Exactly one of Class, Variable and Wildcard is set. Class is the most
//	specific answer. Dims counts array dimensions wrapped around a Variable
//	or Wildcard result (T[] resolves to Variable=T, Dims=1); a Class result
//	is already the array class. Expr is the expression found at the binding
//	site with its full shape, e.g. List<String> where Class is List.
type Contract struct {
	Class    *typeexpr.Class
	Variable *typeexpr.TypeParam
	Wildcard *typeexpr.WildcardExpr
	Dims     int
	Expr     typeexpr.Expr

	// site is the chain node whose declaration holds Expr. Memoized
	// contracts drop it and keep only siteClass, so cached values never
	// pin a chain.
	site      *Node
	siteClass *typeexpr.Class

	// filled is the parameter a wildcard stands for; its bound erases an
	// unbounded or lower-bounded wildcard.
	filled *typeexpr.TypeParam
}

func classContract(c *typeexpr.Class, expr typeexpr.Expr, site *Node) *Contract {
	return &Contract{Class: c, Expr: expr, site: site}
}

func variableContract(p *typeexpr.TypeParam, dims int, site *Node) *Contract {
	return &Contract{
		Variable: p,
		Dims:     dims,
		Expr:     typeexpr.NewArrayExpr(typeexpr.NewVariableExpr(p), dims),
		site:     site,
	}
}

func wildcardContract(w *typeexpr.WildcardExpr, dims int, site *Node, filled *typeexpr.TypeParam) *Contract {
	return &Contract{
		Wildcard: w,
		Dims:     dims,
		Expr:     typeexpr.NewArrayExpr(w, dims),
		site:     site,
		filled:   filled,
	}
}

// detach returns a copy of c that refers to its binding site by class only.
func (c *Contract) detach() *Contract {
	if c.site == nil {
		return c
	}
	d := *c
	d.siteClass = c.site.Class
	d.site = nil
	return &d
}

// Kind reports which field is populated.
func (c *Contract) Kind() ContractKind {
	switch {
	case c.Class != nil:
		return ContractClass
	case c.Variable != nil:
		return ContractVariable
	default:
		return ContractWildcard
	}
}

// Approximate reports whether the contract is weaker than a concrete class,
// so ResolveClass can only return an erased bound.
func (c *Contract) Approximate() bool {
	return c.Class == nil
}

// Bound returns the upper bound used for erasure: the variable's declared
// bound, or the wildcard's first upper bound. A wildcard without an upper
// bound falls back to the declared bound of the parameter it fills. Returns
// nil for a concrete class.
func (c *Contract) Bound() typeexpr.Expr {
	switch c.Kind() {
	case ContractVariable:
		return c.Variable.Bound()
	case ContractWildcard:
		if len(c.Wildcard.Upper) > 0 {
			return c.Wildcard.Upper[0]
		}
		if c.filled != nil {
			return c.filled.Bound()
		}
	}
	return nil
}

// String renders the contract's expression.
func (c *Contract) String() string {
	if c.Expr != nil {
		return c.Expr.String()
	}
	if c.Class != nil {
		return c.Class.String()
	}
	return "<empty>"
}

// maxAcceptDepth caps how far Accepts follows variable bounds.
const maxAcceptDepth = 64

// Accepts reports whether a value of class cand satisfies the contract.
//
// Description:
//
//	A class contract accepts cand when its class is assignable from it. A
//	variable contract accepts cand when every declared bound accepts it, and a
//	wildcard contract when every upper bound does; lower bounds constrain
//	what may be written and are ignored. Array dimensions on a variable or
//	wildcard contract are peeled off cand first, so T[] only accepts arrays
//	whose component satisfies T. Primitives are accepted only by a contract
//	naming that exact primitive.
//
// Inputs:
//   - p: Provider that owns both the contract's classes and c.
//   - cand: Candidate class. A nil candidate is never accepted.
func (c *Contract) Accepts(p typeexpr.Provider, cand *typeexpr.Class) bool {
	if cand == nil {
		return false
	}
	if c.Class != nil {
		return p.IsAssignableFrom(c.Class, cand)
	}

	cand, ok := peelDims(cand, c.Dims)
	if !ok {
		return false
	}
	switch c.Kind() {
	case ContractVariable:
		return paramAccepts(p, c.Variable, cand, 0)
	case ContractWildcard:
		return allAccept(p, c.Wildcard.Upper, cand, 0)
	}
	return false
}

// AcceptsAll returns the candidates the contract accepts, in input order.
func (c *Contract) AcceptsAll(p typeexpr.Provider, cands []*typeexpr.Class) []*typeexpr.Class {
	var out []*typeexpr.Class
	for _, cand := range cands {
		if c.Accepts(p, cand) {
			out = append(out, cand)
		}
	}
	return out
}

func peelDims(c *typeexpr.Class, dims int) (*typeexpr.Class, bool) {
	for i := 0; i < dims; i++ {
		if !c.IsArray() {
			return nil, false
		}
		c = c.Component()
	}
	return c, true
}

func paramAccepts(p typeexpr.Provider, tp *typeexpr.TypeParam, c *typeexpr.Class, depth int) bool {
	if len(tp.Bounds) == 0 {
		return c.Kind != typeexpr.KindPrimitive
	}
	return allAccept(p, tp.Bounds, c, depth)
}

func allAccept(p typeexpr.Provider, bounds []typeexpr.Expr, c *typeexpr.Class, depth int) bool {
	for _, b := range bounds {
		if !boundAccepts(p, b, c, depth) {
			return false
		}
	}
	return c.Kind != typeexpr.KindPrimitive
}

func boundAccepts(p typeexpr.Provider, bound typeexpr.Expr, c *typeexpr.Class, depth int) bool {
	if depth > maxAcceptDepth {
		return false
	}
	switch b := bound.(type) {
	case *typeexpr.ClassExpr:
		return p.IsAssignableFrom(b.Class, c)
	case *typeexpr.ParameterizedExpr:
		return p.IsAssignableFrom(b.Raw, c)
	case *typeexpr.ArrayExpr:
		comp, ok := peelDims(c, b.Dims)
		return ok && boundAccepts(p, b.Elem, comp, depth+1)
	case *typeexpr.VariableExpr:
		return b.Param != nil && paramAccepts(p, b.Param, c, depth+1)
	case *typeexpr.WildcardExpr:
		return allAccept(p, b.Upper, c, depth+1)
	}
	return false
}
