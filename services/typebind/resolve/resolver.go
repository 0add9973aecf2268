// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve finds the type a class binds to an ancestor's type parameter.
//
// Given a generic ancestor, a leaf class that extends or implements it, and a
// parameter position, the resolver walks the inheritance chain from the
// ancestor's direct subtype down to the leaf, re-binding the position at every
// hop where a subtype forwards one of its own type variables.
//
// Example:
//
//	// class Base<T> {}  class Mid<U> extends Base<U> {}  class Leaf extends Mid<String> {}
//	r := resolve.NewResolver(universe)
//	cls, err := r.ResolveClass(base, leaf, 0) // java.lang.String
//
// # Thread Safety
//
// Resolver holds no mutable state; it is safe for concurrent use whenever its
// Provider is.
package resolve

import (
	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

// maxBoundDepth limits how many variable bounds erasure follows.
const maxBoundDepth = 64

// Resolver resolves type-parameter bindings over a Provider.
type Resolver struct {
	provider typeexpr.Provider
}

// NewResolver creates a Resolver reading metadata from p.
func NewResolver(p typeexpr.Provider) *Resolver {
	return &Resolver{provider: p}
}

// Provider returns the metadata provider.
func (r *Resolver) Provider() typeexpr.Provider {
	return r.provider
}

// Resolve finds the binding of ancestor's position-th type parameter in leaf.
//
// Description:
//
//	If ancestor and leaf are the same class the parameter is unbound and a
//	variable contract for it is returned. Otherwise the chain from ancestor
//	to leaf is built and walked head to tail:
//
//	  - a raw supertype use returns the best contract found so far;
//	  - a concrete class argument returns immediately;
//	  - a parameterized argument returns its raw class (nested arguments are
//	    not reified);
//	  - a wildcard argument returns the wildcard;
//	  - an array argument adds its dimensions and inspects the element;
//	  - a type variable argument re-binds position to the variable's index in
//	    the current class and continues one step toward the leaf.
//
// Inputs:
//   - ancestor: Generic class declaring the parameter.
//   - leaf: Class that extends or implements ancestor (or ancestor itself).
//   - position: Zero-based index into ancestor's type parameters.
//
// Outputs:
//   - *Contract: Exactly one of Class, Variable, Wildcard set.
//   - error: *ResolutionError wrapping ErrUnreachableAncestor,
//     ErrMalformedTypeExpression or ErrParameterIndexOutOfRange.
//
// Thread Safety: Safe for concurrent use.
func (r *Resolver) Resolve(ancestor, leaf *typeexpr.Class, position int) (*Contract, error) {
	if ancestor == nil || leaf == nil {
		return nil, newUnreachable(ancestor, leaf, nil, "nil class")
	}

	params := r.provider.TypeParameters(ancestor)
	if position < 0 || position >= len(params) {
		return nil, newOutOfRange(ancestor, leaf, ancestor, nil, position,
			"%s declares %d type parameter(s)", ancestor, len(params))
	}

	if ancestor == leaf {
		return variableContract(params[position], 0, nil), nil
	}

	chain, err := BuildChain(r.provider, ancestor, leaf)
	if err != nil {
		return nil, err
	}

	return r.walk(ancestor, leaf, chain.Head, position, 0, variableContract(params[position], 0, nil))
}

// walk resolves position starting at node and moving toward the leaf.
//
// dims counts array dimensions accumulated above node; fallback is the best
// contract found above node and is returned when node uses its supertype raw.
func (r *Resolver) walk(ancestor, leaf *typeexpr.Class, node *Node, position, dims int, fallback *Contract) (*Contract, error) {
	for ; node != nil; node = node.Child {
		expr := ConnectingExpr(r.provider, node)

		pe, ok := expr.(*typeexpr.ParameterizedExpr)
		if !ok {
			if _, raw := expr.(*typeexpr.ClassExpr); raw {
				return fallback, nil
			}
			return nil, newMalformed(ancestor, leaf, node.Class, expr, position,
				"%s slot of %s is not a class or parameterized class", node.Slot, node.Class)
		}
		if position >= len(pe.Args) {
			return nil, newOutOfRange(ancestor, leaf, node.Class, pe, position,
				"%s supplies %d type argument(s)", pe, len(pe.Args))
		}

		arg := pe.Args[position]
	inspect:
		for {
			switch a := arg.(type) {
			case *typeexpr.ClassExpr:
				if a.Class == nil {
					return nil, newMalformed(ancestor, leaf, node.Class, pe, position, "class argument without a class")
				}
				cls := r.arrayOf(a.Class, dims)
				return classContract(cls, typeexpr.NewClassExpr(cls), node), nil

			case *typeexpr.ParameterizedExpr:
				if a.Raw == nil {
					return nil, newMalformed(ancestor, leaf, node.Class, pe, position, "parameterized argument without a raw class")
				}
				return classContract(r.arrayOf(a.Raw, dims), typeexpr.NewArrayExpr(a, dims), node), nil

			case *typeexpr.WildcardExpr:
				return wildcardContract(a, dims, node, r.paramAt(pe.Raw, position)), nil

			case *typeexpr.ArrayExpr:
				if a.Dims < 1 || a.Elem == nil {
					return nil, newMalformed(ancestor, leaf, node.Class, a, position, "array expression with %d dimension(s)", a.Dims)
				}
				dims += a.Dims
				arg = a.Elem

			case *typeexpr.VariableExpr:
				if a.Param == nil {
					return nil, newMalformed(ancestor, leaf, node.Class, pe, position, "variable argument without a parameter")
				}
				params := r.provider.TypeParameters(node.Class)
				idx := indexOfParam(params, a.Param.Name)
				if idx < 0 {
					return nil, newOutOfRange(ancestor, leaf, node.Class, a, position,
						"type variable %s is not declared by %s", a.Param.Name, node.Class)
				}
				position = idx
				fallback = variableContract(params[idx], dims, node)
				if node.IsLeaf() {
					return fallback, nil
				}
				break inspect

			default:
				return nil, newMalformed(ancestor, leaf, node.Class, arg, position,
					"unrecognised type expression %T", arg)
			}
		}
	}
	return fallback, nil
}

// ResolveClass resolves to a runtime class.
//
// Description:
//
//	Returns the concrete class when one is bound. Otherwise returns a
//	best-effort erasure: the raw class of a variable's declared bound
//	(following variable bounds transitively) or of a wildcard's upper bound,
//	wrapped in array classes for any array dimensions. The erased class is
//	never more specific than the true binding; use Resolve and
//	Contract.Approximate to tell the two apart.
//
// Outputs:
//   - *typeexpr.Class: The resolved or erased class.
//   - error: Same as Resolve.
func (r *Resolver) ResolveClass(ancestor, leaf *typeexpr.Class, position int) (*typeexpr.Class, error) {
	c, err := r.Resolve(ancestor, leaf, position)
	if err != nil {
		return nil, err
	}
	return r.Erase(c, ancestor, leaf)
}

// Erase projects a contract onto a single runtime class.
//
// ancestor and leaf are used for error context only.
func (r *Resolver) Erase(c *Contract, ancestor, leaf *typeexpr.Class) (*typeexpr.Class, error) {
	if c.Class != nil {
		return c.Class, nil
	}
	bound := c.Bound()
	if bound == nil {
		return nil, newMalformed(ancestor, leaf, nil, c.Expr, 0, "no bound to erase %s to", c)
	}
	cls, err := r.erase(bound, ancestor, leaf, 0)
	if err != nil {
		return nil, err
	}
	return r.arrayOf(cls, c.Dims), nil
}

func (r *Resolver) erase(e typeexpr.Expr, ancestor, leaf *typeexpr.Class, depth int) (*typeexpr.Class, error) {
	if depth > maxBoundDepth {
		return nil, newMalformed(ancestor, leaf, nil, e, 0, "type variable bounds nest deeper than %d", maxBoundDepth)
	}
	switch v := e.(type) {
	case *typeexpr.ClassExpr:
		if v.Class != nil {
			return v.Class, nil
		}
	case *typeexpr.ParameterizedExpr:
		if v.Raw != nil {
			return v.Raw, nil
		}
	case *typeexpr.ArrayExpr:
		elem, err := r.erase(v.Elem, ancestor, leaf, depth+1)
		if err != nil {
			return nil, err
		}
		return r.arrayOf(elem, v.Dims), nil
	case *typeexpr.VariableExpr:
		if v.Param != nil && v.Param.Bound() != nil {
			return r.erase(v.Param.Bound(), ancestor, leaf, depth+1)
		}
	case *typeexpr.WildcardExpr:
		if len(v.Upper) > 0 {
			return r.erase(v.Upper[0], ancestor, leaf, depth+1)
		}
	}
	return nil, newMalformed(ancestor, leaf, nil, e, 0, "cannot erase %T", e)
}

// ResolveExpression resolves to the full type expression.
//
// Description:
//
//	Returns the expression bound at the resolution site with its shape
//	intact: parameterized arguments stay parameterized, arrays stay arrays,
//	wildcards and unbound variables are returned as they are. Type variables
//	inside the expression that belong to an intermediate class are replaced
//	by their own binding further down the chain, so
//	"Mid<U> extends Base<List<U>>, Leaf extends Mid<String>" yields
//	List<String>.
//
// Outputs:
//   - typeexpr.Expr: The expression. Never nil on success.
//   - error: Same as Resolve.
func (r *Resolver) ResolveExpression(ancestor, leaf *typeexpr.Class, position int) (typeexpr.Expr, error) {
	c, err := r.Resolve(ancestor, leaf, position)
	if err != nil {
		return nil, err
	}
	return r.Expand(c, ancestor, leaf)
}

// Expand returns the contract's expression with intermediate type variables
// substituted. ancestor and leaf are used for error context only.
func (r *Resolver) Expand(c *Contract, ancestor, leaf *typeexpr.Class) (typeexpr.Expr, error) {
	if c.Kind() == ContractVariable {
		return c.Expr, nil
	}
	site := c.site
	if site == nil && c.siteClass != nil {
		var err error
		if site, err = r.findSite(ancestor, leaf, c.siteClass); err != nil {
			return nil, err
		}
	}
	return r.substitute(c.Expr, site, ancestor, leaf)
}

// findSite rebuilds the chain from ancestor to leaf and returns the node for
// class. A class occurs at most once on a chain.
func (r *Resolver) findSite(ancestor, leaf, class *typeexpr.Class) (*Node, error) {
	chain, err := BuildChain(r.provider, ancestor, leaf)
	if err != nil {
		return nil, err
	}
	for n := chain.Head; n != nil; n = n.Child {
		if n.Class == class {
			return n, nil
		}
	}
	return nil, newUnreachable(ancestor, leaf, class, "%s is not on the chain", class)
}

func (r *Resolver) substitute(e typeexpr.Expr, site *Node, ancestor, leaf *typeexpr.Class) (typeexpr.Expr, error) {
	if site == nil {
		return e, nil
	}

	switch v := e.(type) {
	case *typeexpr.ClassExpr:
		return v, nil

	case *typeexpr.VariableExpr:
		if site.IsLeaf() || v.Param == nil {
			return v, nil
		}
		params := r.provider.TypeParameters(site.Class)
		idx := indexOfParam(params, v.Param.Name)
		if idx < 0 {
			return nil, newOutOfRange(ancestor, leaf, site.Class, v, 0,
				"type variable %s is not declared by %s", v.Param.Name, site.Class)
		}
		inner, err := r.walk(ancestor, leaf, site.Child, idx, 0, variableContract(params[idx], 0, site))
		if err != nil {
			return nil, err
		}
		if inner.Kind() == ContractVariable {
			return inner.Expr, nil
		}
		return r.substitute(inner.Expr, inner.site, ancestor, leaf)

	case *typeexpr.ParameterizedExpr:
		args := make([]typeexpr.Expr, len(v.Args))
		for i, a := range v.Args {
			sub, err := r.substitute(a, site, ancestor, leaf)
			if err != nil {
				return nil, err
			}
			args[i] = sub
		}
		return typeexpr.NewParameterizedExpr(v.Raw, args...), nil

	case *typeexpr.ArrayExpr:
		elem, err := r.substitute(v.Elem, site, ancestor, leaf)
		if err != nil {
			return nil, err
		}
		return typeexpr.NewArrayExpr(elem, v.Dims), nil

	case *typeexpr.WildcardExpr:
		upper, err := r.substituteAll(v.Upper, site, ancestor, leaf)
		if err != nil {
			return nil, err
		}
		lower, err := r.substituteAll(v.Lower, site, ancestor, leaf)
		if err != nil {
			return nil, err
		}
		return typeexpr.NewWildcardExpr(upper, lower), nil

	default:
		return nil, newMalformed(ancestor, leaf, site.Class, e, 0, "unrecognised type expression %T", e)
	}
}

func (r *Resolver) substituteAll(es []typeexpr.Expr, site *Node, ancestor, leaf *typeexpr.Class) ([]typeexpr.Expr, error) {
	if len(es) == 0 {
		return nil, nil
	}
	out := make([]typeexpr.Expr, len(es))
	for i, e := range es {
		sub, err := r.substitute(e, site, ancestor, leaf)
		if err != nil {
			return nil, err
		}
		out[i] = sub
	}
	return out, nil
}

// arrayOf wraps c in dims array dimensions.
func (r *Resolver) arrayOf(c *typeexpr.Class, dims int) *typeexpr.Class {
	for i := 0; i < dims; i++ {
		c = r.provider.ArrayOf(c)
	}
	return c
}

// paramAt returns c's type parameter at position, or nil.
func (r *Resolver) paramAt(c *typeexpr.Class, position int) *typeexpr.TypeParam {
	if c == nil {
		return nil
	}
	params := r.provider.TypeParameters(c)
	if position < 0 || position >= len(params) {
		return nil
	}
	return params[position]
}

func indexOfParam(params []*typeexpr.TypeParam, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}
