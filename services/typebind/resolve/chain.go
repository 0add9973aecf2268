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
	"fmt"

	"github.com/AleutianAI/typebind/services/typebind/typeexpr"
)

// SlotKind says how a node reaches its parent in a chain.
type SlotKind int

const (
	// SlotExtends means the parent is the node's superclass.
	SlotExtends SlotKind = iota

	// SlotImplements means the parent is one of the node's superinterfaces.
	SlotImplements
)

// String returns "extends" or "implements".
func (k SlotKind) String() string {
	if k == SlotImplements {
		return "implements"
	}
	return "extends"
}

// Slot identifies the supertype expression linking a node to its parent.
type Slot struct {
	Kind SlotKind

	// Index is the superinterface index for SlotImplements; 0 otherwise.
	Index int
}

// String renders the slot, e.g. "extends" or "implements[1]".
func (s Slot) String() string {
	if s.Kind == SlotImplements {
		return fmt.Sprintf("implements[%d]", s.Index)
	}
	return "extends"
}

// Node is one class on the path from an ancestor down to a leaf.
//
// Nodes are created per resolution and never shared between calls.
type Node struct {
	// Class is the class this node represents.
	Class *typeexpr.Class

	// Slot selects the expression on Class that names Parent (or the ancestor
	// itself, for the head).
	Slot Slot

	// Parent is the next node toward the ancestor; nil for the head.
	Parent *Node

	// Child is the next node toward the leaf; nil for the tail.
	Child *Node
}

// IsLeaf reports whether n is the tail of its chain.
func (n *Node) IsLeaf() bool {
	return n.Child == nil
}

// Chain is the inheritance path from an ancestor's direct subtype (Head)
// down to the leaf (Tail). The ancestor itself is not part of the chain.
type Chain struct {
	Ancestor *typeexpr.Class
	Head     *Node
	Tail     *Node
}

// Nodes returns the chain head first.
func (c *Chain) Nodes() []*Node {
	var out []*Node
	for n := c.Head; n != nil; n = n.Child {
		out = append(out, n)
	}
	return out
}

// Len returns the number of nodes.
func (c *Chain) Len() int {
	n := 0
	for cur := c.Head; cur != nil; cur = cur.Child {
		n++
	}
	return n
}

// ConnectingExpr returns the supertype expression on n.Class selected by
// n.Slot, or nil if the slot is out of range.
func ConnectingExpr(p typeexpr.Provider, n *Node) typeexpr.Expr {
	if n.Slot.Kind == SlotExtends {
		return p.Supertype(n.Class)
	}
	ifaces := p.Superinterfaces(n.Class)
	if n.Slot.Index < 0 || n.Slot.Index >= len(ifaces) {
		return nil
	}
	return ifaces[n.Slot.Index]
}

// BuildChain finds the inheritance path from ancestor down to leaf.
//
// Description:
//
//	Starts at leaf and walks upward. At each step the superclass is checked
//	first; if its raw class is the ancestor the walk stops, and if the
//	ancestor is assignable from it the walk continues there. Otherwise the
//	declared superinterfaces are scanned in order with the same two checks,
//	and the first match wins. Only one path is produced even when the
//	ancestor is reachable through several routes.
//
// Inputs:
//   - p: Metadata provider.
//   - ancestor: The generic class whose parameter is being resolved.
//   - leaf: The most-derived class. Must differ from ancestor.
//
// Outputs:
//   - *Chain: Head is the ancestor's direct subtype, Tail is leaf.
//   - error: *ResolutionError wrapping ErrUnreachableAncestor when no path
//     exists or the metadata is cyclic, or ErrMalformedTypeExpression when a
//     supertype expression is not a class or parameterized class.
//
// Thread Safety: Safe for concurrent use if p is.
func BuildChain(p typeexpr.Provider, ancestor, leaf *typeexpr.Class) (*Chain, error) {
	if ancestor == nil || leaf == nil {
		return nil, newUnreachable(ancestor, leaf, nil, "nil class")
	}
	if ancestor == leaf {
		return nil, newUnreachable(ancestor, leaf, leaf, "leaf is the ancestor itself")
	}

	tail := &Node{Class: leaf}
	cursor := tail
	visited := map[*typeexpr.Class]struct{}{leaf: {}}

	for {
		next, done, err := step(p, ancestor, leaf, cursor)
		if err != nil {
			return nil, err
		}
		if done {
			return &Chain{Ancestor: ancestor, Head: cursor, Tail: tail}, nil
		}

		if _, seen := visited[next.Class]; seen {
			return nil, newUnreachable(ancestor, leaf, next.Class, "cyclic hierarchy through %s", next.Class)
		}
		visited[next.Class] = struct{}{}

		next.Child = cursor
		cursor.Parent = next
		cursor = next
	}
}

// step records the slot on cursor that leads toward ancestor.
//
// Returns done=true if that slot names the ancestor directly; otherwise a new
// parent node to continue from.
func step(p typeexpr.Provider, ancestor, leaf *typeexpr.Class, cursor *Node) (*Node, bool, error) {
	if super := p.Supertype(cursor.Class); super != nil {
		raw, ok := typeexpr.RawClassOf(super)
		if !ok {
			return nil, false, newMalformed(ancestor, leaf, cursor.Class, super, 0,
				"superclass must be a class or parameterized class, got %s", super.Shape())
		}
		if raw == ancestor {
			cursor.Slot = Slot{Kind: SlotExtends}
			return nil, true, nil
		}
		if p.IsAssignableFrom(ancestor, raw) {
			cursor.Slot = Slot{Kind: SlotExtends}
			return &Node{Class: raw}, false, nil
		}
	}

	for i, iface := range p.Superinterfaces(cursor.Class) {
		raw, ok := typeexpr.RawClassOf(iface)
		if !ok {
			return nil, false, newMalformed(ancestor, leaf, cursor.Class, iface, 0,
				"superinterface %d must be a class or parameterized class, got %s", i, shapeOf(iface))
		}
		if raw == ancestor {
			cursor.Slot = Slot{Kind: SlotImplements, Index: i}
			return nil, true, nil
		}
		if p.IsAssignableFrom(ancestor, raw) {
			cursor.Slot = Slot{Kind: SlotImplements, Index: i}
			return &Node{Class: raw}, false, nil
		}
	}

	return nil, false, newUnreachable(ancestor, leaf, cursor.Class,
		"%s does not extend or implement %s", cursor.Class, ancestor)
}

func shapeOf(e typeexpr.Expr) string {
	if e == nil {
		return "<nil>"
	}
	return string(e.Shape())
}
