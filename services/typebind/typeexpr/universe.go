// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typeexpr

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Well-known class names.
const (
	ObjectName       = "java.lang.Object"
	CloneableName    = "java.lang.Cloneable"
	SerializableName = "java.io.Serializable"
)

// primitiveNames are declared by every universe.
var primitiveNames = []string{
	"boolean", "byte", "char", "short", "int", "long", "float", "double", "void",
}

// boxedNames maps each primitive to its wrapper class.
var boxedNames = map[string]string{
	"boolean": "java.lang.Boolean",
	"byte":    "java.lang.Byte",
	"char":    "java.lang.Character",
	"short":   "java.lang.Short",
	"int":     "java.lang.Integer",
	"long":    "java.lang.Long",
	"float":   "java.lang.Float",
	"double":  "java.lang.Double",
	"void":    "java.lang.Void",
}

// BoxedName returns the wrapper class name for a primitive name.
func BoxedName(primitive string) (string, bool) {
	name, ok := boxedNames[primitive]
	return name, ok
}

// Universe is a closed set of classes and the Provider over them.
//
// Description:
//
//	A Universe starts with the primitive types and java.lang.Object. Callers
//	declare classes, attach type parameters and supertypes, then call Freeze.
//	Array classes are interned on demand by ArrayOf and Lookup.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Mutating methods fail with
//	ErrUniverseFrozen after Freeze.
type Universe struct {
	mu      sync.RWMutex
	classes map[string]*Class
	arrays  map[*Class]*Class
	frozen  bool
	object  *Class
}

// NewUniverse creates a universe holding the primitives and java.lang.Object.
func NewUniverse() *Universe {
	u := &Universe{
		classes: make(map[string]*Class, 256),
		arrays:  make(map[*Class]*Class),
	}
	for _, name := range primitiveNames {
		u.classes[name] = &Class{Name: name, Kind: KindPrimitive}
	}
	u.object = &Class{Name: ObjectName, Kind: KindClass}
	u.classes[ObjectName] = u.object
	return u
}

// Object returns java.lang.Object.
func (u *Universe) Object() *Class {
	return u.object
}

// Declare adds a new class.
//
// Inputs:
//   - name: Canonical name. Must be non-empty and must not end in "[]".
//   - kind: Class kind. KindArray is rejected; use ArrayOf.
//
// Outputs:
//   - *Class: The new class.
//   - error: ErrInvalidName, ErrDuplicateClass or ErrUniverseFrozen.
func (u *Universe) Declare(name string, kind Kind) (*Class, error) {
	if name == "" || strings.HasSuffix(name, "[]") || kind == KindArray {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.frozen {
		return nil, ErrUniverseFrozen
	}
	if existing, ok := u.classes[name]; ok {
		return existing, fmt.Errorf("%w: %s", ErrDuplicateClass, name)
	}

	c := &Class{Name: name, Kind: kind}
	u.classes[name] = c
	return c, nil
}

// DeclareExternal returns the class for name, creating an external
// placeholder if no class of that name exists.
func (u *Universe) DeclareExternal(name string) (*Class, error) {
	if c, ok := u.Lookup(name); ok {
		return c, nil
	}
	c, err := u.Declare(name, KindExternal)
	if err != nil && c != nil {
		// Lost a race with another declaration of the same name.
		return c, nil
	}
	return c, err
}

// Lookup finds a class by canonical name.
//
// Names ending in "[]" resolve to (and intern) the matching array class.
func (u *Universe) Lookup(name string) (*Class, bool) {
	if base, ok := strings.CutSuffix(name, "[]"); ok {
		component, found := u.Lookup(base)
		if !found {
			return nil, false
		}
		return u.ArrayOf(component), true
	}

	u.mu.RLock()
	defer u.mu.RUnlock()
	c, ok := u.classes[name]
	return c, ok
}

// Classes returns every declared class sorted by name. Array classes are
// not included.
func (u *Universe) Classes() []*Class {
	u.mu.RLock()
	out := make([]*Class, 0, len(u.classes))
	for _, c := range u.classes {
		out = append(out, c)
	}
	u.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of declared classes, excluding array classes.
func (u *Universe) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.classes)
}

// SetTypeParams declares the type parameters of c, replacing any earlier ones.
//
// Outputs:
//   - []*TypeParam: One parameter per name, unbounded until SetBounds.
//   - error: ErrUniverseFrozen or ErrForeignClass.
func (u *Universe) SetTypeParams(c *Class, names ...string) ([]*TypeParam, error) {
	if err := u.checkWritable(c); err != nil {
		return nil, err
	}

	params := make([]*TypeParam, len(names))
	for i, name := range names {
		params[i] = &TypeParam{Name: name, Index: i, Owner: c, object: u.object}
	}
	c.params = params
	return params, nil
}

// SetBounds sets the declared bounds of p.
func (u *Universe) SetBounds(p *TypeParam, bounds ...Expr) error {
	if err := u.checkWritable(p.Owner); err != nil {
		return err
	}
	p.Bounds = bounds
	return nil
}

// SetSupertype sets the superclass expression of c. A nil expression marks
// c as a root.
func (u *Universe) SetSupertype(c *Class, e Expr) error {
	if err := u.checkWritable(c); err != nil {
		return err
	}
	c.super = e
	return nil
}

// AddInterface appends a superinterface expression to c.
func (u *Universe) AddInterface(c *Class, e Expr) error {
	if err := u.checkWritable(c); err != nil {
		return err
	}
	c.interfaces = append(c.interfaces, e)
	return nil
}

// Freeze makes the universe read-only.
func (u *Universe) Freeze() {
	u.mu.Lock()
	u.frozen = true
	u.mu.Unlock()
}

// IsFrozen reports whether Freeze has been called.
func (u *Universe) IsFrozen() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.frozen
}

func (u *Universe) checkWritable(c *Class) error {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if u.frozen {
		return ErrUniverseFrozen
	}
	if c == nil || u.classes[c.Name] != c {
		return fmt.Errorf("%w: %s", ErrForeignClass, c)
	}
	return nil
}

// =============================================================================
// Provider implementation
// =============================================================================

// TypeParameters implements Provider.
func (u *Universe) TypeParameters(c *Class) []*TypeParam {
	return c.params
}

// Supertype implements Provider.
//
// Array classes report java.lang.Object.
func (u *Universe) Supertype(c *Class) Expr {
	if c.IsArray() {
		return &ClassExpr{Class: u.object}
	}
	return c.super
}

// Superinterfaces implements Provider.
//
// Array classes report Cloneable and Serializable when those are declared.
func (u *Universe) Superinterfaces(c *Class) []Expr {
	if c.IsArray() {
		var out []Expr
		for _, name := range []string{CloneableName, SerializableName} {
			if iface, ok := u.Lookup(name); ok {
				out = append(out, &ClassExpr{Class: iface})
			}
		}
		return out
	}
	return c.interfaces
}

// IsAssignableFrom implements Provider.
//
// Description:
//
//	Follows identity, the Object root, array covariance for reference
//	components and the transitive closure of declared supertypes. Cyclic
//	metadata terminates because every class is visited once.
func (u *Universe) IsAssignableFrom(ancestor, descendant *Class) bool {
	if ancestor == nil || descendant == nil {
		return false
	}
	if ancestor == descendant {
		return true
	}
	if ancestor.Kind == KindPrimitive || descendant.Kind == KindPrimitive {
		return false
	}
	if ancestor == u.object {
		return true
	}

	if descendant.IsArray() {
		if ancestor.IsArray() {
			return u.IsAssignableFrom(ancestor.component, descendant.component)
		}
		return ancestor.Name == CloneableName || ancestor.Name == SerializableName
	}
	if ancestor.IsArray() {
		return false
	}

	visited := make(map[*Class]struct{})
	stack := []*Class{descendant}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}

		if cur == ancestor {
			return true
		}
		if raw, ok := RawClassOf(cur.super); ok {
			stack = append(stack, raw)
		}
		for _, iface := range cur.interfaces {
			if raw, ok := RawClassOf(iface); ok {
				stack = append(stack, raw)
			}
		}
	}
	return false
}

// ComponentType implements Provider.
func (u *Universe) ComponentType(e Expr) (Expr, error) {
	switch v := e.(type) {
	case *ArrayExpr:
		return v.Component(), nil
	case *ClassExpr:
		if v.Class != nil && v.Class.IsArray() {
			return &ClassExpr{Class: v.Class.component}, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrNotArray, e)
}

// ArrayOf implements Provider.
//
// Thread Safety: Safe for concurrent use, including after Freeze.
func (u *Universe) ArrayOf(component *Class) *Class {
	u.mu.RLock()
	arr, ok := u.arrays[component]
	u.mu.RUnlock()
	if ok {
		return arr
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if arr, ok := u.arrays[component]; ok {
		return arr
	}
	arr = &Class{Name: component.Name + "[]", Kind: KindArray, component: component}
	u.arrays[component] = arr
	return arr
}

// ArrayOfDims wraps component in dims array dimensions.
func (u *Universe) ArrayOfDims(component *Class, dims int) *Class {
	c := component
	for i := 0; i < dims; i++ {
		c = u.ArrayOf(c)
	}
	return c
}
