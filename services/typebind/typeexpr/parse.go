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
	"strings"
	"unicode"
)

// ParseExpr parses a type expression written in Java syntax against u.
//
// Description:
//
//	Accepts canonical class names with optional type arguments, wildcards
//	(?, ? extends A & B, ? super A) and trailing [] dimensions, e.g.
//	"java.util.Map<java.lang.String, ? extends java.lang.Number>[]". A type
//	parameter is named as Owner#Name, e.g. "com.acme.Box#T". A class or
//	array without arguments parses to a ClassExpr of the interned class.
//
// Outputs:
//   - Expr: The parsed expression.
//   - error: ErrInvalidExpression for syntax errors, ErrUnknownClass for
//     names u does not declare.
func ParseExpr(u *Universe, s string) (Expr, error) {
	p := &exprParser{u: u, src: s}
	e, err := p.parseType(true)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e, nil
}

type exprParser struct {
	u   *Universe
	src string
	pos int
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrInvalidExpression, fmt.Sprintf(format, args...), p.pos, p.src)
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

// accept consumes tok if it is next.
func (p *exprParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

// acceptWord consumes kw only when it is not the prefix of a longer name.
func (p *exprParser) acceptWord(kw string) bool {
	p.skipSpace()
	rest := p.src[p.pos:]
	if !strings.HasPrefix(rest, kw) {
		return false
	}
	if len(rest) > len(kw) && isNameChar(rest[len(kw)]) {
		return false
	}
	p.pos += len(kw)
	return true
}

// parseType parses one type. Wildcards are only legal as type arguments.
func (p *exprParser) parseType(top bool) (Expr, error) {
	if p.accept("?") {
		if top {
			return nil, p.errorf("wildcard outside type arguments")
		}
		return p.parseWildcard()
	}

	name := p.name()
	if name == "" {
		return nil, p.errorf("expected a class name")
	}

	var e Expr
	if owner, param, ok := strings.Cut(name, "#"); ok {
		v, err := p.variable(owner, param)
		if err != nil {
			return nil, err
		}
		e = v
	} else {
		c, found := p.u.Lookup(name)
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
		}
		if p.accept("<") {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			e = NewParameterizedExpr(c, args...)
		} else {
			e = NewClassExpr(c)
		}
	}

	dims := 0
	for p.accept("[") {
		if !p.accept("]") {
			return nil, p.errorf("expected ]")
		}
		dims++
	}
	if ce, ok := e.(*ClassExpr); ok {
		return NewClassExpr(p.u.ArrayOfDims(ce.Class, dims)), nil
	}
	return NewArrayExpr(e, dims), nil
}

func (p *exprParser) variable(owner, param string) (Expr, error) {
	c, found := p.u.Lookup(owner)
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, owner)
	}
	for _, tp := range p.u.TypeParameters(c) {
		if tp.Name == param {
			return NewVariableExpr(tp), nil
		}
	}
	return nil, p.errorf("%s declares no type parameter %s", owner, param)
}

func (p *exprParser) parseArgs() ([]Expr, error) {
	var args []Expr
	for {
		a, err := p.parseType(false)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.accept(">") {
			return args, nil
		}
		if !p.accept(",") {
			return nil, p.errorf("expected , or >")
		}
	}
}

func (p *exprParser) parseWildcard() (Expr, error) {
	var upper bool
	switch {
	case p.acceptWord("extends"):
		upper = true
	case p.acceptWord("super"):
	default:
		return NewWildcardExpr(nil, nil), nil
	}

	var bounds []Expr
	for {
		b, err := p.parseType(false)
		if err != nil {
			return nil, err
		}
		if _, nested := b.(*WildcardExpr); nested {
			return nil, p.errorf("wildcard bound cannot be a wildcard")
		}
		bounds = append(bounds, b)
		if !p.accept("&") {
			break
		}
	}
	if upper {
		return NewWildcardExpr(bounds, nil), nil
	}
	return NewWildcardExpr(nil, bounds), nil
}

// name consumes a dotted identifier, optionally followed by #Param.
func (p *exprParser) name() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && (isNameChar(p.src[p.pos]) || p.src[p.pos] == '.' || p.src[p.pos] == '#') {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isNameChar(b byte) bool {
	return b == '_' || b == '$' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
