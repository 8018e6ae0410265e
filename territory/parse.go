package territory

import (
	"fmt"
	"strings"
)

// Parse reads an expression in the generated-source grammar back into a
// Part list. The grammar is the serializer's output language: bare or
// dotted identifiers, gadm("CODE") calls, polygon([[lat,lng],…]) calls,
// parenthesized subexpressions and the infix operators | - & at equal
// precedence, left associative. The literal None is an expression with
// nothing in it.
//
// A parenthesized run of two or more union-joined single-value leaves of
// one type collapses into a single multi-value leaf, the inverse of the
// serializer's multi-value forms. Everything else parenthesized becomes a
// group.
func Parse(src string) ([]Part, error) {
	p := &parser{src: src}
	p.skipSpace()
	if p.eof() {
		return []Part{}, nil
	}
	parts, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos], p.pos)
	}
	return parts, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseExpression() ([]Part, error) {
	parts := []Part{}
	term, present, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if present {
		term.Op = OpUnion
		parts = append(parts, term)
	}
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		var op SetOp
		switch p.src[p.pos] {
		case '|':
			op = OpUnion
		case '-':
			op = OpDifference
		case '&':
			op = OpIntersection
		default:
			return parts, nil
		}
		p.pos++
		term, present, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if !present {
			// A vacuous operand (None) contributes neither a part nor an
			// operator slot, the same shape the serializer's skip rule makes.
			continue
		}
		if len(parts) == 0 {
			term.Op = OpUnion
		} else {
			term.Op = op
		}
		parts = append(parts, term)
	}
	return parts, nil
}

// parseTerm returns the next operand. present is false for operands that
// stand for nothing (the None literal).
func (p *parser) parseTerm() (Part, bool, error) {
	p.skipSpace()
	if p.eof() {
		return Part{}, false, fmt.Errorf("expression ends where an operand should start, offset %d", p.pos)
	}
	c := p.src[p.pos]
	if c == '(' {
		p.pos++
		inner, err := p.parseExpression()
		if err != nil {
			return Part{}, false, err
		}
		if err := p.expect(')'); err != nil {
			return Part{}, false, err
		}
		if leaf, ok := compressUnionChain(inner); ok {
			return leaf, true, nil
		}
		return Group(inner...), true, nil
	}
	if isIdentStart(c) {
		name := p.readIdent()
		switch name {
		case "None":
			return Part{}, false, nil
		case "gadm":
			p.skipSpace()
			if !p.eof() && p.src[p.pos] == '(' {
				return p.parseGADMCall()
			}
		case "polygon":
			p.skipSpace()
			if !p.eof() && p.src[p.pos] == '(' {
				return p.parsePolygonCall()
			}
		}
		if !p.eof() && p.src[p.pos] == '.' {
			p.pos++
			if p.eof() || !isIdentStart(p.src[p.pos]) {
				return Part{}, false, fmt.Errorf("dangling %q after %q, offset %d", ".", name, p.pos)
			}
			attr := p.readIdent()
			return Predefined(name + "." + attr), true, nil
		}
		return Predefined(name), true, nil
	}
	return Part{}, false, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
}

func (p *parser) parseGADMCall() (Part, bool, error) {
	p.pos++ // opening paren
	p.skipSpace()
	code, err := p.readString()
	if err != nil {
		return Part{}, false, err
	}
	if err := p.expect(')'); err != nil {
		return Part{}, false, err
	}
	return GADM(code), true, nil
}

func (p *parser) parsePolygonCall() (Part, bool, error) {
	p.pos++ // opening paren
	p.skipSpace()
	if p.eof() || p.src[p.pos] != '[' {
		return Part{}, false, fmt.Errorf("polygon needs a coordinate array, offset %d", p.pos)
	}
	start := p.pos
	depth := 0
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case '[':
			depth++
		case ']':
			depth--
		}
		if depth == 0 {
			p.pos++
			break
		}
	}
	if depth != 0 {
		return Part{}, false, fmt.Errorf("unbalanced coordinate array starting at offset %d", start)
	}
	literal := p.src[start:p.pos]
	if err := p.expect(')'); err != nil {
		return Part{}, false, err
	}
	// Bad pairs drop out here; a fully bad literal leaves an empty ring,
	// which later formats as nothing.
	return Polygon(decodePointList([]byte(literal))...), true, nil
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.eof() || p.src[p.pos] != c {
		return fmt.Errorf("expected %q at offset %d", string(c), p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) readIdent() string {
	start := p.pos
	for !p.eof() && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// readString reads a quoted literal. Generated code always uses double
// quotes; hand-written library code sometimes uses single ones.
func (p *parser) readString() (string, error) {
	if p.eof() || (p.src[p.pos] != '"' && p.src[p.pos] != '\'') {
		return "", fmt.Errorf("expected a string literal at offset %d", p.pos)
	}
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch c {
		case '\\':
			if p.pos+1 >= len(p.src) {
				return "", fmt.Errorf("unterminated string at offset %d", p.pos)
			}
			p.pos++
			b.WriteByte(p.src[p.pos])
			p.pos++
		case quote:
			p.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string at offset %d", p.pos)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// compressUnionChain collapses a chain of same-type single-value leaves
// joined by unions into one multi-value leaf. Anything else keeps its
// group shape.
func compressUnionChain(parts []Part) (Part, bool) {
	if len(parts) < 2 {
		return Part{}, false
	}
	baseType := parts[0].Type
	if baseType != TypeGADM && baseType != TypePredefined {
		return Part{}, false
	}
	values := make([]string, 0, len(parts))
	for i, part := range parts {
		if part.Type != baseType {
			return Part{}, false
		}
		if i > 0 && part.Op != OpUnion {
			return Part{}, false
		}
		if len(part.Values) != 1 {
			return Part{}, false
		}
		v := strings.TrimSpace(part.Values[0])
		if v == "" {
			return Part{}, false
		}
		values = append(values, v)
	}
	return Part{Op: OpUnion, Type: baseType, Values: values}, true
}
