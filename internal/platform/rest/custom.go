package rest

import (
	"strings"
)

// maxCustomDepth bounds nested custom representations.
const maxCustomDepth = 8

// customParser is a recursive-descent parser for the body of a custom
// representation:
//
//	spec  := '(' list ')' | list
//	list  := item (',' item)*
//	item  := name [ ':' rep ]
//	rep   := 'ref' | 'default' | 'full' | '(' list ')'
type customParser struct {
	src string
	pos int
}

func parseCustom(body string) ([]CustomProperty, error) {
	p := &customParser{src: body}
	p.skipSpace()
	var (
		props []CustomProperty
		err   error
	)
	if p.peek() == '(' {
		props, err = p.group(1)
	} else {
		props, err = p.list(1)
	}
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.fail("unexpected trailing input")
	}
	return props, nil
}

func (p *customParser) fail(reason string) *Error {
	return MalformedSpecification(RepresentationCustomPrefix+p.src, p.pos, reason)
}

func (p *customParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *customParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *customParser) group(depth int) ([]CustomProperty, error) {
	if depth > maxCustomDepth {
		return nil, p.fail("representation nested too deeply")
	}
	p.pos++ // '('
	props, err := p.list(depth)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != ')' {
		return nil, p.fail("expected ')'")
	}
	p.pos++
	return props, nil
}

func (p *customParser) list(depth int) ([]CustomProperty, error) {
	seen := make(map[string]bool)
	var props []CustomProperty
	for {
		p.skipSpace()
		item, err := p.item(depth)
		if err != nil {
			return nil, err
		}
		if seen[item.Name] {
			return nil, p.fail("duplicate property " + item.Name)
		}
		seen[item.Name] = true
		props = append(props, item)

		p.skipSpace()
		if p.peek() != ',' {
			return props, nil
		}
		p.pos++
	}
}

func (p *customParser) item(depth int) (CustomProperty, error) {
	name := p.name()
	if name == "" {
		return CustomProperty{}, p.fail("expected property name")
	}
	p.skipSpace()
	if p.peek() != ':' {
		return CustomProperty{Name: name}, nil
	}
	p.pos++
	p.skipSpace()
	rep, err := p.rep(depth)
	if err != nil {
		return CustomProperty{}, err
	}
	return CustomProperty{Name: name, Rep: &rep}, nil
}

func (p *customParser) rep(depth int) (Representation, error) {
	if p.peek() == '(' {
		props, err := p.group(depth + 1)
		if err != nil {
			return Representation{}, err
		}
		return Representation{kind: KindCustom, props: props}, nil
	}
	start := p.pos
	word := p.name()
	switch strings.ToLower(word) {
	case RepresentationRef:
		return Ref, nil
	case RepresentationDefault:
		return Default, nil
	case RepresentationFull:
		return Full, nil
	}
	p.pos = start
	return Representation{}, p.fail("expected ref, default, full or '('")
}

func (p *customParser) name() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		isLetter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if isLetter || (isDigit && p.pos > start) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}
