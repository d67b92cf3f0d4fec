package rest

import (
	"strings"
)

// Query parameters and constants shared with the routing layer.
const (
	URLPrefix  = "/ws/rest"
	APIVersion = "v1"

	ParamRepresentation = "v"
	ParamLimit          = "limit"
	ParamStartIndex     = "startIndex"
	ParamQuery          = "q"

	RepresentationRef          = "ref"
	RepresentationDefault      = "default"
	RepresentationFull         = "full"
	RepresentationCustomPrefix = "custom:"
)

// Kind enumerates the representation variants.
type Kind int

const (
	KindDefault Kind = iota
	KindRef
	KindFull
	KindCustom
)

// Representation is a named view controlling which properties of a domain
// object are serialized. The zero value is the default representation.
type Representation struct {
	kind  Kind
	props []CustomProperty
}

// CustomProperty is one item of a custom representation: a property name and
// an optional nested representation for its value.
type CustomProperty struct {
	Name string
	Rep  *Representation
}

var (
	Ref     = Representation{kind: KindRef}
	Default = Representation{kind: KindDefault}
	Full    = Representation{kind: KindFull}
)

// Custom builds a custom representation from already parsed properties.
func Custom(props ...CustomProperty) Representation {
	cp := make([]CustomProperty, len(props))
	copy(cp, props)
	return Representation{kind: KindCustom, props: cp}
}

// Kind returns the variant.
func (r Representation) Kind() Kind { return r.kind }

// IsCustom reports whether r is a custom representation.
func (r Representation) IsCustom() bool { return r.kind == KindCustom }

// Properties returns the parsed items of a custom representation.
func (r Representation) Properties() []CustomProperty {
	out := make([]CustomProperty, len(r.props))
	copy(out, r.props)
	return out
}

// String renders the canonical wire form.
func (r Representation) String() string {
	switch r.kind {
	case KindRef:
		return RepresentationRef
	case KindFull:
		return RepresentationFull
	case KindCustom:
		var b strings.Builder
		b.WriteString(RepresentationCustomPrefix)
		writeCustom(&b, r.props)
		return b.String()
	}
	return RepresentationDefault
}

func writeCustom(b *strings.Builder, props []CustomProperty) {
	b.WriteByte('(')
	for i, p := range props {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name)
		if p.Rep == nil {
			continue
		}
		b.WriteByte(':')
		if p.Rep.kind == KindCustom {
			writeCustom(b, p.Rep.props)
		} else {
			b.WriteString(p.Rep.String())
		}
	}
	b.WriteByte(')')
}

// ParseRepresentation resolves the request-supplied selector.
func ParseRepresentation(s string) (Representation, error) {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", RepresentationDefault:
		return Default, nil
	case RepresentationRef:
		return Ref, nil
	case RepresentationFull:
		return Full, nil
	}
	if len(trimmed) >= len(RepresentationCustomPrefix) &&
		strings.EqualFold(trimmed[:len(RepresentationCustomPrefix)], RepresentationCustomPrefix) {
		props, err := parseCustom(trimmed[len(RepresentationCustomPrefix):])
		if err != nil {
			return Representation{}, err
		}
		return Representation{kind: KindCustom, props: props}, nil
	}
	return Representation{}, MalformedSpecification(s, 0, "unknown representation")
}
