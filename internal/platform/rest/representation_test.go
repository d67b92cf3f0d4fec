package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseRepresentation_Literals(t *testing.T) {
	tests := []struct {
		in   string
		want Representation
	}{
		{"", Default},
		{"default", Default},
		{"DEFAULT", Default},
		{" ref ", Ref},
		{"Ref", Ref},
		{"full", Full},
		{"FULL", Full},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepresentation(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestParseRepresentation_Custom(t *testing.T) {
	rep, err := ParseRepresentation("custom:(uuid, display, person:full, roles:(uuid,name:ref))")
	require.NoError(t, err)
	require.True(t, rep.IsCustom())

	props := rep.Properties()
	require.Len(t, props, 4)
	assert.Equal(t, "uuid", props[0].Name)
	assert.Nil(t, props[0].Rep)
	assert.Equal(t, "person", props[2].Name)
	require.NotNil(t, props[2].Rep)
	assert.Equal(t, KindFull, props[2].Rep.Kind())

	roles := props[3].Rep
	require.NotNil(t, roles)
	require.True(t, roles.IsCustom())
	nested := roles.Properties()
	require.Len(t, nested, 2)
	assert.Equal(t, KindRef, nested[1].Rep.Kind())

	assert.Equal(t, "custom:(uuid,display,person:full,roles:(uuid,name:ref))", rep.String())
}

func TestParseRepresentation_CustomWithoutParens(t *testing.T) {
	rep, err := ParseRepresentation("custom:uuid,display")
	require.NoError(t, err)
	assert.Equal(t, "custom:(uuid,display)", rep.String())
}

func TestParseRepresentation_Malformed(t *testing.T) {
	tests := []string{
		"summary",
		"custom:",
		"custom:()",
		"custom:(uuid",
		"custom:(uuid))",
		"custom:(uuid,)",
		"custom:(uuid,uuid)",
		"custom:(person:brief)",
		"custom:(person:)",
		"custom:(1abc)",
		"custom:(a:(b:(c:(d:(e:(f:(g:(h:(i)))))))))",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRepresentation(in)
			require.Error(t, err)
			assert.Equal(t, CodeMalformedSpecification, CodeOf(err))
		})
	}
}

func TestParseRepresentation_DepthLimit(t *testing.T) {
	_, err := ParseRepresentation("custom:(a:(b:(c:(d:(e:(f:(g:(h))))))))")
	assert.NoError(t, err, "eight levels are allowed")
}

func genName() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-zA-Z_][a-zA-Z0-9_]{0,8}`)
}

func genCustom(depth int) *rapid.Generator[Representation] {
	return rapid.Custom(func(t *rapid.T) Representation {
		names := rapid.SliceOfNDistinct(genName(), 1, 5, func(s string) string { return s }).Draw(t, "names")
		props := make([]CustomProperty, len(names))
		for i, n := range names {
			props[i] = CustomProperty{Name: n}
			switch rapid.IntRange(0, 4).Draw(t, "kind") {
			case 1:
				props[i].Rep = &Ref
			case 2:
				props[i].Rep = &Default
			case 3:
				props[i].Rep = &Full
			case 4:
				if depth < 3 {
					nested := genCustom(depth + 1).Draw(t, "nested")
					props[i].Rep = &nested
				}
			}
		}
		return Custom(props...)
	})
}

func TestRepresentation_StringRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rep := genCustom(1).Draw(t, "rep")
		parsed, err := ParseRepresentation(rep.String())
		if err != nil {
			t.Fatalf("re-parse %q: %v", rep.String(), err)
		}
		if parsed.String() != rep.String() {
			t.Fatalf("round trip changed %q into %q", rep.String(), parsed.String())
		}
	})
}

func TestParseRepresentation_NeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`custom:[a-z(),: ]{0,24}`).Draw(t, "s")
		_, err := ParseRepresentation(s)
		if err != nil && CodeOf(err) != CodeMalformedSpecification {
			t.Fatalf("unexpected error code for %q: %v", s, err)
		}
	})
}
