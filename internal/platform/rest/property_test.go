package rest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPropertyTable_GetSet(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	d := &thing{}
	props := env.things.Properties()

	require.NoError(t, props.Set(ctx, d, "name", "widget"))
	require.NoError(t, props.Set(ctx, d, "count", "42"))
	require.NoError(t, props.Set(ctx, d, "kind", "LARGE"))
	require.NoError(t, props.Set(ctx, d, "when", "2011-01-15"))
	require.NoError(t, props.Set(ctx, d, "owner", "o-1"))
	require.NoError(t, props.Set(ctx, d, "tags", []interface{}{"a", "b"}))

	assert.Equal(t, "widget", d.Name)
	assert.Equal(t, 42, d.Count)
	assert.Equal(t, "large", d.Kind, "enum stores the canonical spelling")
	assert.Equal(t, time.Date(2011, 1, 15, 0, 0, 0, 0, time.UTC), d.When)
	require.NotNil(t, d.Owner)
	assert.Equal(t, "Alice", d.Owner.Name)
	assert.Equal(t, []string{"a", "b"}, d.Tags)

	v, err := props.Get(ctx, d, "count")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPropertyTable_Failures(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	props := env.things.Properties()

	tests := []struct {
		name  string
		prop  string
		value interface{}
		code  Code
		cause error
	}{
		{"missing property", "colour", "red", CodeUnknownProperty, nil},
		{"read-only property", "uuid", "x", CodeConversionFailed, ErrReadOnly},
		{"bad integer", "count", "many", CodeConversionFailed, nil},
		{"bad enum", "kind", "medium", CodeConversionFailed, nil},
		{"bad date", "when", "yesterday", CodeConversionFailed, nil},
		{"unresolvable reference", "owner", "o-404", CodeConversionFailed, nil},
		{"wrong shape", "tags", 12.5, CodeConversionFailed, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := props.Set(ctx, &thing{}, tt.prop, tt.value)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
			var re *Error
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.prop, re.Property)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestPropertyTable_GetUnknown(t *testing.T) {
	env := newTestEnv()
	_, err := env.things.Properties().Get(context.Background(), &thing{}, "colour")
	assert.Equal(t, CodeUnknownProperty, CodeOf(err))
}

func TestPropertyTable_RoundTrip(t *testing.T) {
	env := newTestEnv()
	props := env.things.Properties()
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		d := &thing{}
		name := rapid.String().Draw(t, "name")
		count := rapid.Int().Draw(t, "count")
		kind := rapid.SampledFrom([]string{"small", "large"}).Draw(t, "kind")
		when := time.Unix(rapid.Int64Range(0, 4102444800).Draw(t, "when"), 0).UTC()
		tags := rapid.SliceOf(rapid.String()).Draw(t, "tags")

		values := map[string]interface{}{"name": name, "count": count, "kind": kind, "when": when, "tags": tags}
		for prop, v := range values {
			if err := props.Set(ctx, d, prop, v); err != nil {
				t.Fatalf("set %s: %v", prop, err)
			}
		}
		for prop, want := range values {
			got, err := props.Get(ctx, d, prop)
			if err != nil {
				t.Fatalf("get %s: %v", prop, err)
			}
			assert.Equal(t, want, got, prop)
		}
	})
}

type account struct{ Username string }
type secret struct{ Password string }
type composite struct {
	Account *account
	Secret  *secret
}

func TestChain_RoutesToFirstDeclaringTarget(t *testing.T) {
	accounts := NewPropertyTable[*account]("account")
	Field(accounts, "username", func(a *account) string { return a.Username }, func(a *account, v string) { a.Username = v }, String)
	Field(accounts, "password", func(*account) string { return "" }, func(*account, string) {}, String)

	secrets := NewPropertyTable[*secret]("secret")
	Field(secrets, "password", func(s *secret) string { return s.Password }, func(s *secret, v string) { s.Password = v }, String)

	props := Chain("composite",
		Project(secrets, func(c *composite) *secret { return c.Secret }),
		Project(accounts, func(c *composite) *account { return c.Account }),
	)
	ctx := context.Background()
	c := &composite{Account: &account{}, Secret: &secret{}}

	require.NoError(t, props.Set(ctx, c, "password", "s3cret"))
	require.NoError(t, props.Set(ctx, c, "username", "admin"))
	assert.Equal(t, "s3cret", c.Secret.Password, "password goes to the first target")
	assert.Equal(t, "admin", c.Account.Username)

	assert.True(t, props.Has("username"))
	assert.False(t, props.Has("email"))
	assert.Equal(t, []string{"password", "username"}, props.Names())

	err := props.Set(ctx, c, "email", "a@b.c")
	assert.Equal(t, CodeUnknownProperty, CodeOf(err))
}

func TestField_DuplicatePanics(t *testing.T) {
	table := NewPropertyTable[*account]("account")
	ReadOnly(table, "username", func(a *account) string { return a.Username })
	assert.Panics(t, func() {
		ReadOnly(table, "username", func(a *account) string { return a.Username })
	})
}
