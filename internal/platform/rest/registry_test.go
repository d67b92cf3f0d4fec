package rest

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renamedOwnerHandler struct {
	*ownerHandler
	name string
}

func (h renamedOwnerHandler) Name() string { return h.name }

func ownerResource(reg *Registry, name string) Resource {
	return NewCrudResource[*owner](renamedOwnerHandler{newOwnerHandler(), name}, reg)
}

func TestRegistry_LowestOrderWins(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ownerResource(reg, "owner-v2"), 5))
	require.NoError(t, reg.Register(ownerResource(reg, "owner"), 1))
	require.NoError(t, reg.Freeze())

	res, ok := reg.ForValue(&owner{})
	require.True(t, ok)
	assert.Equal(t, "owner", res.Name())

	res, ok = reg.ForType(reflect.TypeOf(&owner{}))
	require.True(t, ok)
	assert.Equal(t, "owner", res.Name())

	byName, err := reg.ByName("owner-v2")
	require.NoError(t, err)
	assert.Equal(t, "owner-v2", byName.Name())
}

func TestRegistry_PriorityTie(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ownerResource(reg, "a"), 1))
	require.NoError(t, reg.Register(ownerResource(reg, "b"), 1))
	require.NoError(t, reg.Register(ownerResource(reg, "c"), 7))

	err := reg.Freeze()
	require.ErrorIs(t, err, ErrPriorityTie)
	assert.Contains(t, err.Error(), "a, b")
	assert.NoError(t, reg.Register(ownerResource(reg, "d"), 9), "a failed Freeze leaves the registry open")
}

func TestRegistry_TieAboveLowestIsFine(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ownerResource(reg, "a"), 0))
	require.NoError(t, reg.Register(ownerResource(reg, "b"), 3))
	require.NoError(t, reg.Register(ownerResource(reg, "c"), 3))
	assert.NoError(t, reg.Freeze())
}

func TestRegistry_DuplicateName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ownerResource(reg, "owner"), 0))
	err := reg.Register(ownerResource(reg, "owner"), 1)
	assert.ErrorIs(t, err, ErrDuplicateResource)
}

func TestRegistry_FrozenRejectsRegister(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Freeze())
	err := reg.Register(ownerResource(reg, "owner"), 0)
	assert.ErrorIs(t, err, ErrRegistryFrozen)
}

func TestRegistry_Lookups(t *testing.T) {
	env := newTestEnv()

	_, err := env.reg.ByName("nothing")
	assert.Equal(t, CodeUnknownResource, CodeOf(err))

	_, ok := env.reg.ForValue("a string")
	assert.False(t, ok)
	_, ok = env.reg.ForValue(nil)
	assert.False(t, ok)

	assert.Equal(t, []string{"owner", "thing"}, env.reg.Names())
	assert.Len(t, env.reg.Resources(), 2)
}

func TestRegistry_UnfrozenHasNoTypeMapping(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ownerResource(reg, "owner"), 0))
	_, ok := reg.ForValue(&owner{})
	assert.False(t, ok)
}
