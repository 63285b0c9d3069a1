package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-systems/cac/internal/identity"
)

func TestDerive_IsDeterministic(t *testing.T) {
	a := identity.Derive([]byte("alice-genesis-material"))
	b := identity.Derive([]byte("alice-genesis-material"))
	assert.Equal(t, a, b)
}

func TestDerive_DistinctMaterialDistinctID(t *testing.T) {
	a := identity.Derive([]byte("alice"))
	b := identity.Derive([]byte("bob"))
	assert.NotEqual(t, a, b)
}

func TestRegister_IsIdempotent(t *testing.T) {
	r := identity.NewRegistry()
	first := r.Register([]byte("alice"))
	second := r.Register([]byte("alice"))
	assert.Same(t, first, second)
	assert.Equal(t, identity.StateActive, first.State)
}

func TestGet_ReturnsNotFoundForUnregistered(t *testing.T) {
	r := identity.NewRegistry()
	_, err := r.Get("wl_nonexistent")
	require.Error(t, err)
}

func TestGrantAndHasCapability_ScopedToDomain(t *testing.T) {
	r := identity.NewRegistry()
	rec := r.Register([]byte("alice"))

	err := r.GrantCapability(rec.ID, identity.Capability{ID: "deploy", EffectDomains: []string{"Computation"}})
	require.NoError(t, err)

	assert.True(t, r.HasCapability(rec.ID, "deploy", "Computation"))
	assert.False(t, r.HasCapability(rec.ID, "deploy", "Finance"))
	assert.False(t, r.HasCapability(rec.ID, "nonexistent", "Computation"))
}

func TestHasCapability_UnscopedCapabilityCoversNothing(t *testing.T) {
	r := identity.NewRegistry()
	rec := r.Register([]byte("alice"))
	require.NoError(t, r.GrantCapability(rec.ID, identity.Capability{ID: "noop"}))

	assert.False(t, r.HasCapability(rec.ID, "noop", "Computation"))
}

func TestSuspend_TransitionsOutOfActive(t *testing.T) {
	r := identity.NewRegistry()
	rec := r.Register([]byte("alice"))
	assert.True(t, r.IsActive(rec.ID))

	require.NoError(t, r.Suspend(rec.ID))
	assert.False(t, r.IsActive(rec.ID))
}

func TestForget_RemovesRecordEntirely(t *testing.T) {
	r := identity.NewRegistry()
	rec := r.Register([]byte("alice"))
	r.Forget(rec.ID)

	_, err := r.Get(rec.ID)
	require.Error(t, err)
}
