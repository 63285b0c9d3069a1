package testutil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/identity"
	"github.com/resonance-systems/cac/internal/testutil"
)

func TestClock_AdvanceMovesTimeForward(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := testutil.NewClock(start)
	assert.Equal(t, start, c.Now())

	next := c.Advance(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), next)
	assert.Equal(t, next, c.Now())
}

func TestRegisterFixtures_GrantsCapabilityToAll(t *testing.T) {
	reg := identity.NewRegistry()
	testutil.RegisterFixtures(reg, "act", "Computation")

	for _, id := range []identity.WorldlineID{testutil.Fixtures.Alice, testutil.Fixtures.Bob, testutil.Fixtures.Carol} {
		assert.True(t, reg.HasCapability(id, "act", "Computation"))
	}
}

func TestBaselineDeclaration_IsReversible(t *testing.T) {
	decl := testutil.BaselineDeclaration(testutil.Fixtures.Alice, declaration.DomainComputation)
	assert.Equal(t, declaration.Reversible, decl.Reversibility.Kind)
	assert.NotNil(t, decl.Metadata)
}

func TestIrreversibleDeclaration_OverridesReversibility(t *testing.T) {
	decl := testutil.IrreversibleDeclaration(testutil.Fixtures.Bob, declaration.DomainData)
	assert.True(t, decl.Reversibility.IsIrreversible())
}
