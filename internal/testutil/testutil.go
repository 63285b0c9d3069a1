// Package testutil provides shared test fixtures for the commitment
// adjudication core: pre-registered worldlines, baseline declarations, and a
// deterministic clock, in place of the teacher's container-backed database
// fixtures (there is no storage backend in this core to spin up).
package testutil

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/identity"
)

// TestLogger returns a logger configured for test output (warns only).
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// Clock is a deterministic, manually-advanced clock for tests that assert on
// event ordering or timeouts without sleeping real wall-clock time.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock fixed at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Fixtures bundles the registered identity material behind a small set of
// canonical test worldlines, so gate/policy/ledger tests don't each re-derive
// ids from ad hoc byte strings.
var Fixtures = struct {
	Alice identity.WorldlineID
	Bob   identity.WorldlineID
	Carol identity.WorldlineID
}{
	Alice: identity.Derive([]byte("testutil-alice")),
	Bob:   identity.Derive([]byte("testutil-bob")),
	Carol: identity.Derive([]byte("testutil-carol")),
}

// RegisterFixtures registers the canonical Alice/Bob/Carol worldlines against
// reg, granting each the given capability scoped to domain. Capability may be
// empty to register without granting anything.
func RegisterFixtures(reg *identity.Registry, capability, domain string) {
	for _, material := range [][]byte{[]byte("testutil-alice"), []byte("testutil-bob"), []byte("testutil-carol")} {
		rec := reg.Register(material)
		if capability == "" {
			continue
		}
		_ = reg.GrantCapability(rec.ID, identity.Capability{ID: capability, EffectDomains: []string{domain}})
	}
}

// BaselineDeclaration returns a minimal, valid declaration for declarer in
// domain, reversible and targeting a single placeholder target. Tests mutate
// the returned value's Capabilities/Metadata as needed.
func BaselineDeclaration(declarer identity.WorldlineID, domain declaration.EffectDomain) *declaration.Declaration {
	return &declaration.Declaration{
		DeclaringID:   declarer,
		Scope:         declaration.Scope{EffectDomain: domain, Targets: []string{"fixture-target"}},
		Reversibility: declaration.Reversibility{Kind: declaration.Reversible},
		Metadata:      map[string]string{},
	}
}

// IrreversibleDeclaration returns a declaration identical to
// BaselineDeclaration but marked irreversible, for tests exercising
// reversibility-sensitive policy paths.
func IrreversibleDeclaration(declarer identity.WorldlineID, domain declaration.EffectDomain) *declaration.Declaration {
	decl := BaselineDeclaration(declarer, domain)
	decl.Reversibility = declaration.Reversibility{Kind: declaration.Irreversible}
	return decl
}
