package adapters_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-systems/cac/internal/adapters"
	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/gate"
	"github.com/resonance-systems/cac/internal/identity"
	"github.com/resonance-systems/cac/internal/ledger"
)

func TestToDeclaration_HappyPath(t *testing.T) {
	req := adapters.DeclarationRequest{
		DeclaringID: "wl_alice",
		Scope:       adapters.ScopeRequest{EffectDomain: "Computation", Targets: []string{"widget-api"}},
		Reversibility: adapters.ReversibilityRequest{Kind: "reversible"},
		Capabilities:  []string{"deploy"},
	}
	decl, err := adapters.ToDeclaration(req)
	require.NoError(t, err)
	assert.Equal(t, declaration.DomainComputation, decl.Scope.EffectDomain)
	assert.Equal(t, declaration.Reversible, decl.Reversibility.Kind)
	assert.NotNil(t, decl.Metadata)
}

func TestToDeclaration_MissingDeclaringID(t *testing.T) {
	_, err := adapters.ToDeclaration(adapters.DeclarationRequest{
		Scope: adapters.ScopeRequest{EffectDomain: "Computation"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declaring_id")
}

func TestToDeclaration_PartiallyReversibleRequiresValidRatio(t *testing.T) {
	req := adapters.DeclarationRequest{
		DeclaringID:   "wl_bob",
		Scope:         adapters.ScopeRequest{EffectDomain: "Data"},
		Reversibility: adapters.ReversibilityRequest{Kind: "partially_reversible", Ratio: 1.5},
	}
	_, err := adapters.ToDeclaration(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratio")
}

func TestToDeclaration_RejectsUnrecognizedReversibility(t *testing.T) {
	req := adapters.DeclarationRequest{
		DeclaringID:   "wl_carol",
		Scope:         adapters.ScopeRequest{EffectDomain: "Data"},
		Reversibility: adapters.ReversibilityRequest{Kind: "maybe"},
	}
	_, err := adapters.ToDeclaration(req)
	require.Error(t, err)
}

func TestToDeclaration_RejectsMalformedIntentEventID(t *testing.T) {
	bad := "not-a-uuid"
	req := adapters.DeclarationRequest{
		DeclaringID:   "wl_dave",
		Scope:         adapters.ScopeRequest{EffectDomain: "Data"},
		Reversibility: adapters.ReversibilityRequest{Kind: "reversible"},
		IntentEventID: &bad,
	}
	_, err := adapters.ToDeclaration(req)
	require.Error(t, err)
}

func TestDecodeDeclaration_RejectsUnknownFields(t *testing.T) {
	body := `{"declaring_id":"wl_erin","scope":{"effect_domain":"Data"},"reversibility":{"kind":"reversible"},"bogus_field":1}`
	_, err := adapters.DecodeDeclaration(strings.NewReader(body))
	require.Error(t, err)
}

func TestFromAdjudicationResult_ApprovedTagsCorrectly(t *testing.T) {
	card := &declaration.PolicyDecisionCard{Decision: declaration.DecisionApprove}
	resp := adapters.FromAdjudicationResult(gate.AdjudicationResult{Status: gate.StatusApproved, Card: card})
	assert.NotNil(t, resp.Approved)
	assert.Nil(t, resp.Denied)
	assert.Nil(t, resp.PendingCoSign)
}

func TestFromAdjudicationResult_PendingCoSignCarriesRequired(t *testing.T) {
	signer := identity.WorldlineID("wl_grace")
	resp := adapters.FromAdjudicationResult(gate.AdjudicationResult{
		Status:            gate.StatusPendingCoSign,
		RequiredCoSigners: []identity.WorldlineID{signer},
	})
	require.NotNil(t, resp.PendingCoSign)
	assert.Equal(t, []identity.WorldlineID{signer}, resp.PendingCoSign.Required)
}

func TestEncodeAdjudicationResult_ProducesSingleTaggedKey(t *testing.T) {
	var buf bytes.Buffer
	err := adapters.EncodeAdjudicationResult(&buf, gate.AdjudicationResult{Status: gate.StatusDenied, Card: &declaration.PolicyDecisionCard{}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"Denied"`)
	assert.NotContains(t, buf.String(), `"Approved"`)
}

func TestExitCode_MapsEachOutcome(t *testing.T) {
	assert.Equal(t, 0, adapters.ExitCode(gate.AdjudicationResult{Status: gate.StatusApproved}, nil))
	assert.Equal(t, 2, adapters.ExitCode(gate.AdjudicationResult{Status: gate.StatusDenied}, nil))
	assert.Equal(t, 3, adapters.ExitCode(gate.AdjudicationResult{Status: gate.StatusPendingCoSign}, nil))
	assert.Equal(t, 3, adapters.ExitCode(gate.AdjudicationResult{Status: gate.StatusPendingHumanApproval}, nil))
}

func TestErrorExitCode_MapsEachErrorKind(t *testing.T) {
	assert.Equal(t, 0, adapters.ErrorExitCode(nil))
	assert.Equal(t, 10, adapters.ErrorExitCode(cacerr.New(cacerr.KindIntegrityFailure, "ADAPT-X1", "fabric hash mismatch")))
	assert.Equal(t, 10, adapters.ErrorExitCode(cacerr.New(cacerr.KindInvariantViolation, "ADAPT-X2", "continuity chain broken")))
	assert.Equal(t, 20, adapters.ErrorExitCode(cacerr.New(cacerr.KindInput, "ADAPT-X3", "bad filter")))
	assert.Equal(t, 1, adapters.ErrorExitCode(errors.New("unexpected")))
}

func TestToLifecycleEvent_RejectsZeroVariants(t *testing.T) {
	_, _, err := adapters.ToLifecycleEvent(adapters.OutcomeRequest{CommitmentID: uuid.New().String()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one variant")
}

func TestToLifecycleEvent_FulfilledRoundTrips(t *testing.T) {
	cid := uuid.New()
	req := adapters.OutcomeRequest{CommitmentID: cid.String(), Fulfilled: &struct{}{}}
	gotCID, ev, err := adapters.ToLifecycleEvent(req)
	require.NoError(t, err)
	assert.Equal(t, cid, gotCID)
	assert.Equal(t, ledger.LifecycleFulfilled, ev.Kind)
}

func TestToLifecycleEvent_PartialRejectsOutOfRangeCompletion(t *testing.T) {
	req := adapters.OutcomeRequest{
		CommitmentID: uuid.New().String(),
		Partial:      &adapters.PartialBody{Completion: 1.2},
	}
	_, _, err := adapters.ToLifecycleEvent(req)
	require.Error(t, err)
}

func TestToLedgerFilter_ParsesRFC3339Bounds(t *testing.T) {
	f, err := adapters.ToLedgerFilter(adapters.QueryRequest{
		DeclaringID: "wl_frank",
		From:        "2026-01-01T00:00:00Z",
		To:          "2026-01-02T00:00:00Z",
	})
	require.NoError(t, err)
	assert.False(t, f.From.IsZero())
	assert.False(t, f.To.IsZero())
}

func TestToLedgerFilter_RejectsMalformedTimestamp(t *testing.T) {
	_, err := adapters.ToLedgerFilter(adapters.QueryRequest{From: "not-a-time"})
	require.Error(t, err)
}
