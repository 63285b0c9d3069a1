package cac

import (
	"context"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/gate"
	"github.com/resonance-systems/cac/internal/ledger"
)

// AdjudicationResult re-exports gate.AdjudicationResult so callers of the
// public API need not import the gate package directly.
type AdjudicationResult = gate.AdjudicationResult

// EventHook receives async notifications when a commitment is adjudicated or
// its lifecycle advances. Multiple hooks may be registered via multiple
// WithEventHook calls. Hook methods run in goroutines; they must not block
// indefinitely, and a failure is logged but never fails the originating
// Submit or RecordOutcome call.
type EventHook interface {
	OnAdjudicated(ctx context.Context, decl *declaration.Declaration, result AdjudicationResult) error
	OnOutcomeRecorded(ctx context.Context, commitmentID uuid.UUID, event ledger.LifecycleEvent) error
}
