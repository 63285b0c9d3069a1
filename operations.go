package cac

import (
	"context"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/continuity"
	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/fabric"
	"github.com/resonance-systems/cac/internal/identity"
	"github.com/resonance-systems/cac/internal/ledger"
)

// Submit runs a declaration through the seven-stage adjudication pipeline
// and returns the resulting card, pending state, or denial (spec §6
// submit_commitment). Registered EventHooks are notified asynchronously once
// the pipeline returns.
func (a *App) Submit(ctx context.Context, decl *declaration.Declaration) (AdjudicationResult, error) {
	result, err := a.Gate.Submit(ctx, decl)
	if err == nil {
		a.notifyHooks(func(h EventHook) {
			if herr := h.OnAdjudicated(ctx, decl, result); herr != nil {
				a.logger.Error("event hook OnAdjudicated failed", "error", herr)
			}
		})
	}
	return result, err
}

// RecordOutcome reports a terminal or partial outcome against an already
// adjudicated commitment (spec §6 record_outcome). Registered EventHooks are
// notified asynchronously on success.
func (a *App) RecordOutcome(ctx context.Context, commitmentID uuid.UUID, ev ledger.LifecycleEvent) error {
	if err := a.Gate.RecordOutcome(commitmentID, ev); err != nil {
		return err
	}
	a.notifyHooks(func(h EventHook) {
		if herr := h.OnOutcomeRecorded(ctx, commitmentID, ev); herr != nil {
			a.logger.Error("event hook OnOutcomeRecorded failed", "error", herr)
		}
	})
	return nil
}

// Cancel withdraws a pending commitment before it reaches a terminal state.
func (a *App) Cancel(commitmentID uuid.UUID, requester identity.WorldlineID) error {
	return a.Gate.Cancel(commitmentID, requester)
}

// Query returns every ledger entry matching filter, read-only (spec §6
// query_ledger).
func (a *App) Query(filter ledger.Filter) []*ledger.Entry {
	return a.Ledger.Query(filter)
}

// Subscribe opens a pull-based subscription over the event fabric, filtered
// by worldline and/or stage (spec §6 event subscription). Callers must
// eventually call Close on the returned subscription.
func (a *App) Subscribe(filter fabric.Filter, bufferSize int) *fabric.Subscription {
	return a.Fabric.Subscribe(filter, bufferSize)
}

// VerifyFabric walks every event in the fabric and checks its stored hash
// against a freshly recomputed one, surfacing the result the verify-fabric
// CLI subcommand reports.
func (a *App) VerifyFabric() fabric.FabricReport {
	return a.Fabric.Verify()
}

// VerifyFabricConcurrent is VerifyFabric with hash recomputation spread
// across a bounded worker pool (workers <= 0 defaults to GOMAXPROCS), for
// fabrics large enough that a single-threaded walk is the checkpoint path's
// bottleneck.
func (a *App) VerifyFabricConcurrent(ctx context.Context, workers int) (fabric.FabricReport, error) {
	return a.Fabric.VerifyConcurrent(ctx, workers)
}

// Checkpoint takes a new continuity checkpoint from the supplied governance
// state, hash-chained onto the previous one.
func (a *App) Checkpoint(metadata continuity.GovernanceMetadata, graph continuity.MembershipGraph, roles continuity.RoleRegistry, treasury continuity.TreasuryView) continuity.Checkpoint {
	return a.Continuity.Checkpoint(metadata, graph, roles, treasury)
}

// PersistCheckpoint writes cp's directory layout under dir via w (spec §6
// persisted checkpoint layout).
func (a *App) PersistCheckpoint(w continuity.Writer, dir string, cp continuity.Checkpoint) error {
	return continuity.Persist(w, dir, cp)
}

// VerifyContinuity walks the checkpoint chain and rejects on any hash
// mismatch or sequence gap.
func (a *App) VerifyContinuity() error {
	return a.Continuity.VerifyChainIntegrity()
}
