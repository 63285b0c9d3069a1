package ledger_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/ledger"
)

func sampleEntry(cid uuid.UUID, declaring string, decision declaration.Decision) ledger.Entry {
	return ledger.Entry{
		CommitmentID: cid,
		Declaration:  declaration.Declaration{CommitmentID: cid, DeclaringID: "wl_" + declaring},
		Card:         declaration.PolicyDecisionCard{Decision: decision, DecidedAt: time.Now().UTC()},
	}
}

func TestAppend_RejectsDuplicateCommitmentID(t *testing.T) {
	l := ledger.New()
	cid := uuid.New()
	require.NoError(t, l.Append(sampleEntry(cid, "a", declaration.DecisionApprove)))

	err := l.Append(sampleEntry(cid, "a", declaration.DecisionApprove))
	require.Error(t, err)
}

func TestRecordLifecycle_TerminalEntryRejectsConflictingOutcome(t *testing.T) {
	l := ledger.New()
	cid := uuid.New()
	require.NoError(t, l.Append(sampleEntry(cid, "a", declaration.DecisionApprove)))
	require.NoError(t, l.RecordLifecycle(cid, ledger.LifecycleEvent{Kind: ledger.LifecycleFulfilled, At: time.Now()}))

	err := l.RecordLifecycle(cid, ledger.LifecycleEvent{Kind: ledger.LifecycleFailed, At: time.Now()})
	require.Error(t, err)
}

func TestRecordLifecycle_IdempotentRepeatOfSameTerminalOutcome(t *testing.T) {
	l := ledger.New()
	cid := uuid.New()
	require.NoError(t, l.Append(sampleEntry(cid, "a", declaration.DecisionApprove)))
	require.NoError(t, l.RecordLifecycle(cid, ledger.LifecycleEvent{Kind: ledger.LifecycleFulfilled, At: time.Now()}))

	err := l.RecordLifecycle(cid, ledger.LifecycleEvent{Kind: ledger.LifecycleFulfilled, At: time.Now()})
	assert.NoError(t, err)

	history, err := l.History(cid)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRecordLifecycle_PartiallyFulfilledIsNotTerminal(t *testing.T) {
	l := ledger.New()
	cid := uuid.New()
	require.NoError(t, l.Append(sampleEntry(cid, "a", declaration.DecisionApprove)))
	require.NoError(t, l.RecordLifecycle(cid, ledger.LifecycleEvent{Kind: ledger.LifecyclePartiallyFulfilled, Completion: 0.5, At: time.Now()}))

	err := l.RecordLifecycle(cid, ledger.LifecycleEvent{Kind: ledger.LifecycleFulfilled, At: time.Now()})
	assert.NoError(t, err)
}

func TestRecordLifecycle_UnknownCommitmentReturnsNotFound(t *testing.T) {
	l := ledger.New()
	err := l.RecordLifecycle(uuid.New(), ledger.LifecycleEvent{Kind: ledger.LifecycleFulfilled})
	require.Error(t, err)
}

func TestQuery_FiltersByDeclaringIDAndDecision(t *testing.T) {
	l := ledger.New()
	require.NoError(t, l.Append(sampleEntry(uuid.New(), "alice", declaration.DecisionApprove)))
	require.NoError(t, l.Append(sampleEntry(uuid.New(), "alice", declaration.DecisionDeny)))
	require.NoError(t, l.Append(sampleEntry(uuid.New(), "bob", declaration.DecisionApprove)))

	entries := l.Query(ledger.Filter{DeclaringID: "wl_alice", Decision: declaration.DecisionApprove})
	require.Len(t, entries, 1)
	assert.Equal(t, declaration.DecisionApprove, entries[0].Card.Decision)
}

func TestGet_ReturnsIndependentCopy(t *testing.T) {
	l := ledger.New()
	cid := uuid.New()
	require.NoError(t, l.Append(sampleEntry(cid, "a", declaration.DecisionApprove)))

	entry, err := l.Get(cid)
	require.NoError(t, err)
	entry.Lifecycle = append(entry.Lifecycle, ledger.LifecycleEvent{Kind: ledger.LifecycleFulfilled})

	history, err := l.History(cid)
	require.NoError(t, err)
	assert.Empty(t, history)
}
