// Package adapters holds the thin external-interface bridges that translate
// wire requests into the core's typed domain values and translate domain
// results back into the externally-tagged wire shapes spec'd for the CLI and
// any future HTTP/WebSocket façade (component 12, spec §6). Everything here
// is transport-agnostic: callers hand it bytes or a Reader/Writer, never an
// *http.Request — the actual transport lives outside the core, in cmd/cac or
// a future server package.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/fabric"
	"github.com/resonance-systems/cac/internal/gate"
	"github.com/resonance-systems/cac/internal/identity"
	"github.com/resonance-systems/cac/internal/ledger"
)

// DeclarationRequest is the wire shape of a commitment declaration, as
// submitted by an external caller (spec §6.1). It deliberately omits
// CommitmentID and SubmittedAt: the Gate assigns both.
type DeclarationRequest struct {
	DeclaringID     string            `json:"declaring_id"`
	Scope           ScopeRequest      `json:"scope"`
	Reversibility   ReversibilityRequest `json:"reversibility"`
	Capabilities    []string          `json:"capabilities,omitempty"`
	AffectedParties []string          `json:"affected_parties,omitempty"`
	IntentEventID   *string           `json:"intent_event_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ScopeRequest is the wire shape of Scope.
type ScopeRequest struct {
	EffectDomain string            `json:"effect_domain"`
	Targets      []string          `json:"targets,omitempty"`
	Constraints  map[string]string `json:"constraints,omitempty"`
	Global       bool              `json:"global,omitempty"`
}

// ReversibilityRequest is the wire shape of Reversibility.
type ReversibilityRequest struct {
	Kind  string  `json:"kind"`
	Ratio float64 `json:"ratio,omitempty"`
}

// DecodeDeclaration parses a JSON-encoded DeclarationRequest from r and
// reports an InputError (never a generic error) on any malformed input, per
// spec §7: "malformed declaration" is surfaced to the caller with no state
// change.
func DecodeDeclaration(r io.Reader) (*declaration.Declaration, error) {
	var req DeclarationRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, cacerr.Wrap(cacerr.KindInput, "ADAPT-01", "malformed declaration body", err)
	}
	return ToDeclaration(req)
}

// ToDeclaration converts a wire DeclarationRequest into the Gate's typed
// input, validating the fields a malformed or adversarial caller might omit
// or corrupt.
func ToDeclaration(req DeclarationRequest) (*declaration.Declaration, error) {
	if strings.TrimSpace(req.DeclaringID) == "" {
		return nil, cacerr.New(cacerr.KindInput, "ADAPT-02", "declaring_id is required")
	}
	if strings.TrimSpace(req.Scope.EffectDomain) == "" {
		return nil, cacerr.New(cacerr.KindInput, "ADAPT-03", "scope.effect_domain is required")
	}

	rev := declaration.Reversibility{Kind: declaration.ReversibilityKind(req.Reversibility.Kind)}
	switch rev.Kind {
	case declaration.Reversible, declaration.Irreversible:
		// no ratio expected
	case declaration.PartiallyReversible:
		if req.Reversibility.Ratio < 0 || req.Reversibility.Ratio > 1 {
			return nil, cacerr.New(cacerr.KindInput, "ADAPT-04", "reversibility.ratio must be in [0,1] for partially_reversible")
		}
		rev.Ratio = req.Reversibility.Ratio
	default:
		return nil, cacerr.New(cacerr.KindInput, "ADAPT-05", "unrecognized reversibility.kind: "+req.Reversibility.Kind)
	}

	var intentRef *uuid.UUID
	if req.IntentEventID != nil && *req.IntentEventID != "" {
		id, err := uuid.Parse(*req.IntentEventID)
		if err != nil {
			return nil, cacerr.Wrap(cacerr.KindInput, "ADAPT-06", "intent_event_id is not a valid uuid", err)
		}
		intentRef = &id
	}

	affected := make([]identity.WorldlineID, 0, len(req.AffectedParties))
	for _, p := range req.AffectedParties {
		affected = append(affected, identity.WorldlineID(p))
	}

	decl := &declaration.Declaration{
		DeclaringID: identity.WorldlineID(req.DeclaringID),
		Scope: declaration.Scope{
			EffectDomain: declaration.EffectDomain(req.Scope.EffectDomain),
			Targets:      req.Scope.Targets,
			Constraints:  req.Scope.Constraints,
			Global:       req.Scope.Global,
		},
		Reversibility:   rev,
		Capabilities:    req.Capabilities,
		AffectedParties: affected,
		IntentEventID:   intentRef,
		Metadata:        req.Metadata,
	}
	if decl.Metadata == nil {
		decl.Metadata = map[string]string{}
	}
	return decl, nil
}

// AdjudicationResponse is the externally-tagged wire encoding of an
// AdjudicationResult (spec §6.1: "AdjudicationResult ∈ {Approved{card},
// Denied{card}, PendingCoSign{required}, PendingHumanApproval{approver}}" —
// the tag is the variant name, carried as the sole key of the JSON object).
type AdjudicationResponse struct {
	Approved              *CardBody     `json:"Approved,omitempty"`
	Denied                *CardBody     `json:"Denied,omitempty"`
	PendingCoSign         *CoSignBody   `json:"PendingCoSign,omitempty"`
	PendingHumanApproval  *ApproverBody `json:"PendingHumanApproval,omitempty"`
}

type CardBody struct {
	Card *declaration.PolicyDecisionCard `json:"card"`
}

type CoSignBody struct {
	Required []identity.WorldlineID `json:"required"`
}

type ApproverBody struct {
	Approver string `json:"approver,omitempty"`
}

// FromAdjudicationResult wraps a gate.AdjudicationResult in its externally-
// tagged wire shape.
func FromAdjudicationResult(res gate.AdjudicationResult) AdjudicationResponse {
	switch res.Status {
	case gate.StatusApproved:
		return AdjudicationResponse{Approved: &CardBody{Card: res.Card}}
	case gate.StatusDenied:
		return AdjudicationResponse{Denied: &CardBody{Card: res.Card}}
	case gate.StatusPendingCoSign:
		return AdjudicationResponse{PendingCoSign: &CoSignBody{Required: res.RequiredCoSigners}}
	case gate.StatusPendingHumanApproval:
		return AdjudicationResponse{PendingHumanApproval: &ApproverBody{}}
	default:
		return AdjudicationResponse{}
	}
}

// EncodeAdjudicationResult writes the externally-tagged encoding of res to w.
func EncodeAdjudicationResult(w io.Writer, res gate.AdjudicationResult) error {
	enc := json.NewEncoder(w)
	return enc.Encode(FromAdjudicationResult(res))
}

// ExitCode maps a Submit/RecordOutcome outcome to the CLI exit codes
// reproduced from spec §6: 0 success, 2 denial, 3 pending state,
// 10 integrity failure, 20 invalid input.
func ExitCode(res gate.AdjudicationResult, err error) int {
	if err != nil {
		switch {
		case cacerr.Is(err, cacerr.KindIntegrityFailure), cacerr.Is(err, cacerr.KindInvariantViolation):
			return 10
		case cacerr.Is(err, cacerr.KindInput):
			return 20
		default:
			return 1
		}
	}
	switch res.Status {
	case gate.StatusApproved:
		return 0
	case gate.StatusDenied:
		return 2
	case gate.StatusPendingCoSign, gate.StatusPendingHumanApproval:
		return 3
	default:
		return 1
	}
}

// ErrorExitCode maps a bare error from a non-adjudication CLI command
// (query, verify-fabric, checkpoint, verify-continuity) to spec §6's exit
// codes: 10 for an integrity/invariant failure, 20 for malformed input, 0 on
// a nil error, 1 otherwise.
func ErrorExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case cacerr.Is(err, cacerr.KindIntegrityFailure), cacerr.Is(err, cacerr.KindInvariantViolation):
		return 10
	case cacerr.Is(err, cacerr.KindInput):
		return 20
	default:
		return 1
	}
}

// OutcomeRequest is the externally-tagged wire shape of record_outcome's
// outcome argument (spec §6.2): outcome ∈ {Fulfilled, Failed(reason),
// PartiallyFulfilled(completion, remaining), Expired}.
type OutcomeRequest struct {
	CommitmentID string                   `json:"commitment_id"`
	Fulfilled    *struct{}                `json:"Fulfilled,omitempty"`
	Failed       *FailedBody              `json:"Failed,omitempty"`
	Partial      *PartialBody             `json:"PartiallyFulfilled,omitempty"`
	Expired      *struct{}                `json:"Expired,omitempty"`
}

type FailedBody struct {
	Reason string `json:"reason"`
}

type PartialBody struct {
	Completion float64 `json:"completion"`
	Remaining  string  `json:"remaining,omitempty"`
}

// DecodeOutcome parses a JSON-encoded OutcomeRequest from r.
func DecodeOutcome(r io.Reader) (uuid.UUID, ledger.LifecycleEvent, error) {
	var req OutcomeRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return uuid.Nil, ledger.LifecycleEvent{}, cacerr.Wrap(cacerr.KindInput, "ADAPT-07", "malformed outcome body", err)
	}
	return ToLifecycleEvent(req)
}

// ToLifecycleEvent converts a wire OutcomeRequest into a commitment id and a
// ledger.LifecycleEvent, rejecting a request naming zero or more than one
// outcome variant (an externally-tagged union must carry exactly one tag).
func ToLifecycleEvent(req OutcomeRequest) (uuid.UUID, ledger.LifecycleEvent, error) {
	cid, err := uuid.Parse(req.CommitmentID)
	if err != nil {
		return uuid.Nil, ledger.LifecycleEvent{}, cacerr.Wrap(cacerr.KindInput, "ADAPT-08", "commitment_id is not a valid uuid", err)
	}

	set := 0
	var ev ledger.LifecycleEvent
	if req.Fulfilled != nil {
		set++
		ev = ledger.LifecycleEvent{Kind: ledger.LifecycleFulfilled}
	}
	if req.Failed != nil {
		set++
		ev = ledger.LifecycleEvent{Kind: ledger.LifecycleFailed, Reason: req.Failed.Reason}
	}
	if req.Partial != nil {
		set++
		if req.Partial.Completion < 0 || req.Partial.Completion > 1 {
			return uuid.Nil, ledger.LifecycleEvent{}, cacerr.New(cacerr.KindInput, "ADAPT-09", "completion must be in [0,1]")
		}
		ev = ledger.LifecycleEvent{Kind: ledger.LifecyclePartiallyFulfilled, Completion: req.Partial.Completion, Remaining: req.Partial.Remaining}
	}
	if req.Expired != nil {
		set++
		ev = ledger.LifecycleEvent{Kind: ledger.LifecycleExpired}
	}
	if set != 1 {
		return uuid.Nil, ledger.LifecycleEvent{}, cacerr.New(cacerr.KindInput, "ADAPT-10", fmt.Sprintf("outcome must name exactly one variant, got %d", set))
	}
	return cid, ev, nil
}

// QueryRequest is the wire shape of query_ledger's filter argument (spec
// §6.3, filters enumerated in §4.6).
type QueryRequest struct {
	DeclaringID  string `json:"declaring_id,omitempty"`
	Decision     string `json:"decision,omitempty"`
	From         string `json:"from,omitempty"` // RFC3339
	To           string `json:"to,omitempty"`   // RFC3339
	HasLifecycle string `json:"has_lifecycle,omitempty"`
}

// ToLedgerFilter converts a wire QueryRequest into a ledger.Filter.
func ToLedgerFilter(req QueryRequest) (ledger.Filter, error) {
	f := ledger.Filter{
		DeclaringID:  identity.WorldlineID(req.DeclaringID),
		Decision:     declaration.Decision(req.Decision),
		HasLifecycle: ledger.LifecycleKind(req.HasLifecycle),
	}
	if req.From != "" {
		t, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return ledger.Filter{}, cacerr.Wrap(cacerr.KindInput, "ADAPT-11", "from is not RFC3339", err)
		}
		f.From = t
	}
	if req.To != "" {
		t, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return ledger.Filter{}, cacerr.Wrap(cacerr.KindInput, "ADAPT-12", "to is not RFC3339", err)
		}
		f.To = t
	}
	return f, nil
}

// EncodeQueryResult writes entries to w as a JSON array. Ledger entries
// already carry stable json tags (spec §6: "self-describing JSON with
// stable field names"), so no further translation is needed on the way out.
func EncodeQueryResult(w io.Writer, entries []*ledger.Entry) error {
	enc := json.NewEncoder(w)
	return enc.Encode(entries)
}

// EventEnvelope is the wire shape of one streamed fabric event (spec §6.4).
type EventEnvelope struct {
	Event   *fabric.Event `json:"event,omitempty"`
	Dropped int64         `json:"dropped,omitempty"`
}

// StreamEvents pulls events matching sub's filter and writes each as one
// JSON line to w until ctx is cancelled or the subscription closes. A
// non-zero Dropped count is reported whenever it increases since the last
// line, so a slow consumer can detect gaps and reconcile via
// provenance.Index.WorldlineHistory (spec §6.4) rather than stalling the
// producer.
func StreamEvents(ctx context.Context, sub *fabric.Subscription, w io.Writer) error {
	enc := json.NewEncoder(w)
	var lastDropped int64
	for {
		ev, ok := sub.Next(ctx)
		if !ok {
			return ctx.Err()
		}
		dropped := sub.Dropped.Load()
		env := EventEnvelope{Event: ev}
		if dropped > lastDropped {
			env.Dropped = dropped - lastDropped
			lastDropped = dropped
		}
		if err := enc.Encode(env); err != nil {
			return cacerr.Wrap(cacerr.KindTransient, "ADAPT-13", "failed to encode streamed event", err)
		}
	}
}
