// Package cacerr defines the error taxonomy shared by every component of the
// commitment adjudication core. Every fallible operation returns a *cacerr.Error
// carrying a machine-readable code and kind; nothing fails silently.
package cacerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation-policy purposes (see spec §7).
type Kind string

const (
	// KindInput covers malformed declarations, invalid custom expressions,
	// and empty decision-receipt ids. Surfaced to the caller; no state change.
	KindInput Kind = "input_error"

	// KindPolicyDenial is a deliberate rejection, not an error: callers treat
	// it as a normal result (a PolicyDecisionCard with Decision=Deny).
	KindPolicyDenial Kind = "policy_denial"

	// KindNotFound covers unknown commitment/worldline/policy ids.
	KindNotFound Kind = "not_found"

	// KindLifecycleConflict is an attempt to move a terminal ledger entry
	// into an incompatible state.
	KindLifecycleConflict Kind = "lifecycle_conflict"

	// KindIntegrityFailure is a hash mismatch in the fabric or checkpoint
	// chain. It is reported to the caller; no component enters a quarantined
	// or read-only state, and later mutations are not refused.
	KindIntegrityFailure Kind = "integrity_failure"

	// KindTransient covers lock contention or storage unavailability.
	// Components return it to the caller without retrying; WithRetry offers
	// bounded backoff to callers that wrap an operation in it.
	KindTransient Kind = "transient"

	// KindInvariantViolation covers e.g. partial settlement in a DvP check.
	// Fatal for the surrounding operation, which returns it as an error; no
	// Governance-stage fabric event is emitted for the violation.
	KindInvariantViolation Kind = "invariant_violation"
)

// Error is the machine-readable error type returned by every CAC component.
type Error struct {
	Kind Kind
	Code string // STAGE-NN, POLICY-XX, ARES-YY, LEDGER-ZZ, FABRIC-NN
	Msg  string
	Err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error with no wrapped cause.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Wrap constructs an Error wrapping an underlying cause.
func Wrap(kind Kind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Code extracts the machine-readable code from err, if it is (or wraps) a
// *cacerr.Error. Returns "" otherwise.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
