// Package threshold implements the m-of-n signature engine: satisfaction
// predicates over a pool of signers, frozen-once-satisfied semantics, and
// deadline-based expiry (spec §4.5).
package threshold

import (
	"time"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/identity"
)

// PolicyKind enumerates the four satisfaction predicates a threshold
// commitment may use.
type PolicyKind string

const (
	PolicySingleSigner   PolicyKind = "SingleSigner"
	PolicyMofN           PolicyKind = "m-of-n"
	PolicyWeightedByRole PolicyKind = "WeightedByRole"
	PolicyUnanimous      PolicyKind = "Unanimous"
)

// Policy configures one of the four satisfaction predicates.
type Policy struct {
	Kind PolicyKind

	// M, N configure PolicyMofN: at least M distinct valid signatures out
	// of a pool of N eligible signers.
	M, N int

	// Weights and RequiredWeight configure PolicyWeightedByRole: the sum
	// of signer weights must reach RequiredWeight.
	Weights        map[identity.WorldlineID]int
	RequiredWeight int

	// RequiredMembers configures PolicyUnanimous: signatures must cover
	// every listed member.
	RequiredMembers []identity.WorldlineID
}

// Signature is one collected signature on a threshold commitment.
type Signature struct {
	Signer identity.WorldlineID
	Sig    []byte
	At     time.Time
}

// Commitment is a higher-order record gated by a satisfaction policy rather
// than by the seven-stage pipeline directly (spec §3 Threshold Commitment).
type Commitment struct {
	ID          uuid.UUID
	Action      string
	Policy      Policy
	AmountMinor *int64
	Deadline    *time.Time

	Signatures map[identity.WorldlineID]Signature
	Satisfied  bool
	Expired    bool
}

// satisfied evaluates the commitment's policy against its current signature
// set. Signatures from inactive members must already have been filtered out
// by the caller (AddSignature does this at collection time); satisfied only
// counts what was accepted.
func (c *Commitment) satisfied() bool {
	switch c.Policy.Kind {
	case PolicySingleSigner:
		return len(c.Signatures) >= 1

	case PolicyMofN:
		return len(c.Signatures) >= c.Policy.M

	case PolicyWeightedByRole:
		var sum int
		for signer := range c.Signatures {
			sum += c.Policy.Weights[signer]
		}
		return sum >= c.Policy.RequiredWeight

	case PolicyUnanimous:
		for _, member := range c.Policy.RequiredMembers {
			if _, ok := c.Signatures[member]; !ok {
				return false
			}
		}
		return len(c.Policy.RequiredMembers) > 0

	default:
		return false
	}
}

// remainingNeeded estimates how many more distinct signatures would be
// needed to reach satisfaction, for Accepted{remaining_needed} reporting.
// WeightedByRole always reports 0: its remaining need is a weight, not a
// headcount, and is not reported.
func (c *Commitment) remainingNeeded() int {
	switch c.Policy.Kind {
	case PolicySingleSigner:
		if len(c.Signatures) >= 1 {
			return 0
		}
		return 1
	case PolicyMofN:
		remaining := c.Policy.M - len(c.Signatures)
		if remaining < 0 {
			return 0
		}
		return remaining
	case PolicyUnanimous:
		missing := 0
		for _, member := range c.Policy.RequiredMembers {
			if _, ok := c.Signatures[member]; !ok {
				missing++
			}
		}
		return missing
	default:
		return 0
	}
}
