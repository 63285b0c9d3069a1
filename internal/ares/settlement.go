package ares

import (
	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/identity"
)

// CheckAtomicity validates the shape of a settlement's legs at settlement
// time, before any leg is marked settled (spec §4.4 DvP atomicity check).
func CheckAtomicity(fc FinancialCommitment, legs []Leg) error {
	if len(legs) == 0 {
		return cacerr.New(cacerr.KindInput, "ARES-04", "settlement has no legs")
	}

	needsTwoLegs := fc.Settlement == SettlementDvP || fc.Settlement == SettlementPvP
	if needsTwoLegs && len(legs) < 2 {
		return cacerr.New(cacerr.KindInput, "ARES-04", "DvP/PvP settlement requires at least 2 legs")
	}

	parties := map[identity.WorldlineID]bool{fc.Declaring: true, fc.Counterparty: true}
	var primary, counter bool
	for _, l := range legs {
		if l.AmountMinor <= 0 {
			return cacerr.New(cacerr.KindInput, "ARES-04", "leg amount must be positive")
		}
		if l.From == l.To {
			return cacerr.New(cacerr.KindInput, "ARES-04", "leg from and to must differ")
		}
		if !parties[l.From] || !parties[l.To] {
			return cacerr.New(cacerr.KindInput, "ARES-04", "leg party outside declaring/counterparty closure")
		}
		if l.From == fc.Declaring && l.To == fc.Counterparty {
			primary = true
		}
		if l.From == fc.Counterparty && l.To == fc.Declaring {
			counter = true
		}
	}
	if !primary {
		return cacerr.New(cacerr.KindInput, "ARES-04", "missing primary leg declaring -> counterparty")
	}
	if needsTwoLegs && !counter {
		return cacerr.New(cacerr.KindInput, "ARES-04", "missing counter leg counterparty -> declaring")
	}
	return nil
}

// ValidateAtomicSettlement enforces all-or-nothing settlement (spec §4.4,
// I10): every leg settled, or none. A mixed state is an InvariantViolation
// (I.CEP-FIN-1, partial settlement) rather than an ordinary denial, since it
// represents a state the system should never have reached. The atomic flag
// must also be set.
func ValidateAtomicSettlement(s AtomicSettlement) error {
	if !s.Atomic {
		return cacerr.New(cacerr.KindInput, "ARES-05", "settlement is not marked atomic")
	}
	if len(s.Legs) == 0 {
		return cacerr.New(cacerr.KindInput, "ARES-05", "settlement has no legs")
	}

	settledCount := 0
	for _, ls := range s.Legs {
		if ls.Settled {
			settledCount++
		}
	}
	if settledCount != 0 && settledCount != len(s.Legs) {
		return cacerr.New(cacerr.KindInvariantViolation, "ARES-06",
			"partial settlement: some legs settled, others not (I.CEP-FIN-1)")
	}
	return nil
}
