// Package ares implements the financial extension to the Commitment Gate:
// collateral checks, delivery-versus-payment atomicity, a pluggable
// regulatory engine, and decision-receipt linkage for financial commitments
// (spec §4.4). ARES borrows commitments for validation only; it owns the
// in-memory collateral ledger and the regulatory engine.
package ares

import (
	"time"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/identity"
)

// SettlementType enumerates the three settlement shapes a financial
// commitment may declare.
type SettlementType string

const (
	SettlementDvP            SettlementType = "DvP"
	SettlementPvP            SettlementType = "PvP"
	SettlementFreeOfPayment  SettlementType = "FreeOfPayment"
)

// FinancialCommitment extends a commitment declaration with the fields ARES
// needs to pre-check and settle a financial transfer.
type FinancialCommitment struct {
	CommitmentID   uuid.UUID
	AssetID        string
	AmountMinor    int64
	Settlement     SettlementType
	Counterparty   identity.WorldlineID
	Declaring      identity.WorldlineID
	DecisionReceiptID string
	CreatedAt      time.Time
}

// Leg is one movement of an asset between the two parties to a settlement.
type Leg struct {
	From        identity.WorldlineID
	To          identity.WorldlineID
	Asset       string
	AmountMinor int64
}

// LegStatus is one leg's settlement progress.
type LegStatus struct {
	Leg             Leg
	Settled         bool
	ExternalRef     string
}

// AtomicSettlement is a settlement id plus its legs' current status.
type AtomicSettlement struct {
	SettlementID uuid.UUID
	Legs         []LegStatus
	Anchor       time.Time
	Atomic       bool
}

// CollateralRecord tracks how much of an asset a worldline has available
// versus locked against open commitments.
type CollateralRecord struct {
	WorldlineID    identity.WorldlineID
	AssetID        string
	AvailableMinor int64
	LockedMinor    int64
}

// Available returns the unencumbered balance: available - locked.
func (c CollateralRecord) Available() int64 {
	return c.AvailableMinor - c.LockedMinor
}

// RegulatoryEngine is the pluggable compliance check ARES delegates to.
// Implementations may consult sanctions lists, jurisdiction rules, or
// transaction-monitoring systems; the core ships a permissive default.
type RegulatoryEngine interface {
	CheckCompliant(fc FinancialCommitment) (bool, string, error)
}

// AlwaysCompliant is the default RegulatoryEngine: it approves everything.
// Production deployments supply their own implementation.
type AlwaysCompliant struct{}

// CheckCompliant always reports compliant.
func (AlwaysCompliant) CheckCompliant(FinancialCommitment) (bool, string, error) {
	return true, "", nil
}
