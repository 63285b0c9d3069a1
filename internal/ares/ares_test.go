package ares

import (
	"testing"

	"github.com/resonance-systems/cac/internal/identity"
)

func TestValidateReceiptLink(t *testing.T) {
	cases := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"empty", "", true},
		{"too short", "abc", true},
		{"has whitespace", "abc def", true},
		{"exactly six", "abcdef", false},
		{"long token", "receipt-9f8e7d6c5b4a", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateReceiptLink(tc.id)
			if (err != nil) != tc.wantErr {
				t.Fatalf("validateReceiptLink(%q) error = %v, wantErr %v", tc.id, err, tc.wantErr)
			}
		})
	}
}

func TestPreCheck_InsufficientCollateralDenies(t *testing.T) {
	ext := New(nil)
	declaring := identity.WorldlineID("wl_declarer")
	ext.SetCollateral(CollateralRecord{WorldlineID: declaring, AssetID: "USD", AvailableMinor: 100, LockedMinor: 0})

	fc := FinancialCommitment{
		AssetID: "USD", AmountMinor: 500, Settlement: SettlementFreeOfPayment,
		Declaring: declaring, DecisionReceiptID: "receipt-001",
	}
	if err := ext.PreCheck(fc); err == nil {
		t.Fatal("expected insufficient collateral to fail pre-check")
	}
}

func TestPreCheck_SufficientCollateralAndRegulatoryPasses(t *testing.T) {
	ext := New(nil)
	declaring := identity.WorldlineID("wl_declarer")
	ext.SetCollateral(CollateralRecord{WorldlineID: declaring, AssetID: "USD", AvailableMinor: 1000, LockedMinor: 0})

	fc := FinancialCommitment{
		AssetID: "USD", AmountMinor: 500, Settlement: SettlementFreeOfPayment,
		Declaring: declaring, DecisionReceiptID: "receipt-001",
	}
	if err := ext.PreCheck(fc); err != nil {
		t.Fatalf("expected pre-check to pass, got %v", err)
	}
}

// TestDvPPair covers S6: a DvP commitment with a primary and counter leg
// passes atomicity, and a fully-settled atomic settlement validates, but
// flipping one leg to unsettled yields a partial-settlement violation.
func TestDvPPair(t *testing.T) {
	a := identity.WorldlineID("wl_a")
	b := identity.WorldlineID("wl_b")
	fc := FinancialCommitment{Settlement: SettlementDvP, Declaring: a, Counterparty: b}

	legs := []Leg{
		{From: a, To: b, Asset: "USD", AmountMinor: 100000},
		{From: b, To: a, Asset: "BTC", AmountMinor: 1000000},
	}
	if err := CheckAtomicity(fc, legs); err != nil {
		t.Fatalf("expected atomicity check to pass, got %v", err)
	}

	settled := AtomicSettlement{
		Atomic: true,
		Legs: []LegStatus{
			{Leg: legs[0], Settled: true},
			{Leg: legs[1], Settled: true},
		},
	}
	if err := ValidateAtomicSettlement(settled); err != nil {
		t.Fatalf("expected fully-settled settlement to validate, got %v", err)
	}

	settled.Legs[1].Settled = false
	if err := ValidateAtomicSettlement(settled); err == nil {
		t.Fatal("expected a partial settlement to produce a violation")
	}
}

func TestCheckAtomicity_RejectsPartyOutsideClosure(t *testing.T) {
	a := identity.WorldlineID("wl_a")
	b := identity.WorldlineID("wl_b")
	stranger := identity.WorldlineID("wl_stranger")
	fc := FinancialCommitment{Settlement: SettlementFreeOfPayment, Declaring: a, Counterparty: b}

	legs := []Leg{{From: a, To: stranger, Asset: "USD", AmountMinor: 100}}
	if err := CheckAtomicity(fc, legs); err == nil {
		t.Fatal("expected a leg touching a party outside the closure to fail")
	}
}

func TestCheckAtomicity_DvPRequiresCounterLeg(t *testing.T) {
	a := identity.WorldlineID("wl_a")
	b := identity.WorldlineID("wl_b")
	fc := FinancialCommitment{Settlement: SettlementDvP, Declaring: a, Counterparty: b}

	legs := []Leg{
		{From: a, To: b, Asset: "USD", AmountMinor: 100},
		{From: a, To: b, Asset: "USD", AmountMinor: 50},
	}
	if err := CheckAtomicity(fc, legs); err == nil {
		t.Fatal("expected a DvP settlement without a counter leg to fail")
	}
}

func TestLockAndRelease(t *testing.T) {
	ext := New(nil)
	id := identity.WorldlineID("wl_x")
	ext.SetCollateral(CollateralRecord{WorldlineID: id, AssetID: "USD", AvailableMinor: 1000})

	if err := ext.Lock(id, "USD", 400); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if got := ext.CollateralOf(id, "USD").Available(); got != 600 {
		t.Fatalf("expected 600 available after lock, got %d", got)
	}

	ext.Release(id, "USD", 400)
	if got := ext.CollateralOf(id, "USD").Available(); got != 1000 {
		t.Fatalf("expected 1000 available after release, got %d", got)
	}
}
