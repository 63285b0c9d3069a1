package ares

import (
	"strconv"
	"strings"
	"sync"

	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/identity"
)

// Extension owns the in-memory collateral map and the regulatory engine. It
// borrows commitments and settlements for validation only; it never mutates
// the ledger or the fabric directly (the gate/adapters layer does that with
// the outcome ARES reports).
type Extension struct {
	mu         sync.RWMutex
	collateral map[string]*CollateralRecord // key: worldline id + "/" + asset id
	regulatory RegulatoryEngine
}

// New constructs an ARES extension. A nil regulatory engine defaults to
// AlwaysCompliant.
func New(regulatory RegulatoryEngine) *Extension {
	if regulatory == nil {
		regulatory = AlwaysCompliant{}
	}
	return &Extension{
		collateral: make(map[string]*CollateralRecord),
		regulatory: regulatory,
	}
}

func collateralKey(id identity.WorldlineID, asset string) string {
	return string(id) + "/" + asset
}

// SetCollateral installs (or replaces) a collateral record for a worldline's
// holdings of one asset.
func (e *Extension) SetCollateral(rec CollateralRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := rec
	e.collateral[collateralKey(rec.WorldlineID, rec.AssetID)] = &cp
}

// CollateralOf returns a copy of the collateral record for id/asset, or the
// zero record if none has been set.
func (e *Extension) CollateralOf(id identity.WorldlineID, asset string) CollateralRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if rec, ok := e.collateral[collateralKey(id, asset)]; ok {
		return *rec
	}
	return CollateralRecord{WorldlineID: id, AssetID: asset}
}

// Lock reserves amountMinor of the declaring worldline's collateral for a
// pending commitment. Returns an ARES-02 error if insufficient.
func (e *Extension) Lock(id identity.WorldlineID, asset string, amountMinor int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := collateralKey(id, asset)
	rec, ok := e.collateral[key]
	if !ok {
		return cacerr.New(cacerr.KindPolicyDenial, "ARES-02", "no collateral record for "+string(id)+"/"+asset)
	}
	if rec.Available() < amountMinor {
		return cacerr.New(cacerr.KindPolicyDenial, "ARES-02", "insufficient collateral")
	}
	rec.LockedMinor += amountMinor
	return nil
}

// Release returns amountMinor of previously locked collateral.
func (e *Extension) Release(id identity.WorldlineID, asset string, amountMinor int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := collateralKey(id, asset)
	rec, ok := e.collateral[key]
	if !ok {
		return
	}
	rec.LockedMinor -= amountMinor
	if rec.LockedMinor < 0 {
		rec.LockedMinor = 0
	}
}

// PreCheck runs the three-step pre-check sequence ARES requires before a
// financial commitment may proceed: decision-receipt link validation,
// collateral sufficiency, and regulatory compliance (spec §4.4).
func (e *Extension) PreCheck(fc FinancialCommitment) error {
	if err := validateReceiptLink(fc.DecisionReceiptID); err != nil {
		return err
	}

	rec := e.CollateralOf(fc.Declaring, fc.AssetID)
	if rec.Available() < fc.AmountMinor {
		return cacerr.New(cacerr.KindPolicyDenial, "ARES-02", "insufficient collateral: available "+
			strconv.FormatInt(rec.Available(), 10)+", required "+strconv.FormatInt(fc.AmountMinor, 10))
	}

	ok, reason, err := e.regulatory.CheckCompliant(fc)
	if err != nil {
		return cacerr.Wrap(cacerr.KindTransient, "ARES-03", "regulatory engine error", err)
	}
	if !ok {
		return cacerr.New(cacerr.KindPolicyDenial, "ARES-03", "regulatory compliance check failed: "+reason)
	}
	return nil
}

// validateReceiptLink enforces the decision-receipt id shape: non-empty,
// at least 6 non-whitespace characters, no internal whitespace.
func validateReceiptLink(receiptID string) error {
	if receiptID == "" {
		return cacerr.New(cacerr.KindInput, "ARES-01", "financial commitment missing decision-receipt id")
	}
	if strings.ContainsAny(receiptID, " \t\n\r") {
		return cacerr.New(cacerr.KindInput, "ARES-01", "decision-receipt id must not contain whitespace")
	}
	nonWhitespace := 0
	for _, r := range receiptID {
		if !strings.ContainsRune(" \t\n\r", r) {
			nonWhitespace++
		}
	}
	if nonWhitespace < 6 {
		return cacerr.New(cacerr.KindInput, "ARES-01", "decision-receipt id must have at least 6 non-whitespace characters")
	}
	return nil
}
