package declaration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resonance-systems/cac/internal/declaration"
)

func TestIsIrreversible_OnlyTrueForIrreversibleKind(t *testing.T) {
	assert.True(t, declaration.Reversibility{Kind: declaration.Irreversible}.IsIrreversible())
	assert.False(t, declaration.Reversibility{Kind: declaration.Reversible}.IsIrreversible())
	assert.False(t, declaration.Reversibility{Kind: declaration.PartiallyReversible}.IsIrreversible())
}

func TestWorse_ReturnsMoreSevereRiskClass(t *testing.T) {
	assert.Equal(t, declaration.RiskHigh, declaration.Worse(declaration.RiskLow, declaration.RiskHigh))
	assert.Equal(t, declaration.RiskCritical, declaration.Worse(declaration.RiskCritical, declaration.RiskMedium))
	assert.Equal(t, declaration.RiskLow, declaration.Worse(declaration.RiskLow, declaration.RiskLow))
}

func TestAddFactor_SetsOverallOnFirstFactor(t *testing.T) {
	var risk declaration.RiskAssessment
	risk.AddFactor(declaration.RiskFactor{Name: "f1", Severity: declaration.RiskMedium})
	assert.Equal(t, declaration.RiskMedium, risk.Overall)
	assert.Len(t, risk.Factors, 1)
}

func TestAddFactor_OverallTracksMaxSeverityAcrossFactors(t *testing.T) {
	var risk declaration.RiskAssessment
	risk.AddFactor(declaration.RiskFactor{Name: "f1", Severity: declaration.RiskLow})
	risk.AddFactor(declaration.RiskFactor{Name: "f2", Severity: declaration.RiskCritical})
	risk.AddFactor(declaration.RiskFactor{Name: "f3", Severity: declaration.RiskMedium})

	assert.Equal(t, declaration.RiskCritical, risk.Overall)
	assert.Len(t, risk.Factors, 3)
}

func TestMonotonic_NeverWeakensTowardLessSevere(t *testing.T) {
	assert.Equal(t, declaration.DecisionDeny, declaration.Monotonic(declaration.DecisionDeny, declaration.DecisionApprove))
	assert.Equal(t, declaration.DecisionPendingHumanReview, declaration.Monotonic(declaration.DecisionApprove, declaration.DecisionPendingHumanReview))
	assert.Equal(t, declaration.DecisionPendingHumanReview, declaration.Monotonic(declaration.DecisionPendingHumanReview, declaration.DecisionPendingAdditionalInfo))
}

func TestMonotonic_FollowsFullLattice(t *testing.T) {
	order := []declaration.Decision{
		declaration.DecisionApprove,
		declaration.DecisionPendingAdditionalInfo,
		declaration.DecisionPendingHumanReview,
		declaration.DecisionDeny,
	}
	for i := 0; i < len(order); i++ {
		for j := 0; j < len(order); j++ {
			want := order[i]
			if j > i {
				want = order[j]
			}
			assert.Equal(t, want, declaration.Monotonic(order[i], order[j]))
		}
	}
}
