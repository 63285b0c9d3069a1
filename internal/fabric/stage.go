package fabric

// Stage is a resonance stage: the lifecycle phase of a fabric event.
type Stage string

const (
	StageMeaning     Stage = "Meaning"
	StageIntent      Stage = "Intent"
	StageCommitment  Stage = "Commitment"
	StageConsequence Stage = "Consequence"
	StageGovernance  Stage = "Governance"
	StageSystem      Stage = "System"
)

// rank orders stages for the lattice Meaning < Intent < Commitment < Consequence
// < Governance < System (spec §3). Governance and System are additionally
// permitted as a parent of any stage (spec §8, I2), handled separately in
// legalEdge rather than folded into rank.
var rank = map[Stage]int{
	StageMeaning:     0,
	StageIntent:      1,
	StageCommitment:  2,
	StageConsequence: 3,
	StageGovernance:  4,
	StageSystem:      5,
}

func validStage(s Stage) bool {
	_, ok := rank[s]
	return ok
}

// legalEdge reports whether a fabric edge (parent -> child) respects the
// stage ordering invariant I2: stage(parent) <= stage(child) under the
// lattice, with System/Governance permitted as parents of any stage.
func legalEdge(parent, child Stage) bool {
	if parent == StageGovernance || parent == StageSystem {
		return true
	}
	return rank[parent] <= rank[child]
}
