package policy

// DefaultPolicies returns the baseline policy set the Gate ships with out of
// the box. Callers may add more via Engine.AddPolicy; these two cover the
// "only explicit, reviewed commitments cross into execution for critical or
// irreversible effects" baseline the spec's scenarios assume (S1, S3, S4).
func DefaultPolicies() []Policy {
	return []Policy{
		{
			ID:       "critical-domain-approval",
			Text:     "Commitments in a critical effect domain require human approval.",
			Priority: 100,
			Enabled:  true,
			Rules: []Rule{
				{
					ID:          "critical-domain-approval.domain-critical",
					Description: "effect domain is critical (currently: Finance)",
					Condition:   NewDomainIsCriticalCondition(),
					Action:      Action{Kind: ActionRequireHumanApproval},
				},
			},
		},
		{
			ID:       "irreversible-actions",
			Text:     "Irreversible commitments require human approval.",
			Priority: 90,
			Enabled:  true,
			Rules: []Rule{
				{
					ID:          "irreversible-actions.irreversible",
					Description: "reversibility is irreversible",
					Condition:   NewIsIrreversibleCondition(),
					Action:      Action{Kind: ActionRequireHumanApproval},
				},
			},
		},
	}
}
