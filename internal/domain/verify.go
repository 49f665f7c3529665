package domain

import "strconv"

// VerificationPolicy decides whether an event meets the credibility bar.
// Verification is a pure function of the member source set: an official
// source verifies immediately, otherwise enough distinct sources do.
type VerificationPolicy struct {
	// OfficialSources are the privileged source tags whose presence alone
	// verifies an event.
	OfficialSources map[string]struct{}

	// MinSources is the distinct-source threshold for verification
	// without an official source.
	MinSources int

	// StickyManualOverride, when true, preserves operator-set
	// verification state across membership changes. When false the policy
	// silently recomputes over it, matching the historical behavior.
	StickyManualOverride bool
}

// DefaultVerificationPolicy returns the standard policy: USGS and GDACS
// are official, three distinct sources verify.
func DefaultVerificationPolicy() VerificationPolicy {
	return VerificationPolicy{
		OfficialSources: map[string]struct{}{
			SourceUSGS:  {},
			SourceGDACS: {},
		},
		MinSources: 3,
	}
}

// Evaluate computes verification state from a member snapshot. The
// official-source reason takes priority when both conditions hold.
func (p VerificationPolicy) Evaluate(members []Report) (verified bool, reason string) {
	hasOfficial := false
	for i := range members {
		if _, ok := p.OfficialSources[members[i].Source]; ok {
			hasOfficial = true
			break
		}
	}
	if hasOfficial {
		return true, ReasonOfficialSource
	}
	if n := DistinctSources(members); n >= p.MinSources {
		return true, ReasonMultiplePrefix + strconv.Itoa(n)
	}
	return false, ""
}

// Apply recomputes the event's verification fields from the member
// snapshot. A manual override survives only under StickyManualOverride;
// otherwise membership changes overwrite it.
func (p VerificationPolicy) Apply(e *Event, members []Report) {
	if e.ManualOverride && p.StickyManualOverride {
		return
	}
	e.Verified, e.VerificationReason = p.Evaluate(members)
	e.ManualOverride = false
}
