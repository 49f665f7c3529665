package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerificationPolicyEvaluate(t *testing.T) {
	t.Parallel()

	policy := DefaultVerificationPolicy()

	tests := []struct {
		name         string
		sources      []string
		wantVerified bool
		wantReason   string
	}{
		{
			name:    "no members",
			sources: nil,
		},
		{
			name:    "single social source",
			sources: []string{"TWITTER"},
		},
		{
			name:    "two distinct sources not enough",
			sources: []string{"TWITTER", "REDDIT"},
		},
		{
			name:         "three distinct sources verify",
			sources:      []string{"TWITTER", "REDDIT", "CITIZEN"},
			wantVerified: true,
			wantReason:   "multiple_sources_3",
		},
		{
			name:         "five distinct sources report their count",
			sources:      []string{"A", "B", "C", "D", "E"},
			wantVerified: true,
			wantReason:   "multiple_sources_5",
		},
		{
			name:    "duplicate sources count once",
			sources: []string{"TWITTER", "TWITTER", "TWITTER"},
		},
		{
			name:         "official source verifies alone",
			sources:      []string{"USGS"},
			wantVerified: true,
			wantReason:   "official_source",
		},
		{
			name:         "gdacs is official",
			sources:      []string{"GDACS"},
			wantVerified: true,
			wantReason:   "official_source",
		},
		{
			name:         "official reason takes priority over source count",
			sources:      []string{"TWITTER", "REDDIT", "CITIZEN", "USGS"},
			wantVerified: true,
			wantReason:   "official_source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			members := make([]Report, 0, len(tt.sources))
			for _, s := range tt.sources {
				members = append(members, Report{Source: s})
			}
			verified, reason := policy.Evaluate(members)
			assert.Equal(t, tt.wantVerified, verified)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestVerificationPolicyApplyOverwritesManualState(t *testing.T) {
	t.Parallel()

	policy := DefaultVerificationPolicy()
	e := &Event{Verified: true, VerificationReason: ReasonManualOverride, ManualOverride: true}

	policy.Apply(e, []Report{{Source: "TWITTER"}})

	assert.False(t, e.Verified, "membership change recomputes over a manual override by default")
	assert.Empty(t, e.VerificationReason)
	assert.False(t, e.ManualOverride)
}

func TestVerificationPolicyStickyManualOverride(t *testing.T) {
	t.Parallel()

	policy := DefaultVerificationPolicy()
	policy.StickyManualOverride = true
	e := &Event{Verified: true, VerificationReason: ReasonManualOverride, ManualOverride: true}

	policy.Apply(e, []Report{{Source: "TWITTER"}})

	assert.True(t, e.Verified)
	assert.Equal(t, ReasonManualOverride, e.VerificationReason)
	assert.True(t, e.ManualOverride)
}

func TestVerificationPolicyConfigurableThreshold(t *testing.T) {
	t.Parallel()

	policy := DefaultVerificationPolicy()
	policy.MinSources = 2

	verified, reason := policy.Evaluate([]Report{{Source: "A"}, {Source: "B"}})
	assert.True(t, verified)
	assert.Equal(t, "multiple_sources_2", reason)
}
