package analyzer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/davidleathers/identity-audit-engine/internal/domain/analysis"
	"github.com/davidleathers/identity-audit-engine/internal/domain/identity"
	"github.com/davidleathers/identity-audit-engine/internal/service/analyzer"
)

// fakeModel scripts the text model for tests.
type fakeModel struct {
	available bool
	response  string
	err       error
	panics    bool
}

func (m *fakeModel) Available() bool { return m.available }

func (m *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	if m.panics {
		panic("model exploded")
	}
	return m.response, m.err
}

func newAnalyzer(model *fakeModel) *analyzer.Analyzer {
	return analyzer.New(model, analyzer.Config{}, zap.NewNop())
}

func floatPtr(v float64) *float64 { return &v }

func TestAnalyzeIdentityRuleBased(t *testing.T) {
	tests := []struct {
		name     string
		identity identity.Identity
		validate func(t *testing.T, a analysis.ComplianceAnalysis)
	}{
		{
			name: "clean active identity is compliant",
			identity: identity.Identity{
				ID:        "ID000001",
				Status:    identity.StatusActive,
				RiskScore: floatPtr(0.2),
				LastLogin: time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339),
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.True(t, a.IsCompliant)
				assert.Equal(t, 0.2, a.RiskScore)
				assert.Empty(t, a.Violations)
				assert.Equal(t, analysis.RecommendationApprove, a.Recommendation)
				assert.Equal(t, "rule-based analysis: compliant", a.Detail)
			},
		},
		{
			name: "terminated identity is flagged and escalated",
			identity: identity.Identity{
				ID:        "ID000002",
				Status:    identity.StatusTerminated,
				RiskScore: floatPtr(0.4),
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.False(t, a.IsCompliant)
				assert.InDelta(t, 0.9, a.RiskScore, 1e-9)
				assert.Contains(t, a.Violations, "terminated user with active account")
			},
		},
		{
			name: "high baseline risk is flagged without an increment",
			identity: identity.Identity{
				ID:        "ID000003",
				Status:    identity.StatusActive,
				RiskScore: floatPtr(0.8),
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.False(t, a.IsCompliant)
				assert.Equal(t, 0.8, a.RiskScore)
				assert.Equal(t, []string{"high risk score"}, a.Violations)
			},
		},
		{
			name: "restricted clearance is flagged without an increment",
			identity: identity.Identity{
				ID:        "ID000004",
				Status:    identity.StatusActive,
				RiskScore: floatPtr(0.3),
				Attributes: identity.Attributes{
					ClearanceLevel: identity.ClearanceRestricted,
				},
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.False(t, a.IsCompliant)
				assert.Equal(t, 0.3, a.RiskScore)
				assert.Equal(t, []string{"restricted clearance requires review"}, a.Violations)
			},
		},
		{
			name: "stale login is flagged with an increment",
			identity: identity.Identity{
				ID:        "ID000005",
				Status:    identity.StatusActive,
				RiskScore: floatPtr(0.2),
				LastLogin: time.Now().UTC().AddDate(0, -6, 0).Format(time.RFC3339),
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.False(t, a.IsCompliant)
				assert.InDelta(t, 0.4, a.RiskScore, 1e-9)
				assert.Equal(t, []string{"no login activity for 90+ days"}, a.Violations)
			},
		},
		{
			name: "malformed last login is skipped",
			identity: identity.Identity{
				ID:        "ID000006",
				Status:    identity.StatusActive,
				RiskScore: floatPtr(0.2),
				LastLogin: "not-a-timestamp",
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.True(t, a.IsCompliant)
				assert.Empty(t, a.Violations)
			},
		},
		{
			name: "missing risk score defaults the baseline",
			identity: identity.Identity{
				ID:     "ID000007",
				Status: identity.StatusActive,
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.True(t, a.IsCompliant)
				assert.Equal(t, 0.5, a.RiskScore)
			},
		},
		{
			name: "terminated high-risk identity clamps to one",
			identity: identity.Identity{
				ID:        "ID000008",
				Status:    identity.StatusTerminated,
				RiskScore: floatPtr(0.8),
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.Equal(t, 1.0, a.RiskScore)
				assert.Equal(t, []string{
					"terminated user with active account",
					"high risk score",
				}, a.Violations)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAnalyzer(&fakeModel{available: false}).AnalyzeIdentity(context.Background(), tt.identity)
			assert.Equal(t, analysis.TypeRuleBased, a.AnalysisType)
			assert.Equal(t, analysis.ConfidenceRuleBased, a.Confidence)
			tt.validate(t, a)
		})
	}
}

func TestAnalyzeAccessRecordRuleBased(t *testing.T) {
	tests := []struct {
		name     string
		record   identity.AccessRecord
		validate func(t *testing.T, a analysis.ComplianceAnalysis)
	}{
		{
			name: "clean record keeps the baseline",
			record: identity.AccessRecord{
				ID:                  "rec-1",
				RiskLevel:           identity.RiskLow,
				CertificationStatus: identity.CertificationCertified,
				Compliance:          map[string]bool{"sox": true, "gdpr": true},
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.True(t, a.IsCompliant)
				assert.InDelta(t, 0.3, a.RiskScore, 1e-9)
				assert.Empty(t, a.Violations)
			},
		},
		{
			name: "single regime violation at the risk boundary is still non-compliant",
			record: identity.AccessRecord{
				ID:                  "rec-sox",
				RiskLevel:           identity.RiskLow,
				CertificationStatus: identity.CertificationCertified,
				Compliance:          map[string]bool{"sox": false, "gdpr": true},
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.InDelta(t, 0.5, a.RiskScore, 1e-9)
				assert.Equal(t, []string{"SOX compliance violation"}, a.Violations)
				// Risk is at the compliant boundary, but violations decide.
				assert.False(t, a.IsCompliant)
				assert.Equal(t, analysis.RecommendationInvestigate, a.Recommendation)
			},
		},
		{
			name: "regime violations are tagged in sorted order",
			record: identity.AccessRecord{
				ID:         "rec-2",
				RiskLevel:  identity.RiskLow,
				Compliance: map[string]bool{"sox": false, "gdpr": false, "hipaa": true},
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.Equal(t, []string{
					"GDPR compliance violation",
					"SOX compliance violation",
				}, a.Violations)
				assert.InDelta(t, 0.7, a.RiskScore, 1e-9)
			},
		},
		{
			name: "all checks stack and clamp",
			record: identity.AccessRecord{
				ID:                  "rec-3",
				IsPrivileged:        true,
				ViolatesSOD:         true,
				RiskLevel:           identity.RiskHigh,
				CertificationStatus: identity.CertificationExpired,
				Compliance:          map[string]bool{"sox": false},
			},
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.Equal(t, 1.0, a.RiskScore)
				assert.Equal(t, []string{
					"SOX compliance violation",
					"segregation of duties violation",
					"privileged access requires review",
					"expired certification",
					"high risk access",
				}, a.Violations)
				assert.Equal(t, analysis.RecommendationInvestigate, a.Recommendation)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAnalyzer(&fakeModel{available: false}).AnalyzeAccessRecord(context.Background(), tt.record)
			assert.Equal(t, analysis.TypeRuleBased, a.AnalysisType)
			tt.validate(t, a)
		})
	}
}

func TestAnalyzeIdentityDeterministic(t *testing.T) {
	id := identity.Identity{
		ID:        "ID000010",
		Status:    identity.StatusTerminated,
		RiskScore: floatPtr(0.8),
		Attributes: identity.Attributes{
			ClearanceLevel: identity.ClearanceRestricted,
		},
	}
	a := newAnalyzer(&fakeModel{available: false})

	first := a.AnalyzeIdentity(context.Background(), id)
	second := a.AnalyzeIdentity(context.Background(), id)

	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, first.Violations, second.Violations)
	assert.Equal(t, first.IsCompliant, second.IsCompliant)
}

func TestModelAssistedAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		response string
		validate func(t *testing.T, a analysis.ComplianceAnalysis)
	}{
		{
			name:     "compliant verdict keeps the baseline risk",
			response: "The identity appears compliant with all policies.",
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.True(t, a.IsCompliant)
				assert.Equal(t, 0.2, a.RiskScore)
				assert.Empty(t, a.Violations)
			},
		},
		{
			name:     "non-compliant verdict raises risk to the threshold",
			response: "This access is non-compliant with SOX controls, a clear violation.",
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.False(t, a.IsCompliant)
				assert.InDelta(t, 0.7, a.RiskScore, 1e-9)
				assert.Contains(t, a.Violations, "SOX compliance violation")
			},
		},
		{
			name:     "segregation and escalation keywords are tagged",
			response: "Non-compliant: segregation of duties concern and privilege escalation detected.",
			validate: func(t *testing.T, a analysis.ComplianceAnalysis) {
				assert.Contains(t, a.Violations, "Segregation of duties violation")
				assert.Contains(t, a.Violations, "Privilege escalation risk")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAnalyzer(&fakeModel{available: true, response: tt.response})
			res := a.AnalyzeIdentity(context.Background(), identity.Identity{
				ID:        "ID000020",
				Status:    identity.StatusActive,
				RiskScore: floatPtr(0.2),
			})
			assert.Equal(t, analysis.TypeModelAssisted, res.AnalysisType)
			assert.Equal(t, analysis.ConfidenceModelAssisted, res.Confidence)
			assert.Equal(t, tt.response, res.Detail)
			tt.validate(t, res)
		})
	}
}

func TestModelFailureFallsBackToRules(t *testing.T) {
	a := newAnalyzer(&fakeModel{available: true, err: errors.New("model timeout")})

	res := a.AnalyzeIdentity(context.Background(), identity.Identity{
		ID:        "ID000030",
		Status:    identity.StatusActive,
		RiskScore: floatPtr(0.2),
	})

	assert.Equal(t, analysis.TypeRuleBased, res.AnalysisType)
	assert.Equal(t, analysis.ConfidenceRuleBased, res.Confidence)
	assert.True(t, res.IsCompliant)
}

func TestModelPanicFallsBackToRules(t *testing.T) {
	a := newAnalyzer(&fakeModel{available: true, panics: true})

	// A crashing model is just another model failure: the rule path must
	// still score the record, never the default sentinel.
	idRes := a.AnalyzeIdentity(context.Background(), identity.Identity{
		ID:        "ID000031",
		Status:    identity.StatusActive,
		RiskScore: floatPtr(0.2),
	})
	assert.Equal(t, analysis.TypeRuleBased, idRes.AnalysisType)
	assert.Equal(t, analysis.ConfidenceRuleBased, idRes.Confidence)
	assert.True(t, idRes.IsCompliant)
	assert.Equal(t, 0.2, idRes.RiskScore)

	recRes := a.AnalyzeAccessRecord(context.Background(), identity.AccessRecord{
		ID:           "rec-9",
		IsPrivileged: true,
		RiskLevel:    identity.RiskLow,
	})
	assert.Equal(t, analysis.TypeRuleBased, recRes.AnalysisType)
	assert.Equal(t, []string{"privileged access requires review"}, recRes.Violations)
	assert.InDelta(t, 0.5, recRes.RiskScore, 1e-9)
}

func TestModelAvailable(t *testing.T) {
	assert.False(t, newAnalyzer(&fakeModel{available: false}).ModelAvailable())
	assert.True(t, newAnalyzer(&fakeModel{available: true}).ModelAvailable())
}
