package analysis

import "time"

// Recommendation is the reviewer action derived from an analysis.
type Recommendation string

const (
	RecommendationApprove      Recommendation = "APPROVE"
	RecommendationInvestigate  Recommendation = "INVESTIGATE"
	RecommendationManualReview Recommendation = "MANUAL_REVIEW"
)

// Type identifies which analysis strategy produced a result.
type Type string

const (
	TypeModelAssisted Type = "model_assisted"
	TypeRuleBased     Type = "rule_based"
	TypeDefault       Type = "default"
)

// Confidence constants per analysis type. These encode a relative trust
// ordering between strategies, not calibrated probabilities.
const (
	ConfidenceModelAssisted = 0.85
	ConfidenceRuleBased     = 0.75
	ConfidenceDefault       = 0.0
)

// ComplianceAnalysis is the scored outcome of analyzing a single identity
// or access record.
//
// Invariant: IsCompliant is true exactly when Violations is empty and
// RiskScore <= 0.5. Construct results through New so the invariant and the
// score clamp cannot be bypassed.
type ComplianceAnalysis struct {
	IsCompliant    bool           `json:"is_compliant"`
	RiskScore      float64        `json:"risk_score"`
	Violations     []string       `json:"violations"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	AnalysisType   Type           `json:"analysis_type"`
	Detail         string         `json:"detail,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// New builds a ComplianceAnalysis from a raw score and violation list,
// clamping the score to [0, 1] and deriving compliance and the
// recommendation from the compliance predicate.
func New(riskScore float64, violations []string, analysisType Type, confidence float64, detail string) ComplianceAnalysis {
	score := Clamp(riskScore)
	compliant := len(violations) == 0 && score <= 0.5

	rec := RecommendationInvestigate
	if compliant {
		rec = RecommendationApprove
	}

	if violations == nil {
		violations = []string{}
	}

	return ComplianceAnalysis{
		IsCompliant:    compliant,
		RiskScore:      score,
		Violations:     violations,
		Recommendation: rec,
		Confidence:     confidence,
		AnalysisType:   analysisType,
		Detail:         detail,
		Timestamp:      time.Now().UTC(),
	}
}

// Failed is the sentinel returned when neither analysis path could
// complete. It must never fail to construct.
func Failed() ComplianceAnalysis {
	return ComplianceAnalysis{
		IsCompliant:    false,
		RiskScore:      0.5,
		Violations:     []string{"analysis failed"},
		Recommendation: RecommendationManualReview,
		Confidence:     ConfidenceDefault,
		AnalysisType:   TypeDefault,
		Detail:         "unable to complete analysis",
		Timestamp:      time.Now().UTC(),
	}
}

// HighRisk reports whether the analysis crossed the high-risk threshold.
func (a ComplianceAnalysis) HighRisk() bool {
	return a.RiskScore > 0.7
}

// Clamp bounds a risk score to [0.0, 1.0].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
