package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/identity-audit-engine/internal/domain/analysis"
	"github.com/davidleathers/identity-audit-engine/internal/domain/identity"
)

// RunStatus is the lifecycle state of the audit run registry.
type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusError     RunStatus = "error"
)

// ResultStatus is the terminal state of a single audit pass.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultError     ResultStatus = "error"
)

// DetailSampleSize bounds the per-record detail carried in a published
// result. Counts in the summary stay exact; only the detail is sampled.
const DetailSampleSize = 5

// IdentityResult pairs an identity with its analysis.
type IdentityResult struct {
	Identity identity.Identity           `json:"identity"`
	Analysis analysis.ComplianceAnalysis `json:"analysis"`
}

// AccessResult pairs an access record with its analysis.
type AccessResult struct {
	AccessRecord identity.AccessRecord       `json:"access_record"`
	Analysis     analysis.ComplianceAnalysis `json:"analysis"`
}

// Summary carries the aggregate statistics of one audit pass. Rates are
// pre-formatted percentages with one decimal place ("0%" when the
// denominator is zero).
type Summary struct {
	TotalIdentities        int    `json:"total_identities"`
	CompliantIdentities    int    `json:"compliant_identities"`
	IdentityComplianceRate string `json:"identity_compliance_rate"`
	TotalAccessRecords     int    `json:"total_access_records"`
	CompliantAccessRecords int    `json:"compliant_access_records"`
	AccessComplianceRate   string `json:"access_compliance_rate"`
	HighRiskItems          int    `json:"high_risk_items"`
	OverallComplianceRate  string `json:"overall_compliance_rate"`
}

// SourceData is advisory context pulled from the data source alongside the
// audited records. Either section may be absent if its pull failed.
type SourceData struct {
	Violations  []identity.Violation  `json:"violations,omitempty"`
	RiskSummary *identity.RiskSummary `json:"risk_summary,omitempty"`
}

// DetailedResults is the bounded per-record sample included for display.
type DetailedResults struct {
	Identities    []IdentityResult `json:"identities"`
	AccessRecords []AccessResult   `json:"access_records"`
}

// Result is one completed or failed audit pass. It is created once and
// never mutated after publication.
type Result struct {
	Status          ResultStatus    `json:"status"`
	AuditID         string          `json:"audit_id"`
	Message         string          `json:"message,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	DurationSeconds float64         `json:"duration_seconds"`
	Summary         Summary         `json:"summary"`
	SourceData      SourceData      `json:"source_data"`
	DetailedResults DetailedResults `json:"detailed_results"`
	Recommendations []string        `json:"recommendations"`
}

// NewResult assembles a completed Result from per-record outcomes,
// sampling the detail and computing the summary rates.
func NewResult(start, end time.Time, identities []IdentityResult, accessRecords []AccessResult, source SourceData, recommendations []string) *Result {
	compliantIdentities := 0
	highRisk := 0
	for _, r := range identities {
		if r.Analysis.IsCompliant {
			compliantIdentities++
		}
		if r.Analysis.HighRisk() {
			highRisk++
		}
	}

	compliantAccess := 0
	for _, r := range accessRecords {
		if r.Analysis.IsCompliant {
			compliantAccess++
		}
		if r.Analysis.HighRisk() {
			highRisk++
		}
	}

	totalIdentities := len(identities)
	totalAccess := len(accessRecords)

	return &Result{
		Status:          ResultCompleted,
		AuditID:         uuid.NewString(),
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: end.Sub(start).Seconds(),
		Summary: Summary{
			TotalIdentities:        totalIdentities,
			CompliantIdentities:    compliantIdentities,
			IdentityComplianceRate: FormatRate(compliantIdentities, totalIdentities),
			TotalAccessRecords:     totalAccess,
			CompliantAccessRecords: compliantAccess,
			AccessComplianceRate:   FormatRate(compliantAccess, totalAccess),
			HighRiskItems:          highRisk,
			OverallComplianceRate:  FormatRate(compliantIdentities+compliantAccess, totalIdentities+totalAccess),
		},
		SourceData: source,
		DetailedResults: DetailedResults{
			Identities:    sample(identities, DetailSampleSize),
			AccessRecords: sample(accessRecords, DetailSampleSize),
		},
		Recommendations: recommendations,
	}
}

// NewErrorResult records a failed audit pass with the underlying cause.
func NewErrorResult(start time.Time, message string) *Result {
	end := time.Now().UTC()
	return &Result{
		Status:          ResultError,
		AuditID:         uuid.NewString(),
		Message:         message,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: end.Sub(start).Seconds(),
		Recommendations: []string{},
	}
}

// FormatRate renders compliant/total as a percentage with one decimal
// place, or "0%" when total is zero.
func FormatRate(compliant, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(compliant)/float64(total)*100)
}

func sample[T any](items []T, n int) []T {
	if len(items) <= n {
		if items == nil {
			return []T{}
		}
		return items
	}
	return items[:n]
}
