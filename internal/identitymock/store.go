package identitymock

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/davidleathers/identity-audit-engine/internal/domain/identity"
)

// Store serves a fixed dataset with the filter and pagination semantics
// of the identity data source contract. The dataset is immutable after
// construction, so reads need no locking.
type Store struct {
	identities    []identity.Identity
	accessRecords []identity.AccessRecord
}

func NewStore(ds *Dataset) *Store {
	return &Store{
		identities:    ds.Identities,
		accessRecords: ds.AccessRecords,
	}
}

// Page is a bounded slice of results with the pre-filter total.
type Page[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
}

// Counts reports dataset sizes for the health endpoint.
func (s *Store) Counts() (identities, accessRecords int) {
	return len(s.identities), len(s.accessRecords)
}

// Identities applies filters then paginates. Supported filters: id,
// status, department, riskScore (minimum).
func (s *Store) Identities(limit, offset int, filters map[string]string) Page[identity.Identity] {
	matched := make([]identity.Identity, 0, len(s.identities))
	for _, id := range s.identities {
		if v, ok := filters["id"]; ok && id.ID != v && id.EmployeeID != v {
			continue
		}
		if v, ok := filters["status"]; ok && string(id.Status) != v {
			continue
		}
		if v, ok := filters["department"]; ok && id.Department != v {
			continue
		}
		if v, ok := filters["riskScore"]; ok {
			minRisk, err := strconv.ParseFloat(v, 64)
			if err == nil && (id.RiskScore == nil || *id.RiskScore < minRisk) {
				continue
			}
		}
		matched = append(matched, id)
	}
	return paginate(matched, limit, offset)
}

// IdentityByID looks an identity up by id or employee id.
func (s *Store) IdentityByID(id string) (identity.Identity, bool) {
	for _, candidate := range s.identities {
		if candidate.ID == id || candidate.EmployeeID == id {
			return candidate, true
		}
	}
	return identity.Identity{}, false
}

// AccessRecords applies filters then paginates. Supported filters:
// identityId, application, riskLevel, isPrivileged, violatesSOD.
func (s *Store) AccessRecords(limit, offset int, filters map[string]string) Page[identity.AccessRecord] {
	matched := make([]identity.AccessRecord, 0, len(s.accessRecords))
	for _, rec := range s.accessRecords {
		if v, ok := filters["identityId"]; ok && rec.IdentityID != v {
			continue
		}
		if v, ok := filters["application"]; ok && rec.Application != v {
			continue
		}
		if v, ok := filters["riskLevel"]; ok && string(rec.RiskLevel) != v {
			continue
		}
		if v, ok := filters["isPrivileged"]; ok && rec.IsPrivileged != strings.EqualFold(v, "true") {
			continue
		}
		if v, ok := filters["violatesSOD"]; ok && rec.ViolatesSOD != strings.EqualFold(v, "true") {
			continue
		}
		matched = append(matched, rec)
	}
	return paginate(matched, limit, offset)
}

// Violations derives the violation list from non-compliant regime flags,
// optionally restricted to one regime.
func (s *Store) Violations(regime string) []identity.Violation {
	violations := []identity.Violation{}
	now := time.Now().UTC().Format(time.RFC3339)

	for _, rec := range s.accessRecords {
		for _, r := range sortedRegimeKeys(rec.Compliance) {
			if regime != "" && r != regime {
				continue
			}
			if rec.Compliance[r] {
				continue
			}
			violations = append(violations, identity.Violation{
				RecordID:      rec.ID,
				IdentityID:    rec.IdentityID,
				Application:   rec.Application,
				ViolationType: strings.ToUpper(r),
				Severity:      rec.RiskLevel,
				DetectedAt:    now,
			})
		}
	}
	return violations
}

// CertificationSummary counts records awaiting or past attestation.
type CertificationSummary struct {
	PendingCertifications int `json:"pendingCertifications"`
	ExpiredCertifications int `json:"expiredCertifications"`
	TotalRequiringReview  int `json:"totalRequiringReview"`
}

func (s *Store) Certifications() CertificationSummary {
	var summary CertificationSummary
	for _, rec := range s.accessRecords {
		switch rec.CertificationStatus {
		case identity.CertificationPendingReview:
			summary.PendingCertifications++
		case identity.CertificationExpired:
			summary.ExpiredCertifications++
		}
	}
	summary.TotalRequiringReview = summary.PendingCertifications + summary.ExpiredCertifications
	return summary
}

// RiskSummary computes the aggregate risk report over the dataset.
func (s *Store) RiskSummary() identity.RiskSummary {
	summary := identity.RiskSummary{
		TotalIdentities:    len(s.identities),
		TotalAccessRecords: len(s.accessRecords),
		ComplianceStatus:   map[string]int{},
		RiskMetrics: &identity.RiskMetrics{
			RiskDistribution: map[string]int{"low": 0, "medium": 0, "high": 0},
		},
	}

	totalRisk := 0.0
	for _, id := range s.identities {
		risk := 0.0
		if id.RiskScore != nil {
			risk = *id.RiskScore
		}
		totalRisk += risk
		switch {
		case risk > 0.7:
			summary.HighRiskIdentities++
			summary.RiskMetrics.RiskDistribution["high"]++
		case risk > 0.3:
			summary.RiskMetrics.RiskDistribution["medium"]++
		default:
			summary.RiskMetrics.RiskDistribution["low"]++
		}
	}
	if len(s.identities) > 0 {
		summary.RiskMetrics.AverageIdentityRisk = totalRisk / float64(len(s.identities))
	}

	for _, rec := range s.accessRecords {
		if rec.RiskLevel == identity.RiskHigh {
			summary.HighRiskAccess++
		}
		if rec.IsPrivileged {
			summary.PrivilegedAccess++
		}
		if rec.ViolatesSOD {
			summary.SODViolations++
		}
		for _, r := range sortedRegimeKeys(rec.Compliance) {
			if !rec.Compliance[r] {
				summary.ComplianceStatus[r]++
			}
		}
	}

	return summary
}

func paginate[T any](items []T, limit, offset int) Page[T] {
	total := len(items)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	page := items[offset:end]
	return Page[T]{Items: page, Count: len(page), Total: total, Offset: offset}
}

// sortedRegimeKeys keeps the mock's responses stable across calls.
func sortedRegimeKeys(compliance map[string]bool) []string {
	keys := make([]string, 0, len(compliance))
	for k := range compliance {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
