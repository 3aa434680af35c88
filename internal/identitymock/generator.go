package identitymock

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/identity-audit-engine/internal/domain/identity"
)

var (
	departments = []string{"Finance", "HR", "IT", "Sales", "Operations", "Legal", "Marketing", "Engineering"}
	locations   = []string{"New York", "London", "Tokyo", "Sydney", "Frankfurt", "Singapore", "Toronto", "Mumbai"}
	jobTitles   = []string{
		"Financial Analyst", "Software Engineer", "HR Manager", "Sales Representative",
		"Operations Manager", "Legal Counsel", "Marketing Specialist", "Database Administrator",
		"Business Analyst", "Project Manager", "Security Administrator", "Compliance Officer",
	}
	applications = []string{
		"SAP", "Salesforce", "Oracle", "Active Directory", "Exchange", "SharePoint",
		"Workday", "ServiceNow", "Jira", "Confluence", "Tableau", "PowerBI",
	}
	entitlements = []string{
		"Read", "Write", "Admin", "Approve", "Create", "Delete", "Modify", "Execute",
		"View Reports", "Manage Users", "Financial Data Access", "HR Data Access",
	}

	statuses = []identity.Status{
		identity.StatusActive, identity.StatusActive, identity.StatusActive,
		identity.StatusActive, identity.StatusInactive, identity.StatusTerminated,
	}
	clearances = []identity.ClearanceLevel{
		identity.ClearancePublic, identity.ClearanceInternal,
		identity.ClearanceConfidential, identity.ClearanceRestricted,
	}
	riskLevels     = []identity.RiskLevel{identity.RiskLow, identity.RiskMedium, identity.RiskHigh}
	certifications = []identity.CertificationStatus{
		identity.CertificationCertified, identity.CertificationPendingReview,
		identity.CertificationExpired, identity.CertificationRevoked,
	}
)

// Dataset is a generated snapshot of identities and their access records.
type Dataset struct {
	Identities    []identity.Identity
	AccessRecords []identity.AccessRecord
}

// Generate produces a synthetic dataset of n identities, each with 2-5
// access records. The same seed always yields the same dataset.
func Generate(n int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	ds := &Dataset{
		Identities:    make([]identity.Identity, 0, n),
		AccessRecords: make([]identity.AccessRecord, 0, n*3),
	}

	for i := 0; i < n; i++ {
		identityID := fmt.Sprintf("ID%06d", i+1)
		riskScore := math.Round((0.1+rng.Float64()*0.8)*100) / 100
		lastLogin := now.AddDate(0, 0, -rng.Intn(31))

		ds.Identities = append(ds.Identities, identity.Identity{
			ID:         identityID,
			EmployeeID: fmt.Sprintf("EMP%04d", i+1001),
			Department: pick(rng, departments),
			JobTitle:   pick(rng, jobTitles),
			Status:     pick(rng, statuses),
			RiskScore:  &riskScore,
			LastLogin:  lastLogin.Format(time.RFC3339),
			Attributes: identity.Attributes{
				ClearanceLevel: pick(rng, clearances),
				Location:       pick(rng, locations),
				ManagerID:      fmt.Sprintf("MGR%03d", rng.Intn(20)+1),
			},
		})

		for j := 0; j < 2+rng.Intn(4); j++ {
			recordID := uuid.Must(uuid.NewRandomFromReader(rng))
			ds.AccessRecords = append(ds.AccessRecords, identity.AccessRecord{
				ID:                  recordID.String(),
				IdentityID:          identityID,
				Application:         pick(rng, applications),
				Entitlement:         pick(rng, entitlements),
				IsPrivileged:        rng.Intn(4) == 0,
				ViolatesSOD:         rng.Intn(5) == 0,
				RiskLevel:           pick(rng, riskLevels),
				CertificationStatus: pick(rng, certifications),
				Compliance: map[string]bool{
					"sox":   rng.Intn(4) != 0,
					"gdpr":  rng.Intn(5) != 0,
					"hipaa": rng.Intn(5) != 0,
					"pci":   rng.Intn(4) != 0,
				},
			})
		}
	}

	return ds
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}
