package identity

// Status is the directory lifecycle state of an identity.
type Status string

const (
	StatusActive     Status = "Active"
	StatusInactive   Status = "Inactive"
	StatusTerminated Status = "Terminated"
)

// ClearanceLevel is the data classification an identity is cleared for.
type ClearanceLevel string

const (
	ClearancePublic       ClearanceLevel = "Public"
	ClearanceInternal     ClearanceLevel = "Internal"
	ClearanceConfidential ClearanceLevel = "Confidential"
	ClearanceRestricted   ClearanceLevel = "Restricted"
)

// RiskLevel is the coarse risk classification of an access grant.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// CertificationStatus is the attestation state of an entitlement.
type CertificationStatus string

const (
	CertificationCertified     CertificationStatus = "Certified"
	CertificationPendingReview CertificationStatus = "Pending Review"
	CertificationExpired       CertificationStatus = "Expired"
	CertificationRevoked       CertificationStatus = "Revoked"
)

// Identity is a read-only snapshot of one directory subject as returned
// by the identity data source. The analyzer never mutates it.
type Identity struct {
	ID         string   `json:"id"`
	EmployeeID string   `json:"employeeId"`
	Department string   `json:"department"`
	JobTitle   string   `json:"jobTitle"`
	Status     Status   `json:"status"`
	RiskScore  *float64 `json:"riskScore,omitempty"`
	// LastLogin is kept as the raw wire value; the source does not
	// guarantee it is present or parseable.
	LastLogin  string     `json:"lastLogin,omitempty"`
	Attributes Attributes `json:"attributes"`
}

// Attributes carries the extended directory attributes of an identity.
type Attributes struct {
	ClearanceLevel ClearanceLevel `json:"clearanceLevel,omitempty"`
	Location       string         `json:"location,omitempty"`
	ManagerID      string         `json:"managerId,omitempty"`
}

// AccessRecord is a read-only snapshot of one granted entitlement.
// Compliance maps regime name (e.g. "sox", "gdpr") to a compliant flag;
// keys are unordered and not guaranteed exhaustive.
type AccessRecord struct {
	ID                  string              `json:"id"`
	IdentityID          string              `json:"identityId"`
	Application         string              `json:"application"`
	Entitlement         string              `json:"entitlement"`
	IsPrivileged        bool                `json:"isPrivileged"`
	ViolatesSOD         bool                `json:"violatesSOD"`
	RiskLevel           RiskLevel           `json:"riskLevel"`
	CertificationStatus CertificationStatus `json:"certificationStatus"`
	Compliance          map[string]bool     `json:"compliance,omitempty"`
}

// Violation is a single compliance violation reported by the data source.
type Violation struct {
	RecordID      string    `json:"recordId"`
	IdentityID    string    `json:"identityId"`
	Application   string    `json:"application"`
	ViolationType string    `json:"violationType"`
	Severity      RiskLevel `json:"severity"`
	DetectedAt    string    `json:"detectedAt,omitempty"`
}

// RiskSummary is the aggregate risk report exposed by the data source.
type RiskSummary struct {
	TotalIdentities    int             `json:"totalIdentities"`
	HighRiskIdentities int             `json:"highRiskIdentities"`
	TotalAccessRecords int             `json:"totalAccessRecords"`
	HighRiskAccess     int             `json:"highRiskAccess"`
	PrivilegedAccess   int             `json:"privilegedAccess"`
	SODViolations      int             `json:"sodViolations"`
	ComplianceStatus   map[string]int  `json:"complianceStatus,omitempty"`
	RiskMetrics        *RiskMetrics    `json:"riskMetrics,omitempty"`
}

// RiskMetrics breaks identity risk down into distribution buckets.
type RiskMetrics struct {
	AverageIdentityRisk float64        `json:"averageIdentityRisk"`
	RiskDistribution    map[string]int `json:"riskDistribution"`
}
