package analyzer

import (
	"fmt"
	"strconv"

	"github.com/davidleathers/identity-audit-engine/internal/domain/identity"
)

// Prompt templates for the model-assisted path. Fields are interpolated
// positionally; missing values render as the literal "unknown".

const identityPromptTemplate = `Analyze this identity for compliance risks:

Identity: %s
Employee: %s
Department: %s
Job Title: %s
Status: %s
Risk Score: %s
Last Login: %s
Clearance: %s

Assess compliance risks and provide recommendations:`

const accessPromptTemplate = `Analyze this access record for compliance:

Identity: %s
Application: %s
Entitlement: %s
Privileged: %t
SOD Violation: %t
Risk Level: %s
Certification: %s

Compliance Status:
%s
Evaluate compliance and provide analysis:`

func identityPrompt(id identity.Identity) string {
	riskScore := "unknown"
	if id.RiskScore != nil {
		riskScore = strconv.FormatFloat(*id.RiskScore, 'g', -1, 64)
	}
	return fmt.Sprintf(identityPromptTemplate,
		orUnknown(id.ID),
		orUnknown(id.EmployeeID),
		orUnknown(id.Department),
		orUnknown(id.JobTitle),
		orUnknown(string(id.Status)),
		riskScore,
		orUnknown(id.LastLogin),
		orUnknown(string(id.Attributes.ClearanceLevel)),
	)
}

func accessPrompt(rec identity.AccessRecord) string {
	compliance := ""
	for _, regime := range sortedRegimes(rec.Compliance) {
		compliance += fmt.Sprintf("%s: %t\n", regime, rec.Compliance[regime])
	}
	if compliance == "" {
		compliance = "unknown\n"
	}
	return fmt.Sprintf(accessPromptTemplate,
		orUnknown(rec.IdentityID),
		orUnknown(rec.Application),
		orUnknown(rec.Entitlement),
		rec.IsPrivileged,
		rec.ViolatesSOD,
		orUnknown(string(rec.RiskLevel)),
		orUnknown(string(rec.CertificationStatus)),
		compliance,
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
