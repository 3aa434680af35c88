package audit

import (
	"fmt"
	"strings"

	domain "github.com/davidleathers/identity-audit-engine/internal/domain/audit"
	"github.com/davidleathers/identity-audit-engine/internal/domain/identity"
)

// buildRecommendations derives the ordered remediation list for a
// completed audit. Each check is evaluated independently and every one
// that applies is included, in a fixed order. An audit with no findings
// gets exactly one "all clear" entry.
func buildRecommendations(identityResults []domain.IdentityResult, accessResults []domain.AccessResult) []string {
	var recommendations []string

	highRisk := 0
	terminated := 0
	for _, r := range identityResults {
		if r.Analysis.HighRisk() {
			highRisk++
		}
		if r.Identity.Status == identity.StatusTerminated {
			terminated++
		}
	}
	if highRisk > 0 {
		recommendations = append(recommendations, fmt.Sprintf("review %d high-risk identities", highRisk))
	}
	if terminated > 0 {
		recommendations = append(recommendations, fmt.Sprintf("disable access for %d terminated users", terminated))
	}

	sod := 0
	expired := 0
	privileged := 0
	for _, r := range accessResults {
		if mentionsSOD(r.Analysis.Violations) {
			sod++
		}
		if r.AccessRecord.CertificationStatus == identity.CertificationExpired {
			expired++
		}
		if r.AccessRecord.IsPrivileged {
			privileged++
		}
	}
	if sod > 0 {
		recommendations = append(recommendations, fmt.Sprintf("address %d segregation of duties violations", sod))
	}
	if expired > 0 {
		recommendations = append(recommendations, fmt.Sprintf("renew %d expired certifications", expired))
	}
	if privileged > 0 {
		recommendations = append(recommendations, fmt.Sprintf("review %d privileged access grants", privileged))
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "no major compliance issues detected")
	}
	return recommendations
}

func mentionsSOD(violations []string) bool {
	for _, v := range violations {
		if strings.Contains(strings.ToLower(v), "segregation of duties") {
			return true
		}
	}
	return false
}
