package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/identity-audit-engine/internal/domain/analysis"
	"github.com/davidleathers/identity-audit-engine/internal/domain/identity"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/textmodel"
)

// Record kinds, used for cache keys and logging.
const (
	KindIdentity     = "identity"
	KindAccessRecord = "access_record"
)

// Rule increments and thresholds. The rule engine is the source of truth;
// the model-assisted path is a best-effort classifier layered on top.
const (
	accessBaselineRisk = 0.3
	// defaultBaselineRisk is the starting score when a record carries no
	// risk signal of its own: identities without a riskScore, and access
	// records entering the model path.
	defaultBaselineRisk  = 0.5
	highRiskThreshold    = 0.7
	terminatedIncrement  = 0.5
	staleLoginIncrement  = 0.2
	regimeIncrement      = 0.2
	sodIncrement         = 0.3
	privilegedIncrement  = 0.2
	expiredCertIncrement = 0.2
	highRiskIncrement    = 0.2
)

// Config tunes the analyzer's rule engine.
type Config struct {
	// StaleLoginAfter is how long an identity may go without logging in
	// before it is flagged.
	StaleLoginAfter time.Duration
}

// Analyzer scores identities and access records for compliance risk. It
// prefers the configured text model when one is available and falls back
// to deterministic rules on any model failure. A single bad record never
// escapes as an error: the worst case is the degraded sentinel analysis.
type Analyzer struct {
	model  textmodel.Model
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func New(model textmodel.Model, cfg Config, logger *zap.Logger) *Analyzer {
	if model == nil {
		model = textmodel.Disabled{}
	}
	if cfg.StaleLoginAfter <= 0 {
		cfg.StaleLoginAfter = 90 * 24 * time.Hour
	}
	return &Analyzer{
		model:  model,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// ModelAvailable reports whether the text model capability is configured.
func (a *Analyzer) ModelAvailable() bool {
	return a.model.Available()
}

// AnalyzeIdentity scores one identity. Never returns an error.
func (a *Analyzer) AnalyzeIdentity(ctx context.Context, id identity.Identity) (result analysis.ComplianceAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("identity analysis panicked",
				zap.String("identity_id", id.ID),
				zap.Any("panic", r))
			result = analysis.Failed()
		}
	}()

	if a.model.Available() {
		if res, err := a.modelAnalysis(ctx, identityPrompt(id), identityBaseline(id)); err == nil {
			return res
		} else {
			a.logger.Warn("model analysis failed, falling back to rules",
				zap.String("kind", KindIdentity),
				zap.String("identity_id", id.ID),
				zap.Error(err))
		}
	}

	return a.ruleBasedIdentity(id)
}

// AnalyzeAccessRecord scores one access record. Never returns an error.
func (a *Analyzer) AnalyzeAccessRecord(ctx context.Context, rec identity.AccessRecord) (result analysis.ComplianceAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("access record analysis panicked",
				zap.String("record_id", rec.ID),
				zap.Any("panic", r))
			result = analysis.Failed()
		}
	}()

	if a.model.Available() {
		if res, err := a.modelAnalysis(ctx, accessPrompt(rec), defaultBaselineRisk); err == nil {
			return res
		} else {
			a.logger.Warn("model analysis failed, falling back to rules",
				zap.String("kind", KindAccessRecord),
				zap.String("record_id", rec.ID),
				zap.Error(err))
		}
	}

	return a.ruleBasedAccess(rec)
}

// modelAnalysis submits the prompt and derives an analysis from the free
// text response by keyword inspection. The heuristics are deliberately
// not hardened further; the rule engine remains the source of truth.
// A panicking model surfaces as an error so the caller's rule fallback
// triggers, the same as any other model failure.
func (a *Analyzer) modelAnalysis(ctx context.Context, prompt string, baselineRisk float64) (res analysis.ComplianceAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = analysis.ComplianceAnalysis{}
			err = fmt.Errorf("model analysis panicked: %v", r)
		}
	}()

	response, err := a.model.Generate(ctx, prompt)
	if err != nil {
		return analysis.ComplianceAnalysis{}, err
	}

	text := strings.ToLower(response)
	compliant := strings.Contains(text, "compliant") && !strings.Contains(text, "non-compliant")

	var violations []string
	if strings.Contains(text, "sox") && (strings.Contains(text, "violation") || strings.Contains(text, "non-compliant")) {
		violations = append(violations, "SOX compliance violation")
	}
	if strings.Contains(text, "segregation") || strings.Contains(text, "sod") {
		violations = append(violations, "Segregation of duties violation")
	}
	if strings.Contains(text, "privilege") && strings.Contains(text, "escalation") {
		violations = append(violations, "Privilege escalation risk")
	}

	risk := baselineRisk
	if !compliant && risk < highRiskThreshold {
		risk = highRiskThreshold
	}

	return analysis.New(risk, violations, analysis.TypeModelAssisted, analysis.ConfidenceModelAssisted, response), nil
}

// ruleBasedIdentity applies the deterministic identity checks. Each check
// is evaluated independently against the baseline score.
func (a *Analyzer) ruleBasedIdentity(id identity.Identity) analysis.ComplianceAnalysis {
	baseline := identityBaseline(id)
	risk := baseline
	var violations []string

	if id.Status == identity.StatusTerminated {
		violations = append(violations, "terminated user with active account")
		risk += terminatedIncrement
	}

	if baseline > highRiskThreshold {
		violations = append(violations, "high risk score")
	}

	if id.Attributes.ClearanceLevel == identity.ClearanceRestricted {
		violations = append(violations, "restricted clearance requires review")
	}

	// Absent or malformed last-login timestamps are skipped silently.
	if id.LastLogin != "" {
		if lastLogin, err := time.Parse(time.RFC3339, id.LastLogin); err == nil {
			if a.now().Sub(lastLogin) > a.cfg.StaleLoginAfter {
				violations = append(violations, "no login activity for 90+ days")
				risk += staleLoginIncrement
			}
		}
	}

	return ruleResult(risk, violations)
}

// ruleBasedAccess applies the deterministic access record checks. Regime
// flags are visited in sorted order so identical records always produce
// identical output.
func (a *Analyzer) ruleBasedAccess(rec identity.AccessRecord) analysis.ComplianceAnalysis {
	risk := accessBaselineRisk
	var violations []string

	for _, regime := range sortedRegimes(rec.Compliance) {
		if !rec.Compliance[regime] {
			violations = append(violations, strings.ToUpper(regime)+" compliance violation")
			risk += regimeIncrement
		}
	}

	if rec.ViolatesSOD {
		violations = append(violations, "segregation of duties violation")
		risk += sodIncrement
	}

	if rec.IsPrivileged {
		violations = append(violations, "privileged access requires review")
		risk += privilegedIncrement
	}

	if rec.CertificationStatus == identity.CertificationExpired {
		violations = append(violations, "expired certification")
		risk += expiredCertIncrement
	}

	if rec.RiskLevel == identity.RiskHigh {
		violations = append(violations, "high risk access")
		risk += highRiskIncrement
	}

	return ruleResult(risk, violations)
}

func ruleResult(risk float64, violations []string) analysis.ComplianceAnalysis {
	res := analysis.New(risk, violations, analysis.TypeRuleBased, analysis.ConfidenceRuleBased, "")
	if res.IsCompliant {
		res.Detail = "rule-based analysis: compliant"
	} else {
		res.Detail = "rule-based analysis: non-compliant"
	}
	return res
}

// sortedRegimes returns the compliance regime names in sorted order.
// Regime keys are unordered on the wire; sorting keeps analysis output
// deterministic.
func sortedRegimes(compliance map[string]bool) []string {
	regimes := make([]string, 0, len(compliance))
	for regime := range compliance {
		regimes = append(regimes, regime)
	}
	sort.Strings(regimes)
	return regimes
}

func identityBaseline(id identity.Identity) float64 {
	if id.RiskScore == nil {
		return defaultBaselineRisk
	}
	return *id.RiskScore
}
