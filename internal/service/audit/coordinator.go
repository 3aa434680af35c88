package audit

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/identity-audit-engine/internal/domain/analysis"
	domain "github.com/davidleathers/identity-audit-engine/internal/domain/audit"
	"github.com/davidleathers/identity-audit-engine/internal/domain/errors"
	"github.com/davidleathers/identity-audit-engine/internal/domain/identity"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/identitysource"
	"github.com/davidleathers/identity-audit-engine/internal/metrics"
)

// DataSource is the identity data source capability the coordinator
// consumes. The production implementation is identitysource.Client.
type DataSource interface {
	HealthCheck(ctx context.Context) (identitysource.HealthStatus, error)
	GetIdentities(ctx context.Context, limit int, filters map[string]string) (*identitysource.IdentityPage, error)
	GetAccessRecords(ctx context.Context, limit int, identityID string, filters map[string]string) (*identitysource.AccessPage, error)
	GetViolations(ctx context.Context, regime string) ([]identity.Violation, error)
	GetRiskSummary(ctx context.Context) (*identity.RiskSummary, error)
}

// RiskAnalyzer scores single records. Implementations never return errors;
// unanalyzable records degrade to the sentinel analysis.
type RiskAnalyzer interface {
	AnalyzeIdentity(ctx context.Context, id identity.Identity) analysis.ComplianceAnalysis
	AnalyzeAccessRecord(ctx context.Context, rec identity.AccessRecord) analysis.ComplianceAnalysis
}

// AnalysisCache caches per-record analyses. A nil cache disables caching.
type AnalysisCache interface {
	Get(ctx context.Context, kind, recordID string) (*analysis.ComplianceAnalysis, bool)
	Set(ctx context.Context, kind, recordID string, a analysis.ComplianceAnalysis)
}

// Config tunes the coordinator.
type Config struct {
	DefaultLimit int
	QuickLimit   int
	// AnalysisWorkers bounds the per-record analysis concurrency.
	AnalysisWorkers int
}

// StatusSnapshot is the registry state exposed to the presentation layer.
type StatusSnapshot struct {
	Status       domain.RunStatus `json:"status"`
	CurrentAudit *domain.Result   `json:"current_audit"`
	Timestamp    time.Time        `json:"timestamp"`
}

// IdentityDetail is the drill-down view for one identity: the identity,
// its analysis, and the analyses of all its access records.
type IdentityDetail struct {
	Identity         identity.Identity           `json:"identity"`
	IdentityAnalysis analysis.ComplianceAnalysis `json:"identity_analysis"`
	AccessRecords    []domain.AccessResult       `json:"access_records"`
	Timestamp        time.Time                   `json:"timestamp"`
}

// Coordinator orchestrates audit runs: health-checks the source, pulls
// bounded batches, fans per-record analysis out to a bounded worker set,
// aggregates, and publishes through the registry. At most one run is in
// flight process-wide.
type Coordinator struct {
	source   DataSource
	analyzer RiskAnalyzer
	registry *Registry
	cache    AnalysisCache
	metrics  *metrics.Registry
	tracer   trace.Tracer
	logger   *zap.Logger
	cfg      Config
}

func NewCoordinator(source DataSource, riskAnalyzer RiskAnalyzer, registry *Registry, cache AnalysisCache, m *metrics.Registry, tracer trace.Tracer, logger *zap.Logger, cfg Config) *Coordinator {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.QuickLimit <= 0 {
		cfg.QuickLimit = 10
	}
	if cfg.AnalysisWorkers <= 0 {
		cfg.AnalysisWorkers = 8
	}
	return &Coordinator{
		source:   source,
		analyzer: riskAnalyzer,
		registry: registry,
		cache:    cache,
		metrics:  m,
		tracer:   tracer,
		logger:   logger,
		cfg:      cfg,
	}
}

// StartAudit launches a background audit and returns a channel that
// delivers the eventual result. The registry is updated before the
// channel fires, so pollers and awaiters observe the same state. A start
// while a run is in flight is rejected with ErrAuditInProgress.
func (c *Coordinator) StartAudit(ctx context.Context, limit int) (<-chan *domain.Result, error) {
	if limit <= 0 {
		limit = c.cfg.DefaultLimit
	}

	if err := c.registry.TryStart(); err != nil {
		c.metrics.AuditsRejected.Inc()
		return nil, err
	}

	done := make(chan *domain.Result, 1)
	go func() {
		// The run owns its own context: once Running, a run proceeds to
		// completion or failure regardless of the caller.
		result := c.run(context.Background(), limit)
		c.registry.Publish(result)
		done <- result
		close(done)
	}()

	return done, nil
}

// RunAuditNow performs a synchronous audit pass, blocking the caller until
// the result is published. It shares the registry's Running exclusion with
// StartAudit.
func (c *Coordinator) RunAuditNow(ctx context.Context, limit int) (*domain.Result, error) {
	if limit <= 0 {
		limit = c.cfg.QuickLimit
	}

	if err := c.registry.TryStart(); err != nil {
		c.metrics.AuditsRejected.Inc()
		return nil, err
	}

	result := c.run(ctx, limit)
	c.registry.Publish(result)
	return result, nil
}

// GetStatus returns a read-only snapshot of the run registry.
func (c *Coordinator) GetStatus() StatusSnapshot {
	status, current := c.registry.Snapshot()
	return StatusSnapshot{
		Status:       status,
		CurrentAudit: current,
		Timestamp:    time.Now().UTC(),
	}
}

// History returns all published results, oldest first.
func (c *Coordinator) History() []*domain.Result {
	return c.registry.History()
}

// run performs one full audit pass and always returns a Result; failures
// in data acquisition surface as an error result, never a panic or a
// partial report.
func (c *Coordinator) run(ctx context.Context, limit int) *domain.Result {
	ctx, span := c.tracer.Start(ctx, "audit.run",
		trace.WithAttributes(attribute.Int("audit.limit", limit)))
	defer span.End()

	start := time.Now().UTC()
	c.metrics.AuditsStarted.Inc()
	c.logger.Info("starting compliance audit", zap.Int("limit", limit))

	result := c.collectAndAnalyze(ctx, start, limit)

	c.metrics.AuditsCompleted.WithLabelValues(string(result.Status)).Inc()
	c.metrics.AuditDuration.Observe(result.DurationSeconds)

	if result.Status == domain.ResultError {
		c.logger.Error("audit failed", zap.String("message", result.Message))
	} else {
		c.logger.Info("audit completed",
			zap.String("audit_id", result.AuditID),
			zap.String("overall_compliance_rate", result.Summary.OverallComplianceRate),
			zap.Int("high_risk_items", result.Summary.HighRiskItems))
	}
	return result
}

func (c *Coordinator) collectAndAnalyze(ctx context.Context, start time.Time, limit int) *domain.Result {
	health, err := c.source.HealthCheck(ctx)
	if err != nil || !health.Healthy() {
		c.metrics.SourceRequests.WithLabelValues("unhealthy").Inc()
		detail := health.Detail
		if err != nil {
			detail = err.Error()
		}
		return domain.NewErrorResult(start, errors.NewSourceUnavailableError(detail).Error())
	}
	c.metrics.SourceRequests.WithLabelValues("ok").Inc()

	identities, err := c.source.GetIdentities(ctx, limit, nil)
	if err != nil {
		return domain.NewErrorResult(start, errors.Wrap(err, "collecting identities").Error())
	}
	accessRecords, err := c.source.GetAccessRecords(ctx, limit, "", nil)
	if err != nil {
		return domain.NewErrorResult(start, errors.Wrap(err, "collecting access records").Error())
	}

	// Violations and the risk summary are advisory context; their
	// failure does not fail the run.
	source := domain.SourceData{}
	if violations, err := c.source.GetViolations(ctx, ""); err == nil {
		source.Violations = violations
	} else {
		c.logger.Warn("skipping violations collection", zap.Error(err))
	}
	if summary, err := c.source.GetRiskSummary(ctx); err == nil {
		source.RiskSummary = summary
	} else {
		c.logger.Warn("skipping risk summary collection", zap.Error(err))
	}

	identityResults, accessResults := c.analyzeAll(ctx, identities.Items, accessRecords.Items)

	recommendations := buildRecommendations(identityResults, accessResults)
	return domain.NewResult(start, time.Now().UTC(), identityResults, accessResults, source, recommendations)
}

// analyzeAll fans record analysis out to a bounded set of workers and
// waits for all results before returning. Per-record analyses share no
// mutable state, so ordering within each slice is preserved by index.
func (c *Coordinator) analyzeAll(ctx context.Context, identities []identity.Identity, accessRecords []identity.AccessRecord) ([]domain.IdentityResult, []domain.AccessResult) {
	identityResults := make([]domain.IdentityResult, len(identities))
	accessResults := make([]domain.AccessResult, len(accessRecords))

	sem := make(chan struct{}, c.cfg.AnalysisWorkers)
	var wg sync.WaitGroup

	for i, id := range identities {
		wg.Add(1)
		go func(i int, id identity.Identity) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := c.analyzer.AnalyzeIdentity(ctx, id)
			c.recordAnalysisMetrics("identity", res)
			identityResults[i] = domain.IdentityResult{Identity: id, Analysis: res}
		}(i, id)
	}

	for i, rec := range accessRecords {
		wg.Add(1)
		go func(i int, rec identity.AccessRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := c.analyzer.AnalyzeAccessRecord(ctx, rec)
			c.recordAnalysisMetrics("access_record", res)
			accessResults[i] = domain.AccessResult{AccessRecord: rec, Analysis: res}
		}(i, rec)
	}

	wg.Wait()
	return identityResults, accessResults
}

func (c *Coordinator) recordAnalysisMetrics(kind string, res analysis.ComplianceAnalysis) {
	c.metrics.RecordsAnalyzed.WithLabelValues(kind, string(res.AnalysisType)).Inc()
	if res.AnalysisType == analysis.TypeDefault {
		c.metrics.AnalysisFailures.Inc()
	}
}

// GetIdentityDetail fetches one identity and its access records from the
// source and analyzes them, consulting the analysis cache first.
func (c *Coordinator) GetIdentityDetail(ctx context.Context, identityID string) (*IdentityDetail, error) {
	ctx, span := c.tracer.Start(ctx, "audit.identity_detail",
		trace.WithAttributes(attribute.String("identity.id", identityID)))
	defer span.End()

	page, err := c.source.GetIdentities(ctx, 0, map[string]string{"id": identityID})
	if err != nil {
		return nil, err
	}

	var found *identity.Identity
	for i := range page.Items {
		if page.Items[i].ID == identityID || page.Items[i].EmployeeID == identityID {
			found = &page.Items[i]
			break
		}
	}
	if found == nil {
		return nil, errors.ErrIdentityNotFound
	}

	identityAnalysis := c.cachedIdentityAnalysis(ctx, *found)

	accessPage, err := c.source.GetAccessRecords(ctx, 0, found.ID, nil)
	if err != nil {
		return nil, err
	}

	accessResults := make([]domain.AccessResult, 0, len(accessPage.Items))
	for _, rec := range accessPage.Items {
		accessResults = append(accessResults, domain.AccessResult{
			AccessRecord: rec,
			Analysis:     c.cachedAccessAnalysis(ctx, rec),
		})
	}

	return &IdentityDetail{
		Identity:         *found,
		IdentityAnalysis: identityAnalysis,
		AccessRecords:    accessResults,
		Timestamp:        time.Now().UTC(),
	}, nil
}

func (c *Coordinator) cachedIdentityAnalysis(ctx context.Context, id identity.Identity) analysis.ComplianceAnalysis {
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, "identity", id.ID); ok {
			return *cached
		}
	}
	res := c.analyzer.AnalyzeIdentity(ctx, id)
	c.recordAnalysisMetrics("identity", res)
	if c.cache != nil {
		c.cache.Set(ctx, "identity", id.ID, res)
	}
	return res
}

func (c *Coordinator) cachedAccessAnalysis(ctx context.Context, rec identity.AccessRecord) analysis.ComplianceAnalysis {
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, "access_record", rec.ID); ok {
			return *cached
		}
	}
	res := c.analyzer.AnalyzeAccessRecord(ctx, rec)
	c.recordAnalysisMetrics("access_record", res)
	if c.cache != nil {
		c.cache.Set(ctx, "access_record", rec.ID, res)
	}
	return res
}

// SourceStatus proxies the data source health check for the presentation
// layer.
func (c *Coordinator) SourceStatus(ctx context.Context) (identitysource.HealthStatus, error) {
	return c.source.HealthCheck(ctx)
}

// ModelAvailable reports whether the text analysis model capability is
// configured, for the component health endpoint.
func (c *Coordinator) ModelAvailable() bool {
	type availabler interface{ ModelAvailable() bool }
	if a, ok := c.analyzer.(availabler); ok {
		return a.ModelAvailable()
	}
	return false
}
