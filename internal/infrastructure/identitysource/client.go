package identitysource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/davidleathers/identity-audit-engine/internal/domain/errors"
	"github.com/davidleathers/identity-audit-engine/internal/domain/identity"
)

// HealthStatus is the data source's own health report.
type HealthStatus struct {
	Status  string         `json:"status"`
	Service string         `json:"service,omitempty"`
	Detail  string         `json:"detail,omitempty"`
	Data    map[string]int `json:"dataStatus,omitempty"`
}

// Healthy reports whether the source considers itself available.
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// IdentityPage is one bounded page of identities.
type IdentityPage struct {
	Items  []identity.Identity `json:"items"`
	Total  int                 `json:"total"`
	Offset int                 `json:"offset"`
}

// AccessPage is one bounded page of access records.
type AccessPage struct {
	Items  []identity.AccessRecord `json:"items"`
	Total  int                     `json:"total"`
	Offset int                     `json:"offset"`
}

// Config configures the data source client.
type Config struct {
	BaseURL           string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client is a thin HTTP client for the identity data source. Every call is
// a single bounded round trip; there are no retries at this layer, the
// caller owns retry policy. Failures come back as structured external
// errors so callers can tell "empty result" from "source unreachable".
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}
}

// envelope is the wire framing the source wraps every payload in.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// HealthCheck probes the source's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (HealthStatus, error) {
	var status HealthStatus
	if err := c.get(ctx, "/api/v1/health", nil, &status); err != nil {
		return HealthStatus{Status: "unhealthy", Detail: err.Error()}, err
	}
	return status, nil
}

// GetIdentities fetches up to limit identities, optionally filtered.
// A limit of 0 means the source's own default page size.
func (c *Client) GetIdentities(ctx context.Context, limit int, filters map[string]string) (*IdentityPage, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	for k, v := range filters {
		params.Set(k, v)
	}

	var env envelope
	if err := c.get(ctx, "/api/v1/identities", params, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, errors.NewSourceUnavailableError(env.Error)
	}

	var page IdentityPage
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return nil, errors.NewSourceUnavailableError("malformed identities payload").WithCause(err)
	}
	return &page, nil
}

// GetAccessRecords fetches up to limit access records, optionally scoped
// to one identity and filtered.
func (c *Client) GetAccessRecords(ctx context.Context, limit int, identityID string, filters map[string]string) (*AccessPage, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if identityID != "" {
		params.Set("identityId", identityID)
	}
	for k, v := range filters {
		params.Set(k, v)
	}

	var env envelope
	if err := c.get(ctx, "/api/v1/access-records", params, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, errors.NewSourceUnavailableError(env.Error)
	}

	var page AccessPage
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return nil, errors.NewSourceUnavailableError("malformed access records payload").WithCause(err)
	}
	return &page, nil
}

// GetViolations fetches compliance violations, optionally for one regime.
func (c *Client) GetViolations(ctx context.Context, regime string) ([]identity.Violation, error) {
	params := url.Values{}
	if regime != "" {
		params.Set("type", regime)
	}

	var env envelope
	if err := c.get(ctx, "/api/v1/compliance/violations", params, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, errors.NewSourceUnavailableError(env.Error)
	}

	var payload struct {
		Violations []identity.Violation `json:"violations"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, errors.NewSourceUnavailableError("malformed violations payload").WithCause(err)
	}
	return payload.Violations, nil
}

// GetRiskSummary fetches the source's aggregate risk report.
func (c *Client) GetRiskSummary(ctx context.Context) (*identity.RiskSummary, error) {
	var env envelope
	if err := c.get(ctx, "/api/v1/reports/risk-summary", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, errors.NewSourceUnavailableError(env.Error)
	}

	var summary identity.RiskSummary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		return nil, errors.NewSourceUnavailableError("malformed risk summary payload").WithCause(err)
	}
	return &summary, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewSourceUnavailableError("rate limiter interrupted").WithCause(err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.NewInternalError("building request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("identity source request failed",
			zap.String("path", path),
			zap.Error(err))
		return errors.NewSourceUnavailableError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("identity source returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return errors.NewSourceUnavailableError(fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, path))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewSourceUnavailableError("decoding response").WithCause(err)
	}
	return nil
}
