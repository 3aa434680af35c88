package identitymock_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidleathers/identity-audit-engine/internal/identitymock"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/identitysource"
)

// The mock must speak the exact wire contract the engine's source client
// consumes, so these tests go through identitysource.Client end to end.
func newMockAndClient(t *testing.T) *identitysource.Client {
	t.Helper()

	store := identitymock.NewStore(identitymock.Generate(30, 42))
	server := httptest.NewServer(identitymock.NewServer(store, zap.NewNop()).Handler())
	t.Cleanup(server.Close)

	return identitysource.NewClient(identitysource.Config{
		BaseURL:           server.URL,
		RequestTimeout:    2 * time.Second,
		RequestsPerSecond: 100,
		Burst:             100,
	}, zap.NewNop())
}

func TestMockHealthEndpoint(t *testing.T) {
	client := newMockAndClient(t)

	health, err := client.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy())
	assert.Equal(t, "identity-source-mock", health.Service)
	assert.Equal(t, 30, health.Data["identities"])
}

func TestMockIdentitiesEndpoint(t *testing.T) {
	client := newMockAndClient(t)

	page, err := client.GetIdentities(context.Background(), 10, nil)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 30, page.Total)

	filtered, err := client.GetIdentities(context.Background(), 0, map[string]string{"status": "Active"})
	require.NoError(t, err)
	for _, id := range filtered.Items {
		assert.Equal(t, "Active", string(id.Status))
	}
}

func TestMockAccessRecordsEndpoint(t *testing.T) {
	client := newMockAndClient(t)

	all, err := client.GetAccessRecords(context.Background(), 0, "", nil)
	require.NoError(t, err)
	require.NotEmpty(t, all.Items)

	target := all.Items[0].IdentityID
	scoped, err := client.GetAccessRecords(context.Background(), 0, target, nil)
	require.NoError(t, err)
	require.NotEmpty(t, scoped.Items)
	for _, rec := range scoped.Items {
		assert.Equal(t, target, rec.IdentityID)
	}
}

func TestMockViolationsEndpoint(t *testing.T) {
	client := newMockAndClient(t)

	violations, err := client.GetViolations(context.Background(), "")
	require.NoError(t, err)

	soxOnly, err := client.GetViolations(context.Background(), "sox")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(soxOnly), len(violations))
	for _, v := range soxOnly {
		assert.Equal(t, "SOX", v.ViolationType)
	}
}

func TestMockRiskSummaryEndpoint(t *testing.T) {
	client := newMockAndClient(t)

	summary, err := client.GetRiskSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, summary.TotalIdentities)
	require.NotNil(t, summary.RiskMetrics)
	assert.Greater(t, summary.RiskMetrics.AverageIdentityRisk, 0.0)
}
