package identitysource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidleathers/identity-audit-engine/internal/domain/errors"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/identitysource"
)

func newTestClient(t *testing.T, handler http.Handler) (*identitysource.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := identitysource.NewClient(identitysource.Config{
		BaseURL:           server.URL,
		RequestTimeout:    2 * time.Second,
		RequestsPerSecond: 100,
		Burst:             100,
	}, zap.NewNop())
	return client, server
}

func TestHealthCheck(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"identity-source-mock","dataStatus":{"identities":200}}`))
	}))

	health, err := client.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy())
	assert.Equal(t, "identity-source-mock", health.Service)
	assert.Equal(t, 200, health.Data["identities"])
}

func TestHealthCheckUnreachable(t *testing.T) {
	client := identitysource.NewClient(identitysource.Config{
		BaseURL:           "http://127.0.0.1:1",
		RequestTimeout:    500 * time.Millisecond,
		RequestsPerSecond: 100,
		Burst:             100,
	}, zap.NewNop())

	health, err := client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, health.Healthy())
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}

func TestGetIdentities(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/identities", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		w.Write([]byte(`{"success":true,"data":{"items":[{"id":"ID000001","status":"active"}],"total":1,"offset":0}}`))
	}))

	page, err := client.GetIdentities(context.Background(), 10, map[string]string{"status": "active"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ID000001", page.Items[0].ID)
	assert.Equal(t, 1, page.Total)
}

func TestGetIdentitiesFailureEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"dataset not loaded"}`))
	}))

	_, err := client.GetIdentities(context.Background(), 0, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
	assert.Contains(t, err.Error(), "dataset not loaded")
}

func TestGetIdentitiesErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.GetIdentities(context.Background(), 0, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}

func TestGetIdentitiesMalformedPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":"not an object"}`))
	}))

	_, err := client.GetIdentities(context.Background(), 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed identities payload")
}

func TestGetAccessRecordsScopedToIdentity(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/access-records", r.URL.Path)
		assert.Equal(t, "ID000001", r.URL.Query().Get("identityId"))
		w.Write([]byte(`{"success":true,"data":{"items":[{"id":"rec-1","identityId":"ID000001"}],"total":1,"offset":0}}`))
	}))

	page, err := client.GetAccessRecords(context.Background(), 0, "ID000001", nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "rec-1", page.Items[0].ID)
}

func TestGetViolations(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/compliance/violations", r.URL.Path)
		assert.Equal(t, "sox", r.URL.Query().Get("type"))
		w.Write([]byte(`{"success":true,"data":{"violations":[{"recordId":"rec-1","violationType":"SOX"}],"count":1}}`))
	}))

	violations, err := client.GetViolations(context.Background(), "sox")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "SOX", violations[0].ViolationType)
}

func TestGetRiskSummary(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/reports/risk-summary", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"totalIdentities":200,"highRiskIdentities":12}}`))
	}))

	summary, err := client.GetRiskSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, summary.TotalIdentities)
	assert.Equal(t, 12, summary.HighRiskIdentities)
}

func TestRequestTimeout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetIdentities(ctx, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}
