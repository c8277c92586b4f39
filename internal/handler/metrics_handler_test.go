package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/formation-admin-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return nil }),
	})

	w := perform(t, testRequest{method: http.MethodGet, target: "/ready"}, h.Ready)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"postgres":"ok"}}`, w.Body.String())
}

func TestMetricsHandlerReadyDegraded(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return nil }),
		"redis":    PingFunc(func(ctx context.Context) error { return errors.New("dial tcp: refused") }),
	})

	w := perform(t, testRequest{method: http.MethodGet, target: "/ready"}, h.Ready)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "dial tcp: refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordAssignment(service.OpAssign, service.OutcomeAdded)
	h := NewMetricsHandler(metrics, nil)

	w := perform(t, testRequest{method: http.MethodGet, target: "/metrics"}, h.Prometheus)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "session_trainer_operations_total")

	w = perform(t, testRequest{method: http.MethodGet, target: "/metrics"}, NewMetricsHandler(nil, nil).Prometheus)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsHandlerSnapshot(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordAssignment(service.OpRemove, service.OutcomeRemoved)
	h := NewMetricsHandler(metrics, nil)

	w := perform(t, testRequest{method: http.MethodGet, target: "/metrics/snapshot"}, h.Snapshot)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"assignments":1`)
}
