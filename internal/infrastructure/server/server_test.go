//go:build linux

package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/infrastructure/monitoring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDescriptorsEndpoint(t *testing.T) {
	tracker := descriptor.NewTracker()
	metrics := monitoring.NewMetrics()
	srv := New(tracker, metrics, nil)

	r, w, err := descriptor.CreateReliablePipe(
		descriptor.WithTracker(tracker),
		descriptor.WithRecorder(metrics),
	)
	require.NoError(t, err)

	rec := get(t, srv.Handler(), "/descriptors")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count       int                `json:"count"`
		Descriptors []descriptor.Entry `json:"descriptors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	for _, e := range body.Descriptors {
		assert.Equal(t, descriptor.KindPipe, e.Kind)
		assert.True(t, e.Reliable)
	}

	require.NoError(t, w.Close())
	require.NoError(t, r.Close())

	rec = get(t, srv.Handler(), "/descriptors")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Count)
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	srv := New(nil, metrics, nil)

	rec := get(t, srv.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","open_descriptors":0}`, rec.Body.String())

	rec = get(t, srv.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fdchannel_http_requests_total{method="GET",path="/healthz",status="200"} 1`)

	rec = get(t, srv.Handler(), "/metrics/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap monitoring.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Zero(t, snap.OpenDescriptors)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := New(nil, monitoring.NewMetrics(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRateLimit(t *testing.T) {
	srv := New(nil, monitoring.NewMetrics(), nil, WithRateLimit(1, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, srv.Handler(), "/healthz").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	srv := New(nil, monitoring.NewMetrics(), nil, WithCORS([]string{"http://dash.local"}))

	req := httptest.NewRequest(http.MethodGet, "/descriptors", nil)
	req.Header.Set("Origin", "http://dash.local")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://dash.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/descriptors", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
