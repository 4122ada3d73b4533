package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRegistrar struct{}

func (pingRegistrar) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
}

func newTestServer(t *testing.T) (*BaseServer, *httptest.Server) {
	t.Helper()
	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.Default(),
		DrainDuration:            10 * time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, pingRegistrar{})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.srv.Handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestBaseServer_HealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := get(t, ts.URL+"/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"alive"}`, body)

	status, body = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ready"}`, body)
}

func TestBaseServer_RegistrarRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := get(t, ts.URL+"/ping")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pong", body)
}

func TestBaseServer_DrainUndrain(t *testing.T) {
	srv, ts := newTestServer(t)

	status, _ := get(t, ts.URL+"/drain")
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, srv.isReady.Load())

	status, _ = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	// Draining twice is harmless.
	status, body := get(t, ts.URL+"/drain")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"already draining"}`, body)

	status, _ = get(t, ts.URL+"/undrain")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, srv.isReady.Load())

	status, _ = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, status)
}
