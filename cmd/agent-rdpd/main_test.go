package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rcarmo/agent-rdp/internal/config"
	"github.com/rcarmo/agent-rdp/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcherForTest(t *testing.T) *ipc.Dispatcher {
	t.Helper()
	return ipc.NewDispatcher("test-session", nil)
}

func TestParseFlagsWithArgs_Defaults(t *testing.T) {
	args, action := parseFlagsWithArgs(nil)
	assert.Empty(t, action)
	assert.Equal(t, "default", args.session)
	assert.Equal(t, 10, args.viewerFPS)
	assert.Empty(t, args.viewerAddr)
}

func TestParseFlagsWithArgs_Overrides(t *testing.T) {
	args, action := parseFlagsWithArgs([]string{
		"-session", "staging",
		"-base-dir", "/var/run/agent-rdp",
		"-log-level", "debug",
		"-viewer-addr", "127.0.0.1:9000",
		"-viewer-fps", "30",
	})
	assert.Empty(t, action)
	assert.Equal(t, "staging", args.session)
	assert.Equal(t, "/var/run/agent-rdp", args.baseDir)
	assert.Equal(t, "debug", args.logLevel)
	assert.Equal(t, "127.0.0.1:9000", args.viewerAddr)
	assert.Equal(t, 30, args.viewerFPS)
}

func TestParseFlagsWithArgs_Help(t *testing.T) {
	_, action := parseFlagsWithArgs([]string{"-help"})
	assert.Equal(t, "help", action)
}

func TestDefaultBaseDir_UsesEnvOverride(t *testing.T) {
	t.Setenv("AGENT_RDP_BASE_DIR", "/tmp/custom-base")
	assert.Equal(t, "/tmp/custom-base", defaultBaseDir())
}

func TestDefaultBaseDir_FallsBackToTempDir(t *testing.T) {
	t.Setenv("AGENT_RDP_BASE_DIR", "")
	assert.Contains(t, defaultBaseDir(), "agent-rdp")
}

func TestApplySecurityMiddleware_SetsHeaders(t *testing.T) {
	cfg := &config.Config{
		Security: config.SecurityConfig{
			AllowedOrigins:     []string{"https://example.com"},
			EnableRateLimit:    false,
			RateLimitPerMinute: 60,
		},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := applySecurityMiddleware(next, cfg)

	req := httptest.NewRequest(http.MethodGet, "/viewer", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRateLimiter_AllowsUpToCapacityThenBlocks(t *testing.T) {
	rl := newRateLimiter(2)
	now := time.Now()
	assert.True(t, rl.allow(now, 0))
	assert.True(t, rl.allow(now, 0))
	assert.False(t, rl.allow(now, 0))
}

func TestRateLimitMiddleware_BlocksOverLimit(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := rateLimitMiddleware(next, 1)

	req := httptest.NewRequest(http.MethodGet, "/viewer", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req)
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

func TestNewViewerServer_NotConnectedReturns503(t *testing.T) {
	d := newDispatcherForTest(t)
	cfg := &config.Config{
		Server: config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second},
	}

	server := newViewerServer("127.0.0.1:0", d, 10, cfg)
	require.NotNil(t, server)

	req := httptest.NewRequest(http.MethodGet, "/viewer", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
