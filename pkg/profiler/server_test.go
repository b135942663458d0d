package profiler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := New(0, zerolog.Nop())
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestServer_BindsLoopback(t *testing.T) {
	srv := startServer(t)
	assert.True(t, strings.HasPrefix(srv.Addr(), "127.0.0.1:"), srv.Addr())
	assert.Empty(t, New(0, zerolog.Nop()).Addr(), "no address before Start")
}

func TestServer_Endpoints(t *testing.T) {
	base := "http://" + startServer(t).Addr()

	for _, endpoint := range []string{
		"/debug/pprof/",
		"/debug/pprof/goroutine?debug=1",
		"/debug/pprof/cmdline",
		"/debug/pprof/symbol",
		"/debug/pprof/profile?seconds=1",
		"/debug/pprof/trace?seconds=1",
	} {
		t.Run(endpoint, func(t *testing.T) {
			resp, err := http.Get(base + endpoint)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}
