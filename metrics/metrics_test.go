package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etf-market-maker/infrastructure/monitor"
)

func TestServerExposesRegistry(t *testing.T) {
	m := monitor.New(monitor.DefaultConfig())
	m.Position(-7, 7)

	s := NewServer("127.0.0.1:0", m.Handler())
	require.NoError(t, s.Start())
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "mm_etf_position -7")
	assert.Contains(t, string(body), "mm_etf_hedge_position 7")

	resp, err = http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
