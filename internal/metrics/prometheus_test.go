package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/flashlog/internal/eventlog"
	"github.com/rzbill/flashlog/internal/storage/flash"
)

func TestCollectorWiredIntoLog(t *testing.T) {
	c := New(false)
	geo := flash.Geometry{SegmentSize: 64, SegmentCount: 2, WriteAlign: 16}
	store, err := flash.NewStore(flash.NewMemory(geo.Size()), geo, flash.Options{Metrics: c})
	require.NoError(t, err)
	defer store.Close()
	l, err := eventlog.Open(store, eventlog.Options{Observer: c, RotationHook: c})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := l.Append(ctx, []byte(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	_, err = l.Append(ctx, make([]byte, 100))
	require.Error(t, err)
	l.SetEnabled(false)

	assert.Equal(t, 7.0, testutil.ToFloat64(c.appends.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.appends.WithLabelValues("too_large")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.appendBytes))
	// Format segment 0, rotate into 1, wrap back onto 0.
	assert.Equal(t, 3.0, testutil.ToFloat64(c.rotations))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.droppedRecords))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.enabled))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.flashOps.WithLabelValues("erase", "ok")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	c := New(true)
	c.ObserveHTTP("/v1/log", http.StatusOK, 3*time.Millisecond)
	c.Pebble().ObserveBatchCommit(time.Millisecond, 1, 42)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `flashlog_http_requests_total{code="200",route="/v1/log"} 1`), text)
	assert.Contains(t, text, "flashlog_state_commit_bytes_total 42")
	assert.Contains(t, text, "go_goroutines")
}
