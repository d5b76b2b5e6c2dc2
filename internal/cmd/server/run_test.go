package serverrun

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/flashlog/internal/config"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func testConfig(t *testing.T) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage.SegmentSize = 512
	cfg.Storage.SegmentCount = 4
	cfg.Server.HTTPAddr = freeAddr(t)
	cfg.Server.GRPCAddr = freeAddr(t)
	return cfg
}

func TestRunServesAndStops(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Options{Config: cfg, Logger: logpkg.NewNop()}) }()

	url := "http://" + cfg.Server.HTTPAddr + "/v1/healthz"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("health status: %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.WriteAlign = 3
	err := Run(context.Background(), Options{Config: cfg, Logger: logpkg.NewNop()})
	if err == nil {
		t.Fatalf("expected config error")
	}
}

func TestBuildLoggerFallback(t *testing.T) {
	if l := buildLogger(logpkg.Config{Level: "debug", Format: "json"}); l == nil {
		t.Fatalf("nil logger")
	}
	if l := buildLogger(logpkg.Config{Level: "loud", Format: "xml"}); l == nil {
		t.Fatalf("nil fallback logger")
	}
}
