package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/flashlog/internal/config"
	"github.com/rzbill/flashlog/internal/counters"
	"github.com/rzbill/flashlog/internal/eventlog"
	"github.com/rzbill/flashlog/internal/metrics"
	"github.com/rzbill/flashlog/internal/runtime"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

func newTestServer(t *testing.T) (*Server, *runtime.Runtime) {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Backend = cfgpkg.BackendMemory
	cfg.Storage.SegmentSize = 256
	cfg.Storage.SegmentCount = 3
	cfg.Storage.WriteAlign = 16
	rt, err := runtime.Open(runtime.Options{
		Config:  cfg,
		Metrics: metrics.New(false),
		Clock:   eventlog.ClockFunc(func() uint32 { return 42 }),
	})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	return New(rt, logger), rt
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/v1/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id")
	}
}

func TestAppendAndReadAll(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodPost, "/v1/log", `{"message":"hello"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("append status: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Seq    uint64 `json:"seq"`
		Stored bool   `json:"stored"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Seq != 1 || !resp.Stored {
		t.Fatalf("append response: %+v %v", resp, err)
	}

	w = do(t, s, http.MethodGet, "/v1/log", "")
	if w.Code != http.StatusOK {
		t.Fatalf("read status: %d", w.Code)
	}
	if got := w.Body.String(); got != "[0000042] hello\n" {
		t.Fatalf("body: %q", got)
	}
	if w.Header().Get("X-Log-Length") != "16" || w.Header().Get("X-Log-Records") != "1" {
		t.Fatalf("headers: %v", w.Header())
	}
}

func TestReadAllShellFormat(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/v1/log", `{"message":"a"}`)
	do(t, s, http.MethodPost, "/v1/log", `{"message":"b"}`)
	w := do(t, s, http.MethodGet, "/v1/log?format=shell", "")
	if got := w.Body.String(); got != "> [0000042] a\n> [0000042] b\n" {
		t.Fatalf("shell dump: %q", got)
	}
}

func TestReadNewAssignsReader(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/v1/log", `{"message":"one"}`)

	w := do(t, s, http.MethodGet, "/v1/log/new", "")
	reader := w.Header().Get("X-Log-Reader")
	if reader == "" {
		t.Fatalf("no reader assigned")
	}
	if w.Body.String() != "[0000042] one\n" {
		t.Fatalf("first read: %q", w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/v1/log/new?reader="+reader, "")
	if w.Header().Get("X-Log-Empty") != "true" || !bytes.Equal(w.Body.Bytes(), []byte{0}) {
		t.Fatalf("expected empty placeholder, got %q", w.Body.Bytes())
	}

	do(t, s, http.MethodPost, "/v1/log", `{"message":"two"}`)
	w = do(t, s, http.MethodGet, "/v1/log/new?reader="+reader, "")
	if w.Body.String() != "[0000042] two\n" {
		t.Fatalf("incremental read: %q", w.Body.String())
	}
}

func TestAnonymousReadersAreBounded(t *testing.T) {
	s, rt := newTestServer(t)
	do(t, s, http.MethodPost, "/v1/log", `{"message":"one"}`)
	for i := 0; i < 500; i++ {
		if w := do(t, s, http.MethodGet, "/v1/log/new", ""); w.Code != http.StatusOK {
			t.Fatalf("read new: %d", w.Code)
		}
	}
	w := do(t, s, http.MethodGet, "/v1/log/status", "")
	var st struct {
		Readers int `json:"readers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if limit := rt.Config().Log.MaxReaders; st.Readers != limit {
		t.Fatalf("readers = %d, want %d", st.Readers, limit)
	}
}

func TestErrorMapping(t *testing.T) {
	s, _ := newTestServer(t)
	long := strings.Repeat("x", 300)
	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodPost, "/v1/log", `{"message":"` + long + `"}`, http.StatusRequestEntityTooLarge},
		{http.MethodPost, "/v1/log", `not json`, http.StatusBadRequest},
		{http.MethodGet, "/v1/log?filter=text%20%2B", "", http.StatusBadRequest},
		{http.MethodGet, "/v1/log/new?filter=seq", "", http.StatusBadRequest},
		{http.MethodDelete, "/v1/log", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/log/reset", "", http.StatusMethodNotAllowed},
		{http.MethodPut, "/v1/log/enabled", `{}`, http.StatusBadRequest},
		{http.MethodPut, "/v1/log/enabled?enabled=yes", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := do(t, s, tc.method, tc.target, tc.body)
		if w.Code != tc.want {
			t.Fatalf("%s %s: got %d want %d (%s)", tc.method, tc.target, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestEnableDisable(t *testing.T) {
	s, rt := newTestServer(t)
	w := do(t, s, http.MethodPut, "/v1/log/enabled", `{"enabled":false}`)
	if w.Code != http.StatusOK || rt.Log().Enabled() {
		t.Fatalf("disable failed: %d", w.Code)
	}
	w = do(t, s, http.MethodPost, "/v1/log", `{"message":"ignored"}`)
	if !strings.Contains(w.Body.String(), `"stored":false`) {
		t.Fatalf("disabled append stored: %s", w.Body.String())
	}
	w = do(t, s, http.MethodPut, "/v1/log/enabled?enabled=yes", "")
	if w.Code != http.StatusBadRequest || rt.Log().Enabled() {
		t.Fatalf("unrecognised value must not change the flag: %d", w.Code)
	}
	w = do(t, s, http.MethodPut, "/v1/log/enabled?enabled=1", "")
	if w.Code != http.StatusOK || !rt.Log().Enabled() {
		t.Fatalf("enable failed: %d", w.Code)
	}
	w = do(t, s, http.MethodGet, "/v1/log/enabled", "")
	if strings.TrimSpace(w.Body.String()) != `{"enabled":true}` {
		t.Fatalf("enabled body: %s", w.Body.String())
	}
}

func TestResetAndStatus(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/v1/log", `{"message":"a"}`)
	w := do(t, s, http.MethodPost, "/v1/log/reset", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("reset status: %d", w.Code)
	}
	w = do(t, s, http.MethodGet, "/v1/log/status", "")
	var st struct {
		Enabled      bool   `json:"enabled"`
		Records      uint64 `json:"records"`
		SegmentCount int    `json:"segmentCount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !st.Enabled || st.Records != 0 || st.SegmentCount != 3 {
		t.Fatalf("status: %+v", st)
	}
}

func TestCounters(t *testing.T) {
	s, rt := newTestServer(t)
	w := do(t, s, http.MethodPut, "/v1/counters", `{"kind":"current","value":9}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set status: %d %s", w.Code, w.Body.String())
	}
	if got := rt.Counters().Read(); got != (counters.Counter{Current: 9}) {
		t.Fatalf("counter: %+v", got)
	}
	w = do(t, s, http.MethodGet, "/v1/counters", "")
	if strings.TrimSpace(w.Body.String()) != `{"update":0,"current":9}` {
		t.Fatalf("get: %s", w.Body.String())
	}
	w = do(t, s, http.MethodPut, "/v1/counters", `{"kind":"bogus","value":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad kind: %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/v1/log", `{"message":"a"}`)
	w := do(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"flashlog_appends_total", `flashlog_http_requests_total{code="202",route="/v1/log"}`} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodOptions, "/v1/log", "")
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight: %d %v", w.Code, w.Header())
	}
}

func TestFollowSSE(t *testing.T) {
	s, rt := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/log/follow?reader=tail", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content type: %s", resp.Header.Get("Content-Type"))
	}

	if _, err := rt.Log().Print(context.Background(), "tailed"); err != nil {
		t.Fatalf("print: %v", err)
	}
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev struct {
			Reader string `json:"reader"`
			Text   string `json:"text"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Reader != "tail" || ev.Text != "[0000042] tailed\n" {
			t.Fatalf("event: %+v", ev)
		}
		return
	}
	t.Fatalf("stream ended without event: %v", sc.Err())
}
