package transports

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// HTTPTransport implements LogTransport over the REST management API.
type HTTPTransport struct {
	base   string
	client *http.Client
}

// NewHTTPTransport returns a transport for the server at baseURL. A nil
// client means http.DefaultClient.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{base: strings.TrimRight(baseURL, "/"), client: client}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, q url.Values, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	u := t.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := &APIError{Code: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Message = e.Error
		}
		return nil, apiErr
	}
	return resp, nil
}

func (t *HTTPTransport) doJSON(ctx context.Context, method, path string, q url.Values, body, out any) error {
	resp, err := t.do(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func filterQuery(filter string) url.Values {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	return q
}

func (t *HTTPTransport) read(ctx context.Context, path string, q url.Values) (ReadResult, error) {
	resp, err := t.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return ReadResult{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ReadResult{}, err
	}
	h := resp.Header
	res := ReadResult{
		Data:   data,
		Reader: h.Get("X-Log-Reader"),
		Empty:  h.Get("X-Log-Empty") == "true",
	}
	res.Records, _ = strconv.Atoi(h.Get("X-Log-Records"))
	res.Evictions, _ = strconv.Atoi(h.Get("X-Log-Evictions"))
	res.LastSeq, _ = strconv.ParseUint(h.Get("X-Log-Last-Seq"), 10, 64)
	return res, nil
}

// ReadAll fetches the whole log.
func (t *HTTPTransport) ReadAll(ctx context.Context, filter string) (ReadResult, error) {
	return t.read(ctx, "/v1/log", filterQuery(filter))
}

// Dump streams the "> "-prefixed rendering of the log.
func (t *HTTPTransport) Dump(ctx context.Context, filter string, fn func([]byte) error) error {
	q := filterQuery(filter)
	q.Set("format", "shell")
	resp, err := t.do(ctx, http.MethodGet, "/v1/log", q, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if ferr := fn(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ReadNew fetches what reader has not seen yet.
func (t *HTTPTransport) ReadNew(ctx context.Context, reader, filter string) (ReadResult, error) {
	q := filterQuery(filter)
	if reader != "" {
		q.Set("reader", reader)
	}
	return t.read(ctx, "/v1/log/new", q)
}

// Append writes one line.
func (t *HTTPTransport) Append(ctx context.Context, msg string) (uint64, bool, error) {
	var out struct {
		Seq    uint64 `json:"seq"`
		Stored bool   `json:"stored"`
	}
	err := t.doJSON(ctx, http.MethodPost, "/v1/log", nil, map[string]string{"message": msg}, &out)
	return out.Seq, out.Stored, err
}

// SetEnabled turns logging on or off.
func (t *HTTPTransport) SetEnabled(ctx context.Context, enabled bool) error {
	return t.doJSON(ctx, http.MethodPut, "/v1/log/enabled", nil, map[string]bool{"enabled": enabled}, nil)
}

// Enabled reports the server's enabled flag.
func (t *HTTPTransport) Enabled(ctx context.Context) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	err := t.doJSON(ctx, http.MethodGet, "/v1/log/enabled", nil, nil, &out)
	return out.Enabled, err
}

// Reset erases the log.
func (t *HTTPTransport) Reset(ctx context.Context) error {
	return t.doJSON(ctx, http.MethodPost, "/v1/log/reset", nil, nil, nil)
}

// Status fetches log statistics.
func (t *HTTPTransport) Status(ctx context.Context) (Status, error) {
	var st Status
	err := t.doJSON(ctx, http.MethodGet, "/v1/log/status", nil, nil, &st)
	return st, err
}

// Follow reads the SSE stream until ctx is done, the server closes it or
// onEvent fails.
func (t *HTTPTransport) Follow(ctx context.Context, reader, filter string, onEvent func(FollowEvent) error) error {
	q := filterQuery(filter)
	if reader != "" {
		q.Set("reader", reader)
	}
	resp, err := t.do(ctx, http.MethodGet, "/v1/log/follow", q, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var ev FollowEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return fmt.Errorf("decode follow event: %w", err)
		}
		if err := onEvent(ev); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

// Counters fetches the update counters.
func (t *HTTPTransport) Counters(ctx context.Context) (Counter, error) {
	var c Counter
	err := t.doJSON(ctx, http.MethodGet, "/v1/counters", nil, nil, &c)
	return c, err
}

// SetCounter sets one counter and returns both.
func (t *HTTPTransport) SetCounter(ctx context.Context, kind string, value uint32) (Counter, error) {
	var c Counter
	err := t.doJSON(ctx, http.MethodPut, "/v1/counters", nil, map[string]any{"kind": kind, "value": value}, &c)
	return c, err
}
