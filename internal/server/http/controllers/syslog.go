package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	syslogsvc "github.com/rzbill/flashlog/internal/services/syslog"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

// maxAppendBody bounds POST /v1/log bodies. Longer lines are rejected by
// the log anyway.
const maxAppendBody = 1 << 17

// SyslogController handles the log management endpoints.
type SyslogController struct {
	svc    *syslogsvc.Service
	logger logpkg.Logger
}

// NewSyslogController creates a new syslog controller.
func NewSyslogController(svc *syslogsvc.Service, logger logpkg.Logger) *SyslogController {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	return &SyslogController{svc: svc, logger: logger}
}

// RegisterRoutes registers log routes with the given mux.
//
// - Reads (/v1/log, /v1/log/new, /v1/log/follow)
// - Append (POST /v1/log)
// - Control (/v1/log/enabled, /v1/log/reset, /v1/log/status)
func (c *SyslogController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/log", c.handleLog)
	mux.HandleFunc("/v1/log/new", c.handleReadNew)
	mux.HandleFunc("/v1/log/follow", c.handleFollow)
	mux.HandleFunc("/v1/log/enabled", c.handleEnabled)
	mux.HandleFunc("/v1/log/reset", c.handleReset)
	mux.HandleFunc("/v1/log/status", c.handleStatus)
}

func (c *SyslogController) handleLog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		c.handleReadAll(w, r)
	case http.MethodPost:
		c.handleAppend(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleReadAll returns the whole log as text/plain. With format=shell
// every record is streamed as a "> "-prefixed line instead of being
// gathered into the read buffer.
func (c *SyslogController) handleReadAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := q.Get("filter")
	if q.Get("format") == "shell" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := c.svc.Dump(r.Context(), w, filter); err != nil {
			c.logger.Warn("log dump failed", logpkg.Err(err))
		}
		return
	}
	res, err := c.svc.ReadAll(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeText(w, res)
}

// handleReadNew returns what the reader has not seen yet. Without a reader
// name a new one is created and returned in X-Log-Reader.
func (c *SyslogController) handleReadNew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	reader := readerName(r)
	res, err := c.svc.ReadNew(r.Context(), reader, r.URL.Query().Get("filter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("X-Log-Reader", reader)
	writeText(w, res)
}

func (c *SyslogController) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req appendReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAppendBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	seq, err := c.svc.Append(r.Context(), req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(appendResp{Seq: seq, Stored: seq != 0})
}

// handleEnabled reports the enabled flag on GET and sets it on PUT, either
// from a {"enabled": bool} body or an enabled=true|false query.
func (c *SyslogController) handleEnabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut, http.MethodPost:
		if v := r.URL.Query().Get("enabled"); v != "" {
			on, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid enabled value")
				return
			}
			c.svc.SetEnabled(on)
			break
		}
		var req enabledReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		c.svc.SetEnabled(*req.Enabled)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, map[string]bool{"enabled": c.svc.Enabled()})
}

func (c *SyslogController) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := c.svc.Reset(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeNoContent(w)
}

func (c *SyslogController) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, c.svc.Status())
}

// handleFollow streams new records as Server-Sent Events until the client
// goes away.
func (c *SyslogController) handleFollow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	reader := readerName(r)
	filter := r.URL.Query().Get("filter")
	// Validate up front so a bad filter still gets a JSON error.
	if err := c.svc.Validate(reader, filter); err != nil {
		writeServiceError(w, err)
		return
	}
	sse := newSSEWriter(w)
	w.Header().Set("X-Log-Reader", reader)
	w.WriteHeader(http.StatusOK)
	sse.Flush()
	err := c.svc.Follow(r.Context(), reader, filter, func(res syslogsvc.ReadResult) error {
		return sse.Send(followEvent{Reader: reader, Text: string(res.Data), Records: res.Records, LastSeq: res.LastSeq})
	})
	if err != nil && r.Context().Err() == nil {
		c.logger.Warn("follow ended", logpkg.Str("reader", reader), logpkg.Err(err))
	}
}

func readerName(r *http.Request) string {
	if name := r.URL.Query().Get("reader"); name != "" {
		return name
	}
	if name := r.Header.Get("X-Log-Reader"); name != "" {
		return name
	}
	return uuid.NewString()
}

func writeText(w http.ResponseWriter, res syslogsvc.ReadResult) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Log-Length", strconv.Itoa(len(res.Data)))
	h.Set("X-Log-Records", strconv.Itoa(res.Records))
	h.Set("X-Log-Evictions", strconv.Itoa(res.Evictions))
	h.Set("X-Log-Last-Seq", strconv.FormatUint(res.LastSeq, 10))
	if res.Empty {
		h.Set("X-Log-Empty", "true")
	}
	_, _ = w.Write(res.Data)
}
