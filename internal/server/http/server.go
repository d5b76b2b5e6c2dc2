package httpserver

import (
	"context"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/flashlog/internal/runtime"
	"github.com/rzbill/flashlog/internal/server/http/controllers"
	syslogsvc "github.com/rzbill/flashlog/internal/services/syslog"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	svc := syslogsvc.NewWithLogger(rt, logger.With(logpkg.Component("syslog")))
	logger = logger.With(logpkg.Component("http"))

	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt, svc, logger).RegisterAllRoutes(mux)
	mc := rt.Metrics()
	if mc != nil && rt.Config().Server.Metrics {
		mux.Handle("/metrics", mc.Handler())
	}

	s := &Server{rt: rt, logger: logger}
	s.srv = &http.Server{
		Handler:           cors(rt.Config().Server.CORSOrigins, s.instrument(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument tags each request with an id, then logs and counts it by route
// pattern.
func (s *Server) instrument(mux *http.ServeMux) http.Handler {
	mc := s.rt.Metrics()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		mux.ServeHTTP(rec, r)

		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		if mc != nil {
			mc.ObserveHTTP(route, rec.code, elapsed)
		}
		s.logger.Debug("http request",
			logpkg.Str(logpkg.RequestIDKey, id),
			logpkg.Str("method", r.Method),
			logpkg.Str("route", route),
			logpkg.Int("code", rec.code),
			logpkg.Duration("elapsed", elapsed))
	})
}

// cors allows the configured origins, or any origin when none are set.
func cors(origins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(origins) == 0:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Log-Reader, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Log-Reader, X-Log-Length, X-Log-Empty, X-Log-Records, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
