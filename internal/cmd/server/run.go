package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	cfgpkg "github.com/rzbill/flashlog/internal/config"
	"github.com/rzbill/flashlog/internal/metrics"
	"github.com/rzbill/flashlog/internal/runtime"
	grpcserver "github.com/rzbill/flashlog/internal/server/grpc"
	httpserver "github.com/rzbill/flashlog/internal/server/http"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

type Options struct {
	Config cfgpkg.Config
	// Logger overrides the process logger built from Config.Logging.
	Logger logpkg.Logger
}

// Run opens the runtime, starts gRPC and HTTP servers and blocks until ctx
// is cancelled or a termination signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := opts.Config

	procLogger := opts.Logger
	if procLogger == nil {
		procLogger = buildLogger(cfg.Logging)
		// Redirect stdlib logs (e.g., Pebble) to our logger
		logpkg.RedirectStdLog(procLogger)
	}

	var mc *metrics.Collector
	if cfg.Server.Metrics {
		mc = metrics.New(true)
	}
	rt, err := runtime.Open(runtime.Options{
		Config:  cfg,
		Logger:  procLogger,
		Metrics: mc,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	geo := cfg.Geometry()
	procLogger.Info("Starting flashlog server",
		logpkg.Str("grpc", cfg.Server.GRPCAddr),
		logpkg.Str("http", cfg.Server.HTTPAddr),
		logpkg.Str("backend", cfg.Storage.Backend),
		logpkg.Str("data_dir", cfg.ResolvedDataDir()),
		logpkg.Int("segment_size", geo.SegmentSize),
		logpkg.Int("segment_count", geo.SegmentCount),
		logpkg.Int("write_align", geo.WriteAlign),
		logpkg.Bool("enabled", rt.Log().Enabled()),
		logpkg.Str("level", cfg.Logging.Level),
		logpkg.Str("format", cfg.Logging.Format),
	)
	rt.Producer().TryPrint("flashlog server started")

	gsrv := grpcserver.New(rt, procLogger)
	hsrv := httpserver.New(rt, procLogger)

	var wg sync.WaitGroup
	if cfg.Server.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gsrv.ListenAndServe(sctx, cfg.Server.GRPCAddr); err != nil && sctx.Err() == nil {
				procLogger.Error("grpc server failed", logpkg.Err(err))
				stop()
			}
		}()
	}
	if cfg.Server.HTTPAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hsrv.ListenAndServe(sctx, cfg.Server.HTTPAddr); err != nil && sctx.Err() == nil {
				procLogger.Error("http server failed", logpkg.Err(err))
				stop()
			}
		}()
	}

	<-sctx.Done()
	procLogger.Info("Stopping flashlog server")
	// Stop the servers before closing the runtime so no request sees a closed log.
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	return nil
}

// buildLogger applies the logging config, falling back to a text logger at
// the parsed (or info) level.
func buildLogger(c logpkg.Config) logpkg.Logger {
	procLogger, err := logpkg.ApplyConfig(&c)
	if err == nil {
		return procLogger
	}
	lvl := logpkg.InfoLevel
	if l, e := logpkg.ParseLevel(c.Level); e == nil {
		lvl = l
	}
	return logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
}
