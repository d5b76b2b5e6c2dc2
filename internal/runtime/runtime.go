package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	cfgpkg "github.com/rzbill/flashlog/internal/config"
	"github.com/rzbill/flashlog/internal/counters"
	"github.com/rzbill/flashlog/internal/eventlog"
	"github.com/rzbill/flashlog/internal/metrics"
	"github.com/rzbill/flashlog/internal/storage/flash"
	pebblestore "github.com/rzbill/flashlog/internal/storage/pebble"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// Metrics, when set, observes storage, log and state operations.
	Metrics *metrics.Collector
	// Sink receives every printed line. Config.Log.Echo adds stderr.
	Sink io.Writer
	// Clock stamps printed lines. Defaults to uptime since Open.
	Clock eventlog.Clock
}

// Runtime wires the state store, the log region and its helpers for a
// single-node instance.
type Runtime struct {
	config   cfgpkg.Config
	logger   logpkg.Logger
	db       *pebblestore.DB
	store    *flash.Store
	log      *eventlog.Log
	producer *eventlog.Producer
	counters *counters.Store
	metrics  *metrics.Collector

	stopProducer context.CancelFunc
	producerDone chan struct{}
}

// Open validates the config, opens storage and recovers the log.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}
	dataDir := cfg.ResolvedDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("runtime: create data dir: %w", err)
	}

	fsync, _ := pebblestore.ParseFsyncMode(cfg.Storage.Fsync)
	dbOpts := pebblestore.Options{
		DataDir:       cfg.StateDir(),
		Fsync:         fsync,
		FsyncInterval: time.Duration(cfg.Storage.FsyncIntervalMs) * time.Millisecond,
	}
	if opts.Metrics != nil {
		dbOpts.Metrics = opts.Metrics.Pebble()
	}
	db, err := pebblestore.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("runtime: open state store: %w", err)
	}
	rt := &Runtime{config: cfg, logger: logger, db: db, metrics: opts.Metrics}

	if err := rt.openLog(opts); err != nil {
		_ = rt.Close()
		return nil, err
	}
	if rt.counters, err = counters.Open(db, logger); err != nil {
		_ = rt.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt.stopProducer = cancel
	rt.producerDone = make(chan struct{})
	go func() {
		defer close(rt.producerDone)
		_ = rt.producer.Run(ctx)
	}()
	return rt, nil
}

func (r *Runtime) openMedium() (flash.Medium, error) {
	geo := r.config.Geometry()
	switch r.config.Storage.Backend {
	case cfgpkg.BackendMemory:
		return flash.NewMemory(geo.Size()), nil
	case cfgpkg.BackendPebble:
		return pebblestore.NewMedium(r.db, "syslog", geo.Size(), geo.SegmentSize)
	default:
		return flash.OpenFile(r.config.ImagePath(), geo.Size())
	}
}

func (r *Runtime) openLog(opts Options) error {
	m, err := r.openMedium()
	if err != nil {
		return fmt.Errorf("runtime: open %s medium: %w", r.config.Storage.Backend, err)
	}
	storeOpts := flash.Options{}
	logOpts := eventlog.Options{
		Logger:   r.logger,
		Sink:     opts.Sink,
		Clock:    opts.Clock,
		Disabled: !r.config.Log.Enabled,
	}
	if r.config.Log.Echo {
		if logOpts.Sink != nil {
			logOpts.Sink = io.MultiWriter(logOpts.Sink, os.Stderr)
		} else {
			logOpts.Sink = os.Stderr
		}
	}
	if r.metrics != nil {
		storeOpts.Metrics = r.metrics
		logOpts.Observer = r.metrics
		logOpts.RotationHook = r.metrics
	}
	r.store, err = flash.NewStore(m, r.config.Geometry(), storeOpts)
	if err != nil {
		_ = m.Close()
		return err
	}
	r.log, err = eventlog.Open(r.store, logOpts)
	if err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.ObserveEnabled(r.log.Enabled())
	}
	r.producer = eventlog.NewProducer(r.log, r.config.Log.ProducerQueue)
	return nil
}

// Close stops the producer and closes the log, the region and the state store.
func (r *Runtime) Close() error {
	if r.stopProducer != nil {
		r.stopProducer()
		<-r.producerDone
		r.stopProducer = nil
	}
	var errs []error
	if r.log != nil {
		errs = append(errs, r.log.Close())
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}

// CheckHealth checks that the state store and the log region respond.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	if err := it.Close(); err != nil {
		return err
	}
	if _, err := r.store.Read(0, 1); err != nil {
		return fmt.Errorf("log region: %w", err)
	}
	return nil
}

// Log returns the system log.
func (r *Runtime) Log() *eventlog.Log { return r.log }

// Producer returns the non-blocking producer feeding the log.
func (r *Runtime) Producer() *eventlog.Producer { return r.producer }

// Counters returns the update counter store.
func (r *Runtime) Counters() *counters.Store { return r.counters }

// Metrics returns the collector, or nil when metrics are off.
func (r *Runtime) Metrics() *metrics.Collector { return r.metrics }

// DB exposes the state store (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the process logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }
