package syslogsvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/rzbill/flashlog/internal/eventlog"
	"github.com/rzbill/flashlog/internal/runtime"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

const (
	maxReaderName     = 128
	defaultMaxReaders = 64
)

// Service exposes the management operations of the system log: full and
// incremental reads, append, enable/disable, reset and follow.
//
// Incremental readers are tracked by name with an in-memory bookmark each,
// up to a fixed count. When a new name would exceed it, the least recently
// used reader that nobody is following is forgotten, and its next read
// starts from the beginning again.
type Service struct {
	rt          *runtime.Runtime
	log         *eventlog.Log
	logger      logpkg.Logger
	bufSize     int
	placeholder []byte

	readersMu  sync.Mutex
	readers    map[string]*reader
	maxReaders int
	tick       uint64
}

type reader struct {
	mu sync.Mutex
	bm eventlog.Bookmark
	// used and follows are guarded by readersMu.
	used    uint64
	follows int
}

// New returns a Service using a default logger.
func New(rt *runtime.Runtime) *Service {
	return NewWithLogger(rt, nil)
}

// NewWithLogger returns a Service using the provided logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("syslog"))
	}
	cfg := rt.Config().Log
	s := &Service{
		rt:         rt,
		log:        rt.Log(),
		logger:     logger,
		bufSize:    cfg.ReadBufferSize,
		readers:    map[string]*reader{},
		maxReaders: cfg.MaxReaders,
	}
	if s.maxReaders <= 0 {
		s.maxReaders = defaultMaxReaders
	}
	if s.bufSize <= 0 {
		s.bufSize = eventlog.DefaultAccumulatorSize
	}
	if cfg.EmptyPlaceholder {
		s.placeholder = []byte{0}
	}
	return s
}

// ReadAll returns the whole log, oldest first, bounded by the read buffer.
func (s *Service) ReadAll(ctx context.Context, filter string) (ReadResult, error) {
	f, err := newCELFilter(filter)
	if err != nil {
		return ReadResult{}, err
	}
	acc := eventlog.NewAccumulator(s.bufSize)
	var res ReadResult
	err = s.log.Walk(func(e eventlog.Entry) error {
		return s.collect(ctx, f, acc, &res, e)
	})
	if err != nil {
		return ReadResult{}, err
	}
	return s.finish(acc, res, nil), nil
}

// Validate checks a reader name and a filter expression without reading.
func (s *Service) Validate(name, filter string) error {
	if name == "" || len(name) > maxReaderName {
		return ErrInvalidReader
	}
	_, err := newCELFilter(filter)
	return err
}

// ReadNew returns what was appended since the reader's previous read.
// The first read of a new reader returns everything. Records rejected by
// the filter still count as read.
func (s *Service) ReadNew(ctx context.Context, name, filter string) (ReadResult, error) {
	if name == "" || len(name) > maxReaderName {
		return ReadResult{}, ErrInvalidReader
	}
	f, err := newCELFilter(filter)
	if err != nil {
		return ReadResult{}, err
	}
	r := s.reader(name)
	r.mu.Lock()
	defer r.mu.Unlock()

	acc := eventlog.NewAccumulator(s.bufSize)
	var res ReadResult
	prev := r.bm
	err = s.log.WalkNew(&r.bm, func(e eventlog.Entry) error {
		return s.collect(ctx, f, acc, &res, e)
	})
	if err != nil {
		// Nothing was returned to the caller, so nothing counts as read.
		r.bm = prev
		return ReadResult{}, err
	}
	return s.finish(acc, res, s.placeholder), nil
}

func (s *Service) collect(ctx context.Context, f celFilter, acc *eventlog.Accumulator, res *ReadResult, e eventlog.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !f.Eval(e) {
		return nil
	}
	_, _ = acc.Write(e.Text)
	res.Records++
	res.LastSeq = e.Seq
	return nil
}

func (s *Service) finish(acc *eventlog.Accumulator, res ReadResult, placeholder []byte) ReadResult {
	res.Evictions = acc.Evictions()
	if res.Records == 0 {
		res.Empty = true
		res.Data = bytes.Clone(placeholder)
		if res.Data == nil {
			res.Data = []byte{}
		}
		return res
	}
	res.Data = bytes.Clone(acc.Bytes())
	return res
}

func (s *Service) reader(name string) *reader {
	s.readersMu.Lock()
	defer s.readersMu.Unlock()
	s.tick++
	r, ok := s.readers[name]
	if !ok {
		if len(s.readers) >= s.maxReaders {
			s.evictOldestLocked()
		}
		r = &reader{}
		s.readers[name] = r
		s.logger.Debug("reader created", logpkg.Str("reader", name))
	}
	r.used = s.tick
	return r
}

// pin keeps a followed reader from being evicted until unpin.
func (s *Service) pin(name string) *reader {
	r := s.reader(name)
	s.readersMu.Lock()
	r.follows++
	s.readersMu.Unlock()
	return r
}

func (s *Service) unpin(r *reader) {
	s.readersMu.Lock()
	r.follows--
	s.readersMu.Unlock()
}

func (s *Service) evictOldestLocked() {
	var (
		oldest string
		low    uint64
	)
	for name, r := range s.readers {
		if r.follows > 0 {
			continue
		}
		if oldest == "" || r.used < low {
			oldest, low = name, r.used
		}
	}
	if oldest == "" {
		return
	}
	delete(s.readers, oldest)
	s.logger.Debug("reader evicted", logpkg.Str("reader", oldest))
}

func (s *Service) readerNames() []string {
	s.readersMu.Lock()
	defer s.readersMu.Unlock()
	names := make([]string, 0, len(s.readers))
	for n := range s.readers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Service) bookmark(name string) (eventlog.Bookmark, bool) {
	s.readersMu.Lock()
	r, ok := s.readers[name]
	s.readersMu.Unlock()
	if !ok {
		return eventlog.Bookmark{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bm, true
}

// Append stamps msg and writes it to the log.
func (s *Service) Append(ctx context.Context, msg string) (uint64, error) {
	return s.log.Print(ctx, msg)
}

// SetEnabled turns logging on or off.
func (s *Service) SetEnabled(enabled bool) {
	if s.log.Enabled() != enabled {
		s.logger.Info("syslog enabled changed", logpkg.Bool("enabled", enabled))
	}
	s.log.SetEnabled(enabled)
}

// Enabled reports whether appends are stored.
func (s *Service) Enabled() bool { return s.log.Enabled() }

// Reset erases the log and forgets every reader.
func (s *Service) Reset(ctx context.Context) error {
	err := s.log.Reset(ctx)
	s.readersMu.Lock()
	clear(s.readers)
	s.readersMu.Unlock()
	if err != nil {
		s.logger.Error("syslog reset failed", logpkg.Err(err))
		return err
	}
	s.logger.Info("syslog reset")
	return nil
}

// Status reports log statistics and service state.
func (s *Service) Status() Status {
	st := Status{Stats: s.log.Stats(), Changed: s.log.Changed()}
	s.readersMu.Lock()
	st.Readers = len(s.readers)
	s.readersMu.Unlock()
	if p := s.rt.Producer(); p != nil {
		st.ProducerDrops = p.Dropped()
		st.ProducerPending = p.Pending()
	}
	return st
}

// Dump writes every matching record to w as a "> "-prefixed line without
// buffering the log. It returns the number of records written.
func (s *Service) Dump(ctx context.Context, w io.Writer, filter string) (int, error) {
	f, err := newCELFilter(filter)
	if err != nil {
		return 0, err
	}
	n := 0
	err = s.log.Walk(func(e eventlog.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !f.Eval(e) {
			return nil
		}
		if _, err := fmt.Fprintf(w, "> %s", e.Text); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// Follow delivers new records for reader to fn until ctx is done or fn
// fails. It starts with whatever the reader has not seen yet.
func (s *Service) Follow(ctx context.Context, name, filter string, fn func(ReadResult) error) error {
	if err := s.Validate(name, filter); err != nil {
		return err
	}
	r := s.pin(name)
	defer s.unpin(r)
	for {
		wake := s.log.AppendNotify()
		res, err := s.ReadNew(ctx, name, filter)
		if err != nil {
			return err
		}
		if !res.Empty {
			if err := fn(res); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}
