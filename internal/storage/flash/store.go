package flash

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Medium is the raw byte-addressable backing of a region.
//
// Erase must leave [off, off+n) reading as ErasedByte. Implementations must
// be safe for concurrent use.
type Medium interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Erase(off, n int64) error
	Size() int64
	Sync() error
	Close() error
}

// MetricsHook observes medium operations.
type MetricsHook interface {
	ObserveWrite(elapsed time.Duration, bytes int, err error)
	ObserveRead(elapsed time.Duration, bytes int, err error)
	ObserveErase(elapsed time.Duration, segment int, err error)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveWrite(time.Duration, int, error) {}
func (NoopMetrics) ObserveRead(time.Duration, int, error)  {}
func (NoopMetrics) ObserveErase(time.Duration, int, error) {}

// Options configures a Store.
type Options struct {
	// Metrics observes reads, writes and erases. Optional.
	Metrics MetricsHook
	// NoSync skips Medium.Sync after writes and erases.
	NoSync bool
}

// Store is the segment store: a Medium with erase-unit and alignment rules.
type Store struct {
	m       Medium
	geo     Geometry
	metrics MetricsHook
	noSync  bool
	closed  atomic.Bool
}

// NewStore validates g against m and returns a Store.
func NewStore(m Medium, g Geometry, opts Options) (*Store, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if m.Size() < g.Size() {
		return nil, fmt.Errorf("flash: medium holds %d bytes, geometry needs %d", m.Size(), g.Size())
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Store{m: m, geo: g, metrics: metrics, noSync: opts.NoSync}, nil
}

// Geometry returns the region layout.
func (s *Store) Geometry() Geometry { return s.geo }

// Erase erases one whole segment. Erasing an erased segment is not an error.
func (s *Store) Erase(segment int) (err error) {
	if s.closed.Load() {
		return ErrClosed
	}
	if segment < 0 || segment >= s.geo.SegmentCount {
		return fmt.Errorf("%w: segment %d of %d", ErrOutOfRange, segment, s.geo.SegmentCount)
	}
	start := time.Now()
	defer func() { s.metrics.ObserveErase(time.Since(start), segment, err) }()

	if err := s.m.Erase(int64(s.geo.SegmentOffset(segment)), int64(s.geo.SegmentSize)); err != nil {
		return fmt.Errorf("%w: erase segment %d: %w", ErrStorageFault, segment, err)
	}
	return s.sync()
}

// Write writes b at addr. Both must be multiples of the write granularity.
func (s *Store) Write(addr Addr, b []byte) (err error) {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.geo.Aligned(int(addr)) || !s.geo.Aligned(len(b)) {
		return fmt.Errorf("%w: addr=%d len=%d align=%d", ErrAlignmentViolation, addr, len(b), s.geo.WriteAlign)
	}
	if int64(addr)+int64(len(b)) > s.geo.Size() {
		return fmt.Errorf("%w: write [%d,%d) past %d", ErrOutOfRange, addr, int64(addr)+int64(len(b)), s.geo.Size())
	}
	start := time.Now()
	defer func() { s.metrics.ObserveWrite(time.Since(start), len(b), err) }()

	if _, err := s.m.WriteAt(b, int64(addr)); err != nil {
		return fmt.Errorf("%w: write at %d: %w", ErrStorageFault, addr, err)
	}
	return s.sync()
}

// Read returns n bytes starting at addr.
func (s *Store) Read(addr Addr, n int) (b []byte, err error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if n < 0 || int64(addr)+int64(n) > s.geo.Size() {
		return nil, fmt.Errorf("%w: read [%d,%d) past %d", ErrOutOfRange, addr, int64(addr)+int64(n), s.geo.Size())
	}
	start := time.Now()
	defer func() { s.metrics.ObserveRead(time.Since(start), len(b), err) }()

	buf := make([]byte, n)
	if _, err := s.m.ReadAt(buf, int64(addr)); err != nil {
		return nil, fmt.Errorf("%w: read at %d: %w", ErrStorageFault, addr, err)
	}
	return buf, nil
}

// Close closes the underlying medium.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.m.Close()
}

func (s *Store) sync() error {
	if s.noSync {
		return nil
	}
	if err := s.m.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", ErrStorageFault, err)
	}
	return nil
}
