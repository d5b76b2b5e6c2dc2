package eventlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rzbill/flashlog/internal/storage/flash"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

var (
	// ErrRecordTooLarge is returned when a record cannot fit in an empty segment.
	ErrRecordTooLarge = errors.New("eventlog: record too large for one segment")
	// ErrClosed is returned by operations on a closed log.
	ErrClosed = errors.New("eventlog: log closed")
)

// Options configures a Log.
type Options struct {
	Logger logpkg.Logger
	// Clock stamps lines written through Print. Defaults to an UptimeClock.
	Clock Clock
	// Sink receives every line passed to Print, stored or not. Defaults to io.Discard.
	Sink io.Writer
	// RotationHook is told about records dropped by rotation.
	RotationHook RotationHook
	Observer     Observer
	// Disabled starts the log with producer writes turned off.
	Disabled bool
}

// Stats is a point-in-time view of the log.
type Stats struct {
	Enabled       bool   `json:"enabled"`
	SegmentCount  int    `json:"segmentCount"`
	SegmentSize   int    `json:"segmentSize"`
	WriteAlign    int    `json:"writeAlign"`
	ActiveSegment int    `json:"activeSegment"`
	ActiveOffset  int    `json:"activeOffset"`
	Formatted     bool   `json:"formatted"`
	NextSeq       uint64 `json:"nextSeq"`
	OldestSeq     uint64 `json:"oldestSeq"`
	Records       uint64 `json:"records"`
	Appends       uint64 `json:"appends"`
	Rotations     uint64 `json:"rotations"`
	Faults        uint64 `json:"faults"`
}

// Log is an append-only ring of records over a flash.Store.
//
// Append, rotation and Reset are serialized by the handle's mutex. Walks
// take the mutex only to snapshot segment order.
type Log struct {
	store   *flash.Store
	geo     flash.Geometry
	hdrSize int
	logger  logpkg.Logger
	hook    RotationHook
	obs     Observer
	clock   Clock

	sinkMu sync.Mutex
	sink   io.Writer

	mu        sync.Mutex
	active    int
	offset    int
	formatted bool
	// sealed means the active segment takes no more records; the next
	// append rotates.
	sealed   bool
	nextSeq  uint64
	segValid []bool
	segFirst []uint64
	closed   bool

	enabled   atomic.Bool
	changed   atomic.Bool
	appends   atomic.Uint64
	rotations atomic.Uint64
	faults    atomic.Uint64

	notifyMu sync.Mutex
	notifyCh chan struct{}
}

// Open returns a Log over store, recovering the write cursor from the
// segment headers. Open never erases.
func Open(store *flash.Store, opts Options) (*Log, error) {
	if store == nil {
		return nil, errors.New("eventlog: nil store")
	}
	geo := store.Geometry()
	hdr := geo.AlignUp(segmentHdrLen)
	if geo.SegmentSize-hdr < geo.AlignUp(frameHdrLen+2) {
		return nil, fmt.Errorf("eventlog: segment size %d leaves no room for records", geo.SegmentSize)
	}
	l := &Log{
		store:    store,
		geo:      geo,
		hdrSize:  hdr,
		logger:   opts.Logger,
		hook:     opts.RotationHook,
		obs:      opts.Observer,
		clock:    opts.Clock,
		sink:     opts.Sink,
		segValid: make([]bool, geo.SegmentCount),
		segFirst: make([]uint64, geo.SegmentCount),
		nextSeq:  1,
		notifyCh: make(chan struct{}),
	}
	if l.logger == nil {
		l.logger = logpkg.NewNop()
	}
	l.logger = l.logger.With(logpkg.Component("eventlog"))
	if l.hook == nil {
		l.hook = noopHooks{}
	}
	if l.obs == nil {
		l.obs = noopHooks{}
	}
	if l.clock == nil {
		l.clock = NewUptimeClock()
	}
	if l.sink == nil {
		l.sink = io.Discard
	}
	l.enabled.Store(!opts.Disabled)

	l.mu.Lock()
	l.initialize()
	l.mu.Unlock()

	l.logger.Info("log opened",
		logpkg.Int("segments", geo.SegmentCount),
		logpkg.Int("segment_size", geo.SegmentSize),
		logpkg.Int("active", l.active),
		logpkg.Int("offset", l.offset),
		logpkg.Uint64("next_seq", l.nextSeq))
	return l, nil
}

// Geometry returns the layout of the underlying store.
func (l *Log) Geometry() flash.Geometry { return l.geo }

// MaxRecordLen is the largest line Append accepts.
func (l *Log) MaxRecordLen() int {
	room := l.geo.SegmentSize - l.hdrSize - frameHdrLen - 1
	return min(room, maxFrameLen-1)
}

// initialize rebuilds in-memory state from storage. Unreadable or
// corrupt headers count as erased segments. Caller holds l.mu.
func (l *Log) initialize() {
	newest := -1
	for i := 0; i < l.geo.SegmentCount; i++ {
		l.segValid[i] = false
		b, err := l.store.Read(l.geo.SegmentOffset(i), segmentHdrLen)
		if err != nil {
			l.logger.Warn("segment header unreadable", logpkg.Int("segment", i), logpkg.Err(err))
			continue
		}
		h, ok := decodeSegmentHeader(b)
		if !ok {
			continue
		}
		l.segValid[i] = true
		l.segFirst[i] = h.FirstSeq
		if newest < 0 || h.FirstSeq > l.segFirst[newest] {
			newest = i
		}
	}

	if newest < 0 {
		l.active, l.offset = 0, 0
		l.formatted, l.sealed = false, false
		return
	}

	l.active = newest
	l.formatted = true
	l.offset = l.hdrSize
	l.sealed = false
	count := uint64(0)
	seg, err := l.store.Read(l.geo.SegmentOffset(newest), l.geo.SegmentSize)
	if err != nil {
		l.logger.Warn("active segment unreadable", logpkg.Int("segment", newest), logpkg.Err(err))
		l.sealed = true
	} else {
		for l.offset < len(seg) {
			_, n, st := decodeFrame(seg[l.offset:])
			if st == frameErased {
				break
			}
			if st == frameCorrupt {
				l.logger.Warn("corrupt record ends segment",
					logpkg.Int("segment", newest), logpkg.Int("offset", l.offset))
				l.sealed = true
				break
			}
			l.offset += l.geo.AlignUp(n)
			count++
		}
	}

	recovered := l.segFirst[newest] + count
	if recovered < l.nextSeq {
		// Storage holds older records than this process has issued; keep
		// sequence numbers monotonic by starting a fresh segment.
		l.sealed = true
	} else {
		l.nextSeq = recovered
	}
}

// Append writes data as one record and returns its sequence number. A
// disabled log drops data and returns (0, nil).
func (l *Log) Append(ctx context.Context, data []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !l.enabled.Load() {
		return 0, nil
	}
	if len(data) > l.MaxRecordLen() {
		l.obs.ObserveAppend(len(data), ErrRecordTooLarge)
		return 0, fmt.Errorf("%w: %d bytes, max %d", ErrRecordTooLarge, len(data), l.MaxRecordLen())
	}
	need := l.geo.AlignUp(frameHdrLen + len(data) + 1)

	l.mu.Lock()
	seq, stored, err := l.appendLocked(data, need)
	l.mu.Unlock()

	if !stored && err == nil {
		return 0, nil
	}
	l.obs.ObserveAppend(len(data), err)
	if err != nil {
		if errors.Is(err, flash.ErrStorageFault) {
			l.faults.Add(1)
		}
		return 0, err
	}
	l.appends.Add(1)
	l.changed.Store(true)
	l.notify()
	return seq, nil
}

func (l *Log) appendLocked(data []byte, need int) (seq uint64, stored bool, err error) {
	if l.closed {
		return 0, false, ErrClosed
	}
	if !l.enabled.Load() {
		return 0, false, nil
	}
	if !l.formatted || l.sealed || l.offset+need > l.geo.SegmentSize {
		if err := l.rotate(); err != nil {
			return 0, false, err
		}
	}
	addr := l.geo.SegmentOffset(l.active) + flash.Addr(l.offset)
	if err := l.store.Write(addr, encodeFrame(data, need)); err != nil {
		l.logger.Warn("append failed", logpkg.Int("segment", l.active), logpkg.Int("offset", l.offset), logpkg.Err(err))
		return 0, false, err
	}
	seq = l.nextSeq
	l.offset += need
	l.nextSeq++
	return seq, true, nil
}

// rotate erases the next segment, writes its header and moves the cursor
// there. An unformatted log formats its current segment instead. Caller
// holds l.mu.
func (l *Log) rotate() error {
	target := l.active
	if l.formatted {
		target = (l.active + 1) % l.geo.SegmentCount
	}
	minSeq, maxSeq, dropping := l.storedRange(target)

	if err := l.store.Erase(target); err != nil {
		l.logger.Warn("rotation erase failed", logpkg.Int("segment", target), logpkg.Err(err))
		return err
	}
	// The segment is gone from storage whatever happens next.
	l.segValid[target] = false
	if target == l.active {
		l.formatted = false
		l.offset = 0
	}
	if dropping {
		l.hook.EmitDropped(target, minSeq, maxSeq)
		l.logger.Debug("rotation dropped records", logpkg.Int("segment", target),
			logpkg.Uint64("min_seq", minSeq), logpkg.Uint64("max_seq", maxSeq))
	}

	hdr := encodeSegmentHeader(segmentHeader{FirstSeq: l.nextSeq}, l.hdrSize)
	if err := l.store.Write(l.geo.SegmentOffset(target), hdr); err != nil {
		l.logger.Warn("segment header write failed", logpkg.Int("segment", target), logpkg.Err(err))
		return err
	}
	l.segValid[target] = true
	l.segFirst[target] = l.nextSeq
	l.active = target
	l.offset = l.hdrSize
	l.formatted = true
	l.sealed = false
	l.rotations.Add(1)
	l.obs.ObserveRotation(target)
	return nil
}

// storedRange returns the sequence range held by segment i. Caller holds l.mu.
func (l *Log) storedRange(i int) (minSeq, maxSeq uint64, ok bool) {
	if !l.segValid[i] {
		return 0, 0, false
	}
	minSeq = l.segFirst[i]
	maxSeq = l.nextSeq - 1
	for j := range l.segValid {
		if j != i && l.segValid[j] && l.segFirst[j] > minSeq && l.segFirst[j]-1 < maxSeq {
			maxSeq = l.segFirst[j] - 1
		}
	}
	if maxSeq < minSeq {
		return 0, 0, false
	}
	return minSeq, maxSeq, true
}

// Reset erases every segment in order and reinitializes. It stops at the
// first fault and returns it; the log is reinitialized either way and the
// enabled state is restored.
func (l *Log) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	prev := l.enabled.Swap(false)
	defer l.enabled.Store(prev)

	var firstErr error
	for i := 0; i < l.geo.SegmentCount; i++ {
		if err := l.store.Erase(i); err != nil {
			l.logger.Error("reset erase failed", logpkg.Int("segment", i), logpkg.Err(err))
			l.faults.Add(1)
			firstErr = err
			break
		}
	}
	l.initialize()
	l.changed.Store(true)
	l.logger.Info("log reset", logpkg.Bool("ok", firstErr == nil), logpkg.Uint64("next_seq", l.nextSeq))
	return firstErr
}

// SetEnabled turns producer writes on or off.
func (l *Log) SetEnabled(enabled bool) {
	if l.enabled.Swap(enabled) != enabled {
		l.logger.Info("logging toggled", logpkg.Bool("enabled", enabled))
	}
	l.obs.ObserveEnabled(enabled)
}

// Enabled reports whether appends reach storage.
func (l *Log) Enabled() bool { return l.enabled.Load() }

// Changed reports whether the log changed since the previous call, and
// clears the flag.
func (l *Log) Changed() bool { return l.changed.Swap(false) }

// Stats returns counters and cursor position.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := Stats{
		Enabled:       l.enabled.Load(),
		SegmentCount:  l.geo.SegmentCount,
		SegmentSize:   l.geo.SegmentSize,
		WriteAlign:    l.geo.WriteAlign,
		ActiveSegment: l.active,
		ActiveOffset:  l.offset,
		Formatted:     l.formatted,
		NextSeq:       l.nextSeq,
		Appends:       l.appends.Load(),
		Rotations:     l.rotations.Load(),
		Faults:        l.faults.Load(),
	}
	for i, ok := range l.segValid {
		if ok && (st.OldestSeq == 0 || l.segFirst[i] < st.OldestSeq) {
			st.OldestSeq = l.segFirst[i]
		}
	}
	if st.OldestSeq != 0 && st.OldestSeq < l.nextSeq {
		st.Records = l.nextSeq - st.OldestSeq
	}
	return st
}

// Close stops further appends and wakes waiters. The store is left open.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	l.notify()
	return nil
}
