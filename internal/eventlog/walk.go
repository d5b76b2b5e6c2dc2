package eventlog

import (
	"errors"
	"sort"

	"github.com/rzbill/flashlog/internal/storage/flash"
)

// ErrStopWalk ends a walk early without error.
var ErrStopWalk = errors.New("eventlog: stop walk")

// Entry is one decoded record.
type Entry struct {
	Seq     uint64
	Addr    flash.Addr
	Segment int
	// Text is the stored line without terminator or padding.
	Text []byte
}

type segmentRef struct {
	index    int
	firstSeq uint64
}

// order returns the formatted segments oldest first.
func (l *Log) order() []segmentRef {
	l.mu.Lock()
	defer l.mu.Unlock()
	refs := make([]segmentRef, 0, len(l.segValid))
	for i, ok := range l.segValid {
		if ok {
			refs = append(refs, segmentRef{index: i, firstSeq: l.segFirst[i]})
		}
	}
	sort.Slice(refs, func(a, b int) bool { return refs[a].firstSeq < refs[b].firstSeq })
	return refs
}

// Walk calls fn for every readable record, oldest first.
//
// Segments are read without holding the log lock, so a walk racing a
// rotation may miss records erased underneath it. A segment recycled
// during the walk is skipped.
func (l *Log) Walk(fn func(Entry) error) error {
	for _, ref := range l.order() {
		err := l.walkSegment(ref, fn)
		if errors.Is(err, ErrStopWalk) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Log) walkSegment(ref segmentRef, fn func(Entry) error) error {
	base := l.geo.SegmentOffset(ref.index)
	seg, err := l.store.Read(base, l.geo.SegmentSize)
	if err != nil {
		return err
	}
	h, ok := decodeSegmentHeader(seg)
	if !ok || h.FirstSeq != ref.firstSeq {
		return nil
	}
	seq := h.FirstSeq
	for off := l.hdrSize; off < len(seg); {
		text, n, st := decodeFrame(seg[off:])
		if st != frameOK {
			return nil
		}
		e := Entry{
			Seq:     seq,
			Addr:    base + flash.Addr(off),
			Segment: ref.index,
			Text:    append([]byte(nil), text...),
		}
		if err := fn(e); err != nil {
			return err
		}
		off += l.geo.AlignUp(n)
		seq++
	}
	return nil
}
