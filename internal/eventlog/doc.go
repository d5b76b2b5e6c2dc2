// Package eventlog implements the wraparound system log kept in a
// flash.Store.
//
// # Layout
//
// Each segment starts with a header carrying the sequence number of its
// first record:
//
//	magic u32 | version u8 | reserved[3] | firstSeq u64   (padded to the write granularity)
//
// Records follow back to back, each framed and padded to the granularity:
//
//	crc32c u32 | length u16 | line | NUL | zero padding
//
// The first all-0xFF frame header ends a segment. A record's sequence
// number is its segment's firstSeq plus its position in the segment.
//
// # Rotation
//
// When a record does not fit in the active segment, the next segment
// (wrapping to 0) is erased, given a header and becomes active. The log
// therefore loses its oldest segment on every rotation. A record that cannot
// fit in an empty segment fails with ErrRecordTooLarge and nothing is erased.
//
// # API surface
//
//	l, _ := eventlog.Open(store, eventlog.Options{Logger: logger})
//	seq, _ := l.Print(ctx, "modem attached")   // "[0001234] modem attached\n"
//
//	// Full read into a bounded buffer
//	acc := eventlog.NewAccumulator(1024)
//	_ = l.Walk(func(e eventlog.Entry) error { _, _ = acc.Write(e.Text); return nil })
//
//	// Incremental read
//	var bm eventlog.Bookmark
//	_ = l.WalkNew(&bm, func(e eventlog.Entry) error { ...; return nil })
//
//	// Administrative
//	l.SetEnabled(false)
//	_ = l.Reset(ctx)
//
// Interrupt-style callers that must not wait on storage use a Producer,
// which queues lines for a single writer goroutine.
package eventlog
