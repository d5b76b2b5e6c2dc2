// Package flash models a fixed non-volatile region divided into equal,
// independently erasable segments.
//
// A Store enforces the medium's rules on top of a raw Medium:
//   - Erase works on whole segments and is idempotent; erased bytes read 0xFF.
//   - Write requires the address and length to be multiples of the write
//     granularity (Geometry.WriteAlign); violations fail with
//     ErrAlignmentViolation before any I/O.
//   - Read has no alignment requirement.
//
// Every successful Write or Erase is durable when it returns. Media that
// buffer (mmap, Pebble) are synced by the Store.
//
// Usage:
//
//	g := flash.Geometry{SegmentSize: 4096, SegmentCount: 8, WriteAlign: 16}
//	m, _ := flash.OpenFile("/var/lib/flashlog/syslog.img", g.Size())
//	s, _ := flash.NewStore(m, g, flash.Options{})
//	defer s.Close()
//	_ = s.Erase(0)
//	_ = s.Write(0, make([]byte, 16))
//	b, _ := s.Read(0, 16)
package flash
