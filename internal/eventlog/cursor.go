package eventlog

// Bookmark is a reader's position for incremental walks. The zero value
// delivers everything on its first walk.
type Bookmark struct {
	// WalkStart is the sequence of the oldest record seen by the last walk.
	WalkStart uint64 `json:"walkStart"`
	// LastRead is the sequence of the last delivered record.
	LastRead uint64 `json:"lastRead"`
}

// WalkNew walks records appended after bm.LastRead and advances bm as
// records are delivered. Sequence numbers never repeat, so a bookmark stays
// correct across rotations and resets. A record rejected by fn (including
// with ErrStopWalk) is not marked read.
func (l *Log) WalkNew(bm *Bookmark, fn func(Entry) error) error {
	first := true
	return l.Walk(func(e Entry) error {
		if first {
			bm.WalkStart = e.Seq
			first = false
		}
		if e.Seq <= bm.LastRead {
			return nil
		}
		if err := fn(e); err != nil {
			return err
		}
		bm.LastRead = e.Seq
		return nil
	})
}
