package eventlog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rzbill/flashlog/internal/storage/flash"
)

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, roomy, Options{})
	const writers, each = 8, 40
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[uint64]bool{}
	)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				seq, err := f.log.Print(context.Background(), fmt.Sprintf("w%d-%d", w, i))
				if err != nil {
					t.Errorf("print: %v", err)
					return
				}
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, seen, writers*each, "every append gets a distinct sequence")
	entries := readAll(t, f.log)
	require.Len(t, entries, writers*each)
	for i := 1; i < len(entries); i++ {
		require.Equal(t, entries[i-1].Seq+1, entries[i].Seq)
	}
}

func TestWalkRacingRotation(t *testing.T) {
	defer goleak.VerifyNone(t)

	geo := flash.Geometry{SegmentSize: 256, SegmentCount: 3, WriteAlign: 16}
	f := newFixture(t, geo, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ctx.Err() == nil && i < 2000; i++ {
			_, _ = f.log.Print(ctx, fmt.Sprintf("line %d", i))
		}
	}()

	var bm Bookmark
	for i := 0; i < 200; i++ {
		last := bm.LastRead
		err := f.log.WalkNew(&bm, func(e Entry) error {
			if e.Seq <= last {
				return fmt.Errorf("seq %d delivered again after %d", e.Seq, last)
			}
			last = e.Seq
			return nil
		})
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
}
