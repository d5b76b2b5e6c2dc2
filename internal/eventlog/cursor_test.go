package eventlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readNew(t *testing.T, l *Log, bm *Bookmark) []Entry {
	t.Helper()
	var out []Entry
	require.NoError(t, l.WalkNew(bm, func(e Entry) error {
		out = append(out, e)
		return nil
	}))
	return out
}

func TestIncrementalReadPartition(t *testing.T) {
	f := newFixture(t, roomy, Options{})
	ctx := context.Background()
	var bm Bookmark

	for i := 0; i < 4; i++ {
		_, err := f.log.Print(ctx, fmt.Sprintf("first-%d", i))
		require.NoError(t, err)
	}
	first := readNew(t, f.log, &bm)
	require.Len(t, first, 4)

	var want []string
	for i := 0; i < 3; i++ {
		msg := fmt.Sprintf("second-%d", i)
		_, err := f.log.Print(ctx, msg)
		require.NoError(t, err)
		want = append(want, FormatLine(1, msg))
	}
	second := readNew(t, f.log, &bm)
	assert.Equal(t, want, texts(second))
	assert.Equal(t, uint64(7), bm.LastRead)
	assert.Equal(t, uint64(1), bm.WalkStart)

	assert.Empty(t, readNew(t, f.log, &bm), "nothing new is an empty result")
}

func TestIncrementalReadEmptyLog(t *testing.T) {
	f := newFixture(t, roomy, Options{})
	var bm Bookmark
	assert.Empty(t, readNew(t, f.log, &bm))
	assert.Zero(t, bm.LastRead)
}

func TestBookmarkSurvivesRotation(t *testing.T) {
	f := newFixture(t, threeSegments, Options{})
	ctx := context.Background()
	var bm Bookmark

	for i := 1; i <= 5; i++ {
		_, err := f.log.Append(ctx, []byte(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	require.Len(t, readNew(t, f.log, &bm), 5)

	// Wrap past segments 0 and 1; records 1..6 are erased along the way.
	for i := 6; i <= 14; i++ {
		_, err := f.log.Append(ctx, []byte(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	got := readNew(t, f.log, &bm)
	assert.Equal(t, []uint64{7, 8, 9, 10, 11, 12, 13, 14}, seqs(got), "no repeats, nothing older than the oldest stored record")
	assert.Equal(t, uint64(7), bm.WalkStart)
	assert.Empty(t, readNew(t, f.log, &bm))
}

func TestBookmarkAcrossReset(t *testing.T) {
	f := newFixture(t, roomy, Options{})
	ctx := context.Background()
	var bm Bookmark
	_, _ = f.log.Append(ctx, []byte("a"))
	_, _ = f.log.Append(ctx, []byte("b"))
	require.Len(t, readNew(t, f.log, &bm), 2)

	require.NoError(t, f.log.Reset(ctx))
	_, err := f.log.Append(ctx, []byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, texts(readNew(t, f.log, &bm)))
}

func TestStopWalkDoesNotMarkRead(t *testing.T) {
	f := newFixture(t, roomy, Options{})
	ctx := context.Background()
	for _, m := range []string{"a", "b", "c"} {
		_, err := f.log.Append(ctx, []byte(m))
		require.NoError(t, err)
	}
	var bm Bookmark
	var got []string
	err := f.log.WalkNew(&bm, func(e Entry) error {
		if string(e.Text) == "b" {
			return ErrStopWalk
		}
		got = append(got, string(e.Text))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, uint64(1), bm.LastRead)
	assert.Equal(t, []string{"b", "c"}, texts(readNew(t, f.log, &bm)))
}

func TestWalkPropagatesCallbackError(t *testing.T) {
	f := newFixture(t, roomy, Options{})
	_, err := f.log.Append(context.Background(), []byte("a"))
	require.NoError(t, err)
	boom := fmt.Errorf("boom")
	assert.ErrorIs(t, f.log.Walk(func(Entry) error { return boom }), boom)
}

func TestEntryAddresses(t *testing.T) {
	f := newFixture(t, threeSegments, Options{})
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := f.log.Append(ctx, []byte("x"))
		require.NoError(t, err)
	}
	entries := readAll(t, f.log)
	require.Len(t, entries, 4)
	assert.EqualValues(t, 16, entries[0].Addr)
	assert.EqualValues(t, 48, entries[2].Addr)
	assert.EqualValues(t, 64+16, entries[3].Addr)
	assert.Equal(t, 1, entries[3].Segment)
}
