package eventlog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestProducerWritesQueuedLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, roomy, Options{})
	p := NewProducer(f.log, 64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for i := 0; i < 20; i++ {
		require.True(t, p.TryPrint(fmt.Sprintf("irq %d", i)))
	}
	require.NoError(t, p.Print(ctx, "last"))

	require.Eventually(t, func() bool { return len(readAll(t, f.log)) == 21 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	entries := readAll(t, f.log)
	assert.Equal(t, FormatLine(1, "irq 0"), string(entries[0].Text))
	assert.Equal(t, FormatLine(1, "last"), string(entries[20].Text))
	assert.Zero(t, p.Dropped())
}

func TestProducerDropsWhenFull(t *testing.T) {
	f := newFixture(t, roomy, Options{})
	p := NewProducer(f.log, 2)
	assert.True(t, p.TryPrint("a"))
	assert.True(t, p.TryPrint("b"))
	assert.False(t, p.TryPrint("c"))
	assert.Equal(t, uint64(1), p.Dropped())
	assert.Equal(t, 2, p.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Print(ctx, "blocked"), context.Canceled)
}

func TestProducerDrainsOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Run picks randomly between a ready queue and a done ctx, so repeat
	// to cover lines dequeued after cancellation.
	for round := 0; round < 20; round++ {
		f := newFixture(t, roomy, Options{})
		p := NewProducer(f.log, 32)
		for i := 0; i < 32; i++ {
			require.True(t, p.TryPrint(fmt.Sprint(i)))
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, p.Run(ctx), context.Canceled)

		require.Len(t, readAll(t, f.log), 32, "round %d", round)
		assert.Zero(t, p.Pending())
	}
}
