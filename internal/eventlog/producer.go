package eventlog

import (
	"context"
	"sync/atomic"
)

// Producer feeds a Log from a bounded queue drained by one writer
// goroutine. TryPrint never blocks, so it is safe from latency-sensitive
// callers; lines that do not fit in the queue are dropped and counted.
type Producer struct {
	log     *Log
	queue   chan string
	dropped atomic.Uint64
}

// NewProducer returns a producer with room for depth pending lines.
func NewProducer(l *Log, depth int) *Producer {
	if depth <= 0 {
		depth = 256
	}
	return &Producer{log: l, queue: make(chan string, depth)}
}

// TryPrint stamps msg now and queues it. It returns false if the queue is full.
func (p *Producer) TryPrint(msg string) bool {
	line := FormatLine(p.log.clock.UptimeMs(), msg)
	select {
	case p.queue <- line:
		return true
	default:
		p.dropped.Add(1)
		p.log.obs.ObserveProducerDrop()
		return false
	}
}

// Print queues msg, waiting for room until ctx is done.
func (p *Producer) Print(ctx context.Context, msg string) error {
	line := FormatLine(p.log.clock.UptimeMs(), msg)
	select {
	case p.queue <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of lines rejected by TryPrint.
func (p *Producer) Dropped() uint64 { return p.dropped.Load() }

// Pending returns the number of queued lines.
func (p *Producer) Pending() int { return len(p.queue) }

// Run writes queued lines until ctx is done, then flushes what is left.
// A line taken off the queue is always written, even if ctx is cancelled
// while it is in flight.
func (p *Producer) Run(ctx context.Context) error {
	wctx := context.WithoutCancel(ctx)
	for {
		select {
		case line := <-p.queue:
			_, _ = p.log.printLine(wctx, line)
		case <-ctx.Done():
			p.drain(wctx)
			return ctx.Err()
		}
	}
}

func (p *Producer) drain(ctx context.Context) {
	for {
		select {
		case line := <-p.queue:
			_, _ = p.log.printLine(ctx, line)
		default:
			return
		}
	}
}
