package eventlog

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	logpkg "github.com/rzbill/flashlog/pkg/log"
)

// Clock supplies the millisecond uptime stamped on each line.
type Clock interface {
	UptimeMs() uint32
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint32

func (f ClockFunc) UptimeMs() uint32 { return f() }

// UptimeClock counts milliseconds since it was created. The count wraps
// at 2^32 like a device tick counter.
type UptimeClock struct {
	start time.Time
}

func NewUptimeClock() *UptimeClock { return &UptimeClock{start: time.Now()} }

func (c *UptimeClock) UptimeMs() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// FormatLine renders "[%07d] msg", terminated by a newline.
func FormatLine(uptimeMs uint32, msg string) string {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return fmt.Sprintf("[%07d] %s", uptimeMs, msg)
}

// ParseUptime extracts the timestamp from a line made by FormatLine.
func ParseUptime(line []byte) (uint32, bool) {
	if len(line) < 3 || line[0] != '[' {
		return 0, false
	}
	end := strings.IndexByte(string(line[:min(len(line), 12)]), ']')
	if end < 2 {
		return 0, false
	}
	v, err := strconv.ParseUint(string(line[1:end]), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// Print stamps msg with the clock, echoes it to the sink and appends it
// when the log is enabled. Failures are logged and returned.
func (l *Log) Print(ctx context.Context, msg string) (uint64, error) {
	return l.printLine(ctx, FormatLine(l.clock.UptimeMs(), msg))
}

func (l *Log) printLine(ctx context.Context, line string) (uint64, error) {
	l.sinkMu.Lock()
	_, _ = io.WriteString(l.sink, line)
	l.sinkMu.Unlock()

	seq, err := l.Append(ctx, []byte(line))
	if err != nil {
		l.logger.Warn("log line not stored", logpkg.Err(err), logpkg.Int("bytes", len(line)))
	}
	return seq, err
}
