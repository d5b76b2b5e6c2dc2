package eventlog

// DefaultAccumulatorSize matches the read buffer of the management protocol.
const DefaultAccumulatorSize = 1024

// Accumulator is a fixed-capacity text buffer filled by a walk.
//
// When a write does not fit, the oldest half of the buffer is evicted in
// one step until it does, so up to half the content can be lost at once.
// A single write larger than the capacity keeps only its newest bytes.
type Accumulator struct {
	buf       []byte
	n         int
	evictions int
}

// NewAccumulator returns an empty accumulator. A non-positive capacity
// uses DefaultAccumulatorSize.
func NewAccumulator(capacity int) *Accumulator {
	if capacity <= 0 {
		capacity = DefaultAccumulatorSize
	}
	return &Accumulator{buf: make([]byte, capacity)}
}

// Reset empties the buffer and clears the eviction count.
func (a *Accumulator) Reset() {
	clear(a.buf[:a.n])
	a.n = 0
	a.evictions = 0
}

// Write appends p, evicting old content as needed. It never fails.
func (a *Accumulator) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > len(a.buf)-a.n && a.n > 0 {
		a.evictHalf()
	}
	if len(p) > len(a.buf) {
		p = p[len(p)-len(a.buf):]
	}
	a.n += copy(a.buf[a.n:], p)
	return written, nil
}

func (a *Accumulator) evictHalf() {
	half := max(len(a.buf)/2, 1)
	if a.n > half {
		copy(a.buf, a.buf[half:a.n])
	}
	kept := max(a.n-half, 0)
	clear(a.buf[kept:a.n])
	a.n = kept
	a.evictions++
}

// Bytes returns the buffered content. The slice is valid until the next Write or Reset.
func (a *Accumulator) Bytes() []byte { return a.buf[:a.n] }

func (a *Accumulator) Len() int { return a.n }

func (a *Accumulator) Cap() int { return len(a.buf) }

// Evictions counts half-buffer evictions since the last Reset.
func (a *Accumulator) Evictions() int { return a.evictions }
