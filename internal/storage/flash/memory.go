package flash

import (
	"errors"
	"io"
	"sync"
)

// Memory is an in-RAM medium. It starts fully erased.
type Memory struct {
	mu     sync.RWMutex
	data   []byte
	closed bool
}

var errMemoryClosed = errors.New("flash: memory medium closed")

// NewMemory returns an erased in-RAM medium of size bytes.
func NewMemory(size int64) *Memory {
	m := &Memory{data: make([]byte, size)}
	fill(m.data, ErasedByte)
	return m
}

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, errMemoryClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errMemoryClosed
	}
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, io.ErrShortWrite
	}
	return copy(m.data[off:], p), nil
}

func (m *Memory) Erase(off, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errMemoryClosed
	}
	if off < 0 || off+n > int64(len(m.data)) {
		return io.ErrShortWrite
	}
	fill(m.data[off:off+n], ErasedByte)
	return nil
}

func (m *Memory) Size() int64 { return int64(len(m.data)) }
func (m *Memory) Sync() error { return nil }

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
