package pebblestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/pebble"
)

const erasedByte = 0xFF

// Medium stores a flash region as fixed-size pages under
// "flash/{name}/p/{index}". A missing page reads as erased.
type Medium struct {
	db       *DB
	prefix   []byte
	size     int64
	pageSize int

	mu     sync.RWMutex
	closed bool
}

var errMediumClosed = errors.New("pebble: medium closed")

// NewMedium returns a medium of size bytes backed by db. The region is
// identified by name; reopening with the same name sees the same bytes.
func NewMedium(db *DB, name string, size int64, pageSize int) (*Medium, error) {
	if db == nil {
		return nil, errors.New("pebble: nil db")
	}
	if name == "" {
		return nil, errors.New("pebble: medium name is required")
	}
	if size <= 0 || pageSize <= 0 {
		return nil, fmt.Errorf("pebble: invalid medium size=%d page=%d", size, pageSize)
	}
	return &Medium{
		db:       db,
		prefix:   []byte("flash/" + name + "/p/"),
		size:     size,
		pageSize: pageSize,
	}, nil
}

func (m *Medium) pageKey(idx uint32) []byte {
	k := make([]byte, len(m.prefix)+4)
	copy(k, m.prefix)
	binary.BigEndian.PutUint32(k[len(m.prefix):], idx)
	return k
}

func (m *Medium) erasedPage() []byte {
	p := make([]byte, m.pageSize)
	for i := range p {
		p[i] = erasedByte
	}
	return p
}

// pageRange returns the first and last page touched by [off, off+n).
func (m *Medium) pageRange(off, n int64) (first, last uint32) {
	ps := int64(m.pageSize)
	return uint32(off / ps), uint32((off + n - 1) / ps)
}

type getter interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func (m *Medium) loadPage(r getter, idx uint32) ([]byte, error) {
	val, closer, err := r.Get(m.pageKey(idx))
	if errors.Is(err, pebble.ErrNotFound) {
		return m.erasedPage(), nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	p := m.erasedPage()
	copy(p, val)
	return p, nil
}

func (m *Medium) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, errMediumClosed
	}
	if off < 0 || off >= m.size {
		return 0, io.EOF
	}
	want := int64(len(p))
	if off+want > m.size {
		want = m.size - off
	}
	if want == 0 {
		return 0, nil
	}

	snap := m.db.NewSnapshot()
	defer snap.Close()

	first, last := m.pageRange(off, want)
	n := 0
	for idx := first; idx <= last; idx++ {
		page, err := m.loadPage(snap, idx)
		if err != nil {
			return n, err
		}
		pageStart := int64(idx) * int64(m.pageSize)
		from := int64(0)
		if off > pageStart {
			from = off - pageStart
		}
		n += copy(p[n:want], page[from:])
	}
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

// mutate applies fn to the part of every page inside [off, off+n) and commits
// all pages in one batch. src is the window's offset relative to off. When fn
// returns true for a page it covers entirely, the page key is deleted.
func (m *Medium) mutate(off, n int64, fn func(window []byte, src int64) (drop bool)) error {
	if off < 0 || n < 0 || off+n > m.size {
		return io.ErrShortWrite
	}
	if n == 0 {
		return nil
	}
	b := m.db.NewBatch()
	defer b.Close()

	first, last := m.pageRange(off, n)
	for idx := first; idx <= last; idx++ {
		pageStart := int64(idx) * int64(m.pageSize)
		lo := max(off, pageStart) - pageStart
		hi := min(off+n, pageStart+int64(m.pageSize)) - pageStart
		full := lo == 0 && hi == int64(m.pageSize)

		var page []byte
		if full {
			page = make([]byte, m.pageSize)
		} else {
			var err error
			if page, err = m.loadPage(m.db.inner, idx); err != nil {
				return err
			}
		}
		if fn(page[lo:hi], pageStart+lo-off) && full {
			if err := b.Delete(m.pageKey(idx), nil); err != nil {
				return err
			}
			continue
		}
		if err := b.Set(m.pageKey(idx), page, nil); err != nil {
			return err
		}
	}
	return m.db.CommitBatch(context.Background(), b)
}

func (m *Medium) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errMediumClosed
	}
	err := m.mutate(off, int64(len(p)), func(window []byte, src int64) bool {
		copy(window, p[src:])
		return false
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// Erase deletes whole pages and fills partial ones with the erased byte.
func (m *Medium) Erase(off, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errMediumClosed
	}
	return m.mutate(off, n, func(window []byte, _ int64) bool {
		for i := range window {
			window[i] = erasedByte
		}
		return true
	})
}

func (m *Medium) Size() int64 { return m.size }

func (m *Medium) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errMediumClosed
	}
	return m.db.Sync()
}

// Close detaches the medium. The shared DB stays open.
func (m *Medium) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
