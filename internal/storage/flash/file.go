package flash

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// File is a memory-mapped image file medium. A newly created image is
// filled with ErasedByte. The file is locked exclusively while open.
type File struct {
	mu     sync.RWMutex
	file   *os.File
	mapped mmap.MMap
	closed bool
}

var errFileClosed = errors.New("flash: image file closed")

// OpenFile opens or creates the image at path. An existing image must be
// exactly size bytes.
func OpenFile(path string, size int64) (*File, error) {
	if size <= 0 {
		return nil, fmt.Errorf("flash: image size must be positive, got %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("flash: open image: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flash: lock image %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flash: stat image: %w", err)
	}
	fresh := st.Size() == 0
	switch {
	case fresh:
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("flash: size image: %w", err)
		}
	case st.Size() != size:
		_ = f.Close()
		return nil, fmt.Errorf("flash: image %s is %d bytes, expected %d", path, st.Size(), size)
	}

	mapped, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flash: map image: %w", err)
	}
	if fresh {
		fill(mapped, ErasedByte)
		if err := mapped.Flush(); err != nil {
			_ = mapped.Unmap()
			_ = f.Close()
			return nil, fmt.Errorf("flash: flush image: %w", err)
		}
	}
	return &File{file: f, mapped: mapped}, nil
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0, errFileClosed
	}
	if off < 0 || off >= int64(len(f.mapped)) {
		return 0, io.EOF
	}
	n := copy(p, f.mapped[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errFileClosed
	}
	if off < 0 || off+int64(len(p)) > int64(len(f.mapped)) {
		return 0, io.ErrShortWrite
	}
	return copy(f.mapped[off:], p), nil
}

func (f *File) Erase(off, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errFileClosed
	}
	if off < 0 || off+n > int64(len(f.mapped)) {
		return io.ErrShortWrite
	}
	fill(f.mapped[off:off+n], ErasedByte)
	return nil
}

func (f *File) Size() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.mapped))
}

// Sync flushes the mapping to the file.
func (f *File) Sync() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return errFileClosed
	}
	return f.mapped.Flush()
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	var errs []error
	if err := f.mapped.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := f.mapped.Unmap(); err != nil {
		errs = append(errs, err)
	}
	if err := f.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
