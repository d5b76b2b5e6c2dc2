package flash

import "errors"

var (
	// ErrAlignmentViolation is returned when a write address or length is not
	// a multiple of the write granularity.
	ErrAlignmentViolation = errors.New("flash: write not aligned to granularity")
	// ErrStorageFault wraps any I/O failure reported by the medium.
	ErrStorageFault = errors.New("flash: storage fault")
	// ErrOutOfRange is returned for addresses or segments outside the region.
	ErrOutOfRange = errors.New("flash: address out of range")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("flash: store closed")
)
