package flash

import "fmt"

// ErasedByte is the value erased storage reads back as.
const ErasedByte = 0xFF

// Addr is a byte address inside the region.
type Addr uint32

// Geometry describes the layout of the region.
type Geometry struct {
	// SegmentSize is the size of one erase unit in bytes.
	SegmentSize int `json:"segmentSize" yaml:"segmentSize"`
	// SegmentCount is the number of segments; fixed for the life of the region.
	SegmentCount int `json:"segmentCount" yaml:"segmentCount"`
	// WriteAlign is the minimum write granularity in bytes.
	WriteAlign int `json:"writeAlign" yaml:"writeAlign"`
}

// Validate checks the geometry is usable.
func (g Geometry) Validate() error {
	switch {
	case g.SegmentSize <= 0:
		return fmt.Errorf("flash: segment size must be positive, got %d", g.SegmentSize)
	case g.SegmentCount <= 0:
		return fmt.Errorf("flash: segment count must be positive, got %d", g.SegmentCount)
	case g.WriteAlign <= 0:
		return fmt.Errorf("flash: write alignment must be positive, got %d", g.WriteAlign)
	case g.SegmentSize%g.WriteAlign != 0:
		return fmt.Errorf("flash: segment size %d is not a multiple of write alignment %d", g.SegmentSize, g.WriteAlign)
	case int64(g.SegmentSize)*int64(g.SegmentCount) > 1<<32-1:
		return fmt.Errorf("flash: region of %d x %d bytes exceeds the address space", g.SegmentCount, g.SegmentSize)
	}
	return nil
}

// Size returns the region size in bytes.
func (g Geometry) Size() int64 { return int64(g.SegmentSize) * int64(g.SegmentCount) }

// SegmentOffset returns the start address of segment i.
func (g Geometry) SegmentOffset(i int) Addr { return Addr(i * g.SegmentSize) }

// SegmentOf returns the segment containing addr.
func (g Geometry) SegmentOf(addr Addr) int { return int(addr) / g.SegmentSize }

// AlignUp rounds n up to the write granularity.
func (g Geometry) AlignUp(n int) int {
	return (n + g.WriteAlign - 1) / g.WriteAlign * g.WriteAlign
}

// Aligned reports whether n is a multiple of the write granularity.
func (g Geometry) Aligned(n int) bool { return n%g.WriteAlign == 0 }
