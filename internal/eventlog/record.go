package eventlog

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// Segment header: magic u32 | version u8 | reserved[3] | firstSeq u64.
const (
	segmentMagic   uint32 = 0x464c4f47 // "FLOG"
	segmentVersion byte   = 1
	segmentHdrLen         = 16
)

// Record frame: crc32c u32 | length u16 | data[length], zero padded.
// The CRC covers the length bytes and data. length includes the NUL.
const (
	frameHdrLen = 6
	maxFrameLen = 1<<16 - 1
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type segmentHeader struct {
	FirstSeq uint64
}

func encodeSegmentHeader(h segmentHeader, size int) []byte {
	out := make([]byte, size)
	binary.BigEndian.PutUint32(out[0:4], segmentMagic)
	out[4] = segmentVersion
	binary.BigEndian.PutUint64(out[8:16], h.FirstSeq)
	return out
}

func decodeSegmentHeader(b []byte) (segmentHeader, bool) {
	if len(b) < segmentHdrLen {
		return segmentHeader{}, false
	}
	if binary.BigEndian.Uint32(b[0:4]) != segmentMagic || b[4] != segmentVersion {
		return segmentHeader{}, false
	}
	return segmentHeader{FirstSeq: binary.BigEndian.Uint64(b[8:16])}, true
}

// encodeFrame frames line plus a NUL terminator into size bytes.
func encodeFrame(line []byte, size int) []byte {
	out := make([]byte, size)
	n := len(line) + 1
	binary.BigEndian.PutUint16(out[4:6], uint16(n))
	copy(out[frameHdrLen:], line)
	crc := crc32.Checksum(out[4:frameHdrLen+n], castagnoli)
	binary.BigEndian.PutUint32(out[0:4], crc)
	return out
}

type frameStatus int

const (
	frameOK frameStatus = iota
	frameErased
	frameCorrupt
)

// decodeFrame parses the frame at the start of b. It returns the payload
// trimmed at the first NUL and the unpadded frame length.
func decodeFrame(b []byte) (text []byte, n int, st frameStatus) {
	if len(b) < frameHdrLen {
		return nil, 0, frameErased
	}
	if isErased(b[:frameHdrLen]) {
		return nil, 0, frameErased
	}
	length := int(binary.BigEndian.Uint16(b[4:6]))
	if length == 0 || frameHdrLen+length > len(b) {
		return nil, 0, frameCorrupt
	}
	if crc32.Checksum(b[4:frameHdrLen+length], castagnoli) != binary.BigEndian.Uint32(b[0:4]) {
		return nil, 0, frameCorrupt
	}
	data := b[frameHdrLen : frameHdrLen+length]
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return data, frameHdrLen + length, frameOK
}

func isErased(b []byte) bool {
	for _, c := range b {
		if c != 0xFF {
			return false
		}
	}
	return true
}
