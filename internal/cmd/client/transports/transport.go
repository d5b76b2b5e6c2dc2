package transports

import "context"

// ReadResult is one read of the log as returned by the server.
type ReadResult struct {
	Data []byte
	// Reader is the incremental reader name, assigned by the server when
	// the request did not name one.
	Reader    string
	Empty     bool
	Records   int
	Evictions int
	LastSeq   uint64
}

// Status mirrors GET /v1/log/status.
type Status struct {
	Enabled         bool   `json:"enabled"`
	SegmentCount    int    `json:"segmentCount"`
	SegmentSize     int    `json:"segmentSize"`
	WriteAlign      int    `json:"writeAlign"`
	ActiveSegment   int    `json:"activeSegment"`
	ActiveOffset    int    `json:"activeOffset"`
	Formatted       bool   `json:"formatted"`
	NextSeq         uint64 `json:"nextSeq"`
	OldestSeq       uint64 `json:"oldestSeq"`
	Records         uint64 `json:"records"`
	Appends         uint64 `json:"appends"`
	Rotations       uint64 `json:"rotations"`
	Faults          uint64 `json:"faults"`
	Changed         bool   `json:"changed"`
	Readers         int    `json:"readers"`
	ProducerDrops   uint64 `json:"producerDrops"`
	ProducerPending int    `json:"producerPending"`
}

// Counter mirrors GET /v1/counters.
type Counter struct {
	Update  uint32 `json:"update"`
	Current uint32 `json:"current"`
}

// FollowEvent is one batch of new records pushed by a follow stream.
type FollowEvent struct {
	Reader  string `json:"reader"`
	Text    string `json:"text"`
	Records int    `json:"records"`
	LastSeq uint64 `json:"lastSeq"`
}

// LogTransport abstracts the transport used by the CLI for log operations.
type LogTransport interface {
	ReadAll(ctx context.Context, filter string) (ReadResult, error)
	// Dump streams the shell rendering of the log into fn chunk by chunk.
	Dump(ctx context.Context, filter string, fn func([]byte) error) error
	ReadNew(ctx context.Context, reader, filter string) (ReadResult, error)
	Append(ctx context.Context, msg string) (seq uint64, stored bool, err error)
	SetEnabled(ctx context.Context, enabled bool) error
	Enabled(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
	Status(ctx context.Context) (Status, error)
	Follow(ctx context.Context, reader, filter string, onEvent func(FollowEvent) error) error
	Counters(ctx context.Context) (Counter, error)
	SetCounter(ctx context.Context, kind string, value uint32) (Counter, error)
}
