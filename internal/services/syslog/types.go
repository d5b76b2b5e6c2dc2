package syslogsvc

import (
	"errors"

	"github.com/rzbill/flashlog/internal/eventlog"
)

var (
	// ErrInvalidFilter reports a filter expression that does not compile to a boolean.
	ErrInvalidFilter = errors.New("syslog: invalid filter")
	// ErrInvalidReader reports an empty or oversized reader name.
	ErrInvalidReader = errors.New("syslog: invalid reader name")
)

// ReadResult is the text gathered by one read.
type ReadResult struct {
	// Data holds the newest records that fit the read buffer, in log order.
	Data []byte `json:"data"`
	// Empty is true when no record matched. Data then holds the empty
	// placeholder, if one is configured.
	Empty bool `json:"empty"`
	// Records counts matched records, including ones evicted from Data.
	Records int `json:"records"`
	// Evictions counts buffer halvings caused by overflow.
	Evictions int    `json:"evictions"`
	LastSeq   uint64 `json:"lastSeq"`
}

// Status extends the log statistics with service state.
type Status struct {
	eventlog.Stats
	// Changed reports whether the log was written, reset or erased since
	// the previous Status call.
	Changed         bool   `json:"changed"`
	Readers         int    `json:"readers"`
	ProducerDrops   uint64 `json:"producerDrops"`
	ProducerPending int    `json:"producerPending"`
}
