package controllers

// Common request/response types for HTTP controllers

// appendReq is the body of POST /v1/log.
type appendReq struct {
	Message string `json:"message"`
}

// appendResp reports the sequence assigned to an appended line. Stored is
// false when logging is disabled.
type appendResp struct {
	Seq    uint64 `json:"seq"`
	Stored bool   `json:"stored"`
}

// enabledReq is the body of PUT /v1/log/enabled.
type enabledReq struct {
	Enabled *bool `json:"enabled"`
}

// counterReq is the body of PUT /v1/counters.
type counterReq struct {
	Kind  string  `json:"kind"`
	Value *uint32 `json:"value"`
}

// followEvent is one SSE data frame of GET /v1/log/follow.
type followEvent struct {
	Reader  string `json:"reader"`
	Text    string `json:"text"`
	Records int    `json:"records"`
	LastSeq uint64 `json:"lastSeq"`
}
