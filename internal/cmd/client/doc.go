// Package client provides the `flashlog` command-line client.
//
// The CLI talks to the flashlog HTTP and gRPC endpoints to inspect and
// manage the system log from a terminal, like the device shell commands
// it replaces.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. The standalone binary reads FLASHLOG_HTTP
// and defaults to http://127.0.0.1:8080. The gRPC address is read from
// FLASHLOG_GRPC (default 127.0.0.1:50051).
//
// Usage
//
//	flashlog log read
//	flashlog log read --raw --filter 'text.contains("error")'
//	flashlog log read-new --reader shell
//	flashlog log append "disk mounted"
//	flashlog log enable
//	flashlog log disable
//	flashlog log reset --confirm
//	flashlog log status
//	flashlog log follow --reader tail --limit 10
//
//	flashlog counter get
//	flashlog counter set update 3
//
//	flashlog health
//
// Notes
//
//   - read prints each record as "> line", streamed by the server. With
//     --raw it prints the server read buffer, which keeps the newest
//     records when the log is larger than the buffer.
//   - read-new prints nothing when there is nothing new. Without --reader
//     the server assigns a reader name, printed on stderr.
package client
