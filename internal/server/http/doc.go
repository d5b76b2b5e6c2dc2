// Package httpserver provides the REST management surface for the system
// log: full and incremental reads, append, enable/disable, reset, status,
// an SSE follow stream, the update counters and Prometheus metrics.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
