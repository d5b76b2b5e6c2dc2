package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays FLASHLOG_* environment variables onto cfg. Malformed
// numbers and booleans are ignored.
func FromEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("FLASHLOG_DATA_DIR", &cfg.DataDir)

	str("FLASHLOG_STORAGE_BACKEND", &cfg.Storage.Backend)
	num("FLASHLOG_SEGMENT_SIZE", &cfg.Storage.SegmentSize)
	num("FLASHLOG_SEGMENT_COUNT", &cfg.Storage.SegmentCount)
	num("FLASHLOG_WRITE_ALIGN", &cfg.Storage.WriteAlign)
	str("FLASHLOG_IMAGE", &cfg.Storage.Image)
	str("FLASHLOG_FSYNC", &cfg.Storage.Fsync)
	num("FLASHLOG_FSYNC_INTERVAL_MS", &cfg.Storage.FsyncIntervalMs)

	flag("FLASHLOG_ENABLED", &cfg.Log.Enabled)
	num("FLASHLOG_READ_BUFFER_SIZE", &cfg.Log.ReadBufferSize)
	flag("FLASHLOG_EMPTY_PLACEHOLDER", &cfg.Log.EmptyPlaceholder)
	num("FLASHLOG_MAX_READERS", &cfg.Log.MaxReaders)
	num("FLASHLOG_PRODUCER_QUEUE", &cfg.Log.ProducerQueue)
	flag("FLASHLOG_ECHO", &cfg.Log.Echo)

	str("FLASHLOG_HTTP_ADDR", &cfg.Server.HTTPAddr)
	str("FLASHLOG_GRPC_ADDR", &cfg.Server.GRPCAddr)
	flag("FLASHLOG_METRICS", &cfg.Server.Metrics)
	if v := os.Getenv("FLASHLOG_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, p)
			}
		}
	}

	str("FLASHLOG_LOG_LEVEL", &cfg.Logging.Level)
	str("FLASHLOG_LOG_FORMAT", &cfg.Logging.Format)
}
