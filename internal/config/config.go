package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rzbill/flashlog/internal/storage/flash"
	pebblestore "github.com/rzbill/flashlog/internal/storage/pebble"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

// Storage backends for the log region.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir string        `json:"dataDir" yaml:"dataDir"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Logging logpkg.Config `json:"logging" yaml:"logging"`
}

// StorageConfig describes the log region and the Pebble state store.
type StorageConfig struct {
	// Backend is one of "file", "pebble" or "memory".
	Backend      string `json:"backend" yaml:"backend"`
	SegmentSize  int    `json:"segmentSize" yaml:"segmentSize"`
	SegmentCount int    `json:"segmentCount" yaml:"segmentCount"`
	WriteAlign   int    `json:"writeAlign" yaml:"writeAlign"`
	// Image is the flash image file name under DataDir for the file backend.
	Image string `json:"image" yaml:"image"`
	// Fsync is the Pebble WAL policy: "always", "interval" or "never".
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
}

// LogConfig tunes the log and its readers.
type LogConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// ReadBufferSize is the accumulator capacity for one read.
	ReadBufferSize int `json:"readBufferSize" yaml:"readBufferSize"`
	// EmptyPlaceholder makes an empty incremental read return one NUL byte.
	EmptyPlaceholder bool `json:"emptyPlaceholder" yaml:"emptyPlaceholder"`
	// MaxReaders caps the named incremental readers kept in memory. The
	// least recently used reader is forgotten when a new one would exceed it.
	MaxReaders    int `json:"maxReaders" yaml:"maxReaders"`
	ProducerQueue int `json:"producerQueue" yaml:"producerQueue"`
	// Echo copies every printed line to stderr.
	Echo bool `json:"echo" yaml:"echo"`
}

// ServerConfig holds listen addresses.
type ServerConfig struct {
	HTTPAddr    string   `json:"httpAddr" yaml:"httpAddr"`
	GRPCAddr    string   `json:"grpcAddr" yaml:"grpcAddr"`
	Metrics     bool     `json:"metrics" yaml:"metrics"`
	CORSOrigins []string `json:"corsOrigins" yaml:"corsOrigins"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend:      BackendFile,
			SegmentSize:  4096,
			SegmentCount: 8,
			WriteAlign:   4,
			Image:        "syslog.img",
			Fsync:        "always",
		},
		Log: LogConfig{
			Enabled:          true,
			ReadBufferSize:   1024,
			EmptyPlaceholder: true,
			MaxReaders:       64,
			ProducerQueue:    256,
		},
		Server: ServerConfig{
			HTTPAddr: ":8080",
			GRPCAddr: ":50051",
			Metrics:  true,
		},
		Logging: logpkg.Config{Level: "info", Format: "text"},
	}
}

// Geometry returns the configured region layout.
func (c Config) Geometry() flash.Geometry {
	return flash.Geometry{
		SegmentSize:  c.Storage.SegmentSize,
		SegmentCount: c.Storage.SegmentCount,
		WriteAlign:   c.Storage.WriteAlign,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendPebble, BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if err := c.Geometry().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Storage.Backend == BackendFile && c.Storage.Image == "" {
		return errors.New("config: storage.image is required for the file backend")
	}
	if _, err := pebblestore.ParseFsyncMode(c.Storage.Fsync); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Log.ReadBufferSize <= 0 {
		return fmt.Errorf("config: log.readBufferSize must be positive, got %d", c.Log.ReadBufferSize)
	}
	if c.Log.MaxReaders <= 0 {
		return fmt.Errorf("config: log.maxReaders must be positive, got %d", c.Log.MaxReaders)
	}
	if _, err := logpkg.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load reads configuration from a JSON or YAML file (by extension) over
// the defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
