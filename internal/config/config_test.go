package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Fatalf("default backend = %q", cfg.Storage.Backend)
	}
	if !cfg.Log.Enabled || !cfg.Log.EmptyPlaceholder {
		t.Fatalf("log should default to enabled with the empty placeholder")
	}
	if cfg.Log.ReadBufferSize != 1024 {
		t.Fatalf("read buffer default = %d", cfg.Log.ReadBufferSize)
	}
	if g := cfg.Geometry(); g.SegmentSize != 4096 || g.SegmentCount != 8 || g.WriteAlign != 4 {
		t.Fatalf("geometry default = %+v", g)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "flashlog.json")
	data := []byte(`{"storage":{"backend":"pebble","segmentSize":1024},"log":{"enabled":false}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendPebble || cfg.Storage.SegmentSize != 1024 {
		t.Fatalf("storage not loaded: %+v", cfg.Storage)
	}
	if cfg.Storage.SegmentCount != 8 {
		t.Fatalf("unset fields should keep defaults, got %d", cfg.Storage.SegmentCount)
	}
	if cfg.Log.Enabled {
		t.Fatalf("expected log disabled")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "flashlog.yaml")
	data := []byte(`
storage:
  backend: memory
  segmentCount: 3
  writeAlign: 16
server:
  httpAddr: "127.0.0.1:9000"
  corsOrigins: ["http://localhost:3000"]
logging:
  level: debug
  format: json
`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendMemory || cfg.Storage.SegmentCount != 3 || cfg.Storage.WriteAlign != 16 {
		t.Fatalf("storage not loaded: %+v", cfg.Storage)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:9000" || len(cfg.Server.CORSOrigins) != 1 {
		t.Fatalf("server not loaded: %+v", cfg.Server)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not loaded: %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(file, []byte("storage: [unclosed"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(file); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown backend":  func(c *Config) { c.Storage.Backend = "nand" },
		"bad geometry":     func(c *Config) { c.Storage.SegmentSize = 100; c.Storage.WriteAlign = 16 },
		"missing image":    func(c *Config) { c.Storage.Image = "" },
		"bad fsync":        func(c *Config) { c.Storage.Fsync = "sometimes" },
		"zero read buffer": func(c *Config) { c.Log.ReadBufferSize = 0 },
		"zero max readers": func(c *Config) { c.Log.MaxReaders = 0 },
		"bad log level":    func(c *Config) { c.Logging.Level = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("FLASHLOG_STORAGE_BACKEND", "pebble")
	t.Setenv("FLASHLOG_SEGMENT_COUNT", "16")
	t.Setenv("FLASHLOG_ENABLED", "false")
	t.Setenv("FLASHLOG_HTTP_ADDR", ":9090")
	t.Setenv("FLASHLOG_CORS_ORIGINS", "http://a, http://b ,")
	t.Setenv("FLASHLOG_WRITE_ALIGN", "not-a-number")
	FromEnv(&cfg)
	if cfg.Storage.Backend != "pebble" {
		t.Fatalf("env override backend")
	}
	if cfg.Storage.SegmentCount != 16 {
		t.Fatalf("env override segment count")
	}
	if cfg.Log.Enabled {
		t.Fatalf("env override bool")
	}
	if cfg.Server.HTTPAddr != ":9090" {
		t.Fatalf("env override http addr")
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b" {
		t.Fatalf("env override cors: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Storage.WriteAlign != 4 {
		t.Fatalf("malformed numbers must be ignored")
	}
}
