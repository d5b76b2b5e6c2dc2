package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/flashlog/internal/cmd/client"
	serverrun "github.com/rzbill/flashlog/internal/cmd/server"
	cfgpkg "github.com/rzbill/flashlog/internal/config"
	pebblestore "github.com/rzbill/flashlog/internal/storage/pebble"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

func main() {
	// Respect FLASHLOG_LOG_LEVEL for CLI output
	level := os.Getenv("FLASHLOG_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	rootCmd := clientcmd.NewRoot(apiURL)
	rootCmd.Short = "flashlog system log CLI"
	rootCmd.Long = "flashlog keeps a wraparound system log on erase-segmented storage. This CLI runs the server and manages the log."
	rootCmd.SilenceUsage = true

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start flashlog server (gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := serverConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				logger.Error("server failed", logpkg.Err(err))
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	f := serverStartCmd.Flags()
	f.String("config", os.Getenv("FLASHLOG_CONFIG"), "Config file (.json, .yaml or .yml)")
	f.String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	f.String("backend", "", "Log region backend: file|pebble|memory")
	f.Int("segment-size", 0, "Segment size in bytes")
	f.Int("segment-count", 0, "Number of segments")
	f.Int("write-align", 0, "Write alignment in bytes")
	f.String("grpc", "", "gRPC listen address (default :50051)")
	f.String("http", "", "HTTP listen address (default :8080)")
	f.String("fsync", "", "Fsync mode for the state store: always|interval|never")
	f.Int("fsync-interval-ms", 0, "When --fsync=interval, group-commit window in ms")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: text|json (default text)")
	f.Bool("disabled", false, "Start with the system log disabled")
	f.Bool("echo", false, "Echo every log line to stderr")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serverConfig layers defaults, the config file, FLASHLOG_* variables and
// explicitly set flags, in that order.
func serverConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfg, err
	}
	cfgpkg.FromEnv(&cfg)

	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	str("data-dir", &cfg.DataDir)
	str("backend", &cfg.Storage.Backend)
	num("segment-size", &cfg.Storage.SegmentSize)
	num("segment-count", &cfg.Storage.SegmentCount)
	num("write-align", &cfg.Storage.WriteAlign)
	str("grpc", &cfg.Server.GRPCAddr)
	str("http", &cfg.Server.HTTPAddr)
	str("fsync", &cfg.Storage.Fsync)
	num("fsync-interval-ms", &cfg.Storage.FsyncIntervalMs)
	str("log-level", &cfg.Logging.Level)
	str("log-format", &cfg.Logging.Format)
	if f.Changed("disabled") {
		d, _ := f.GetBool("disabled")
		cfg.Log.Enabled = !d
	}
	if f.Changed("echo") {
		cfg.Log.Echo, _ = f.GetBool("echo")
	}
	if _, err := pebblestore.ParseFsyncMode(cfg.Storage.Fsync); err != nil {
		return cfg, fmt.Errorf("invalid --fsync; use always|interval|never")
	}
	return cfg, cfg.Validate()
}

func apiURL() string {
	if v := os.Getenv("FLASHLOG_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
