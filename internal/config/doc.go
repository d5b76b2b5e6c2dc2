// Package config loads flashlog's configuration: built-in defaults, an
// optional JSON or YAML file, then FLASHLOG_* environment overrides.
//
// Example:
//
//	cfg, err := config.Load("/etc/flashlog.yaml")
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* handle */ }
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
