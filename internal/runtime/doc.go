// Package runtime wires the Pebble state store, the log region, the
// system log and the update counters into a single-node flashlog instance.
//
// Example:
//
//	cfg := config.Default()
//	cfg.DataDir = "./data"
//	rt, _ := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	_, _ = rt.Log().Print(context.Background(), "hello")
//	rt.Producer().TryPrint("from a callback")
package runtime
