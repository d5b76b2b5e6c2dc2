// Package pebblestore wraps Pebble with an fsync policy and metrics hooks,
// and exposes a flash medium stored as fixed-size pages in Pebble.
//
// The DB is shared: the counters store keeps small JSON values in it and a
// Medium keeps one region's pages under its own key prefix.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data/state",
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	m, err := pebblestore.NewMedium(db, "syslog", 32*1024, 256)
//	s, err := flash.NewStore(m, geo, flash.Options{})
package pebblestore
