// Package counters persists the firmware update counters next to the log
// state in Pebble.
package counters

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	pebblestore "github.com/rzbill/flashlog/internal/storage/pebble"
	logpkg "github.com/rzbill/flashlog/pkg/log"
)

// Counter holds the update counters. Update is the counter of the image
// being installed, Current the one running.
type Counter struct {
	Update  uint32 `json:"update"`
	Current uint32 `json:"current"`
}

// Kind selects a field of Counter.
type Kind int

const (
	KindUpdate Kind = iota
	KindCurrent
)

func (k Kind) String() string {
	if k == KindUpdate {
		return "update"
	}
	return "current"
}

// ParseKind maps "update" or "current" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "update":
		return KindUpdate, nil
	case "current":
		return KindCurrent, nil
	}
	return 0, fmt.Errorf("counters: unknown counter %q", s)
}

var counterKey = []byte("fota/counter")

// Store caches the counter and writes every change through to Pebble.
type Store struct {
	db     *pebblestore.DB
	logger logpkg.Logger

	mu  sync.Mutex
	cur Counter
}

// Open loads the persisted counter. A missing value starts at zero; an
// unreadable one is reset to zero.
func Open(db *pebblestore.DB, logger logpkg.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("counters: nil db")
	}
	if logger == nil {
		logger = logpkg.NewNop()
	}
	s := &Store{db: db, logger: logger.With(logpkg.Component("counters"))}

	b, err := db.Get(counterKey)
	switch {
	case errors.Is(err, pebblestore.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("counters: load: %w", err)
	default:
		if err := json.Unmarshal(b, &s.cur); err != nil {
			s.logger.Error("unable to read update counter, resetting", logpkg.Err(err))
			s.cur = Counter{}
		}
	}
	return s, nil
}

// Read returns the current counter.
func (s *Store) Read() Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Set updates one field and persists the whole counter. On failure the
// cached value is left unchanged.
func (s *Store) Set(kind Kind, value uint32) (Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cur
	if kind == KindUpdate {
		next.Update = value
	} else {
		next.Current = value
	}
	b, err := json.Marshal(next)
	if err != nil {
		return s.cur, err
	}
	if err := s.db.Set(counterKey, b); err != nil {
		return s.cur, fmt.Errorf("counters: save: %w", err)
	}
	s.cur = next
	s.logger.Debug("counter updated", logpkg.Str("kind", kind.String()), logpkg.Int64("value", int64(value)))
	return next, nil
}
