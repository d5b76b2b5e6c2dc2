// Package flashtest provides media for exercising failure paths.
package flashtest

import (
	"errors"
	"sync"

	"github.com/rzbill/flashlog/internal/storage/flash"
)

// ErrInjected is the error returned by injected faults.
var ErrInjected = errors.New("flashtest: injected fault")

// Faulty wraps a medium and fails selected operations on demand.
type Faulty struct {
	flash.Medium

	mu          sync.Mutex
	failWrites  int
	failErases  int
	eraseFilter func(off int64) bool
	writes      int
	erases      int
}

// NewFaulty wraps m. With no faults armed it behaves exactly like m.
func NewFaulty(m flash.Medium) *Faulty { return &Faulty{Medium: m} }

// FailWrites makes the next n writes fail.
func (f *Faulty) FailWrites(n int) {
	f.mu.Lock()
	f.failWrites = n
	f.mu.Unlock()
}

// FailErases makes the next n erases fail.
func (f *Faulty) FailErases(n int) {
	f.mu.Lock()
	f.failErases = n
	f.mu.Unlock()
}

// FailErasesAt makes every erase starting at an offset matching match fail
// until cleared with a nil match.
func (f *Faulty) FailErasesAt(match func(off int64) bool) {
	f.mu.Lock()
	f.eraseFilter = match
	f.mu.Unlock()
}

// Counts returns the number of attempted writes and erases.
func (f *Faulty) Counts() (writes, erases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes, f.erases
}

func (f *Faulty) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	f.writes++
	if f.failWrites > 0 {
		f.failWrites--
		f.mu.Unlock()
		return 0, ErrInjected
	}
	f.mu.Unlock()
	return f.Medium.WriteAt(p, off)
}

func (f *Faulty) Erase(off, n int64) error {
	f.mu.Lock()
	f.erases++
	if f.failErases > 0 {
		f.failErases--
		f.mu.Unlock()
		return ErrInjected
	}
	if f.eraseFilter != nil && f.eraseFilter(off) {
		f.mu.Unlock()
		return ErrInjected
	}
	f.mu.Unlock()
	return f.Medium.Erase(off, n)
}
