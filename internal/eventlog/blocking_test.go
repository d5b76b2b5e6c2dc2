package eventlog

import (
	"context"
	"testing"
	"time"
)

func TestAppendWakesNotify(t *testing.T) {
	f := newFixture(t, roomy, Options{})
	l := f.log

	ch := l.AppendNotify()
	select {
	case <-ch:
		t.Fatalf("woken before any append")
	default:
	}
	if _, err := l.Append(context.Background(), []byte("x")); err != nil {
		t.Fatalf("append: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for waiter to wake")
	}
	if next := l.AppendNotify(); next == ch {
		t.Fatalf("notify channel not replaced after append")
	}
}

func TestDisabledAppendDoesNotNotify(t *testing.T) {
	f := newFixture(t, roomy, Options{Disabled: true})
	ch := f.log.AppendNotify()
	if _, err := f.log.Append(context.Background(), []byte("x")); err != nil {
		t.Fatalf("append: %v", err)
	}
	select {
	case <-ch:
		t.Fatalf("disabled append must not wake waiters")
	default:
	}
}

func TestCloseWakesWaiters(t *testing.T) {
	f := newFixture(t, roomy, Options{})
	ch := f.log.AppendNotify()
	_ = f.log.Close()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("close did not wake waiters")
	}
}
