package pebblestore

import (
	"bytes"
	"testing"
)

func newTestMedium(t *testing.T, size int64, page int) (*Medium, *DB) {
	t.Helper()
	db, _ := newTestDB(t)
	m, err := NewMedium(db, "test", size, page)
	if err != nil {
		t.Fatalf("new medium: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, db
}

func TestMediumStartsErased(t *testing.T) {
	m, _ := newTestMedium(t, 100, 32)
	buf := make([]byte, 100)
	if _, err := m.ReadAt(buf, 0); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(buf, bytes.Repeat([]byte{0xFF}, 100)) {
		t.Fatalf("fresh medium not erased: %x", buf)
	}
}

func TestMediumWriteSpansPages(t *testing.T) {
	m, _ := newTestMedium(t, 128, 32)
	data := bytes.Repeat([]byte{0x42}, 48)
	if _, err := m.WriteAt(data, 24); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 80)
	if _, err := m.ReadAt(buf, 16); err != nil {
		t.Fatalf("read: %v", err)
	}
	want := append(bytes.Repeat([]byte{0xFF}, 8), data...)
	want = append(want, bytes.Repeat([]byte{0xFF}, 24)...)
	if !bytes.Equal(buf, want) {
		t.Fatalf("got %x\nwant %x", buf, want)
	}
}

func TestMediumErase(t *testing.T) {
	m, db := newTestMedium(t, 128, 32)
	if _, err := m.WriteAt(bytes.Repeat([]byte{0x01}, 128), 0); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Erase the middle: one partial page, one full page, one partial page.
	if err := m.Erase(16, 64); err != nil {
		t.Fatalf("erase: %v", err)
	}
	buf := make([]byte, 128)
	if _, err := m.ReadAt(buf, 0); err != nil {
		t.Fatalf("read: %v", err)
	}
	for i, b := range buf {
		erased := i >= 16 && i < 80
		if erased && b != 0xFF || !erased && b != 0x01 {
			t.Fatalf("byte %d = %#x, erased=%v", i, b, erased)
		}
	}
	// The fully covered page is deleted rather than stored as 0xFF.
	if _, err := db.Get(m.pageKey(1)); err == nil {
		t.Fatalf("expected page 1 key to be deleted")
	}
}

func TestMediumPersistsAcrossHandles(t *testing.T) {
	m, db := newTestMedium(t, 64, 16)
	if _, err := m.WriteAt([]byte("hello, pebble!!!"), 16); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	_ = m.Close()

	again, err := NewMedium(db, "test", 64, 16)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	buf := make([]byte, 16)
	if _, err := again.ReadAt(buf, 16); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "hello, pebble!!!" {
		t.Fatalf("got %q", buf)
	}

	other, _ := NewMedium(db, "other", 64, 16)
	if _, err := other.ReadAt(buf, 16); err != nil {
		t.Fatalf("read other: %v", err)
	}
	if buf[0] != 0xFF {
		t.Fatalf("regions with different names must not share pages")
	}
}

func TestMediumBounds(t *testing.T) {
	m, _ := newTestMedium(t, 64, 16)
	if _, err := m.WriteAt(make([]byte, 16), 56); err == nil {
		t.Fatalf("expected write past end to fail")
	}
	if err := m.Erase(60, 8); err == nil {
		t.Fatalf("expected erase past end to fail")
	}
	_ = m.Close()
	if _, err := m.WriteAt(make([]byte, 1), 0); err == nil {
		t.Fatalf("expected write after close to fail")
	}
}
