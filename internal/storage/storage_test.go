package storage

import (
	"bytes"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local: %v", err)
	}

	path, err := l.Write([]byte("hello"), "txt")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !l.Exists(path) {
		t.Fatalf("exists = false after write")
	}

	data, err := l.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Fatalf("read back %q", data)
	}

	if err := l.Delete(path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if l.Exists(path) {
		t.Fatalf("exists = true after delete")
	}
	// deleting again is not an error
	if err := l.Delete(path); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestLocalWriteUniquePaths(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	a, err := l.Write([]byte("a"), "png")
	if err != nil {
		t.Fatalf("write a: %v", err)
	}
	b, err := l.Write([]byte("b"), "png")
	if err != nil {
		t.Fatalf("write b: %v", err)
	}
	if a == b {
		t.Fatalf("paths collide: %s", a)
	}
}
