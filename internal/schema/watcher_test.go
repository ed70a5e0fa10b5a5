package schema

import (
	"testing"
	"time"
)

func TestWatcher_InvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeSchemaFile(t, dir, "a.schema.json", `{"type": "string"}`)

	c := NewCache(nil)
	if _, err := c.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}

	w, err := NewWatcher(c)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		t.Fatalf("Add: %v", err)
	}

	writeSchemaFile(t, dir, "a.schema.json", `{"type": "number"}`)

	select {
	case got := <-w.Invalidations():
		if got != path {
			t.Fatalf("invalidated %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no invalidation within 5s")
	}
	if c.Len() != 0 {
		t.Fatalf("cache entry survived the write")
	}

	s, err := c.Load(path)
	if err != nil {
		t.Fatalf("Load after invalidation: %v", err)
	}
	if s.Root.Kind != Number {
		t.Fatalf("reload saw %v, want number", s.Root.Kind)
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(NewCache(nil))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
