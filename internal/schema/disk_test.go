package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestDiskCache_RoundTrip(t *testing.T) {
	s, err := Parse([]byte(invoiceJSON), FormatJSON, OriginSidecar, "invoice.json.schema.json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	disk := OpenDiskCacheAt(t.TempDir())
	if err := disk.Put(s); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, hit, err := disk.Get(s.Fingerprint)
	if err != nil || !hit {
		t.Fatalf("Get: hit=%v err=%v", hit, err)
	}
	if got.Origin != OriginSidecar || got.Path != "invoice.json.schema.json" {
		t.Fatalf("metadata = %v %q", got.Origin, got.Path)
	}

	// The round trip must keep field order, references, and constraints,
	// including the compiled pattern and enum value types.
	checkInvoiceSchema(t, got)
}

func TestDiskCache_Miss(t *testing.T) {
	disk := OpenDiskCacheAt(t.TempDir())
	if _, hit, err := disk.Get("0000"); hit || err != nil {
		t.Fatalf("empty store: hit=%v err=%v", hit, err)
	}
}

func TestDiskCache_VersionSkew(t *testing.T) {
	disk := OpenDiskCacheAt(t.TempDir())
	payload := diskPayload{
		Version:     diskVersion + 1,
		Fingerprint: "feed",
		Root:        &Type{Kind: String},
	}
	path := disk.pathFor("feed")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := msgpack.Marshal(&payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, hit, err := disk.Get("feed"); hit || err != nil {
		t.Fatalf("version skew must read as a miss: hit=%v err=%v", hit, err)
	}
}

func TestDiskCache_CorruptEntryDropped(t *testing.T) {
	disk := OpenDiskCacheAt(t.TempDir())
	path := disk.pathFor("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("not msgpack"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, hit, err := disk.Get("bad"); hit || err != nil {
		t.Fatalf("corrupt entry: hit=%v err=%v", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("corrupt entry should be removed, stat err = %v", err)
	}
}

func TestDiskCache_DropAll(t *testing.T) {
	s, err := Parse([]byte(`{"type": "string"}`), FormatJSON, OriginWorkspace, "a.json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	disk := OpenDiskCacheAt(t.TempDir())
	if err := disk.Put(s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := disk.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, hit, err := disk.Get(s.Fingerprint); hit || err != nil {
		t.Fatalf("entry survived DropAll: hit=%v err=%v", hit, err)
	}
	// Dropping an already-empty store is fine.
	if err := disk.DropAll(); err != nil {
		t.Fatalf("second DropAll: %v", err)
	}
}

func TestDiskCache_NilReceiver(t *testing.T) {
	var disk *DiskCache
	if err := disk.Put(&Schema{Fingerprint: "x"}); err != nil {
		t.Fatalf("nil Put: %v", err)
	}
	if _, hit, err := disk.Get("x"); hit || err != nil {
		t.Fatalf("nil Get: hit=%v err=%v", hit, err)
	}
	if err := disk.DropAll(); err != nil {
		t.Fatalf("nil DropAll: %v", err)
	}
}
