package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/records"
)

func TestRecordsCacheRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := newRecordsCache(dir, "v1")
	if err := c.Load(); err != nil {
		t.Fatalf("load empty cache: %v", err)
	}

	want := cachedResult{
		Records: []records.Record{{Name: "Device type", Index: "1000", Type: "UDINT", BitLength: 32, Access: "ro"}},
		Warnings: []diag.Warning{
			diag.WarnDuplicateEntry("Scratch copy", "2000", 0),
		},
	}
	if err := c.Put("a.xml", "hash-a", want); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := c.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := newRecordsCache(dir, "v1")
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok, err := reloaded.Get("a.xml", "hash-a")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got.Records) != 1 || got.Records[0] != want.Records[0] {
		t.Fatalf("unexpected records %+v", got.Records)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != want.Warnings[0] {
		t.Fatalf("unexpected warnings %+v", got.Warnings)
	}

	if _, ok, _ := reloaded.Get("a.xml", "hash-b"); ok {
		t.Fatalf("changed content hash should miss")
	}
	if _, ok, _ := reloaded.Get("b.xml", "hash-a"); ok {
		t.Fatalf("unknown file should miss")
	}
	other := newRecordsCache(dir, "v2")
	if err := other.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok, _ := other.Get("a.xml", "hash-a"); ok {
		t.Fatalf("tool version change should miss")
	}
}

func TestRecordsCacheResetsOnIndexVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte(`{"version": 99, "entries": {"a.xml": {}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	c := newRecordsCache(dir, "v1")
	if err := c.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.index.Entries) != 0 {
		t.Fatalf("expected a reset index, got %+v", c.index.Entries)
	}
}

func TestResolveCacheDir(t *testing.T) {
	cfg := testConfig(true)
	root := t.TempDir()
	if got := resolveCacheDir(root, cfg); got != filepath.Join(root, ".esi_codegen_cache") {
		t.Fatalf("unexpected cache dir %q", got)
	}
	file := writeInput(t, root, "device.xml", deviceESI)
	if got := resolveCacheDir(file, cfg); got != filepath.Join(root, ".esi_codegen_cache") {
		t.Fatalf("unexpected cache dir for a file root %q", got)
	}
	cfg.Analysis.Cache.Dir = "/abs/cache"
	if got := resolveCacheDir(root, cfg); got != "/abs/cache" {
		t.Fatalf("absolute dir should be kept, got %q", got)
	}
}
