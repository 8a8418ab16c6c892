package ledger

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"levelgen/internal/level"
)

func sampleSums(base int) level.Checksums {
	sums := make(level.Checksums)
	for _, s := range level.Stages() {
		sums[s] = base + int(s)*31
	}
	return sums
}

func TestDiskStorePersistsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger", "checksums.bin")

	store, err := OpenDiskStore(path)
	if err != nil {
		t.Fatalf("OpenDiskStore: %v", err)
	}
	a := Key{Seed: "alpha", Fingerprint: "f1"}
	b := Key{Seed: "beta", Fingerprint: "f1", Mirror: true}
	if err := store.Save(a, sampleSums(1)); err != nil {
		t.Fatalf("Save a: %v", err)
	}
	if err := store.Save(b, sampleSums(2)); err != nil {
		t.Fatalf("Save b: %v", err)
	}
	if err := store.Save(a, sampleSums(3)); err != nil {
		t.Fatalf("Save a again: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenDiskStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Load(a)
	if err != nil || !ok {
		t.Fatalf("Load a: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, sampleSums(3)) {
		t.Fatalf("expected latest record for a, got %v", got)
	}
	got, ok, err = reopened.Load(b)
	if err != nil || !ok {
		t.Fatalf("Load b: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, sampleSums(2)) {
		t.Fatalf("record b mismatch: %v", got)
	}
	if _, ok, _ := reopened.Load(Key{Seed: "alpha", Fingerprint: "f1", Mirror: true}); ok {
		t.Fatalf("mirror flag must be part of the key")
	}
}

func TestDiskStoreDeleteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checksums.bin")
	store, err := OpenDiskStore(path)
	if err != nil {
		t.Fatalf("OpenDiskStore: %v", err)
	}
	key := Key{Seed: "gone"}
	if err := store.Save(key, sampleSums(0)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	store.Close()

	reopened, err := OpenDiskStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, err := reopened.Load(key); ok || err != nil {
		t.Fatalf("expected deleted key to stay deleted, ok=%v err=%v", ok, err)
	}
}

func TestDiskStoreRejectsTruncatedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checksums.bin")
	store, err := OpenDiskStore(path)
	if err != nil {
		t.Fatalf("OpenDiskStore: %v", err)
	}
	if err := store.Save(Key{Seed: "x"}, sampleSums(0)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store.Close()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.Write([]byte{diskOpSet, 1, 0}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	if _, err := OpenDiskStore(path); err == nil {
		t.Fatalf("expected truncated header to fail")
	}
}

func TestDiskStoreForEachOrdersBySeed(t *testing.T) {
	store, err := OpenDiskStore(filepath.Join(t.TempDir(), "checksums.bin"))
	if err != nil {
		t.Fatalf("OpenDiskStore: %v", err)
	}
	defer store.Close()

	for i, seed := range []string{"c", "a", "b"} {
		if err := store.Save(Key{Seed: seed}, sampleSums(i)); err != nil {
			t.Fatalf("Save %s: %v", seed, err)
		}
	}
	var seeds []string
	if err := store.ForEach(func(key Key, _ level.Checksums) bool {
		seeds = append(seeds, key.Seed)
		return len(seeds) < 2
	}); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if !reflect.DeepEqual(seeds, []string{"a", "b"}) {
		t.Fatalf("unexpected order %v", seeds)
	}
}

func TestDiskStoreClosed(t *testing.T) {
	store, err := OpenDiskStore(filepath.Join(t.TempDir(), "checksums.bin"))
	if err != nil {
		t.Fatalf("OpenDiskStore: %v", err)
	}
	store.Close()
	if err := store.Save(Key{Seed: "late"}, sampleSums(0)); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
