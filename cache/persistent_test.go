package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

// setupTestCache creates a cache in a temporary directory
func setupTestCache(t *testing.T, opts Options) (*ResponseCache, string) {
	t.Helper()

	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}

	rc, err := Open(opts)
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}
	t.Cleanup(func() { rc.Close() })

	return rc, opts.Dir
}

// storedKeys counts the keys currently persisted in the bucket
func storedKeys(t *testing.T, rc *ResponseCache) int {
	t.Helper()

	count := 0
	err := rc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		count = b.Stats().KeyN
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to read bucket: %v", err)
	}
	return count
}

func TestOpenDefaults(t *testing.T) {
	rc, dir := setupTestCache(t, Options{})

	if rc.db == nil {
		t.Fatal("Expected database to be initialized")
	}
	if rc.expire != DefaultExpireHours*time.Hour {
		t.Errorf("Expected default expiry %v, got %v", DefaultExpireHours*time.Hour, rc.expire)
	}
	if rc.flushEvery != DefaultFlushEvery {
		t.Errorf("Expected default flush cadence %d, got %d", DefaultFlushEvery, rc.flushEvery)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Errorf("Expected database file to be created: %v", err)
	}
}

func TestPutAndGet(t *testing.T) {
	rc, _ := setupTestCache(t, Options{})

	payload := json.RawMessage(`{"items":[{"id":"PL1"}]}`)
	rc.Put("key", payload)

	got, ok := rc.Get("key")
	if !ok {
		t.Fatal("Expected to find the key")
	}
	if string(got) != string(payload) {
		t.Errorf("Expected payload %s, got %s", payload, got)
	}
}

func TestHitMissAccounting(t *testing.T) {
	rc, _ := setupTestCache(t, Options{})

	if s := rc.Stats(); s.HitRate != 0 {
		t.Errorf("Expected hit rate 0 with no lookups, got %v", s.HitRate)
	}

	rc.Put("a", json.RawMessage(`1`))
	rc.Get("a")
	rc.Get("a")
	rc.Get("a")
	rc.Get("missing")

	s := rc.Stats()
	if s.Hits != 3 || s.Misses != 1 {
		t.Errorf("Expected 3 hits and 1 miss, got %d hits and %d misses", s.Hits, s.Misses)
	}
	if s.HitRate != 75 {
		t.Errorf("Expected hit rate 75, got %v", s.HitRate)
	}
	if s.TotalEntries != 1 {
		t.Errorf("Expected 1 entry, got %d", s.TotalEntries)
	}
}

func TestPeriodicFlush(t *testing.T) {
	rc, _ := setupTestCache(t, Options{FlushEvery: 3})

	rc.Put("k1", json.RawMessage(`1`))
	rc.Put("k2", json.RawMessage(`2`))
	if n := storedKeys(t, rc); n != 0 {
		t.Errorf("Expected nothing persisted before the third insertion, got %d", n)
	}

	rc.Put("k3", json.RawMessage(`3`))
	if n := storedKeys(t, rc); n != 3 {
		t.Errorf("Expected 3 persisted keys after the third insertion, got %d", n)
	}
}

func TestFlushAndReload(t *testing.T) {
	for _, compression := range []bool{false, true} {
		t.Run(fmt.Sprintf("compression=%v", compression), func(t *testing.T) {
			dir := t.TempDir()
			rc, err := Open(Options{Dir: dir, Compression: compression})
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}

			rc.Put("video", json.RawMessage(`{"title":"T"}`))
			if err := rc.Flush(); err != nil {
				t.Fatalf("Flush failed: %v", err)
			}
			rc.Close()

			reopened, err := Open(Options{Dir: dir, Compression: compression})
			if err != nil {
				t.Fatalf("Reopen failed: %v", err)
			}
			defer reopened.Close()

			got, ok := reopened.Get("video")
			if !ok {
				t.Fatal("Expected entry to survive a reload")
			}
			if string(got) != `{"title":"T"}` {
				t.Errorf("Unexpected payload after reload: %s", got)
			}
		})
	}
}

func TestExpiredEntriesDroppedOnLoad(t *testing.T) {
	dir := t.TempDir()
	rc, err := Open(Options{Dir: dir, ExpireHours: 24})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	rc.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	rc.Put("stale", json.RawMessage(`"old"`))
	rc.now = time.Now
	rc.Put("fresh", json.RawMessage(`"new"`))
	rc.Close()

	reopened, err := Open(Options{Dir: dir, ExpireHours: 24})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	if _, ok := reopened.Get("stale"); ok {
		t.Error("Expected entry older than the TTL to be dropped on load")
	}
	if _, ok := reopened.Get("fresh"); !ok {
		t.Error("Expected fresh entry to be loaded")
	}
}

func TestEntriesNotEvictedMidRun(t *testing.T) {
	rc, _ := setupTestCache(t, Options{ExpireHours: 1})

	rc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	rc.Put("old", json.RawMessage(`1`))

	if _, ok := rc.Get("old"); !ok {
		t.Error("Expected in-memory entry to stay until the next load")
	}
}

func TestCorruptDatabaseFallsBackToMemory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("this is not a bolt database"), 0600); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	rc, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Expected corrupt storage to be non-fatal, got %v", err)
	}
	defer rc.Close()

	if !rc.MemoryOnly() {
		t.Error("Expected cache to run memory-only")
	}

	rc.Put("k", json.RawMessage(`1`))
	if _, ok := rc.Get("k"); !ok {
		t.Error("Expected memory-only cache to keep working")
	}
	if err := rc.Flush(); err != nil {
		t.Errorf("Expected memory-only flush to be a no-op, got %v", err)
	}
}

func TestMemoryOnlyWithoutDir(t *testing.T) {
	rc, err := Open(Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	if !rc.MemoryOnly() {
		t.Error("Expected memory-only cache without a directory")
	}
}

func TestClear(t *testing.T) {
	rc, _ := setupTestCache(t, Options{})

	rc.Put("key1", json.RawMessage(`1`))
	rc.Put("key2", json.RawMessage(`2`))
	rc.Flush()

	if err := rc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if s := rc.Stats(); s.TotalEntries != 0 {
		t.Errorf("Expected 0 entries after clear, got %d", s.TotalEntries)
	}
	if n := storedKeys(t, rc); n != 0 {
		t.Errorf("Expected 0 persisted keys after clear, got %d", n)
	}
	if _, ok := rc.Get("key1"); ok {
		t.Error("Expected key1 to be cleared")
	}
}

func TestConcurrentAccess(t *testing.T) {
	rc, _ := setupTestCache(t, Options{FlushEvery: 5})

	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				rc.Put(key, json.RawMessage(`{}`))
				rc.Get(key)
			}
		}(w)
	}
	for w := 0; w < 8; w++ {
		<-done
	}

	s := rc.Stats()
	if s.TotalEntries != 400 {
		t.Errorf("Expected 400 entries, got %d", s.TotalEntries)
	}
	if s.Hits != 400 {
		t.Errorf("Expected 400 hits, got %d", s.Hits)
	}
}
