package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"playlist-finder-go/logcolors"
	"playlist-finder-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketName = "responses"

	// FileName is the BoltDB file created inside the cache directory.
	FileName = "playlist_cache.db"

	DefaultExpireHours = 24
	DefaultFlushEvery  = 10
)

// CacheEntry is one stored provider response.
type CacheEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	TotalEntries int     `json:"total_entries"`
	HitRate      float64 `json:"hit_rate_percent"`
}

// Options configures a ResponseCache.
type Options struct {
	Dir         string
	ExpireHours int
	FlushEvery  int
	Compression bool
}

// ResponseCache keeps provider responses in memory and mirrors them to BoltDB.
// Entries older than the TTL are dropped when the store is loaded; nothing is
// evicted while the process runs.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	inserts int

	db                 *bolt.DB
	dbPath             string
	expire             time.Duration
	flushEvery         int
	compressionEnabled bool
	memoryOnly         bool

	hits   atomic.Int64
	misses atomic.Int64

	now func() time.Time
}

// Open creates the cache directory, opens the BoltDB file and loads every
// unexpired entry into memory. Storage problems are logged and the cache
// falls back to memory-only operation; only an unusable directory is an error.
func Open(opts Options) (*ResponseCache, error) {
	if opts.ExpireHours <= 0 {
		opts.ExpireHours = DefaultExpireHours
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = DefaultFlushEvery
	}

	rc := &ResponseCache{
		entries:            make(map[string]CacheEntry),
		expire:             time.Duration(opts.ExpireHours) * time.Hour,
		flushEvery:         opts.FlushEvery,
		compressionEnabled: opts.Compression,
		now:                time.Now,
	}

	if opts.Dir == "" {
		rc.memoryOnly = true
		log.Infof("%s No cache directory configured, running memory-only", logcolors.LogCacheInit)
		return rc, nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	rc.dbPath = filepath.Join(opts.Dir, FileName)

	db, err := bolt.Open(rc.dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		log.Warnf("%s Unable to open %s, running memory-only: %v", logcolors.LogCacheInit, rc.dbPath, err)
		rc.memoryOnly = true
		return rc, nil
	}
	rc.db = db

	if err := rc.load(); err != nil {
		log.Warnf("%s Failed to load cache, starting empty: %v", logcolors.LogCacheInit, err)
		rc.entries = make(map[string]CacheEntry)
	}

	log.Infof("%s Response cache initialized at %s (ttl: %v, flush every %d, compression: %v)",
		logcolors.LogCacheInit, rc.dbPath, rc.expire, rc.flushEvery, rc.compressionEnabled)
	return rc, nil
}

// load reads every persisted entry, keeping only those younger than the TTL.
func (rc *ResponseCache) load() error {
	cutoff := rc.now().Add(-rc.expire)
	loaded, expired, corrupt := 0, 0, 0

	err := rc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			entry, err := rc.decode(v)
			if err != nil {
				corrupt++
				log.Debugf("%s Skipping unreadable entry %s: %v", logcolors.LogCache, string(k), err)
				return nil
			}
			if !entry.Timestamp.After(cutoff) {
				expired++
				return nil
			}
			rc.entries[string(k)] = entry
			loaded++
			return nil
		})
	})
	if err != nil {
		return err
	}

	log.Infof("%s Loaded %d entries from disk (%d expired, %d unreadable)", logcolors.LogCache, loaded, expired, corrupt)
	return nil
}

func (rc *ResponseCache) encode(entry CacheEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	if rc.compressionEnabled {
		return utils.CompressBytes(data)
	}
	return data, nil
}

// decode accepts both compressed and plain values so toggling the
// compression flag does not invalidate an existing cache file.
func (rc *ResponseCache) decode(v []byte) (CacheEntry, error) {
	var entry CacheEntry
	data := v
	if rc.compressionEnabled {
		if plain, err := utils.DecompressBytes(v); err == nil {
			data = plain
		}
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		if plain, derr := utils.DecompressBytes(v); derr == nil {
			if err := json.Unmarshal(plain, &entry); err == nil {
				return entry, nil
			}
		}
		return entry, err
	}
	return entry, nil
}

// Get returns the cached payload for key, counting a hit or a miss.
func (rc *ResponseCache) Get(key string) (json.RawMessage, bool) {
	rc.mu.RLock()
	entry, ok := rc.entries[key]
	rc.mu.RUnlock()

	if !ok {
		rc.misses.Add(1)
		log.Debugf("%s Miss for key %s", logcolors.LogCache, key)
		return nil, false
	}

	rc.hits.Add(1)
	log.Debugf("%s Hit for key %s", logcolors.LogCache, key)
	return entry.Data, true
}

// Put stores payload under key. Every flushEvery-th insertion persists the
// whole cache to disk.
func (rc *ResponseCache) Put(key string, payload json.RawMessage) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.entries[key] = CacheEntry{Data: payload, Timestamp: rc.now()}
	rc.inserts++
	log.Debugf("%s Stored key %s", logcolors.LogCache, key)

	if rc.inserts%rc.flushEvery == 0 {
		rc.flushLocked()
	}
}

// Flush persists every in-memory entry, replacing the stored bucket.
// A failed write switches the cache to memory-only mode for the rest of the
// process; the error is returned for diagnostics only.
func (rc *ResponseCache) Flush() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.flushLocked()
}

func (rc *ResponseCache) flushLocked() error {
	if rc.memoryOnly || rc.db == nil {
		return nil
	}

	err := rc.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketName)) != nil {
			if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket([]byte(bucketName))
		if err != nil {
			return err
		}
		for key, entry := range rc.entries {
			data, err := rc.encode(entry)
			if err != nil {
				return fmt.Errorf("encode %s: %w", key, err)
			}
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		rc.memoryOnly = true
		log.Warnf("%s Save failed, continuing memory-only: %v", logcolors.LogCacheFlush, err)
		return err
	}

	log.Debugf("%s Saved %d entries to %s", logcolors.LogCacheFlush, len(rc.entries), rc.dbPath)
	return nil
}

// Stats returns hit/miss counters and the number of entries held in memory.
func (rc *ResponseCache) Stats() Stats {
	rc.mu.RLock()
	total := len(rc.entries)
	rc.mu.RUnlock()

	hits := rc.hits.Load()
	misses := rc.misses.Load()
	var hitRate float64
	if lookups := hits + misses; lookups > 0 {
		hitRate = float64(hits) / float64(lookups) * 100
	}

	return Stats{
		Hits:         hits,
		Misses:       misses,
		TotalEntries: total,
		HitRate:      hitRate,
	}
}

// MemoryOnly reports whether disk persistence is disabled.
func (rc *ResponseCache) MemoryOnly() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.memoryOnly
}

// Clear removes every entry from memory and disk.
func (rc *ResponseCache) Clear() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	count := len(rc.entries)
	rc.entries = make(map[string]CacheEntry)
	rc.inserts = 0

	if rc.memoryOnly || rc.db == nil {
		log.Infof("%s Cleared %d in-memory entries", logcolors.LogCacheClear, count)
		return nil
	}

	err := rc.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketName)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(bucketName))
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache bucket: %w", err)
	}

	log.Infof("%s Cleared %d entries", logcolors.LogCacheClear, count)
	return nil
}

// Close flushes pending entries and closes the database.
func (rc *ResponseCache) Close() error {
	if err := rc.Flush(); err != nil {
		log.Warnf("%s Final flush failed: %v", logcolors.LogCache, err)
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.db != nil {
		err := rc.db.Close()
		rc.db = nil
		return err
	}
	return nil
}
