// Package cache implements the content-addressed per-file finding cache
// (spec §4.4): SHA-256 keyed, invalidated by rule-version mismatch, TTL
// expiry, or a content hash mismatch, bounded by an entry-count and a
// byte-budget LRU, with per-path locking and atomic on-disk persistence.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"scanguard/internal/model"
	"scanguard/internal/safefile"
	"scanguard/internal/scanerr"
)

// Cache is safe for concurrent use. Construct with New or Open.
type Cache struct {
	path        string
	ruleVersion string
	ttl         time.Duration
	maxEntries  int
	maxBytes    int64

	mu       sync.Mutex
	entries  map[string]model.CacheEntry
	sizes    map[string]int64
	totalSz  int64
	dirty    bool
	pathLock sync.Map // string -> *sync.Mutex
	hashOnce singleflight.Group
}

type diskFormat struct {
	Entries map[string]model.CacheEntry `json:"entries"`
}

// New constructs an empty in-memory cache bound to persistPath.
func New(persistPath, ruleVersion string, ttl time.Duration, maxEntries int, maxBytes int64) *Cache {
	return &Cache{
		path:        persistPath,
		ruleVersion: ruleVersion,
		ttl:         ttl,
		maxEntries:  maxEntries,
		maxBytes:    maxBytes,
		entries:     make(map[string]model.CacheEntry),
		sizes:       make(map[string]int64),
	}
}

// Open loads a cache from disk (New's semantics if the file is absent),
// dropping any entry whose rule_version no longer matches or whose age
// exceeds ttl (spec §4.4 Load).
func Open(persistPath, ruleVersion string, ttl time.Duration, maxEntries int, maxBytes int64) (*Cache, error) {
	c := New(persistPath, ruleVersion, ttl, maxEntries, maxBytes)
	if persistPath == "" {
		return c, nil
	}

	raw, err := readFileIfExists(persistPath)
	if err != nil {
		return c, &scanerr.CacheIOError{Op: "load", Cause: err}
	}
	if raw == nil {
		return c, nil
	}

	var disk diskFormat
	if err := json.Unmarshal(raw, &disk); err != nil {
		return c, &scanerr.CacheIOError{Op: "parse", Cause: err}
	}

	now := time.Now()
	for path, entry := range disk.Entries {
		if entry.RuleVersion != ruleVersion {
			continue
		}
		if ttl > 0 && now.Sub(time.UnixMilli(entry.Timestamp)) > ttl {
			continue
		}
		c.entries[path] = entry
		c.sizes[path] = estimateSize(entry)
		c.totalSz += c.sizes[path]
	}
	return c, nil
}

// Get returns the cached findings for path if the entry is still valid:
// rule version matches, age is within TTL, and content hashes to the
// entry's recorded sha256. A mismatch evicts the stale entry and misses.
func (c *Cache) Get(path string, content []byte) ([]model.Finding, bool) {
	lock := c.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	entry, ok := c.entries[path]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	if entry.RuleVersion != c.ruleVersion {
		c.evict(path)
		return nil, false
	}
	if c.ttl > 0 && time.Since(time.UnixMilli(entry.Timestamp)) > c.ttl {
		c.evict(path)
		return nil, false
	}

	sum, err := c.hash(path, content)
	if err != nil || sum != entry.SHA256 {
		c.evict(path)
		return nil, false
	}
	return entry.Findings, true
}

// Set records findings for path, evicting the oldest entry (by
// timestamp) while the cache is at or over its entry-count or
// byte-budget limits (spec §4.4 Write).
func (c *Cache) Set(path string, content []byte, findings []model.Finding) error {
	lock := c.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	sum, err := c.hash(path, content)
	if err != nil {
		sum = syntheticToken(path)
	}

	entry := model.CacheEntry{
		SHA256:      sum,
		Findings:    findings,
		Timestamp:   time.Now().UnixMilli(),
		RuleVersion: c.ruleVersion,
	}
	size := estimateSize(entry)

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.overBudgetLocked(path) {
		if !c.evictOldestLocked(path) {
			break
		}
	}
	if old, existed := c.sizes[path]; existed {
		c.totalSz -= old
	}
	c.entries[path] = entry
	c.sizes[path] = size
	c.totalSz += size
	c.dirty = true
	return nil
}

// Persist writes the cache to disk atomically if it has unsaved changes
// since the last Persist call. A write failure is wrapped as a
// scanerr.CacheIOError and returned to the caller to log; it never
// panics or drops previously-cached data.
func (c *Cache) Persist() error {
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	disk := diskFormat{Entries: make(map[string]model.CacheEntry, len(c.entries))}
	for k, v := range c.entries {
		disk.Entries[k] = v
	}
	c.mu.Unlock()

	raw, err := json.Marshal(disk)
	if err != nil {
		return &scanerr.CacheIOError{Op: "marshal", Cause: err}
	}
	if err := safefile.WriteFileAtomic(c.path, raw, 0o600); err != nil {
		return &scanerr.CacheIOError{Op: "persist", Cause: err}
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// Len reports the current entry count, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if size, ok := c.sizes[path]; ok {
		c.totalSz -= size
		delete(c.sizes, path)
	}
	delete(c.entries, path)
	c.dirty = true
}

// overBudgetLocked reports whether room must be made before
// inserting/updating path: the entry count after the insert would exceed
// the entry limit, or the bytes already held are at or over the byte
// budget. Caller holds c.mu.
func (c *Cache) overBudgetLocked(path string) bool {
	_, exists := c.entries[path]
	count := len(c.entries)
	if !exists {
		count++
	}
	if c.maxEntries > 0 && count > c.maxEntries {
		return true
	}
	if c.maxBytes > 0 && c.totalSz >= c.maxBytes {
		return true
	}
	return false
}

// evictOldestLocked removes the entry with the oldest timestamp other
// than path itself, returning false if nothing else can be evicted.
// Caller holds c.mu.
func (c *Cache) evictOldestLocked(except string) bool {
	oldestPath := ""
	var oldestTS int64
	for p, e := range c.entries {
		if p == except {
			continue
		}
		if oldestPath == "" || e.Timestamp < oldestTS {
			oldestPath = p
			oldestTS = e.Timestamp
		}
	}
	if oldestPath == "" {
		return false
	}
	if size, ok := c.sizes[oldestPath]; ok {
		c.totalSz -= size
		delete(c.sizes, oldestPath)
	}
	delete(c.entries, oldestPath)
	return true
}

// lockFor returns the per-path mutex that serializes Get/Set for path,
// so a reader always blocks behind any in-flight writer for that same
// path (spec §4.4, §5).
func (c *Cache) lockFor(path string) *sync.Mutex {
	v, _ := c.pathLock.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// hash computes the SHA-256 of content, de-duplicating concurrent calls
// for the same path through singleflight so parallel Get/Set calls for
// the same just-read file share one hash computation.
func (c *Cache) hash(path string, content []byte) (string, error) {
	v, err, _ := c.hashOnce.Do(path, func() (interface{}, error) {
		return hashBytes(content), nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func hashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// syntheticToken produces a value that will never equal a real sha256,
// so a cache entry recorded under a read failure always misses later
// (spec §4.4 Hash).
func syntheticToken(path string) string {
	sum := sha256.Sum256([]byte("scanguard-unreadable\x00" + path + "\x00" + time.Now().String()))
	return "unreadable:" + hex.EncodeToString(sum[:])
}

func estimateSize(entry model.CacheEntry) int64 {
	raw, err := json.Marshal(entry)
	if err != nil {
		return int64(len(entry.SHA256)) + int64(len(entry.Findings))*64
	}
	return int64(len(raw))
}
