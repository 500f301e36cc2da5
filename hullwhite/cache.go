package hullwhite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long a calibration stays usable.
const DefaultTTL = 24 * time.Hour

// CacheEntry is the persisted form: parameters plus calibration metadata.
type CacheEntry struct {
	Key          string      `json:"key"`
	Params       *Parameters `json:"params"`
	CalibratedAt time.Time   `json:"calibrated_at"`
	DataSources  []string    `json:"data_sources"`
}

// Cache memoizes calibrations per (currency, date). Entries live in an
// in-process map and, when a directory is configured, mirror to one JSON
// file per key with atomic writes. The cache affects performance only:
// memory-only mode produces identical analytics.
//
// Get is safe for concurrent readers; GetOrCalibrate serializes
// calibration per key so racing bonds in the same currency/date trigger
// at most one fit (a duplicate on a rare race is harmless).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry

	flightMu sync.Mutex
	inflight map[string]*sync.Mutex

	dir string // "" = memory only
	ttl time.Duration
	log *logrus.Logger

	diskBroken atomic.Bool
}

// NewCache builds a cache persisting under dir; empty dir selects
// memory-only mode. Non-positive ttl falls back to DefaultTTL.
func NewCache(dir string, ttl time.Duration, log *logrus.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logrus.New()
	}
	return &Cache{
		entries:  make(map[string]*CacheEntry),
		inflight: make(map[string]*sync.Mutex),
		dir:      dir,
		ttl:      ttl,
		log:      log,
	}
}

// Key formats the canonical cache key {currency}_{YYYYMMDD}.
func Key(currency string, date time.Time) string {
	return fmt.Sprintf("%s_%s", currency, date.Format("20060102"))
}

// Get returns cached parameters, reading through to disk on a memory
// miss. Entries past TTL or calibrated for a different curve date are
// treated as misses.
func (c *Cache) Get(currency string, date time.Time) (*Parameters, bool) {
	key := Key(currency, date)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok && c.dir != "" && !c.diskBroken.Load() {
		if disk := c.readDisk(key); disk != nil {
			c.mu.Lock()
			c.entries[key] = disk
			c.mu.Unlock()
			entry, ok = disk, true
		}
	}
	if !ok {
		return nil, false
	}
	if c.expired(entry, date) {
		return nil, false
	}
	return entry.Params, true
}

// Put stores a completed calibration, write-through to disk.
func (c *Cache) Put(currency string, date time.Time, params *Parameters) {
	key := Key(currency, date)
	entry := &CacheEntry{
		Key:          key,
		Params:       params,
		CalibratedAt: params.CalibratedAt,
		DataSources:  params.DataSources,
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	if c.dir != "" && !c.diskBroken.Load() {
		if err := c.writeDisk(key, entry); err != nil {
			// Disk trouble degrades to memory-only; never fail the calc.
			c.log.WithError(err).WithField("key", key).Warn("calibration cache: disk write failed, continuing memory-only")
			c.diskBroken.Store(true)
		}
	}
}

// Invalidate drops the entry for (currency, date) from memory and disk.
func (c *Cache) Invalidate(currency string, date time.Time) {
	key := Key(currency, date)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	if c.dir != "" {
		os.Remove(c.path(key))
	}
}

// GetOrCalibrate returns the cached parameters or runs calibrate once and
// stores the result. Concurrent callers on the same key block on a
// per-key mutex so at most one fit is in flight.
func (c *Cache) GetOrCalibrate(currency string, date time.Time, calibrate func() (*Parameters, error)) (*Parameters, error) {
	if p, ok := c.Get(currency, date); ok {
		return p, nil
	}

	key := Key(currency, date)
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have completed while we waited.
	if p, ok := c.Get(currency, date); ok {
		return p, nil
	}

	params, err := calibrate()
	if err != nil {
		return nil, err
	}
	c.Put(currency, date, params)
	return params, nil
}

func (c *Cache) keyLock(key string) *sync.Mutex {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	lock, ok := c.inflight[key]
	if !ok {
		lock = &sync.Mutex{}
		c.inflight[key] = lock
	}
	return lock
}

func (c *Cache) expired(entry *CacheEntry, date time.Time) bool {
	if time.Since(entry.CalibratedAt) > c.ttl {
		return true
	}
	// Curve-date mismatch also invalidates: the key encodes the date, so
	// this only fires for entries deserialized from a stale file.
	if entry.Params != nil && !entry.Params.CalibrationDate.IsZero() {
		return entry.Params.CalibrationDate.Format("20060102") != date.Format("20060102")
	}
	return entry.Params == nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *Cache) readDisk(key string) *CacheEntry {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil
	}
	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("calibration cache: corrupt entry ignored")
		return nil
	}
	return &entry
}

// writeDisk persists via write-temp-then-rename so concurrent writers to
// different keys never leave a partial file behind.
func (c *Cache) writeDisk(key string, entry *CacheEntry) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path(key))
}
