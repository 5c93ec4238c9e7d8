package tle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketTLE = []byte("tle")

// Cache persists the last good element set per catalog number in a bbolt
// file so a restart or a CelesTrak outage does not lose satellite data.
type Cache struct {
	db *bolt.DB
}

type cacheRecord struct {
	Raw       string    `json:"raw"`
	FetchedAt time.Time `json:"fetched_at"`
}

// OpenCache opens or creates the cache file at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening TLE cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTLE)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating TLE bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Put stores the raw TLE text for catalog.
func (c *Cache) Put(catalog int, raw []byte, fetchedAt time.Time) error {
	val, err := json.Marshal(cacheRecord{Raw: string(raw), FetchedAt: fetchedAt.UTC()})
	if err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTLE).Put(cacheKey(catalog), val)
	})
}

// Get returns the cached TLE text for catalog and when it was fetched.
// ok is false when nothing is cached.
func (c *Cache) Get(catalog int) (raw []byte, fetchedAt time.Time, ok bool, err error) {
	var rec cacheRecord
	err = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketTLE).Get(cacheKey(catalog))
		if v == nil {
			return nil
		}
		ok = true
		// v is only valid inside the transaction; Unmarshal copies it.
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("reading cache record %d: %w", catalog, err)
	}
	if !ok {
		return nil, time.Time{}, false, nil
	}
	return []byte(rec.Raw), rec.FetchedAt, true, nil
}

// Close releases the database file.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(catalog int) []byte {
	return []byte(strconv.Itoa(catalog))
}
