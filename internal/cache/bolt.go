package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var resultsBucket = []byte("results")

// BoltStore persists cache entries in a bbolt file, one key per normalized
// query with JSON-encoded entries.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the cache database at path. A corrupt file is
// replaced with an empty one rather than failing startup; the cache contents
// are reconstructible from the upstream source.
func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := openBolt(path)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		db, err = openBolt(path)
		if err != nil {
			return nil, fmt.Errorf("failed to recreate cache database: %w", err)
		}
	}
	return &BoltStore{db: db}, nil
}

func openBolt(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Load returns all persisted entries. Entries that fail to decode are skipped.
func (s *BoltStore) Load() (map[string]Entry, error) {
	entries := make(map[string]Entry)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return nil
			}
			entries[string(k)] = entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Put persists an entry.
func (s *BoltStore) Put(key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Put([]byte(key), data)
	})
}

// Delete removes an entry.
func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Delete([]byte(key))
	})
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
