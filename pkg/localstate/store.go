// Package localstate persists the handful of facts a node must remember
// across process restarts even though the rest of the catalog lives only
// in Raft-replicated memory: today, just its own persistent node id.
package localstate

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketIdentity = []byte("identity")

const keyPersistentNodeID = "persistent_node_id"

// Store wraps a single BoltDB file under a node's data directory.
type Store struct {
	db *bolt.DB
}

// Open creates or opens "local.db" under dataDir and ensures its buckets
// exist.
func Open(dataDir string) (*Store, error) {
	db, err := bolt.Open(filepath.Join(dataDir, "local.db"), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketIdentity)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// PersistentNodeID returns this data directory's persistent node id,
// minting and saving a new one on first use. Unlike the per-process
// ephemeral id, this value survives restarts.
func (s *Store) PersistentNodeID() (string, error) {
	var id string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketIdentity)
		if existing := b.Get([]byte(keyPersistentNodeID)); existing != nil {
			id = string(existing)
			return nil
		}
		id = uuid.New().String()
		return b.Put([]byte(keyPersistentNodeID), []byte(id))
	})
	return id, err
}
