package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("transcription_metadata")

// BoltStore keeps metadata records as JSON values in a bbolt bucket.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll > %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open(%s) > %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Update(create bucket) > %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (store *BoltStore) Close() error {
	return store.db.Close()
}

func (store *BoltStore) GetMetadata(_ context.Context, id string) (Metadata, error) {
	if err := validateID(id); err != nil {
		return Metadata{}, &OperationFailedError{Op: "get", ID: id, Err: err}
	}

	var m Metadata
	if err := store.db.View(func(tx *bolt.Tx) error {
		var err error
		m, err = get(tx, id)
		return err
	}); err != nil {
		return Metadata{}, &OperationFailedError{Op: "get", ID: id, Err: err}
	}
	return m, nil
}

func (store *BoltStore) UpdateMetadata(_ context.Context, id string, update Metadata) error {
	if err := validateID(id); err != nil {
		return &OperationFailedError{Op: "update", ID: id, Err: err}
	}

	if err := store.db.Update(func(tx *bolt.Tx) error {
		existing, err := get(tx, id)
		if err != nil {
			return err
		}
		value, err := json.Marshal(existing.Merge(update))
		if err != nil {
			return fmt.Errorf("json.Marshal > %w", err)
		}
		return tx.Bucket(bucketName).Put([]byte(id), value)
	}); err != nil {
		return &OperationFailedError{Op: "update", ID: id, Err: err}
	}
	return nil
}

func (store *BoltStore) DeleteMetadata(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return &OperationFailedError{Op: "delete", ID: id, Err: err}
	}

	if err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(id))
	}); err != nil {
		return &OperationFailedError{Op: "delete", ID: id, Err: err}
	}
	return nil
}

func get(tx *bolt.Tx, id string) (Metadata, error) {
	value := tx.Bucket(bucketName).Get([]byte(id))
	if value == nil {
		return Metadata{}, nil
	}
	var m Metadata
	if err := json.Unmarshal(value, &m); err != nil {
		return Metadata{}, fmt.Errorf("json.Unmarshal > %w", err)
	}
	return m, nil
}
