package snapshot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var snapshotBucket = []byte("snapshots")

// boltKV keeps every snapshot in one bucket of a single bbolt file.
type boltKV struct {
	db *bbolt.DB
}

func openBolt(path string) (*boltKV, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bbolt directory %s: %w", path, err)
	}
	db, err := bbolt.Open(filepath.Join(path, "snapshots.db"), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt at %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &boltKV{db: db}, nil
}

func (b *boltKV) get(key []byte) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(snapshotBucket).Get(key)
		if v == nil {
			return ErrNotFound
		}
		// Values are only valid during the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

func (b *boltKV) put(key, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put(key, value)
	})
}

func (b *boltKV) delete(key []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Delete(key)
	})
}

func (b *boltKV) keys(prefix []byte) ([][]byte, error) {
	var out [][]byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(snapshotBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			out = append(out, append([]byte(nil), k...))
		}
		return nil
	})
	return out, err
}

func (b *boltKV) close() error {
	return b.db.Close()
}
