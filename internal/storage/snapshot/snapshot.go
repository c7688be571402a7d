// Package snapshot persists named ledger images in an embedded key-value
// store so payment runs can be replayed against the same state.
package snapshot

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/LeJamon/goDivvyd/internal/core/state"
	"github.com/LeJamon/goDivvyd/internal/storage/compression"
)

var (
	ErrNotFound    = errors.New("snapshot not found")
	ErrCorrupt     = errors.New("snapshot corrupt")
	ErrInvalidName = errors.New("invalid snapshot name")
	ErrClosed      = errors.New("snapshot store closed")
)

// Store keeps ledger images by name.
type Store interface {
	Put(name string, l *state.Ledger) error
	// Get rebuilds the ledger stored under name.
	Get(name string) (*state.Ledger, error)
	// List returns the stored names in order.
	List() ([]string, error)
	Delete(name string) error
	Close() error
}

// Config selects the backend and encoding of a store.
type Config struct {
	// Backend is "pebble", "leveldb" or "bbolt".
	Backend string
	Path    string
	// Compression is a registered compressor name.
	Compression string
	// RateCacheSize is passed to the ledgers Get rebuilds.
	RateCacheSize int
}

// kv is the subset of an embedded database the store needs.
type kv interface {
	get(key []byte) ([]byte, error)
	put(key, value []byte) error
	delete(key []byte) error
	keys(prefix []byte) ([][]byte, error)
	close() error
}

const keyPrefix = "snap/"

// Open opens or creates the store described by cfg.
func Open(cfg Config, logger *log.Entry) (Store, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	comp, err := compression.Get(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var db kv
	switch cfg.Backend {
	case "pebble":
		db, err = openPebble(cfg.Path)
	case "leveldb":
		db, err = openLevelDB(cfg.Path)
	case "bbolt":
		db, err = openBolt(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"backend":     cfg.Backend,
		"path":        cfg.Path,
		"compression": comp.Name(),
	}).Debug("snapshot store opened")
	return &store{db: db, comp: comp, cacheSize: cfg.RateCacheSize, logger: logger}, nil
}

type store struct {
	db        kv
	comp      compression.Compressor
	cacheSize int
	logger    *log.Entry
	closed    bool
}

func key(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return []byte(keyPrefix + name), nil
}

func (s *store) Put(name string, l *state.Ledger) error {
	if s.closed {
		return ErrClosed
	}
	k, err := key(name)
	if err != nil {
		return err
	}
	raw, err := Encode(l)
	if err != nil {
		return err
	}
	packed, err := s.comp.Compress(raw)
	if err != nil {
		return err
	}
	if err := s.db.put(k, packed); err != nil {
		return fmt.Errorf("store snapshot %s: %w", name, err)
	}
	s.logger.WithFields(log.Fields{
		"snapshot": name,
		"entries":  l.Len(),
		"bytes":    len(packed),
	}).Info("snapshot stored")
	return nil
}

func (s *store) Get(name string) (*state.Ledger, error) {
	if s.closed {
		return nil, ErrClosed
	}
	k, err := key(name)
	if err != nil {
		return nil, err
	}
	packed, err := s.db.get(k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	raw, err := s.comp.Decompress(packed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return Decode(raw, s.cacheSize)
}

func (s *store) List() ([]string, error) {
	if s.closed {
		return nil, ErrClosed
	}
	keys, err := s.db.keys([]byte(keyPrefix))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(string(k), keyPrefix))
	}
	return names, nil
}

func (s *store) Delete(name string) error {
	if s.closed {
		return ErrClosed
	}
	k, err := key(name)
	if err != nil {
		return err
	}
	if _, err := s.db.get(k); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return s.db.delete(k)
}

func (s *store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.close()
}
