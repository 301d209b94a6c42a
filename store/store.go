// Package store persists engine snapshots. A Backend stores opaque bytes by
// key; SnapshotStore layers a codec and a key prefix on top of any backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/codec"
	"github.com/amp-labs/amp-fsm/config"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/statemachine"
)

// ErrNotFound is returned by Get when no value is stored under a key.
var ErrNotFound = errors.New("snapshot not found")

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Store persists snapshots by key. Implementations are safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key string, snap statemachine.Snapshot) error
	Get(ctx context.Context, key string) (statemachine.Snapshot, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend stores raw values. Get returns ErrNotFound for missing keys and
// Delete of a missing key is not an error.
type Backend interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// SnapshotStore encodes snapshots with a codec and stores them in a backend
// under prefix+key.
type SnapshotStore struct {
	backend Backend
	codec   codec.Codec
	prefix  string
}

// New wraps backend.
func New(backend Backend, c codec.Codec, prefix string) *SnapshotStore {
	return &SnapshotStore{backend: backend, codec: c, prefix: prefix}
}

// Open creates the store selected by cfg.
func Open(ctx context.Context, cfg config.Store, c codec.Codec) (*SnapshotStore, error) {
	var (
		backend Backend
		err     error
	)

	switch cfg.Backend {
	case "", config.BackendMemory:
		backend = NewMemoryStore()
	case config.BackendFile:
		backend, err = NewFileStore(cfg.Path)
	case config.BackendRedis:
		backend, err = NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	case config.BackendSQLite:
		backend, err = OpenSQLiteStore(ctx, cfg.Path)
	case config.BackendBadger:
		backend, err = OpenBadgerStore(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Backend, err)
	}

	logger.Get(ctx).DebugContext(ctx, "Opened snapshot store",
		"backend", cfg.Backend,
		"codec", c.String(),
		"prefix", cfg.KeyPrefix,
	)

	return New(backend, c, cfg.KeyPrefix), nil
}

// Put encodes and stores snap.
func (s *SnapshotStore) Put(ctx context.Context, key string, snap statemachine.Snapshot) error {
	data, err := s.codec.Encode(snap)
	if err != nil {
		return err
	}

	if err := s.backend.Put(ctx, s.prefix+key, data); err != nil {
		return fmt.Errorf("storing snapshot %q: %w", key, err)
	}

	return nil
}

// Get loads and decodes the snapshot stored under key. Data comes back in the
// generic shape of the codec's format, e.g. map[string]any for JSON objects.
func (s *SnapshotStore) Get(ctx context.Context, key string) (statemachine.Snapshot, error) {
	data, err := s.backend.Get(ctx, s.prefix+key)
	if err != nil {
		return statemachine.Snapshot{}, fmt.Errorf("loading snapshot %q: %w", key, err)
	}

	snap, err := codec.Decode(data)
	if err != nil {
		return statemachine.Snapshot{}, logger.AnnotateError(
			fmt.Errorf("loading snapshot %q: %w", key, err), "snapshot_key", key)
	}

	return snap, nil
}

// Delete removes the snapshot stored under key.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, s.prefix+key)
}

// Close closes the backend.
func (s *SnapshotStore) Close() error {
	return s.backend.Close()
}

// Checkpoint saves engine and stores the snapshot under key.
func Checkpoint(ctx context.Context, st Store, key string, engine *statemachine.Engine) error {
	snap, err := engine.Save()
	if err != nil {
		return err
	}

	return st.Put(ctx, key, snap)
}

// Resume loads the snapshot stored under key and restores it into engine.
// Misuse and load errors are returned; the restore outcome goes to done.
func Resume(ctx context.Context, st Store, key string, engine *statemachine.Engine, done statemachine.Callback) error {
	snap, err := st.Get(ctx, key)
	if err != nil {
		return err
	}

	return engine.Restore(ctx, snap, done)
}

var _ Store = (*SnapshotStore)(nil)
