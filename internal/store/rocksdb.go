//go:build rocksdb

package store

import (
	"context"
	"sync"

	"github.com/linxGnu/grocksdb"
)

// RocksDBStore is the optional durable SnapshotStore backend, for
// deployments that want a PausedState snapshot to survive a process
// restart. Built only with the "rocksdb" build tag, since it requires
// CGO and the RocksDB shared library; the default build uses MemoryStore.
type RocksDBStore struct {
	config *Config
	db     *grocksdb.DB
	opts   *grocksdb.Options

	readOpts  *grocksdb.ReadOptions
	writeOpts *grocksdb.WriteOptions

	mu     sync.RWMutex
	closed bool
}

// NewRocksDBStore opens (or creates) a RocksDB database at config.RocksDB.Path.
func NewRocksDBStore(config *Config) (*RocksDBStore, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.IncreaseParallelism(1)
	if config.RocksDB.WriteBufferSize > 0 {
		opts.SetWriteBufferSize(uint64(config.RocksDB.WriteBufferSize) * 1024 * 1024)
	}
	if config.RocksDB.BlockCacheSize > 0 {
		bbto := grocksdb.NewDefaultBlockBasedTableOptions()
		bbto.SetBlockCache(grocksdb.NewLRUCache(uint64(config.RocksDB.BlockCacheSize) * 1024 * 1024))
		opts.SetBlockBasedTableFactory(bbto)
	}

	db, err := grocksdb.OpenDb(opts, config.RocksDB.Path)
	if err != nil {
		return nil, errDatabase("open", config.RocksDB.Path, err)
	}

	writeOpts := grocksdb.NewDefaultWriteOptions()
	writeOpts.SetSync(config.RocksDB.SyncWrites)

	return &RocksDBStore{
		config:    config,
		db:        db,
		opts:      opts,
		readOpts:  grocksdb.NewDefaultReadOptions(),
		writeOpts: writeOpts,
	}, nil
}

func (s *RocksDBStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if int64(len(data)) > s.config.MaxSnapshotSize {
		return ErrTooLarge
	}
	if err := s.db.Put(s.writeOpts, []byte(key), data); err != nil {
		return errDatabase("save", key, err)
	}
	return nil
}

func (s *RocksDBStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	value, err := s.db.Get(s.readOpts, []byte(key))
	if err != nil {
		return nil, errDatabase("load", key, err)
	}
	defer value.Free()
	if !value.Exists() {
		return nil, errNotFound("load", key)
	}
	out := make([]byte, value.Size())
	copy(out, value.Data())
	return out, nil
}

func (s *RocksDBStore) Has(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	value, err := s.db.Get(s.readOpts, []byte(key))
	if err != nil {
		return false, errDatabase("has", key, err)
	}
	defer value.Free()
	return value.Exists(), nil
}

func (s *RocksDBStore) Delete(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.db.Delete(s.writeOpts, []byte(key)); err != nil {
		return errDatabase("delete", key, err)
	}
	return nil
}

func (s *RocksDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.readOpts.Destroy()
	s.writeOpts.Destroy()
	s.db.Close()
	s.opts.Destroy()
	return nil
}
