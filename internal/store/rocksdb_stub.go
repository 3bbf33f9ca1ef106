//go:build !rocksdb

package store

import (
	"context"
	"fmt"
)

// RocksDBStore stub used when the binary is built without the "rocksdb"
// tag. Requesting Config.Backend "rocksdb" in this configuration fails
// at NewStore with an error naming the missing build tag.
type RocksDBStore struct{}

func NewRocksDBStore(config *Config) (*RocksDBStore, error) {
	return nil, fmt.Errorf("store: rocksdb support not compiled in - build with -tags rocksdb")
}

func (s *RocksDBStore) Save(ctx context.Context, key string, data []byte) error {
	return fmt.Errorf("store: rocksdb not available")
}

func (s *RocksDBStore) Load(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("store: rocksdb not available")
}

func (s *RocksDBStore) Has(ctx context.Context, key string) (bool, error) {
	return false, fmt.Errorf("store: rocksdb not available")
}

func (s *RocksDBStore) Delete(ctx context.Context, key string) error {
	return fmt.Errorf("store: rocksdb not available")
}

func (s *RocksDBStore) Close() error { return nil }
