package store

import "errors"

// Config configures the snapshot store.
type Config struct {
	// Backend selects the persistence implementation: "memory" or
	// "rocksdb". "rocksdb" requires the binary built with the
	// "rocksdb" build tag; otherwise NewStore returns an error.
	Backend string `json:"backend"`

	// MaxSnapshotSize caps a single Save call's payload.
	MaxSnapshotSize int64 `json:"max_snapshot_size"`

	RocksDB RocksDBConfig `json:"rocksdb"`
}

// RocksDBConfig configures the optional RocksDB-backed store.
type RocksDBConfig struct {
	Path            string `json:"path"`
	WriteBufferSize int    `json:"write_buffer_size"` // MB
	BlockCacheSize  int    `json:"block_cache_size"`  // MB
	CompressionType string `json:"compression_type"`  // none, snappy, lz4, zstd
	SyncWrites      bool   `json:"sync_writes"`
}

// DefaultConfig returns an in-memory store configuration, sized for a
// single node's PausedState snapshot.
func DefaultConfig() *Config {
	return &Config{
		Backend:         "memory",
		MaxSnapshotSize: 16 * 1024 * 1024,
		RocksDB: RocksDBConfig{
			Path:            "./data/snapshots",
			WriteBufferSize: 32,
			BlockCacheSize:  64,
			CompressionType: "lz4",
			SyncWrites:      true,
		},
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.MaxSnapshotSize <= 0 {
		return errDatabase("config", "", errors.New("max_snapshot_size must be positive"))
	}
	if c.Backend == "rocksdb" && c.RocksDB.Path == "" {
		return errDatabase("config", "", errors.New("rocksdb backend requires a path"))
	}
	return nil
}
