package store

var (
	_ SnapshotStore = (*MemoryStore)(nil)
	_ SnapshotStore = (*RocksDBStore)(nil)
)

// NewStore opens the SnapshotStore backend named by config.Backend.
// Any value other than "rocksdb" opens MemoryStore; "rocksdb" requires
// the binary to have been built with -tags rocksdb, or NewRocksDBStore
// returns an error explaining so.
func NewStore(config *Config) (SnapshotStore, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Backend == "rocksdb" {
		return NewRocksDBStore(config)
	}
	return NewMemoryStore(config)
}
