package store

// memoryConfig collects tunables for the in-memory stores.
type memoryConfig struct {
	shardCount int
}

// MemoryOption applies a configuration option to the in-memory counter store.
type MemoryOption func(*memoryConfig)

// WithShardCount sets the number of counter shards. Values below 1 keep the
// default.
func WithShardCount(n int) MemoryOption {
	return func(c *memoryConfig) {
		if n > 0 {
			c.shardCount = n
		}
	}
}
