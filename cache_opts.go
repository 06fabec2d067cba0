package js5

// Option configures a Cache.
type Option func(*Cache)

// WithMaxGroupSize limits the size an index entry may declare before
// ReadGroup refuses it with [ErrGroupTooLarge].
// Set limit to 0 to disable the limit.
func WithMaxGroupSize(limit uint32) Option {
	return func(c *Cache) {
		c.maxGroupSize = limit
	}
}
