package store

import "context"

// Store is the key/value backend of the artifact cache.
type Store interface {
	/**
	 * Get returns nil, nil for a key never set
	 */
	Get(ctx context.Context, prefix, key string) ([]byte, error)
	Set(ctx context.Context, prefix, key string, value []byte) error
	/**
	 * Remove a prefix and key
	 * remove an unexists prefix + key would NOT return error
	 */
	Remove(ctx context.Context, prefix, key string) error

	/**
	 * List walks the keys under prefix in ascending order
	 * until iterator returns false
	 */
	List(ctx context.Context, prefix string, iterator func(key string) bool) error
}

// Closer is implemented by stores holding a connection.
type Closer interface {
	Close() error
}

func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
