package store

import "context"

/**
 * Store is the prefix/key byte store the engine persists run reports
 * into: per-node execution records and the final run summary. Graphs
 * themselves are never persisted by the engine.
 */
type Store interface {
	Get(ctx context.Context, prefix, key string) ([]byte, error)
	Set(ctx context.Context, prefix, key string, value []byte) error
	/**
	 * Remove a prefix and key
	 * remove an unexists prefix + key would NOT return error
	 */
	Remove(ctx context.Context, prefix, key string) error

	List(ctx context.Context, prefix string, iterator func(key string) bool) error
}
