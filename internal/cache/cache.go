// Package cache provides a read-through cache with tag invalidation.
// Entries are grouped under a tag (typically "product:<id>"); editing the
// underlying record invalidates every entry sharing its tag.
package cache

import "context"

type Cache interface {
	// Get unmarshals the cached value into dest; ok is false on miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, tag, key string, value any) error
	InvalidateTag(ctx context.Context, tag string) error
}
