package welfare

import (
	"context"
	"log/slog"

	"ongon.org/internal/obs"
)

// CatalogCache stores rarely changing catalog reads as JSON values.
type CatalogCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Catalog cache keys.
const (
	CacheKeyCourseCategories = "catalog:course_categories"
	CacheKeyJobCategories    = "catalog:job_categories"
	CacheKeyLoanProducts     = "catalog:loan_products"
	CacheKeyCrops            = "catalog:crops"
)

type noCache struct{}

func (noCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noCache) Set(context.Context, string, any) error         { return nil }
func (noCache) Invalidate(context.Context, ...string) error    { return nil }

// cached reads key from the cache or loads and stores it. Cache failures
// are logged and fall through to load.
func cached[T any](ctx context.Context, c CatalogCache, key string, load func(context.Context) (T, error)) (T, error) {
	var v T
	hit, err := c.Get(ctx, key, &v)
	if err != nil {
		obs.Logger().Warn("catalog cache read failed", slog.String("key", key), obs.Err(err))
	} else if hit {
		return v, nil
	}
	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v); err != nil {
		obs.Logger().Warn("catalog cache write failed", slog.String("key", key), obs.Err(err))
	}
	return v, nil
}

func invalidate(ctx context.Context, c CatalogCache, keys ...string) {
	if err := c.Invalidate(ctx, keys...); err != nil {
		obs.Logger().Warn("catalog cache invalidate failed", slog.Any("keys", keys), obs.Err(err))
	}
}
