package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/shopify"
)

// DefaultSortKey orders the home listing.
const DefaultSortKey = "CREATED_AT"

type catalogClient interface {
	GetProducts(ctx context.Context, q shopify.ProductsQuery) ([]domain.Product, error)
	GetProduct(ctx context.Context, handle string) (*domain.Product, error)
	GetProductRecommendations(ctx context.Context, productID string) ([]domain.Product, error)
}

// Service serves product reads from the cache, filling misses from the
// platform. Entries carry the products tag so one webhook drops them all.
type Service struct {
	client catalogClient
	cache  cache.Cache
	ttl    time.Duration
	logger *logger.Logger
	group  singleflight.Group
}

func New(client catalogClient, c cache.Cache, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{client: client, cache: c, ttl: ttl, logger: log}
}

func (s *Service) List(ctx context.Context, q shopify.ProductsQuery) ([]domain.Product, error) {
	if q.SortKey == "" {
		q.SortKey = DefaultSortKey
	}
	key := fmt.Sprintf("products:list:%s:%t:%s", q.SortKey, q.Reverse, q.Query)
	var products []domain.Product
	err := s.cached(ctx, key, &products, func(ctx context.Context) (interface{}, error) {
		return s.client.GetProducts(ctx, q)
	})
	return products, err
}

// Get returns domain.ErrNotFound for unknown or hidden products.
func (s *Service) Get(ctx context.Context, handle string) (*domain.Product, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, domain.ErrNotFound
	}
	var product *domain.Product
	err := s.cached(ctx, "products:handle:"+handle, &product, func(ctx context.Context) (interface{}, error) {
		return s.client.GetProduct(ctx, handle)
	})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (s *Service) Recommendations(ctx context.Context, productID string) ([]domain.Product, error) {
	var products []domain.Product
	err := s.cached(ctx, "products:recommendations:"+productID, &products, func(ctx context.Context) (interface{}, error) {
		return s.client.GetProductRecommendations(ctx, productID)
	})
	return products, err
}

// Revalidate drops every cached entry under tag.
func (s *Service) Revalidate(ctx context.Context, tag string) (int, error) {
	n, err := s.cache.InvalidateTag(ctx, tag)
	if err != nil {
		return 0, err
	}
	s.logger.Info("catalog revalidated", "tag", tag, "keys", n)
	return n, nil
}

// Warm refills the listing cache for each query, a few at a time.
func (s *Service) Warm(ctx context.Context, queries ...shopify.ProductsQuery) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, q := range queries {
		q := q
		g.Go(func() error {
			_, err := s.List(ctx, q)
			return err
		})
	}
	return g.Wait()
}

// cached reads key into dest. On a miss, concurrent callers share one fill.
func (s *Service) cached(ctx context.Context, key string, dest interface{}, fill func(context.Context) (interface{}, error)) error {
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("catalog cache read failed", "key", key, "error", err)
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		generation, gerr := s.cache.Generation(ctx, shopify.TagProducts)
		value, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		if gerr != nil {
			s.logger.Warn("catalog cache generation read failed", "key", key, "error", gerr)
			return value, nil
		}
		stored, serr := s.cache.SetIfGeneration(ctx, key, value, s.ttl, shopify.TagProducts, generation)
		switch {
		case serr != nil:
			s.logger.Warn("catalog cache write failed", "key", key, "error", serr)
		case !stored:
			s.logger.Debug("catalog fill outlived an invalidation", "key", key)
		}
		return value, nil
	})
	if err != nil {
		return err
	}
	return assign(dest, value)
}

func assign(dest, value interface{}) error {
	switch d := dest.(type) {
	case *[]domain.Product:
		*d = value.([]domain.Product)
	case **domain.Product:
		*d = value.(*domain.Product)
	default:
		return fmt.Errorf("catalog: unsupported destination %T", dest)
	}
	return nil
}
