// Package catalog serves products (read-through cache over the upstream
// API) and the statically configured combo offers.
package catalog

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/kvstore"
	"storefront-service/internal/models"
	"storefront-service/internal/upstream"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// ProductSource is the slice of the upstream client the catalog needs.
type ProductSource interface {
	GetProducts(ctx context.Context, category string) (*upstream.ProductsResponse, error)
}

// Service caches upstream product reads in the key-value store.
type Service struct {
	source   ProductSource
	store    kvstore.Store
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewService creates a catalog service.
func NewService(source ProductSource, store kvstore.Store, cacheTTL time.Duration) *Service {
	return &Service{
		source:   source,
		store:    store,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// Products returns the catalog for a category, from cache when fresh.
func (s *Service) Products(ctx context.Context, category string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Products")
	defer span.End()

	key := kvstore.ProductCacheKey(category)

	var cached []models.Product
	err := kvstore.GetJSON(ctx, s.store, key, &cached)
	if err == nil {
		util.CatalogCacheHitsTotal.WithLabelValues("cache").Inc()
		return cached, nil
	}
	if !errors.Is(err, kvstore.ErrNotFound) {
		s.logger.Warn("Catalog cache read failed", zap.Error(err))
	}

	resp, err := s.source.GetProducts(ctx, category)
	if err != nil {
		return nil, err
	}
	util.CatalogCacheHitsTotal.WithLabelValues("upstream").Inc()

	if err := kvstore.SetJSON(ctx, s.store, key, resp.Products, s.cacheTTL); err != nil {
		s.logger.Warn("Catalog cache write failed", zap.Error(err))
	}
	return resp.Products, nil
}
