// Package admin is the thin read view over the upstream order API used by
// the order dashboard and profile pages.
package admin

import (
	"context"

	"storefront-service/internal/models"
	"storefront-service/internal/upstream"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// OrderSource is the slice of the upstream client the views use.
type OrderSource interface {
	GetOrders(ctx context.Context, query upstream.OrdersQuery) (*upstream.OrdersResponse, error)
}

// Service wraps paginated order queries. Filters are ANDed by the
// upstream; the page is 1-indexed and clamped to [1, totalPages].
type Service struct {
	source OrderSource
	logger *zap.Logger
}

// NewService creates an admin read-view service.
func NewService(source OrderSource) *Service {
	return &Service{source: source, logger: util.GetLogger()}
}

// Page is one page of the order dashboard.
type Page struct {
	Orders     []models.Order         `json:"orders"`
	Page       int                    `json:"page"`
	TotalPages int                    `json:"total_pages"`
	Stats      map[string]interface{} `json:"stats,omitempty"`
}

// ListOrders fetches a page of filtered orders, re-fetching the last page
// when the requested one is past the end.
func (s *Service) ListOrders(ctx context.Context, query upstream.OrdersQuery) (*Page, error) {
	ctx, span := util.StartSpan(ctx, "Admin.ListOrders")
	defer span.End()

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 20
	}

	resp, err := s.source.GetOrders(ctx, query)
	if err != nil {
		return nil, err
	}

	if clamped := ClampPage(query.Page, resp.Pagination.TotalPages); clamped != query.Page {
		s.logger.Debug("Clamping order page",
			zap.Int("requested", query.Page),
			zap.Int("clamped", clamped))
		query.Page = clamped
		if resp, err = s.source.GetOrders(ctx, query); err != nil {
			return nil, err
		}
	}

	return &Page{
		Orders:     resp.Data,
		Page:       query.Page,
		TotalPages: resp.Pagination.TotalPages,
		Stats:      resp.Stats,
	}, nil
}

// ClampPage bounds a 1-indexed page to [1, totalPages]. A zero totalPages
// (empty result set) clamps to 1.
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if totalPages > 0 && page > totalPages {
		return totalPages
	}
	return page
}
