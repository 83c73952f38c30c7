package admin

import (
	"context"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderSource struct {
	totalPages int
	queries    []upstream.OrdersQuery
}

func (f *fakeOrderSource) GetOrders(ctx context.Context, query upstream.OrdersQuery) (*upstream.OrdersResponse, error) {
	f.queries = append(f.queries, query)
	return &upstream.OrdersResponse{
		Success:    true,
		Data:       []models.Order{{ID: 1, OrderNumber: "HS-1001"}},
		Pagination: upstream.Pagination{TotalPages: f.totalPages},
	}, nil
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		page, totalPages, want int
	}{
		{1, 5, 1},
		{5, 5, 5},
		{7, 5, 5},
		{0, 5, 1},
		{-3, 5, 1},
		{3, 0, 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampPage(tt.page, tt.totalPages), "page=%d total=%d", tt.page, tt.totalPages)
	}
}

func TestListOrdersPassesFilters(t *testing.T) {
	source := &fakeOrderSource{totalPages: 3}
	svc := NewService(source)

	page, err := svc.ListOrders(context.Background(), upstream.OrdersQuery{
		Page: 2, Limit: 10, Search: "habanero", Status: "completed", Email: "a@b.ch",
	})
	require.NoError(t, err)

	require.Len(t, source.queries, 1)
	q := source.queries[0]
	assert.Equal(t, "habanero", q.Search)
	assert.Equal(t, "completed", q.Status)
	assert.Equal(t, "a@b.ch", q.Email)

	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Orders, 1)
}

func TestListOrdersClampsPastLastPage(t *testing.T) {
	source := &fakeOrderSource{totalPages: 2}
	svc := NewService(source)

	page, err := svc.ListOrders(context.Background(), upstream.OrdersQuery{Page: 9, Limit: 10})
	require.NoError(t, err)

	// A second fetch at the clamped page.
	require.Len(t, source.queries, 2)
	assert.Equal(t, 9, source.queries[0].Page)
	assert.Equal(t, 2, source.queries[1].Page)
	assert.Equal(t, 2, page.Page)
}

func TestListOrdersDefaultsPageAndLimit(t *testing.T) {
	source := &fakeOrderSource{totalPages: 1}
	svc := NewService(source)

	_, err := svc.ListOrders(context.Background(), upstream.OrdersQuery{Page: -1})
	require.NoError(t, err)

	assert.Equal(t, 1, source.queries[0].Page)
	assert.Equal(t, 20, source.queries[0].Limit)
}
