// Package upstream is the HTTP client for the external PHP shop API that
// owns all order, product and user persistence.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const maxErrorBody = 512

// Client talks to the upstream shop API. All calls are single-shot; there
// is no automatic retry or backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     util.GetLogger(),
	}
}

// ProductsResponse is the get_products.php envelope.
type ProductsResponse struct {
	Success  bool                   `json:"success"`
	Products []models.Product       `json:"products"`
	Stats    map[string]interface{} `json:"stats,omitempty"`
}

// OrdersQuery is the filter set for get_orders.php. Filters are ANDed by
// the upstream.
type OrdersQuery struct {
	Page         int
	Limit        int
	IncludeItems bool
	Search       string
	Status       string
	Email        string
}

// OrdersResponse is the get_orders.php envelope.
type OrdersResponse struct {
	Success    bool                   `json:"success"`
	Data       []models.Order         `json:"data"`
	Stats      map[string]interface{} `json:"stats,omitempty"`
	Pagination Pagination             `json:"pagination"`
}

type Pagination struct {
	TotalPages int `json:"total_pages"`
}

// OrderRequest is the add_order.php body. Field names follow the upstream
// contract, not this service's conventions.
type OrderRequest struct {
	CustomerInfo  models.CustomerInfo `json:"customerInfo"`
	Cart          []models.CartItem   `json:"cart"`
	TotalAmount   float64             `json:"totalAmount"`
	ShippingCost  float64             `json:"shippingCost"`
	PaymentMethod string              `json:"paymentMethod"`
	PaymentStatus string              `json:"paymentStatus"`
}

// OrderResponse carries the generated order number and creation timestamp,
// surfaced to the customer as proof of persistence.
type OrderResponse struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"orderNumber"`
	Data        struct {
		OrderNumber string `json:"orderNumber"`
		CreatedAt   string `json:"createdAt"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// ConfirmationEmail is the enviar_confirmacion.php body.
type ConfirmationEmail struct {
	PayerID      string              `json:"payerID"`
	CustomerInfo models.CustomerInfo `json:"customerInfo"`
	Cart         []models.CartItem   `json:"cart"`
	Total        float64             `json:"total"`
	Timestamp    time.Time           `json:"timestamp"`
}

type userResponse struct {
	Success bool               `json:"success"`
	Data    models.UserProfile `json:"data"`
	Error   string             `json:"error,omitempty"`
}

// GetProducts fetches the catalog, optionally filtered by category.
func (c *Client) GetProducts(ctx context.Context, category string) (*ProductsResponse, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}

	var resp ProductsResponse
	if err := c.doJSON(ctx, http.MethodGet, "get_products.php", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOrders fetches a page of orders with ANDed filters.
func (c *Client) GetOrders(ctx context.Context, query OrdersQuery) (*OrdersResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(query.Page))
	q.Set("limit", strconv.Itoa(query.Limit))
	if query.IncludeItems {
		q.Set("include_items", "true")
	}
	if query.Search != "" {
		q.Set("search", query.Search)
	}
	if query.Status != "" {
		q.Set("status", query.Status)
	}
	if query.Email != "" {
		q.Set("email", query.Email)
	}

	var resp OrdersResponse
	if err := c.doJSON(ctx, http.MethodGet, "get_orders.php", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddOrder submits a finalized order.
func (c *Client) AddOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	var resp OrderResponse
	if err := c.doJSON(ctx, http.MethodPost, "add_order.php", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.OrderNumber == "" {
		resp.OrderNumber = resp.Data.OrderNumber
	}
	return &resp, nil
}

// GetUser reads the user profile. The session token travels in the body,
// not a header; that is the upstream's contract.
func (c *Client) GetUser(ctx context.Context, sessionToken string) (*models.UserProfile, error) {
	body := map[string]string{"sessionToken": sessionToken}

	var resp userResponse
	if err := c.doJSON(ctx, http.MethodPost, "get_user.php", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UpdateUser writes the user profile.
func (c *Client) UpdateUser(ctx context.Context, sessionToken string, profile *models.UserProfile) error {
	body := struct {
		SessionToken string `json:"sessionToken"`
		models.UserProfile
	}{SessionToken: sessionToken, UserProfile: *profile}

	var resp userResponse
	return c.doJSON(ctx, http.MethodPut, "update_user.php", nil, body, &resp)
}

// SendConfirmation posts the order-confirmation email payload.
func (c *Client) SendConfirmation(ctx context.Context, email *ConfirmationEmail) error {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	return c.doJSON(ctx, http.MethodPost, "enviar_confirmacion.php", nil, email, &resp)
}

// doJSON performs one request and decodes the envelope, classifying
// failures into the NetworkError / RemoteRejection / ParseError taxonomy.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upstream %s: encode request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("upstream %s: build request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteRejection{Op: path, Message: fmt.Sprintf("http status %d", resp.StatusCode)}
	}

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &ParseError{Op: path, Body: truncate(raw), Err: err}
	}
	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "request rejected"
		}
		return &RemoteRejection{Op: path, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{Op: path, Body: truncate(raw), Err: err}
	}

	c.logger.Debug("Upstream call succeeded", zap.String("path", path))
	return nil
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBody {
		return string(raw[:maxErrorBody]) + "..."
	}
	return string(raw)
}
