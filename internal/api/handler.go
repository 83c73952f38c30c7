package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-service/config"
	"storefront-service/internal/admin"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/chat"
	"storefront-service/internal/checkout"
	"storefront-service/internal/models"
	"storefront-service/internal/reconcile"
	"storefront-service/internal/upstream"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionHeader = "X-Session-ID"

// Handler contains HTTP handlers
type Handler struct {
	cartEngine *cart.Engine
	orch       *checkout.Orchestrator
	reconciler *reconcile.Reconciler
	catalog    *catalog.Service
	admin      *admin.Service
	chat       *chat.Service
	shopAPI    *upstream.Client
	authCfg    config.AuthConfig
}

// NewHandler creates a new HTTP handler
func NewHandler(
	cartEngine *cart.Engine,
	orch *checkout.Orchestrator,
	reconciler *reconcile.Reconciler,
	catalogSvc *catalog.Service,
	adminSvc *admin.Service,
	chatSvc *chat.Service,
	shopAPI *upstream.Client,
	authCfg config.AuthConfig,
) *Handler {
	return &Handler{
		cartEngine: cartEngine,
		orch:       orch,
		reconciler: reconciler,
		catalog:    catalogSvc,
		admin:      adminSvc,
		chat:       chatSvc,
		shopAPI:    shopAPI,
		authCfg:    authCfg,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Payment provider callbacks arrive without our headers; the session
	// travels as a query parameter instead.
	router.GET("/payment/return", h.paymentReturn)
	router.GET("/payment/cancel", h.paymentCancel)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/combos", h.listCombos)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addItem)
		v1.POST("/cart/combos", h.addCombo)
		v1.DELETE("/cart/items/:id", h.removeItem)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout/validate", h.validateCheckout)
		v1.POST("/checkout/begin", h.beginCheckout)
		v1.POST("/checkout/confirm", h.confirmCheckout)
		v1.POST("/checkout/retry", h.retryCheckout)
		v1.GET("/checkout/status", h.checkoutStatus)

		v1.GET("/payment/last", h.lastPayment)

		v1.GET("/chat/history", h.chatHistory)
		v1.POST("/chat/history", h.appendChat)

		v1.POST("/profile", h.getProfile)
		v1.PUT("/profile", h.updateProfile)

		adminGroup := v1.Group("/admin", AuthRequired(h.authCfg.JWTSecret))
		adminGroup.GET("/orders", h.listOrders)
	}
}

// sessionID reads the session header, minting a fresh id when absent. The
// id is echoed back so the client can persist it.
func sessionID(c *gin.Context) string {
	id := c.GetHeader(sessionHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Header(sessionHeader, id)
	return id
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.Products(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) listCombos(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"combos": catalog.Combos()})
}

func (h *Handler) getCart(c *gin.Context) {
	session := sessionID(c)
	snapshot, err := h.cartEngine.Load(c.Request.Context(), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	h.renderCart(c, snapshot)
}

type addItemRequest struct {
	Product  models.Product `json:"product" binding:"required"`
	Quantity int            `json:"quantity"`
}

func (h *Handler) addItem(c *gin.Context) {
	session := sessionID(c)

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	snapshot, err := h.cartEngine.AddItem(c.Request.Context(), session, req.Product, req.Quantity)
	if err != nil {
		if errors.Is(err, cart.ErrProductIDReserved) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item"})
		return
	}
	h.renderCart(c, snapshot)
}

type addComboRequest struct {
	ComboID  string `json:"combo_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) addCombo(c *gin.Context) {
	session := sessionID(c)

	var req addComboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	offer, ok := catalog.ComboByID(req.ComboID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown combo"})
		return
	}

	snapshot, err := h.cartEngine.AddCombo(c.Request.Context(), session, offer, req.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add combo"})
		return
	}
	h.renderCart(c, snapshot)
}

func (h *Handler) removeItem(c *gin.Context) {
	session := sessionID(c)

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	snapshot, err := h.cartEngine.RemoveOne(c.Request.Context(), session, itemID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove item"})
		return
	}
	h.renderCart(c, snapshot)
}

func (h *Handler) clearCart(c *gin.Context) {
	session := sessionID(c)
	if err := h.cartEngine.Clear(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": []models.CartItem{}, "item_count": 0, "subtotal": 0.0})
}

func (h *Handler) renderCart(c *gin.Context, snapshot *models.Cart) {
	c.JSON(http.StatusOK, gin.H{
		"items":      snapshot.Items,
		"item_count": snapshot.ItemCount(),
		"subtotal":   cart.Subtotal(snapshot),
	})
}

func (h *Handler) validateCheckout(c *gin.Context) {
	var info models.CustomerInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	fieldErrs := checkout.Validate(info)
	c.JSON(http.StatusOK, gin.H{
		"valid":  len(fieldErrs) == 0,
		"errors": fieldErrs,
	})
}

func (h *Handler) beginCheckout(c *gin.Context) {
	session := sessionID(c)

	var info models.CustomerInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	redirect, err := h.orch.BeginPayment(c.Request.Context(), session, info)
	if err != nil {
		var valErr *checkout.ValidationError
		switch {
		case errors.As(err, &valErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": valErr.Fields})
		case errors.Is(err, checkout.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		case errors.Is(err, checkout.ErrBelowMinimum):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, checkout.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to begin payment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect_url": redirect, "status": models.CheckoutStatusProcessing})
}

type confirmRequest struct {
	Success *bool `json:"success" binding:"required"`
}

func (h *Handler) confirmCheckout(c *gin.Context) {
	session := sessionID(c)

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.orch.ConfirmPayment(c.Request.Context(), session, *req.Success)
	if err != nil {
		if errors.Is(err, checkout.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) retryCheckout(c *gin.Context) {
	session := sessionID(c)
	if err := h.orch.Retry(c.Request.Context(), session); err != nil {
		if errors.Is(err, checkout.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.CheckoutStatusPending})
}

func (h *Handler) checkoutStatus(c *gin.Context) {
	session := sessionID(c)
	status, err := h.orch.Status(c.Request.Context(), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// paymentReturn is the reconciliation entry point. PayPal redirects here
// with a PayerID query parameter.
func (h *Handler) paymentReturn(c *gin.Context) {
	session := c.Query("session")
	if session == "" {
		session = sessionID(c)
	}

	payerID := c.Query("PayerID")
	if payerID == "" {
		payerID = c.Query("payerId")
	}

	result, err := h.reconciler.HandleReturn(c.Request.Context(), session, payerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reconciliation failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// paymentCancel marks the in-flight attempt as failed; the cart survives.
func (h *Handler) paymentCancel(c *gin.Context) {
	session := c.Query("session")
	if session == "" {
		session = sessionID(c)
	}

	result, err := h.orch.ConfirmPayment(c.Request.Context(), session, false)
	if err != nil {
		if errors.Is(err, checkout.ErrInvalidTransition) {
			// No attempt in flight; nothing to cancel.
			c.JSON(http.StatusOK, gin.H{"status": "noop"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) lastPayment(c *gin.Context) {
	session := sessionID(c)
	marker, err := h.orch.LastPayment(c.Request.Context(), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read marker"})
		return
	}
	if marker == nil {
		c.JSON(http.StatusNoContent, nil)
		return
	}
	c.JSON(http.StatusOK, marker)
}

func (h *Handler) chatHistory(c *gin.Context) {
	session := sessionID(c)
	history, err := h.chat.History(c.Request.Context(), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

func (h *Handler) appendChat(c *gin.Context) {
	session := sessionID(c)

	var msg models.ChatMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	history, err := h.chat.Append(c.Request.Context(), session, msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to append message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

type profileRequest struct {
	SessionToken string              `json:"session_token" binding:"required"`
	Profile      *models.UserProfile `json:"profile,omitempty"`
}

func (h *Handler) getProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	profile, err := h.shopAPI.GetUser(c.Request.Context(), req.SessionToken)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Profile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.shopAPI.UpdateUser(c.Request.Context(), req.SessionToken, req.Profile); err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.admin.ListOrders(c.Request.Context(), upstream.OrdersQuery{
		Page:         page,
		Limit:        limit,
		IncludeItems: c.Query("include_items") == "true",
		Search:       c.Query("search"),
		Status:       c.Query("status"),
		Email:        c.Query("email"),
	})
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// upstreamError maps the upstream error taxonomy onto HTTP statuses.
func (h *Handler) upstreamError(c *gin.Context, err error) {
	var rejErr *upstream.RemoteRejection
	if errors.As(err, &rejErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": rejErr.Message})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream request failed", "details": err.Error()})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
