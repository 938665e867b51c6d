package handlers

import (
	"context"
	"net/http"
	"strconv"

	"example.com/tableside/internal/models"
	"example.com/tableside/internal/services"
	"example.com/tableside/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OrdersHandler handles order-related HTTP requests
type OrdersHandler struct {
	orders *services.OrderService
	tracer tracing.Tracer
}

// NewOrdersHandler creates a new orders handler
func NewOrdersHandler(orders *services.OrderService, tracer tracing.Tracer) *OrdersHandler {
	return &OrdersHandler{orders: orders, tracer: tracer}
}

// RegisterRoutes registers the order routes
func (h *OrdersHandler) RegisterRoutes(router *gin.Engine) {
	g := router.Group("/api/v1/orders")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/items", h.Append)
	g.POST("/:id/items/:index/completed", h.SetCompleted)
	g.POST("/:id/items/:index/served", h.SetServed)
	g.POST("/:id/items/:index/components/:componentId/done", h.ToggleComponentDone)
	g.POST("/:id/items/:index/components/:componentId/served", h.ToggleComponentServed)

	router.POST("/api/v1/tables/:table/archive", h.ArchiveTable)
	router.POST("/api/v1/order-history/search", h.SearchHistory)
}

// List returns all open orders
func (h *OrdersHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.orders.List())
}

// Get returns one order
func (h *OrdersHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// Create commits a new order
func (h *OrdersHandler) Create(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-order")
	defer h.tracer.EndTransaction(txn)

	var req models.Order
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	o := h.orders.Create(c.Request.Context(), req)
	h.tracer.AddAttribute(txn, "order_id", o.ID)
	c.JSON(http.StatusCreated, o)
}

// Update replaces an order
func (h *OrdersHandler) Update(c *gin.Context) {
	var req models.Order
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = c.Param("id")

	o, err := h.orders.Update(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Delete removes an order
func (h *OrdersHandler) Delete(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AppendRequest carries items to merge into an open order
type AppendRequest struct {
	Items []models.OrderItem `json:"items" binding:"required"`
}

// Append merges items into an existing order
func (h *OrdersHandler) Append(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-append-order-items")
	defer h.tracer.EndTransaction(txn)

	var req AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	o, err := h.orders.Append(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// FlagRequest carries the desired state of an item flag
type FlagRequest struct {
	Value bool `json:"value"`
}

// SetCompleted marks an item cooked or uncooked
func (h *OrdersHandler) SetCompleted(c *gin.Context) {
	h.flag(c, h.orders.SetItemCompleted)
}

// SetServed marks an item served or unserved
func (h *OrdersHandler) SetServed(c *gin.Context) {
	h.flag(c, h.orders.SetItemServed)
}

// ToggleComponentDone flips a combo component's cooked state
func (h *OrdersHandler) ToggleComponentDone(c *gin.Context) {
	h.component(c, h.orders.ToggleComponentDone)
}

// ToggleComponentServed flips a combo component's served state
func (h *OrdersHandler) ToggleComponentServed(c *gin.Context) {
	h.component(c, h.orders.ToggleComponentServed)
}

// ArchiveRequest names the archive label for a table
type ArchiveRequest struct {
	Label string `json:"label" binding:"required"`
}

// ArchiveTable closes out every order on a table
func (h *OrdersHandler) ArchiveTable(c *gin.Context) {
	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	archived := h.orders.ArchiveTable(c.Request.Context(), c.Param("table"), req.Label)
	c.JSON(http.StatusOK, gin.H{"archived": len(archived), "orders": archived})
}

// SearchHistory queries the archived order index
func (h *OrdersHandler) SearchHistory(c *gin.Context) {
	var query map[string]interface{}
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	docs, err := h.orders.SearchHistory(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hits": docs})
}

func (h *OrdersHandler) flag(c *gin.Context, fn func(ctx context.Context, id string, index int, value bool) (models.Order, error)) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item index"})
		return
	}

	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := fn(c.Request.Context(), c.Param("id"), index, req.Value)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrdersHandler) component(c *gin.Context, fn func(ctx context.Context, id string, index int, componentID string) (models.Order, error)) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item index"})
		return
	}

	o, err := fn(c.Request.Context(), c.Param("id"), index, c.Param("componentId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OrdersHandler) renderError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
