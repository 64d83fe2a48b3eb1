package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/geekyair/restaurant-backoffice/middleware"
	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/services"
)

// OrderController handles HTTP requests for orders
type OrderController struct {
	service *services.OrderService
}

func NewOrderController(service *services.OrderService) *OrderController {
	return &OrderController{service: service}
}

// CreateOrder opens a new empty pending order
// POST /api/orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	order, serr := oc.service.CreateOrder(c.Request.Context())
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusCreated, order)
}

// AddItem adds or updates one line on a pending order
// POST /api/orders/:id/items
func (oc *OrderController) AddItem(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, serr := oc.service.AddItem(c.Request.Context(), orderID, req.ItemID, req.Quantity)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, order)
}

// AddItems applies a batch of lines atomically
// POST /api/orders/:id/items/bulk
func (oc *OrderController) AddItems(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Items []services.LineRequest `json:"items" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, serr := oc.service.AddItems(c.Request.Context(), orderID, req.Items)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, order)
}

// RemoveItem deletes a line from a pending order and restores stock
// DELETE /api/orders/:id/items/:itemId
func (oc *OrderController) RemoveItem(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	order, serr := oc.service.RemoveItem(c.Request.Context(), orderID, itemID)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrder changes status and/or assigned waiter
// PATCH /api/orders/:id
func (oc *OrderController) UpdateOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.OrderUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, serr := oc.service.UpdateOrder(c.Request.Context(), orderID, req, middleware.CurrentUser(c))
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrder fetches one order with its lines and waiter
// GET /api/orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, serr := oc.service.GetOrder(c.Request.Context(), orderID, middleware.CurrentUser(c))
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, order)
}

// QueryOrders lists orders with filtering, sorting and pagination
// GET /api/orders
func (oc *OrderController) QueryOrders(c *gin.Context) {
	query := services.OrderQuery{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 10),
	}
	if status := c.Query("status"); status != "" {
		st := models.OrderStatus(status)
		if !models.ValidOrderStatus(st) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		query.Status = &st
	}
	if waiter := c.Query("waiter_id"); waiter != "" {
		id, err := strconv.ParseUint(waiter, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid waiter_id filter"})
			return
		}
		wid := uint(id)
		query.WaiterID = &wid
	}

	page, serr := oc.service.QueryOrders(c.Request.Context(), query, middleware.CurrentUser(c))
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, page)
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, defaultValue int) int {
	if raw := c.Query(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return defaultValue
}
