package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geekyair/restaurant-backoffice/middleware"
	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/services"
)

// ItemController handles HTTP requests for inventory items
type ItemController struct {
	service *services.ItemService
}

func NewItemController(service *services.ItemService) *ItemController {
	return &ItemController{service: service}
}

// CreateItem adds a new inventory item
// POST /api/items
func (ic *ItemController) CreateItem(c *gin.Context) {
	var req services.ItemCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, serr := ic.service.CreateItem(c.Request.Context(), req)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetItem fetches one item
// GET /api/items/:id
func (ic *ItemController) GetItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, serr := ic.service.GetItem(c.Request.Context(), id)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, item)
}

// QueryItems lists items with filtering, sorting and pagination
// GET /api/items
func (ic *ItemController) QueryItems(c *gin.Context) {
	query := services.ItemQuery{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 10),
	}
	if category := c.Query("category"); category != "" {
		cat := models.Category(category)
		query.Category = &cat
	}

	page, serr := ic.service.QueryItems(c.Request.Context(), query, middleware.CurrentUser(c))
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdateItem applies a partial update
// PATCH /api/items/:id
func (ic *ItemController) UpdateItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ItemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, serr := ic.service.UpdateItem(c.Request.Context(), id, req)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem removes an item not referenced by any order
// DELETE /api/items/:id
func (ic *ItemController) DeleteItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if serr := ic.service.DeleteItem(c.Request.Context(), id); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

// ExportCSV downloads the full item list as CSV
// GET /api/items/export
func (ic *ItemController) ExportCSV(c *gin.Context) {
	data, serr := ic.service.ExportCSV(c.Request.Context())
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	if data == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No items found to export"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="items.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(data))
}
