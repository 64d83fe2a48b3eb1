package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geekyair/restaurant-backoffice/middleware"
	"github.com/geekyair/restaurant-backoffice/services"
)

// ReportController handles HTTP requests for reports
type ReportController struct {
	service *services.ReportService
}

func NewReportController(service *services.ReportService) *ReportController {
	return &ReportController{service: service}
}

// WaiterCommission returns the per-waiter commission report. With
// export=true the report downloads as a CSV file.
// GET /api/reports/waiter-commission
func (rc *ReportController) WaiterCommission(c *gin.Context) {
	start, err := time.Parse("2006-01-02", c.Query("startDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate is required in YYYY-MM-DD format"})
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate is required in YYYY-MM-DD format"})
		return
	}

	query := services.ReportQuery{
		StartDate:  start,
		EndDate:    end,
		WaiterName: c.Query("waiterName"),
	}
	actor := middleware.CurrentUser(c)

	if c.Query("export") == "true" {
		data, serr := rc.service.WaiterCommissionCSV(c.Request.Context(), query, actor)
		if serr != nil {
			c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
			return
		}
		if data == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "No completed orders found for the given range"})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="waiter-commission.csv"`)
		c.Data(http.StatusOK, "text/csv", []byte(data))
		return
	}

	rows, serr := rc.service.WaiterCommissionReport(c.Request.Context(), query, actor)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": rows})
}
