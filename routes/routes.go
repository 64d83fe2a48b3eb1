package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geekyair/restaurant-backoffice/controllers"
	"github.com/geekyair/restaurant-backoffice/middleware"
	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/services"
)

// RegisterRoutes wires the full HTTP surface. Route groups carry coarse
// role gates; finer rules (waiter self-scoping, cashier completion guards)
// live in the services.
func RegisterRoutes(
	router *gin.Engine,
	auth *services.AuthService,
	userController *controllers.UserController,
	itemController *controllers.ItemController,
	orderController *controllers.OrderController,
	reportController *controllers.ReportController,
) {
	// Public
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "restaurant-backoffice"})
	})

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", userController.Login)
		authGroup.GET("/verify-email", userController.VerifyEmail)
	}

	authed := api.Group("", middleware.Authenticate(auth))

	adminOnly := middleware.Authorize(models.RoleSuperAdmin, models.RoleManager)
	staff := middleware.Authorize(
		models.RoleSuperAdmin, models.RoleManager, models.RoleCashier, models.RoleWaiter,
	)
	orderWriters := middleware.Authorize(
		models.RoleSuperAdmin, models.RoleManager, models.RoleCashier,
	)

	users := authed.Group("/users")
	{
		users.GET("/me", staff, userController.GetMe)
		users.POST("", adminOnly, userController.AddUser)
		users.GET("/:id", adminOnly, userController.GetUser)
	}

	items := authed.Group("/items")
	{
		items.GET("", staff, itemController.QueryItems)
		items.GET("/export", adminOnly, itemController.ExportCSV)
		items.GET("/:id", staff, itemController.GetItem)
		items.POST("", adminOnly, itemController.CreateItem)
		items.PATCH("/:id", adminOnly, itemController.UpdateItem)
		items.DELETE("/:id", adminOnly, itemController.DeleteItem)
	}

	orders := authed.Group("/orders")
	{
		orders.GET("", staff, orderController.QueryOrders)
		orders.GET("/:id", staff, orderController.GetOrder)
		orders.POST("", orderWriters, orderController.CreateOrder)
		orders.POST("/:id/items", orderWriters, orderController.AddItem)
		orders.POST("/:id/items/bulk", orderWriters, orderController.AddItems)
		orders.DELETE("/:id/items/:itemId", orderWriters, orderController.RemoveItem)
		orders.PATCH("/:id", orderWriters, orderController.UpdateOrder)
	}

	reports := authed.Group("/reports")
	{
		reports.GET("/waiter-commission", staff, reportController.WaiterCommission)
	}
}
