package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geekyair/restaurant-backoffice/middleware"
	"github.com/geekyair/restaurant-backoffice/services"
)

// UserController handles HTTP requests for staff accounts and auth
type UserController struct {
	users *services.UserService
	auth  *services.AuthService
}

func NewUserController(users *services.UserService, auth *services.AuthService) *UserController {
	return &UserController{users: users, auth: auth}
}

// Login exchanges credentials for a bearer token
// POST /api/auth/login
func (uc *UserController) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, serr := uc.auth.Login(c.Request.Context(), req)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyEmail completes account activation from the emailed link
// GET /api/auth/verify-email
func (uc *UserController) VerifyEmail(c *gin.Context) {
	if serr := uc.users.VerifyEmail(c.Request.Context(), c.Query("token")); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// AddUser creates a Cashier or Waiter account
// POST /api/users
func (uc *UserController) AddUser(c *gin.Context) {
	var req services.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, serr := uc.users.AddUser(c.Request.Context(), req, middleware.CurrentUser(c))
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GetMe returns the authenticated user
// GET /api/users/me
func (uc *UserController) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// GetUser fetches a user by ID
// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, serr := uc.users.GetUser(c.Request.Context(), id)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, user)
}
