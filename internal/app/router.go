// internal/app/router.go
package app

import (
	authHandler "luckylogic-crm/internal/handlers/auth"
	customerHandler "luckylogic-crm/internal/handlers/customer"
	dashboardHandler "luckylogic-crm/internal/handlers/dashboard"
	webHandler "luckylogic-crm/internal/handlers/web"
	wsHandler "luckylogic-crm/internal/handlers/websocket"
	"luckylogic-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler      *authHandler.AuthHandler
	CustomerHandler  *customerHandler.CustomerHandler
	DashboardHandler *dashboardHandler.DashboardHandler
	LandingHandler   *webHandler.LandingHandler
	WSHandler        *wsHandler.WebSocketHandler
	AuthMiddleware   *middleware.AuthMiddleware
}

// SetupRouter registers every route on r.
func SetupRouter(r *gin.Engine, h *Handlers) {
	r.GET("/", h.LandingHandler.Index)

	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Auth ====================
	api.POST("/auth/login", h.AuthHandler.Login)

	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.GET("/me", h.AuthHandler.GetMe)
	}

	// ==================== Dashboard ====================
	admin := api.Group("")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.GET("/dashboard", h.DashboardHandler.GetSummary)
		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}

	// ==================== Customers ====================
	customers := api.Group("/customers")
	customers.Use(h.AuthMiddleware.AdminOnly()...)
	{
		customers.GET("", h.CustomerHandler.ListCustomers)
		customers.GET("/:id", h.CustomerHandler.GetCustomer)
		customers.POST("", h.CustomerHandler.CreateCustomer)
		customers.PUT("/:id", h.CustomerHandler.UpdateCustomer)
		customers.DELETE("/:id", h.CustomerHandler.DeleteCustomer)
	}
}
