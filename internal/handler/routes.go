package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/obligo/obligo-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, templateHandler *TemplateHandler, instanceHandler *InstanceHandler, accountHandler *AccountHandler) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Recurring expense templates
	templates := api.Group("/recurring-expenses")
	templates.POST("", templateHandler.CreateTemplate)
	templates.GET("", templateHandler.GetTemplates)
	templates.GET("/:id", templateHandler.GetTemplate)
	templates.PATCH("/:id", templateHandler.UpdateTemplate)
	templates.DELETE("/:id", templateHandler.DeleteTemplate)

	// Monthly expense instances
	instances := api.Group("/monthly-instances")
	instances.GET("", instanceHandler.ListInstances)
	instances.POST("/generate", instanceHandler.Generate)
	instances.POST("/:id/pay", instanceHandler.Pay)
	instances.PATCH("/:id/payment", instanceHandler.EditPayment)
	instances.DELETE("/:id/payment", instanceHandler.UndoPayment)

	// Accounts
	accounts := api.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
}
