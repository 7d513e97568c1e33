package main

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// newRouter registra as rotas e middlewares da API
func newRouter(cfg Config, handler *InventoryHandler, auth *AuthService, limiter RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		requestID(),
		recovery(logger),
		otelgin.Middleware(cfg.ServiceName),
		requestLogger(logger),
		corsPolicy(cfg.CORSOrigin),
	)

	r.GET("/health", handler.HealthCheck)

	r.POST("/api/auth/login", loginRateLimit(limiter, logger), handler.Login)

	api := r.Group("/api")
	api.Use(requireAuth(auth))
	{
		api.GET("/products", handler.ListProducts)
		api.GET("/products/:id/movements", handler.ListMovements)

		admin := api.Group("")
		admin.Use(requireRole(RoleAdmin))
		admin.POST("/products", handler.CreateProduct)
		admin.PUT("/products/:id", handler.UpdateQuantity)
		admin.PUT("/products-price/:id", handler.UpdatePrice)
		admin.DELETE("/products/:id", handler.DeleteProduct)
	}

	return r
}
