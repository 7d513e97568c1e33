package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	identityContextKey  = "identity"
	requestIDContextKey = "request_id"
	requestIDHeader     = "X-Request-Id"
)

// requestID reaproveita o X-Request-Id recebido ou gera um novo
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger registra uma linha por requisição
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000.0),
			zap.String("request_id", c.GetString(requestIDContextKey)),
		)
	}
}

// recovery converte panics em 500 sem expor detalhes internos
func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("request_id", c.GetString(requestIDContextKey)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	})
}

// corsPolicy libera o front-end configurado em CORS_ORIGIN ("*" libera qualquer origem)
func corsPolicy(origin string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = []string{origin}
	}
	return cors.New(config)
}

// requireAuth verifica o token Bearer e guarda a identidade no contexto.
// Sem token responde 401; token inválido ou expirado responde 403.
func requireAuth(auth *AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var identity Identity
			identity, err = auth.Verify(token)
			if err == nil {
				c.Set(identityContextKey, identity)
				c.Next()
				return
			}
		}

		if errors.Is(err, ErrMissingToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Invalid token"})
	}
}

// requireRole aplica Authorize sobre a identidade autenticada
func requireRole(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
			return
		}
		if err := Authorize(identity, role); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied. Admin only."})
			return
		}
		c.Next()
	}
}

// loginRateLimit limita tentativas de login por IP. Sem limitador, não faz nada.
func loginRateLimit(limiter RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}
		c.Next()
	}
}

// bearerToken extrai o token do cabeçalho "Authorization: Bearer <token>"
func bearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) < 2 {
		return "", ErrMissingToken
	}
	if !strings.EqualFold(parts[0], "Bearer") || len(parts) > 2 {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}

func identityFromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}
