package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRequest é o corpo de POST /api/auth/login
type LoginRequest struct {
	Username credential `json:"username"`
	Password credential `json:"password"`
}

// credential é um campo de login. Valores que não são string contam como
// preenchidos, mas nunca casam com um usuário.
type credential struct {
	value  string
	filled bool
}

func (c *credential) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if json.Unmarshal(data, &c.value) != nil {
		c.value = ""
		c.filled = true
		return nil
	}
	c.filled = c.value != ""
	return nil
}

// InventoryHandler contém os handlers HTTP de autenticação e inventário
type InventoryHandler struct {
	useCase *InventoryUseCase
	auth    *AuthService
	logger  *zap.Logger
}

// NewInventoryHandler cria uma nova instância de InventoryHandler
func NewInventoryHandler(useCase *InventoryUseCase, auth *AuthService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		useCase: useCase,
		auth:    auth,
		logger:  logger,
	}
}

// Login autentica o usuário e devolve o token e a identidade pública
func (h *InventoryHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required"})
		return
	}
	if !req.Username.filled || !req.Password.filled {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username.value, req.Password.value)
	if err != nil {
		h.logger.Info("ℹ️ [LOGIN] rejected", zap.String("username", req.Username.value))
		h.writeError(c, err)
		return
	}

	h.logger.Info("✅ [LOGIN] Success",
		zap.String("username", result.User.Username),
		zap.String("role", string(result.User.Role)))
	c.JSON(http.StatusOK, result)
}

// ListProducts retorna todos os produtos
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	products, err := h.useCase.ListProducts(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// CreateProduct cria um produto (somente admin)
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": bindErrorMessage(err)})
		return
	}

	product, err := h.useCase.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateQuantity altera a quantidade de um produto (somente admin)
func (h *InventoryHandler) UpdateQuantity(c *gin.Context) {
	var req UpdateQuantityRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": bindErrorMessage(err)})
		return
	}

	product, err := h.useCase.UpdateQuantity(c.Request.Context(), productID(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// UpdatePrice altera o preço de um produto (somente admin)
func (h *InventoryHandler) UpdatePrice(c *gin.Context) {
	var req UpdatePriceRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": bindErrorMessage(err)})
		return
	}

	product, err := h.useCase.UpdatePrice(c.Request.Context(), productID(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct remove um produto (somente admin)
func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	product, err := h.useCase.DeleteProduct(c.Request.Context(), productID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
		"product": product,
	})
}

// ListMovements retorna o histórico de movimentações de estoque de um produto
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	movements, err := h.useCase.ListMovements(c.Request.Context(), productID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

// HealthCheck é o endpoint de health check
func (h *InventoryHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// writeError traduz os erros de domínio para status HTTP.
// Erros inesperados viram 500 sem expor a causa.
func (h *InventoryHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": validationMessage(err)})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, ErrMissingToken):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
	case errors.Is(err, ErrInvalidToken):
		c.JSON(http.StatusForbidden, gin.H{"message": "Invalid token"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "Access denied. Admin only."})
	case errors.Is(err, ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
	default:
		h.logger.Error("❌ unexpected error",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

// bindJSON decodifica o corpo; corpo vazio é tratado como objeto vazio
// para que a validação de campos obrigatórios responda com a mensagem certa.
func bindJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// bindErrorMessage descreve falhas de decodificação. price e quantity nunca
// chegam aqui: numberField aceita qualquer valor e a validação decide.
func bindErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("Invalid value for %s", typeErr.Field)
	}
	return "Invalid request body"
}

// productID lê o parâmetro :id. IDs inválidos viram 0, que nunca é atribuído,
// assim a validação do corpo continua tendo precedência sobre o 404.
func productID(c *gin.Context) int64 {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}
