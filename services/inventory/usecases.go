package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// numberField guarda um campo numérico do corpo distinguindo ausente,
// presente mas não numérico (null, string, ...) e número.
type numberField struct {
	present bool
	numeric bool
	value   float64
}

// numberValue cria um numberField preenchido com v
func numberValue(v float64) numberField {
	return numberField{present: true, numeric: true, value: v}
}

func (n *numberField) UnmarshalJSON(data []byte) error {
	n.present = true
	if string(data) == "null" {
		return nil
	}
	var v float64
	if json.Unmarshal(data, &v) != nil {
		// presente, mas não numérico
		return nil
	}
	n.numeric = true
	n.value = v
	return nil
}

// nonNegative retorna o valor quando é um número >= 0
func (n numberField) nonNegative() (float64, bool) {
	if !n.numeric || n.value < 0 {
		return 0, false
	}
	return n.value, true
}

// quantity aceita números inteiros não negativos em qualquer notação (10, 10.0, 1e1).
// O limite é o de uma coluna INTEGER.
func (n numberField) quantity() (int, bool) {
	v, ok := n.nonNegative()
	if !ok || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// CreateProductRequest é o corpo de criação de produto
type CreateProductRequest struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    numberField `json:"price"`
	Quantity numberField `json:"quantity"`
}

// UpdateQuantityRequest é o corpo de atualização de quantidade
type UpdateQuantityRequest struct {
	Quantity numberField `json:"quantity"`
}

// UpdatePriceRequest é o corpo de atualização de preço
type UpdatePriceRequest struct {
	Price numberField `json:"price"`
}

// InventoryUseCase contém a lógica de negócio do inventário
type InventoryUseCase struct {
	repository ProductRepository
	tracer     trace.Tracer
	metrics    *inventoryMetrics
	logger     *zap.Logger
}

// NewInventoryUseCase cria uma nova instância de InventoryUseCase
func NewInventoryUseCase(
	repository ProductRepository,
	tracer trace.Tracer,
	metrics *inventoryMetrics,
	logger *zap.Logger,
) *InventoryUseCase {
	return &InventoryUseCase{
		repository: repository,
		tracer:     tracer,
		metrics:    metrics,
		logger:     logger,
	}
}

// ListProducts retorna todos os produtos na ordem de inserção
func (uc *InventoryUseCase) ListProducts(ctx context.Context) ([]Product, error) {
	ctx, span := uc.tracer.Start(ctx, "list_products")
	defer span.End()

	products, err := uc.repository.List(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}

	span.SetAttributes(attribute.Int("product_count", len(products)))
	return products, nil
}

// CreateProduct valida a entrada, atribui o ID e calcula o status
func (uc *InventoryUseCase) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	ctx, span := uc.tracer.Start(ctx, "create_product")
	defer span.End()

	if req.Name == "" || req.Category == "" || !req.Price.present || !req.Quantity.present {
		err := validationError("All fields are required")
		recordSpanError(span, err)
		return nil, err
	}
	price, ok := req.Price.nonNegative()
	if !ok {
		err := validationError("Price must be a positive number")
		recordSpanError(span, err)
		return nil, err
	}
	quantity, ok := req.Quantity.quantity()
	if !ok {
		err := validationError("Quantity must be a positive number")
		recordSpanError(span, err)
		return nil, err
	}

	product := NewProduct(req.Name, req.Category, price, quantity)
	if err := uc.repository.Create(ctx, product); err != nil {
		uc.logger.Error("❌ [CREATE PRODUCT] failed to store product", zap.Error(err))
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("product_id", product.ID),
		attribute.String("status", string(product.Status)),
	)
	uc.metrics.productsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(product.Status))))
	uc.logger.Info("✅ [CREATE PRODUCT] Success",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("status", string(product.Status)))

	return product, nil
}

// UpdateQuantity altera a quantidade e recalcula o status.
// A validação acontece antes da busca do produto.
func (uc *InventoryUseCase) UpdateQuantity(ctx context.Context, id int64, req UpdateQuantityRequest) (*Product, error) {
	ctx, span := uc.tracer.Start(ctx, "update_quantity")
	defer span.End()
	span.SetAttributes(attribute.Int64("product_id", id))

	if !req.Quantity.present {
		err := validationError("Quantity is required")
		recordSpanError(span, err)
		return nil, err
	}
	quantity, ok := req.Quantity.quantity()
	if !ok {
		err := validationError("Quantity must be a positive number")
		recordSpanError(span, err)
		return nil, err
	}

	product, err := uc.repository.Update(ctx, id, func(p *Product) error {
		p.Quantity = quantity
		p.RefreshStatus()
		return nil
	})
	if err != nil {
		uc.logUpdateFailure("[UPDATE QUANTITY]", id, err)
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("status", string(product.Status)))
	uc.metrics.productsUpdated.Add(ctx, 1, metric.WithAttributes(attribute.String("field", "quantity")))
	uc.logger.Info("✅ [UPDATE QUANTITY] Success",
		zap.Int64("product_id", id),
		zap.Int("quantity", product.Quantity),
		zap.String("status", string(product.Status)))

	return product, nil
}

// UpdatePrice altera o preço. O status é recalculado mesmo sem depender do preço.
func (uc *InventoryUseCase) UpdatePrice(ctx context.Context, id int64, req UpdatePriceRequest) (*Product, error) {
	ctx, span := uc.tracer.Start(ctx, "update_price")
	defer span.End()
	span.SetAttributes(attribute.Int64("product_id", id))

	if !req.Price.present {
		err := validationError("Price is required")
		recordSpanError(span, err)
		return nil, err
	}
	price, ok := req.Price.nonNegative()
	if !ok {
		err := validationError("Price must be a positive number")
		recordSpanError(span, err)
		return nil, err
	}

	product, err := uc.repository.Update(ctx, id, func(p *Product) error {
		p.Price = price
		p.RefreshStatus()
		return nil
	})
	if err != nil {
		uc.logUpdateFailure("[UPDATE PRICE]", id, err)
		recordSpanError(span, err)
		return nil, err
	}

	uc.metrics.productsUpdated.Add(ctx, 1, metric.WithAttributes(attribute.String("field", "price")))
	uc.logger.Info("✅ [UPDATE PRICE] Success",
		zap.Int64("product_id", id),
		zap.Float64("price", product.Price))

	return product, nil
}

// DeleteProduct remove o produto definitivamente e o retorna
func (uc *InventoryUseCase) DeleteProduct(ctx context.Context, id int64) (*Product, error) {
	ctx, span := uc.tracer.Start(ctx, "delete_product")
	defer span.End()
	span.SetAttributes(attribute.Int64("product_id", id))

	product, err := uc.repository.Delete(ctx, id)
	if err != nil {
		uc.logUpdateFailure("[DELETE PRODUCT]", id, err)
		recordSpanError(span, err)
		return nil, err
	}

	uc.metrics.productsDeleted.Add(ctx, 1)
	uc.logger.Info("🗑️ [DELETE PRODUCT] Success", zap.Int64("product_id", id))
	return product, nil
}

// ListMovements retorna o histórico de movimentações de estoque do produto
func (uc *InventoryUseCase) ListMovements(ctx context.Context, id int64) ([]InventoryMovement, error) {
	ctx, span := uc.tracer.Start(ctx, "list_movements")
	defer span.End()
	span.SetAttributes(attribute.Int64("product_id", id))

	movements, err := uc.repository.Movements(ctx, id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if movements == nil {
		movements = []InventoryMovement{}
	}
	return movements, nil
}

func (uc *InventoryUseCase) logUpdateFailure(tag string, id int64, err error) {
	if errors.Is(err, ErrNotFound) {
		uc.logger.Info("ℹ️ "+tag+" product not found", zap.Int64("product_id", id))
		return
	}
	uc.logger.Error("❌ "+tag+" failed", zap.Int64("product_id", id), zap.Error(err))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
