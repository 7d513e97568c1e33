package main

import (
	"time"
)

// StockStatus representa a situação de estoque derivada da quantidade
type StockStatus string

// StockStatus representa os possíveis estados de estoque de um produto
const (
	StockStatusInStock    StockStatus = "in-stock"
	StockStatusLowStock   StockStatus = "low-stock"
	StockStatusOutOfStock StockStatus = "out-of-stock"
)

// lowStockThreshold é a maior quantidade ainda considerada estoque baixo
const lowStockThreshold = 10

// ClassifyStock deriva o status de estoque a partir da quantidade
func ClassifyStock(quantity int) StockStatus {
	if quantity > lowStockThreshold {
		return StockStatusInStock
	}
	if quantity > 0 {
		return StockStatusLowStock
	}
	return StockStatusOutOfStock
}

// Product representa um item do inventário
type Product struct {
	ID       int64       `json:"id" db:"id"`
	Name     string      `json:"name" db:"name"`
	Category string      `json:"category" db:"category"`
	Price    float64     `json:"price" db:"price"`
	Quantity int         `json:"quantity" db:"quantity"`
	Status   StockStatus `json:"status" db:"status"`
}

// NewProduct cria uma nova instância de Product com o status já calculado.
// O ID é atribuído pelo repositório.
func NewProduct(name, category string, price float64, quantity int) *Product {
	return &Product{
		Name:     name,
		Category: category,
		Price:    price,
		Quantity: quantity,
		Status:   ClassifyStock(quantity),
	}
}

// RefreshStatus recalcula o status a partir da quantidade atual
func (p *Product) RefreshStatus() {
	p.Status = ClassifyStock(p.Quantity)
}

// InventoryMovement representa uma movimentação de estoque
type InventoryMovement struct {
	ID               string    `json:"id" db:"id"`
	ProductID        int64     `json:"product_id" db:"product_id"`
	ChangeQuantity   int       `json:"change_quantity" db:"change_quantity"`
	MovementType     string    `json:"movement_type" db:"movement_type"`
	PreviousQuantity int       `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity" db:"new_quantity"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// NewInventoryMovement cria a movimentação correspondente à troca de quantidade.
// Retorna nil quando a quantidade não mudou.
func NewInventoryMovement(id string, productID int64, previous, current int) *InventoryMovement {
	if previous == current {
		return nil
	}

	movementType := MovementTypeIncreased
	change := current - previous
	if change < 0 {
		movementType = MovementTypeDecreased
		change = -change
	}

	return &InventoryMovement{
		ID:               id,
		ProductID:        productID,
		ChangeQuantity:   change,
		MovementType:     movementType,
		PreviousQuantity: previous,
		NewQuantity:      current,
		CreatedAt:        time.Now(),
	}
}

// MovementType representa os tipos de movimentação de estoque
const (
	MovementTypeDecreased = "decreased"
	MovementTypeIncreased = "increased"
)

// Role representa o papel de um usuário
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid informa se o papel é conhecido
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User é um registro de credencial. A senha é comparada em texto puro.
type User struct {
	Username string `json:"username"`
	Password string `json:"-"`
	Role     Role   `json:"role"`
}

// Identity é o par usuário/papel extraído de um token verificado
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// seedProducts retorna o catálogo inicial carregado na inicialização
func seedProducts() []Product {
	seed := []Product{
		{ID: 1, Name: "Laptop", Category: "Electronics", Price: 999, Quantity: 15},
		{ID: 2, Name: "Mouse", Category: "Electronics", Price: 25, Quantity: 8},
		{ID: 3, Name: "Keyboard", Category: "Electronics", Price: 75, Quantity: 0},
		{ID: 4, Name: "Monitor", Category: "Electronics", Price: 299, Quantity: 5},
		{ID: 5, Name: "Desk Chair", Category: "Furniture", Price: 199, Quantity: 12},
	}
	for i := range seed {
		seed[i].RefreshStatus()
	}
	return seed
}
