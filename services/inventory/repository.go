package main

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ProductRepository define a interface para operações de armazenamento de produtos.
// Update aplica mutate sobre o produto de forma atômica e registra a movimentação
// de estoque caso a quantidade tenha mudado.
type ProductRepository interface {
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, id int64, mutate func(p *Product) error) (*Product, error)
	Delete(ctx context.Context, id int64) (*Product, error)
	Movements(ctx context.Context, id int64) ([]InventoryMovement, error)
}

// MemoryProductRepository implementa ProductRepository em memória.
// Um único lock protege toda a coleção.
type MemoryProductRepository struct {
	mu        sync.RWMutex
	products  []Product
	movements map[int64][]InventoryMovement
	nextID    int64
}

// NewMemoryProductRepository cria um repositório em memória com os produtos informados.
// O próximo ID começa após o maior ID existente.
func NewMemoryProductRepository(seed []Product) *MemoryProductRepository {
	repo := &MemoryProductRepository{
		products:  make([]Product, 0, len(seed)),
		movements: make(map[int64][]InventoryMovement),
		nextID:    1,
	}
	for _, p := range seed {
		repo.products = append(repo.products, p)
		if p.ID >= repo.nextID {
			repo.nextID = p.ID + 1
		}
	}
	return repo
}

// List retorna uma cópia da coleção na ordem de inserção
func (r *MemoryProductRepository) List(ctx context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, len(r.products))
	copy(out, r.products)
	return out, nil
}

// Create atribui o próximo ID e adiciona o produto ao final da coleção
func (r *MemoryProductRepository) Create(ctx context.Context, product *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product.ID = r.nextID
	r.nextID++
	product.RefreshStatus()
	r.products = append(r.products, *product)

	if m := NewInventoryMovement(uuid.New().String(), product.ID, 0, product.Quantity); m != nil {
		r.movements[product.ID] = append(r.movements[product.ID], *m)
	}
	return nil
}

// Update aplica a mutação sob o lock de escrita
func (r *MemoryProductRepository) Update(ctx context.Context, id int64, mutate func(p *Product) error) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	updated := r.products[idx]
	previous := updated.Quantity
	if err := mutate(&updated); err != nil {
		return nil, err
	}
	r.products[idx] = updated

	if m := NewInventoryMovement(uuid.New().String(), id, previous, updated.Quantity); m != nil {
		r.movements[id] = append(r.movements[id], *m)
	}
	return &updated, nil
}

// Delete remove o produto definitivamente
func (r *MemoryProductRepository) Delete(ctx context.Context, id int64) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	removed := r.products[idx]
	r.products = append(r.products[:idx], r.products[idx+1:]...)
	delete(r.movements, id)
	return &removed, nil
}

// Movements retorna o histórico de movimentações do produto, do mais antigo ao mais recente
func (r *MemoryProductRepository) Movements(ctx context.Context, id int64) ([]InventoryMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.indexOf(id) < 0 {
		return nil, ErrNotFound
	}

	out := make([]InventoryMovement, len(r.movements[id]))
	copy(out, r.movements[id])
	return out, nil
}

// indexOf deve ser chamado com o lock adquirido
func (r *MemoryProductRepository) indexOf(id int64) int {
	for i := range r.products {
		if r.products[i].ID == id {
			return i
		}
	}
	return -1
}
