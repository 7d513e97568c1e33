package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS products (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	category   TEXT NOT NULL,
	price      DOUBLE PRECISION NOT NULL CHECK (price >= 0),
	quantity   INTEGER NOT NULL CHECK (quantity >= 0),
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS inventory_movements (
	id                UUID PRIMARY KEY,
	product_id        BIGINT NOT NULL,
	change_quantity   INTEGER NOT NULL,
	movement_type     TEXT NOT NULL,
	previous_quantity INTEGER NOT NULL,
	new_quantity      INTEGER NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_inventory_movements_product_id ON inventory_movements (product_id);
`

// pgxPool é o subconjunto de *pgxpool.Pool usado pelo repositório
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresProductRepository implementa ProductRepository usando PostgreSQL
type PostgresProductRepository struct {
	db pgxPool
}

// NewPostgresProductRepository cria uma nova instância de PostgresProductRepository
func NewPostgresProductRepository(db pgxPool) *PostgresProductRepository {
	return &PostgresProductRepository{
		db: db,
	}
}

// EnsureSchema cria as tabelas e carrega o catálogo inicial uma única vez.
// A sequência de IDs marca se a tabela já recebeu algum produto; esvaziar a
// tabela não traz o catálogo de volta.
func (r *PostgresProductRepository) EnsureSchema(ctx context.Context, seed []Product) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var used bool
	if err := r.db.QueryRow(ctx, `SELECT is_called FROM products_id_seq`).Scan(&used); err != nil {
		return fmt.Errorf("failed to read product sequence: %w", err)
	}
	if used || len(seed) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range seed {
		_, err := tx.Exec(ctx, `
			INSERT INTO products (id, name, category, price, quantity, status)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.ID, p.Name, p.Category, p.Price, p.Quantity, string(p.Status))
		if err != nil {
			return fmt.Errorf("failed to seed product %d: %w", p.ID, err)
		}
	}

	// A sequência precisa avançar além dos IDs inseridos manualmente
	_, err = tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence('products', 'id'), (SELECT MAX(id) FROM products))`)
	if err != nil {
		return fmt.Errorf("failed to advance product sequence: %w", err)
	}

	return tx.Commit(ctx)
}

// List busca todos os produtos na ordem de inserção
func (r *PostgresProductRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, category, price, quantity, status
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		var status string
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Quantity, &status); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Status = StockStatus(status)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// Create insere o produto e registra a movimentação inicial
func (r *PostgresProductRepository) Create(ctx context.Context, product *Product) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	product.RefreshStatus()
	err = tx.QueryRow(ctx, `
		INSERT INTO products (name, category, price, quantity, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, product.Name, product.Category, product.Price, product.Quantity, string(product.Status)).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	if m := NewInventoryMovement(uuid.New().String(), product.ID, 0, product.Quantity); m != nil {
		if err := insertMovement(ctx, tx, m); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Update obtém o produto com lock pessimista (FOR UPDATE), aplica a mutação e grava
func (r *PostgresProductRepository) Update(ctx context.Context, id int64, mutate func(p *Product) error) (*Product, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	product, err := getProductForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	previous := product.Quantity
	if err := mutate(product); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE products
		SET price = $2,
		    quantity = $3,
		    status = $4,
		    updated_at = NOW()
		WHERE id = $1
	`, id, product.Price, product.Quantity, string(product.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if m := NewInventoryMovement(uuid.New().String(), id, previous, product.Quantity); m != nil {
		if err := insertMovement(ctx, tx, m); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return product, nil
}

// Delete remove o produto e o seu histórico de movimentações
func (r *PostgresProductRepository) Delete(ctx context.Context, id int64) (*Product, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var p Product
	var status string
	err = tx.QueryRow(ctx, `
		DELETE FROM products
		WHERE id = $1
		RETURNING id, name, category, price, quantity, status
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Quantity, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	p.Status = StockStatus(status)

	if _, err := tx.Exec(ctx, `DELETE FROM inventory_movements WHERE product_id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete movements: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return &p, nil
}

// Movements retorna o histórico de movimentações do produto
func (r *PostgresProductRepository) Movements(ctx context.Context, id int64) ([]InventoryMovement, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, change_quantity, movement_type, previous_quantity, new_quantity, created_at
		FROM inventory_movements
		WHERE product_id = $1
		ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	movements := make([]InventoryMovement, 0)
	for rows.Next() {
		var m InventoryMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ChangeQuantity, &m.MovementType,
			&m.PreviousQuantity, &m.NewQuantity, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func getProductForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*Product, error) {
	var p Product
	var status string
	err := tx.QueryRow(ctx, `
		SELECT id, name, category, price, quantity, status
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Quantity, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product with lock: %w", err)
	}
	p.Status = StockStatus(status)
	return &p, nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, m *InventoryMovement) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_movements (id, product_id, change_quantity, movement_type, previous_quantity, new_quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.ProductID, m.ChangeQuantity, m.MovementType, m.PreviousQuantity, m.NewQuantity, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert movement record: %w", err)
	}
	return nil
}

// initDB abre o pool de conexões e aguarda o banco ficar disponível
func initDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return pool, nil
		}
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}
