package main

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{"id", "name", "category", "price", "quantity", "status"}

func newMockRepository(t *testing.T) (*PostgresProductRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresProductRepository(mock), mock
}

func sqlFragment(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

func setQuantity(quantity int) func(p *Product) error {
	return func(p *Product) error {
		p.Quantity = quantity
		p.RefreshStatus()
		return nil
	}
}

func TestPostgresRepository_UpdateRecordsMovement(t *testing.T) {
	// Arrange
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("FOR UPDATE")).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(int64(2), "Mouse", "Electronics", 25.0, 8, "low-stock"))
	mock.ExpectExec(sqlFragment("UPDATE products")).
		WithArgs(int64(2), 25.0, 20, "in-stock").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(sqlFragment("INSERT INTO inventory_movements")).
		WithArgs(pgxmock.AnyArg(), int64(2), 12, MovementTypeIncreased, 8, 20, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	// Act
	product, err := repo.Update(context.Background(), 2, setQuantity(20))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 20, product.Quantity)
	assert.Equal(t, StockStatusInStock, product.Status)
	assert.Equal(t, "Mouse", product.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateWithoutQuantityChange(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(int64(1), "Laptop", "Electronics", 999.0, 15, "in-stock"))
	mock.ExpectExec(sqlFragment("UPDATE products")).
		WithArgs(int64(1), 899.5, 15, "in-stock").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	product, err := repo.Update(context.Background(), 1, func(p *Product) error {
		p.Price = 899.5
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 899.5, product.Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("FOR UPDATE")).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 42, setQuantity(1))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateRollsBackOnMutateError(t *testing.T) {
	repo, mock := newMockRepository(t)
	rejected := errors.New("rejected")
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(int64(3), "Keyboard", "Electronics", 75.0, 0, "out-of-stock"))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 3, func(p *Product) error { return rejected })

	assert.ErrorIs(t, err, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateRollsBackOnWriteError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("FOR UPDATE")).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(int64(2), "Mouse", "Electronics", 25.0, 8, "low-stock"))
	mock.ExpectExec(sqlFragment("UPDATE products")).
		WithArgs(int64(2), 25.0, 0, "out-of-stock").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 2, setQuantity(0))

	assert.ErrorContains(t, err, "failed to update product")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateRecordsInitialMovement(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("INSERT INTO products")).
		WithArgs("Webcam", "Electronics", 49.9, 11, "in-stock").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(6)))
	mock.ExpectExec(sqlFragment("INSERT INTO inventory_movements")).
		WithArgs(pgxmock.AnyArg(), int64(6), 11, MovementTypeIncreased, 0, 11, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	product := NewProduct("Webcam", "Electronics", 49.9, 11)
	err := repo.Create(context.Background(), product)

	require.NoError(t, err)
	assert.Equal(t, int64(6), product.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateEmptyStockHasNoMovement(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("INSERT INTO products")).
		WithArgs("Freebie", "Promo", 0.0, 0, "out-of-stock").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), NewProduct("Freebie", "Promo", 0, 0))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateRollsBackOnInsertError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("INSERT INTO products")).
		WithArgs("Webcam", "Electronics", 49.9, 11, "in-stock").
		WillReturnError(errors.New("check constraint"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), NewProduct("Webcam", "Electronics", 49.9, 11))

	assert.ErrorContains(t, err, "failed to insert product")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteRemovesHistory(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("DELETE FROM products")).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(int64(4), "Monitor", "Electronics", 299.0, 5, "low-stock"))
	mock.ExpectExec(sqlFragment("DELETE FROM inventory_movements WHERE product_id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	removed, err := repo.Delete(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, "Monitor", removed.Name)
	assert.Equal(t, StockStatusLowStock, removed.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlFragment("DELETE FROM products")).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 99)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(sqlFragment("SELECT id, name, category, price, quantity, status")).
		WillReturnRows(pgxmock.NewRows(productColumns).
			AddRow(int64(1), "Laptop", "Electronics", 999.0, 15, "in-stock").
			AddRow(int64(3), "Keyboard", "Electronics", 75.0, 0, "out-of-stock"))

	products, err := repo.List(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(3), products[1].ID)
	assert.Equal(t, StockStatusOutOfStock, products[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Movements(t *testing.T) {
	repo, mock := newMockRepository(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(sqlFragment("SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(sqlFragment("FROM inventory_movements")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "change_quantity", "movement_type", "previous_quantity", "new_quantity", "created_at"}).
			AddRow("m-1", int64(1), 15, MovementTypeIncreased, 0, 15, at).
			AddRow("m-2", int64(1), 5, MovementTypeDecreased, 15, 10, at.Add(time.Minute)))

	movements, err := repo.Movements(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, MovementTypeDecreased, movements[1].MovementType)
	assert.Equal(t, 10, movements[1].NewQuantity)
	assert.Equal(t, at, movements[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_MovementsNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(sqlFragment("SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)")).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.Movements(context.Background(), 9)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_EnsureSchemaSeedsFreshTable(t *testing.T) {
	repo, mock := newMockRepository(t)
	seed := seedProducts()
	mock.ExpectExec(sqlFragment("CREATE TABLE IF NOT EXISTS products")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(sqlFragment("SELECT is_called FROM products_id_seq")).
		WillReturnRows(pgxmock.NewRows([]string{"is_called"}).AddRow(false))
	mock.ExpectBegin()
	for _, p := range seed {
		mock.ExpectExec(sqlFragment("INSERT INTO products (id, name, category, price, quantity, status)")).
			WithArgs(p.ID, p.Name, p.Category, p.Price, p.Quantity, string(p.Status)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectExec(sqlFragment("setval")).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectCommit()

	err := repo.EnsureSchema(context.Background(), seed)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_EnsureSchemaSeedsOnlyOnce(t *testing.T) {
	// Tabela vazia porque todos os produtos foram removidos: a sequência já foi usada
	repo, mock := newMockRepository(t)
	mock.ExpectExec(sqlFragment("CREATE TABLE IF NOT EXISTS products")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(sqlFragment("SELECT is_called FROM products_id_seq")).
		WillReturnRows(pgxmock.NewRows([]string{"is_called"}).AddRow(true))

	err := repo.EnsureSchema(context.Background(), seedProducts())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_EnsureSchemaRollsBackFailedSeed(t *testing.T) {
	repo, mock := newMockRepository(t)
	seed := seedProducts()
	mock.ExpectExec(sqlFragment("CREATE TABLE IF NOT EXISTS products")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(sqlFragment("SELECT is_called FROM products_id_seq")).
		WillReturnRows(pgxmock.NewRows([]string{"is_called"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(sqlFragment("INSERT INTO products (id, name, category, price, quantity, status)")).
		WithArgs(seed[0].ID, seed[0].Name, seed[0].Category, seed[0].Price, seed[0].Quantity, string(seed[0].Status)).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.EnsureSchema(context.Background(), seed)

	assert.ErrorContains(t, err, "failed to seed product 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
