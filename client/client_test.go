package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeToken = "token-admin"

// fakeAPI é um servidor mínimo com o mesmo contrato HTTP da API de inventário
type fakeAPI struct {
	mu       sync.Mutex
	products []Product
	nextID   int64
}

func newFakeAPI() *httptest.Server {
	api := &fakeAPI{
		products: []Product{
			{ID: 1, Name: "Laptop", Category: "Electronics", Price: 999, Quantity: 15, Status: "in-stock"},
			{ID: 2, Name: "Desk Chair", Category: "Furniture", Price: 199, Quantity: 12, Status: "in-stock"},
		},
		nextID: 3,
	}
	return httptest.NewServer(api)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r.URL.Path == "/api/auth/login" {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "admin" || body["password"] != "admin123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": fakeToken,
			"user":  map[string]string{"username": "admin", "role": "admin"},
		})
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+fakeToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "No token provided"})
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/products":
		writeJSON(w, http.StatusOK, a.products)
	case r.Method == http.MethodPost && r.URL.Path == "/api/products":
		var p Product
		_ = json.NewDecoder(r.Body).Decode(&p)
		p.ID = a.nextID
		a.nextID++
		p.Status = "low-stock"
		a.products = append(a.products, p)
		writeJSON(w, http.StatusCreated, p)
	case r.Method == http.MethodPut && r.URL.Path == "/api/products/1":
		var body map[string]int
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.products[0].Quantity = body["quantity"]
		a.products[0].Status = "out-of-stock"
		writeJSON(w, http.StatusOK, a.products[0])
	case r.Method == http.MethodPut && r.URL.Path == "/api/products-price/1":
		var body map[string]float64
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.products[0].Price = body["price"]
		writeJSON(w, http.StatusOK, a.products[0])
	case r.Method == http.MethodDelete && r.URL.Path == "/api/products/2":
		for i, p := range a.products {
			if p.ID == 2 {
				a.products = append(a.products[:i], a.products[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]any{"message": "Product deleted successfully", "product": p})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
	case r.Method == http.MethodGet && r.URL.Path == "/api/products/1/movements":
		writeJSON(w, http.StatusOK, []Movement{{ID: "m-1", ProductID: 1, ChangeQuantity: 15, MovementType: "decreased", PreviousQuantity: 15}})
	case strings.HasPrefix(r.URL.Path, "/api/products"):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
	default:
		http.NotFound(w, r)
	}
}

func TestClient_RequiresLogin(t *testing.T) {
	srv := newFakeAPI()
	defer srv.Close()
	c := New(srv.URL)

	_, err := c.ListProducts(context.Background())

	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, ok := c.CurrentUser()
	assert.False(t, ok)
}

func TestClient_LoginFailureCarriesServerMessage(t *testing.T) {
	srv := newFakeAPI()
	defer srv.Close()
	c := New(srv.URL)

	_, err := c.Login(context.Background(), "admin", "wrong")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestClient_ProductFlow(t *testing.T) {
	srv := newFakeAPI()
	defer srv.Close()
	ctx := context.Background()
	c := New(srv.URL)

	user, err := c.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	created, err := c.AddProduct(ctx, NewProduct{Name: "Mouse", Category: "Electronics", Price: 25, Quantity: 8})
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)
	assert.Len(t, c.Products(), 3)

	updated, err := c.UpdateQuantity(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "out-of-stock", updated.Status)
	assert.Equal(t, "out-of-stock", c.Products()[0].Status)

	_, err = c.UpdatePrice(ctx, 1, 899.5)
	require.NoError(t, err)
	assert.Equal(t, 899.5, c.Products()[0].Price)

	removed, err := c.DeleteProduct(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Desk Chair", removed.Name)
	for _, p := range c.Products() {
		assert.NotEqual(t, int64(2), p.ID)
	}

	_, err = c.DeleteProduct(ctx, 2)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	movements, err := c.Movements(ctx, 1)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "decreased", movements[0].MovementType)
}

func TestClient_SessionPersistence(t *testing.T) {
	srv := newFakeAPI()
	defer srv.Close()
	ctx := context.Background()
	store := NewFileSessionStore(filepath.Join(t.TempDir(), "session.json"))

	first := New(srv.URL, WithSessionStore(store))
	_, err := first.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	second := New(srv.URL, WithSessionStore(store))
	restored, err := second.Restore()
	require.NoError(t, err)
	assert.True(t, restored)
	user, ok := second.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "admin", user.Username)

	_, err = second.ListProducts(ctx)
	require.NoError(t, err)

	require.NoError(t, second.Logout())
	assert.Empty(t, second.Products())

	third := New(srv.URL, WithSessionStore(store))
	restored, err = third.Restore()
	require.NoError(t, err)
	assert.False(t, restored)
}
