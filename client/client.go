// Package client é o cliente Go da API de inventário. Mantém a sessão
// autenticada e o último catálogo carregado, como o painel web faz.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotLoggedIn é retornado por operações autenticadas sem sessão ativa
var ErrNotLoggedIn = errors.New("not logged in")

// APIError carrega o status HTTP e a mensagem devolvida pelo servidor
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inventory api: %d %s", e.StatusCode, e.Message)
}

// IsStatus informa se err é um APIError com o status indicado
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// User é a identidade pública devolvida no login
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin indica se o usuário pode alterar o catálogo
func (u User) IsAdmin() bool {
	return u.Role == "admin"
}

// Product espelha o produto servido pela API
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Status   string  `json:"status"`
}

// Movement é uma entrada do histórico de estoque de um produto
type Movement struct {
	ID               string    `json:"id"`
	ProductID        int64     `json:"product_id"`
	ChangeQuantity   int       `json:"change_quantity"`
	MovementType     string    `json:"movement_type"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewProduct é o corpo de criação de produto
type NewProduct struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type deleteResponse struct {
	Message string  `json:"message"`
	Product Product `json:"product"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Client conversa com a API de inventário via resty
type Client struct {
	http  *resty.Client
	store SessionStore

	mu       sync.RWMutex
	session  *Session
	products []Product
}

// Option configura o Client
type Option func(*Client)

// WithSessionStore persiste a sessão entre execuções
func WithSessionStore(store SessionStore) Option {
	return func(c *Client) { c.store = store }
}

// WithTimeout define o timeout de cada requisição
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(timeout) }
}

// New cria um Client para a API em baseURL (ex.: http://localhost:5000)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore recarrega a sessão persistida, se houver. Retorna false quando não há sessão.
func (c *Client) Restore() (bool, error) {
	if c.store == nil {
		return false, nil
	}
	session, err := c.store.Load()
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return true, nil
}

// Login autentica e guarda (e persiste) a sessão
func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	var out loginResponse
	_, err := c.do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return User{}, err
	}

	session := &Session{Token: out.Token, User: out.User}
	if c.store != nil {
		if err := c.store.Save(session); err != nil {
			return User{}, fmt.Errorf("failed to persist session: %w", err)
		}
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return out.User, nil
}

// Logout descarta a sessão local e o catálogo carregado.
// O token continua válido no servidor até expirar.
func (c *Client) Logout() error {
	c.mu.Lock()
	c.session = nil
	c.products = nil
	c.mu.Unlock()

	if c.store != nil {
		return c.store.Clear()
	}
	return nil
}

// CurrentUser retorna o usuário da sessão ativa
func (c *Client) CurrentUser() (User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return User{}, false
	}
	return c.session.User, true
}

// Products retorna uma cópia do último catálogo carregado
func (c *Client) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// ListProducts busca o catálogo e substitui o cache local
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.authed(ctx, http.MethodGet, "/api/products", nil, &products); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.products = products
	c.mu.Unlock()
	return c.Products(), nil
}

// AddProduct cria um produto (somente admin)
func (c *Client) AddProduct(ctx context.Context, p NewProduct) (Product, error) {
	var created Product
	if err := c.authed(ctx, http.MethodPost, "/api/products", p, &created); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	c.products = append(c.products, created)
	c.mu.Unlock()
	return created, nil
}

// UpdateQuantity altera a quantidade de um produto (somente admin)
func (c *Client) UpdateQuantity(ctx context.Context, id int64, quantity int) (Product, error) {
	var updated Product
	path := fmt.Sprintf("/api/products/%d", id)
	if err := c.authed(ctx, http.MethodPut, path, map[string]int{"quantity": quantity}, &updated); err != nil {
		return Product{}, err
	}
	c.replace(updated)
	return updated, nil
}

// UpdatePrice altera o preço de um produto (somente admin)
func (c *Client) UpdatePrice(ctx context.Context, id int64, price float64) (Product, error) {
	var updated Product
	path := fmt.Sprintf("/api/products-price/%d", id)
	if err := c.authed(ctx, http.MethodPut, path, map[string]float64{"price": price}, &updated); err != nil {
		return Product{}, err
	}
	c.replace(updated)
	return updated, nil
}

// DeleteProduct remove um produto (somente admin) e retorna o produto removido
func (c *Client) DeleteProduct(ctx context.Context, id int64) (Product, error) {
	var out deleteResponse
	if err := c.authed(ctx, http.MethodDelete, fmt.Sprintf("/api/products/%d", id), nil, &out); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	kept := c.products[:0]
	for _, p := range c.products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	c.products = kept
	c.mu.Unlock()
	return out.Product, nil
}

// Movements retorna o histórico de estoque de um produto
func (c *Client) Movements(ctx context.Context, id int64) ([]Movement, error) {
	var movements []Movement
	path := fmt.Sprintf("/api/products/%d/movements", id)
	if err := c.authed(ctx, http.MethodGet, path, nil, &movements); err != nil {
		return nil, err
	}
	return movements, nil
}

func (c *Client) replace(updated Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == updated.ID {
			c.products[i] = updated
			return
		}
	}
}

func (c *Client) authed(ctx context.Context, method, path string, body, result any) error {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return ErrNotLoggedIn
	}

	_, err := c.do(ctx, method, path, session.Token, body, result)
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, result any) (*resty.Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetError(&errorResponse{})
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return resp, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
		if e, ok := resp.Error().(*errorResponse); ok && e.Message != "" {
			apiErr.Message = e.Message
		}
		return resp, apiErr
	}
	return resp, nil
}
