package main

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// tokenClaims são as claims assinadas no token de sessão
type tokenClaims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// LoginResult é a resposta de um login bem sucedido
type LoginResult struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

// AuthService valida credenciais e emite/verifica tokens JWT assinados com HS256.
// Não mantém tabela de sessões.
type AuthService struct {
	users   []User
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	metrics *inventoryMetrics
}

// NewAuthService cria uma nova instância de AuthService
func NewAuthService(users []User, secret string, ttl time.Duration, metrics *inventoryMetrics) *AuthService {
	return &AuthService{
		users:   users,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		metrics: metrics,
	}
}

// Login compara usuário e senha em texto puro e emite um token válido por ttl
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, ok := s.findUser(username, password)
	if !ok {
		s.metrics.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failure")))
		return nil, ErrInvalidCredentials
	}

	issuedAt := s.now()
	claims := tokenClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.metrics.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "success")))
	return &LoginResult{
		Token: token,
		User:  Identity{Username: user.Username, Role: user.Role},
	}, nil
}

// Verify valida assinatura e expiração e retorna a identidade embutida
func (s *AuthService) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Username == "" || !claims.Role.Valid() {
		return Identity{}, ErrInvalidToken
	}

	return Identity{Username: claims.Username, Role: claims.Role}, nil
}

func (s *AuthService) findUser(username, password string) (User, bool) {
	if username == "" || password == "" {
		return User{}, false
	}
	for _, u := range s.users {
		if u.Username == username && u.Password == password {
			return u, true
		}
	}
	return User{}, false
}

// Authorize exige papel admin quando requiredRole é admin; qualquer outro requisito é permitido
func Authorize(identity Identity, requiredRole Role) error {
	if requiredRole == RoleAdmin && identity.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}
