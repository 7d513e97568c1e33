package main

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("product not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("access denied")
	ErrRateLimited        = errors.New("too many requests")
)

// validationError embrulha ErrValidation com a mensagem exibida ao cliente
func validationError(message string) error {
	return fmt.Errorf("%w: %s", ErrValidation, message)
}

// validationMessage extrai a mensagem de um erro criado por validationError
func validationMessage(err error) string {
	msg := err.Error()
	prefix := ErrValidation.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return msg
}
