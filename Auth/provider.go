// Package Auth wraps the login providers: Firebase Authentication in
// production and a bcrypt/JWT provider backed by the SQL store for local runs.
package Auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Provider owns logins. Profiles (role, coffeeshop) live in the store.
type Provider interface {
	VerifyToken(ctx context.Context, token string) (string, error)
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
	DeleteAccount(ctx context.Context, uid string) error
}
