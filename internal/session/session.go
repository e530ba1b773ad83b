// Package session supplies the current user's identity to per-user
// operations. Components take a Provider instead of reaching into global
// state, so "not logged in" is testable.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spendwise/spendwise/internal/database/repository"
)

// ErrNotAuthenticated means an operation requires a user id that is not
// available. Callers should treat it as recoverable.
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider yields the authenticated user's id.
type Provider interface {
	UserID(ctx context.Context) (string, error)
}

// Static is a fixed identity, used for the local single-user profile and in
// tests. The empty string is an unauthenticated session.
type Static string

func (s Static) UserID(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNotAuthenticated
	}
	return string(s), nil
}

// Authenticator registers and verifies users against the store.
type Authenticator struct {
	Users *repository.UserRepo
}

// Register creates a user with a hashed password and returns a session.
func (a *Authenticator) Register(ctx context.Context, name, email, password string) (Static, error) {
	existing, err := a.Users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", fmt.Errorf("email %q already registered", email)
	}
	u := repository.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hashPassword(password),
	}
	if err := a.Users.Insert(ctx, u); err != nil {
		return "", err
	}
	return Static(u.ID), nil
}

// Login verifies credentials and returns a session for the user.
func (a *Authenticator) Login(ctx context.Context, email, password string) (Static, error) {
	u, err := a.Users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil || u.PasswordHash != hashPassword(password) {
		return "", ErrNotAuthenticated
	}
	return Static(u.ID), nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
