package auth

import (
	"context"
	"errors"

	"github.com/avelazco/cursoteca/backend"
	"github.com/avelazco/cursoteca/core/session"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so login feedback does not reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrEmailTaken = errors.New("email already registered")
)

// Facade is the authentication capability set the store consumes: password
// register/login/logout plus a session-change feed.
type Facade interface {
	Register(ctx context.Context, email, password string) (session.Session, error)
	Login(ctx context.Context, email, password string) (session.Session, error)
	Logout(ctx context.Context) error

	// OnChange subscribes to session-state changes. The callback fires once
	// immediately with the current value (nil when signed out), then on
	// every later login or logout, until the cancel func is invoked.
	OnChange(fn func(*session.Session)) backend.CancelFunc
}
