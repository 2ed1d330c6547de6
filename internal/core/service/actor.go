package service

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Actor identifies who a request runs for. Handlers build it from the
// session cookie and the bearer token and hand it to every call that needs
// it.
type Actor struct {
	UserID    string
	SessionID string
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// staffRole resolves the back-office role of the actor from the store,
// never from anything the client sent.
func staffRole(ctx context.Context, users port.UserRepository, actor Actor) (domain.Role, *domain.User, error) {
	if !actor.Authenticated() {
		return "", nil, ErrUnauthenticated
	}
	user, err := users.GetUser(ctx, actor.UserID)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrUnauthenticated
	}
	role, ok := domain.RoleFor(*user)
	if !ok {
		return "", user, ErrForbidden
	}
	return role, user, nil
}
