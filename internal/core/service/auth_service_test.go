package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Password: "correct horse", FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err = env.auth.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "another one"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, _, err = env.auth.Login(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, logged, err := env.auth.Login(ctx, "ALICE@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	sub, err := env.auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sub)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{Email: "not-an-email", Password: "long enough"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.auth.Register(ctx, RegisterInput{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseToken_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.auth.Register(ctx, RegisterInput{Email: "a@example.com", Password: "long enough"})
	require.NoError(t, err)
	token, _, err := env.auth.Login(ctx, "a@example.com", "long enough")
	require.NoError(t, err)

	other := NewAuthService(env.db, "other-secret", time.Hour)
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	env.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = env.auth.ParseToken(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.auth.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAddressService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	svc := NewAddressService(env.db)

	addr, err := svc.Create(ctx, Actor{UserID: alice.ID}, AddressInput{
		Name: "Alice", Address1: "1 Main Street", PostalCode: "12345", City: "Springfield", Country: "de",
	})
	require.NoError(t, err)
	assert.Equal(t, "DE", addr.Country)

	_, err = svc.Create(ctx, Actor{UserID: alice.ID}, AddressInput{Name: "Alice", Address1: "x", PostalCode: "1", City: "y", Country: "DEU"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, Actor{UserID: bob.ID}, addr.ID, AddressInput{
		Name: "Bob", Address1: "1 Main Street", PostalCode: "12345", City: "Springfield", Country: "DE",
	})
	assert.ErrorIs(t, err, ErrAddressNotFound)

	list, err := svc.List(ctx, Actor{UserID: bob.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
}
