package service

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upbartr/backend/internal/repository/memory"
)

func TestRegisterAndLogin(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthService(store.Users(), "test-secret")
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Name:     "Alice",
		Password: "Sup3rSecret",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "Sup3rSecret", resp.User.PasswordHash)

	// Token is HS256 with the user id as subject.
	token, err := jwt.Parse(resp.AccessToken, func(t *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	sub, err := token.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), sub)

	_, err = svc.Register(ctx, RegisterInput{
		Email:    "alice@example.com",
		Username: "alice2",
		Name:     "Alice Again",
		Password: "Sup3rSecret",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "Sup3rSecret"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCreds)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Sup3rSecret"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
}
