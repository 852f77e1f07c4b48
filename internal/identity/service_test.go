package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository())
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	client, err := svc.Register(ctx, Registration{FullName: "Ivan Petrov", Phone: "+79001234567", Username: "user1", Password: "pass1"})
	require.NoError(t, err)
	assert.NotEmpty(t, client.ID)
	assert.NotEqual(t, []byte("pass1"), client.PasswordHash)
	assert.Empty(t, client.AccountIDs)

	authed, err := svc.Authenticate(ctx, Credentials{Username: "user1", Password: "pass1"})
	require.NoError(t, err)
	assert.Equal(t, client.ID, authed.ID)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{FullName: "A", Phone: "1", Username: "user1", Password: "pass1"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, Credentials{Username: "user1", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, Credentials{Username: "nobody", Password: "pass1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := map[string]Registration{
		"missing username": {FullName: "A", Phone: "1", Password: "pass1"},
		"missing name":     {Phone: "1", Username: "u", Password: "pass1"},
		"missing phone":    {FullName: "A", Username: "u", Password: "pass1"},
		"short password":   {FullName: "A", Phone: "1", Username: "u", Password: "abc"},
	}
	for name, reg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, reg)
			assert.ErrorIs(t, err, ErrInvalidRegistration)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{FullName: "A", Phone: "1", Username: "user1", Password: "pass1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, Registration{FullName: "B", Phone: "2", Username: "user1", Password: "pass2"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAttachAccountKeepsOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	client, err := svc.Register(ctx, Registration{FullName: "A", Phone: "1", Username: "user1", Password: "pass1"})
	require.NoError(t, err)
	require.NoError(t, svc.AttachAccount(ctx, client.ID, "acc-2"))
	require.NoError(t, svc.AttachAccount(ctx, client.ID, "acc-1"))

	got, err := svc.Get(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-2", "acc-1"}, got.AccountIDs)

	primary, ok := got.PrimaryAccount()
	assert.True(t, ok)
	assert.Equal(t, "acc-2", primary)
	assert.True(t, got.OwnsAccount("acc-1"))
	assert.False(t, got.OwnsAccount("acc-3"))

	assert.ErrorIs(t, svc.AttachAccount(ctx, "missing", "acc-9"), ErrNotFound)
}

func TestListReturnsCopies(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	client, err := svc.Register(ctx, Registration{FullName: "A", Phone: "1", Username: "user1", Password: "pass1"})
	require.NoError(t, err)
	require.NoError(t, svc.AttachAccount(ctx, client.ID, "acc-1"))

	clients, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	clients[0].AccountIDs[0] = "tampered"

	again, err := svc.Get(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-1"}, again.AccountIDs)
}
