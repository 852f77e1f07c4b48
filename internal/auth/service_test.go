package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DTigi/BankApplication/internal/identity"
	"github.com/DTigi/BankApplication/internal/session"
)

func newService(t *testing.T) (*Service, *identity.Service, *session.Store) {
	t.Helper()
	ids := identity.NewService(identity.NewMemoryRepository())
	sessions := session.NewStore(time.Hour, time.Second)
	return NewService(ids, sessions, NewTokenManager("secret", "bank", time.Hour)), ids, sessions
}

func TestLoginAuthenticateLogout(t *testing.T) {
	svc, ids, sessions := newService(t)
	ctx := context.Background()
	client, err := ids.Register(ctx, identity.Registration{FullName: "Anna", Phone: "+7", Username: "anna", Password: "secret"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, identity.Credentials{Username: "anna", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, client.ID, res.Client.ID)
	assert.Equal(t, 1, sessions.Len())

	clientID, token, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, client.ID, clientID)
	assert.Equal(t, res.SessionToken, token)

	current, err := svc.Current(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, "anna", current.Username)

	require.NoError(t, svc.Logout(res.AccessToken))
	_, _, err = svc.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// already closed
	assert.NoError(t, svc.Logout(res.AccessToken))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, ids, sessions := newService(t)
	ctx := context.Background()
	_, err := ids.Register(ctx, identity.Registration{FullName: "Anna", Phone: "+7", Username: "anna", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, identity.Credentials{Username: "anna", Password: "wrong"})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, err = svc.Login(ctx, identity.Credentials{Username: "ghost", Password: "secret"})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	assert.Equal(t, 0, sessions.Len())
}

func TestEachLoginOpensItsOwnSession(t *testing.T) {
	svc, ids, _ := newService(t)
	ctx := context.Background()
	_, err := ids.Register(ctx, identity.Registration{FullName: "Anna", Phone: "+7", Username: "anna", Password: "secret"})
	require.NoError(t, err)

	first, err := svc.Login(ctx, identity.Credentials{Username: "anna", Password: "secret"})
	require.NoError(t, err)
	second, err := svc.Login(ctx, identity.Credentials{Username: "anna", Password: "secret"})
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionToken, second.SessionToken)

	require.NoError(t, svc.Logout(first.AccessToken))
	_, _, err = svc.Authenticate(ctx, second.AccessToken)
	assert.NoError(t, err)
}

func TestCurrentWithoutClient(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Current(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Current(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
