package auth

import (
	"context"
	"errors"
	"time"

	"github.com/DTigi/BankApplication/internal/identity"
	"github.com/DTigi/BankApplication/internal/session"
)

// ErrUnauthenticated is returned when a request carries no live session.
var ErrUnauthenticated = errors.New("not authenticated")

// Service logs clients in and out. A login opens a session and hands back a
// signed token naming it; the session, not the token, is the source of truth.
type Service struct {
	ids      *identity.Service
	sessions *session.Store
	tokens   *TokenManager
}

// NewService wires the auth service.
func NewService(ids *identity.Service, sessions *session.Store, tokens *TokenManager) *Service {
	return &Service{ids: ids, sessions: sessions, tokens: tokens}
}

// LoginResult is what a successful login returns.
type LoginResult struct {
	Client       identity.Client
	SessionToken string
	AccessToken  string
	ExpiresAt    time.Time
}

// Login checks the credentials and opens a session.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (LoginResult, error) {
	client, err := s.ids.Authenticate(ctx, creds)
	if err != nil {
		return LoginResult{}, err
	}
	sess := s.sessions.Create(client.ID)
	access, exp, err := s.tokens.Generate(client.ID, client.Username, sess.Token)
	if err != nil {
		s.sessions.Delete(sess.Token)
		return LoginResult{}, err
	}
	return LoginResult{Client: client, SessionToken: sess.Token, AccessToken: access, ExpiresAt: exp}, nil
}

// Authenticate resolves an access token to its client and live session.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (clientID, sessionToken string, err error) {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return "", "", err
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", "", ErrUnauthenticated
		}
		return "", "", err
	}
	if sess.ClientID != claims.Subject {
		return "", "", ErrUnauthenticated
	}
	return sess.ClientID, sess.Token, nil
}

// Logout closes the session named by the token. Closing a session that is
// already gone succeeds.
func (s *Service) Logout(accessToken string) error {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return err
	}
	s.sessions.Delete(claims.SessionID)
	return nil
}

// Current returns the client behind a live session.
func (s *Service) Current(ctx context.Context, clientID string) (identity.Client, error) {
	if clientID == "" {
		return identity.Client{}, ErrUnauthenticated
	}
	client, err := s.ids.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Client{}, ErrUnauthenticated
		}
		return identity.Client{}, err
	}
	return client, nil
}

// ActiveSessions reports the number of open sessions.
func (s *Service) ActiveSessions() int {
	return s.sessions.Len()
}
