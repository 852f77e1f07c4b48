package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 4

// Service manages the client lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a client with no accounts and stores a hashed password.
func (s *Service) Register(ctx context.Context, reg Registration) (Client, error) {
	reg.FullName = strings.TrimSpace(reg.FullName)
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.Username = strings.TrimSpace(reg.Username)

	switch {
	case reg.Username == "":
		return Client{}, fmt.Errorf("%w: username is required", ErrInvalidRegistration)
	case reg.FullName == "":
		return Client{}, fmt.Errorf("%w: full name is required", ErrInvalidRegistration)
	case reg.Phone == "":
		return Client{}, fmt.Errorf("%w: phone is required", ErrInvalidRegistration)
	case len(reg.Password) < minPasswordLength:
		return Client{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRegistration, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return Client{}, err
	}

	client := Client{
		ID:           uuid.New().String(),
		Username:     reg.Username,
		FullName:     reg.FullName,
		Phone:        reg.Phone,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, client); err != nil {
		return Client{}, err
	}

	return client, nil
}

// Authenticate verifies a username/password pair.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Client, error) {
	client, err := s.repo.FindByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Client{}, ErrInvalidCredentials
		}
		return Client{}, err
	}

	if err := bcrypt.CompareHashAndPassword(client.PasswordHash, []byte(creds.Password)); err != nil {
		return Client{}, ErrInvalidCredentials
	}

	return client, nil
}

// Get returns the client with the given identifier.
func (s *Service) Get(ctx context.Context, id string) (Client, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByUsername returns the client registered under username.
func (s *Service) FindByUsername(ctx context.Context, username string) (Client, error) {
	return s.repo.FindByUsername(ctx, username)
}

// AttachAccount records a newly opened account as owned by clientID.
func (s *Service) AttachAccount(ctx context.Context, clientID, accountID string) error {
	return s.repo.AttachAccount(ctx, clientID, accountID)
}

// List returns all clients, oldest first.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	return s.repo.List(ctx)
}
