package identity

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no client matches the lookup.
	ErrNotFound = errors.New("client not found")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already registered")
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidRegistration wraps field validation failures.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// Client is a registered bank customer. Identity fields never change after
// registration; AccountIDs only grows, in creation order.
type Client struct {
	ID           string
	Username     string
	FullName     string
	Phone        string
	PasswordHash []byte
	AccountIDs   []string
	CreatedAt    time.Time
}

// PrimaryAccount returns the first account the client opened, which is the
// account transfers are sent from.
func (c Client) PrimaryAccount() (string, bool) {
	if len(c.AccountIDs) == 0 {
		return "", false
	}
	return c.AccountIDs[0], true
}

// OwnsAccount reports whether accountID belongs to the client.
func (c Client) OwnsAccount(accountID string) bool {
	for _, id := range c.AccountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// Registration carries the fields needed to create a client.
type Registration struct {
	FullName string
	Phone    string
	Username string
	Password string
}

// Credentials request structure.
type Credentials struct {
	Username string
	Password string
}
