package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"collectdash/internal/config"
	"collectdash/pkg/contracts/domain"
)

// credential is one role's login. A nil hash disables the role.
type credential struct {
	username string
	hash     []byte
}

// UserStore holds the static role logins.
type UserStore struct {
	mu    sync.RWMutex
	users map[domain.Role]credential
	cost  int
}

// NewUserStore builds the store from configuration. Roles without a password
// hash cannot log in; malformed hashes are rejected.
func NewUserStore(cfg config.AuthConfig) (*UserStore, error) {
	s := &UserStore{
		users: make(map[domain.Role]credential, len(domain.Roles)),
		cost:  bcrypt.DefaultCost,
	}

	for role, c := range map[domain.Role]config.CredentialConfig{
		domain.RoleAgent:      cfg.Agent,
		domain.RoleAdmin:      cfg.Admin,
		domain.RoleSuperAdmin: cfg.Superadmin,
	} {
		cred := credential{username: c.Username}
		if c.PasswordHash != "" {
			if _, err := bcrypt.Cost([]byte(c.PasswordHash)); err != nil {
				return nil, fmt.Errorf("password hash for role %s: %w", role, err)
			}
			cred.hash = []byte(c.PasswordHash)
		}
		s.users[role] = cred
	}
	return s, nil
}

// HashPassword returns a bcrypt hash suitable for the password_hash settings.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks a role's username and password.
func (s *UserStore) Verify(role domain.Role, username, password string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	s.mu.RLock()
	cred := s.users[role]
	s.mu.RUnlock()

	if cred.hash == nil {
		return fmt.Errorf("%w: %s", ErrLoginDisabled, role)
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cred.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	err := bcrypt.CompareHashAndPassword(cred.hash, []byte(password))
	if !userOK || err != nil {
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("verify password: %w", err)
		}
		return ErrInvalidCredentials
	}
	return nil
}

// SetPassword replaces a role's password hash.
func (s *UserStore) SetPassword(role domain.Role, password string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if password == "" {
		return ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cred := s.users[role]
	cred.hash = hash
	s.users[role] = cred
	return nil
}

// Username returns the configured login name of a role.
func (s *UserStore) Username(role domain.Role) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[role].username
}
