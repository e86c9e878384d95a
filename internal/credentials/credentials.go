// Package credentials provides secure storage and retrieval of the backend
// API token using the OS-native keyring, with fallback to the environment.
package credentials

import (
	"fmt"
	"os"
	"strings"
)

const (
	service = "eisen"
	account = "api-token"

	// EnvToken overrides the keyring when set.
	EnvToken = "EISEN_API_TOKEN"
)

// Source indicates where a token was retrieved from.
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceConfig      Source = "config"
	SourceNone        Source = "none"
)

// Keyring is the interface for keyring operations.
type Keyring interface {
	Set(service, account, password string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles API token storage.
type Manager struct {
	keyring Keyring
}

// ManagerOption is a functional option for Manager.
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation. Tests pass a mock.
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// NewManager creates a credential manager backed by the OS keyring.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{keyring: &systemKeyring{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set stores the API token in the keyring.
func (m *Manager) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	return m.keyring.Set(service, account, token)
}

// Get retrieves the API token: environment first, then keyring. It returns
// the token and its source; SourceNone with an empty token means no token
// is stored anywhere.
func (m *Manager) Get() (string, Source, error) {
	if token := os.Getenv(EnvToken); token != "" {
		return token, SourceEnvironment, nil
	}
	token, err := m.keyring.Get(service, account)
	if err != nil {
		return "", SourceNone, nil
	}
	return token, SourceKeyring, nil
}

// Delete removes the API token from the keyring.
func (m *Manager) Delete() error {
	return m.keyring.Delete(service, account)
}
