// Package auth turns target.auth configuration into go-git push credentials.
package auth

import (
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/docpublish/internal/config"
)

// Manager provides a high-level interface for authentication operations.
type Manager struct {
	registry *Registry
}

// NewManager creates a new authentication manager with the standard providers.
func NewManager() *Manager {
	return &Manager{registry: NewRegistry()}
}

// CreateAuth validates authCfg and creates the matching credentials.
// A nil config means anonymous access.
func (m *Manager) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if authCfg == nil {
		authCfg = &config.AuthConfig{Type: config.AuthTypeNone}
	}
	provider, ok := m.registry.Lookup(authCfg.Type)
	if !ok {
		return nil, &Error{Type: authCfg.Type, Message: "unsupported authentication type"}
	}
	if err := provider.Validate(authCfg); err != nil {
		return nil, &Error{Type: authCfg.Type, Message: "configuration validation failed", Cause: err}
	}
	method, err := provider.CreateAuth(authCfg)
	if err != nil {
		return nil, &Error{Type: authCfg.Type, Message: "failed to create authentication", Cause: err}
	}
	return method, nil
}

// DefaultManager is a package-level instance for convenience.
var DefaultManager = NewManager()

// CreateAuth is a convenience function that uses the default manager.
func CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	return DefaultManager.CreateAuth(authCfg)
}
