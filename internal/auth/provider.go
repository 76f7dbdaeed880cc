package auth

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/docpublish/internal/config"
)

// Provider builds go-git credentials for one authentication method.
type Provider interface {
	// Type returns the authentication type this provider handles.
	Type() config.AuthType

	// Validate checks the configuration before any credential is built.
	Validate(authCfg *config.AuthConfig) error

	// CreateAuth creates a transport.AuthMethod from the given configuration.
	// Returns nil, nil when no authentication is required.
	CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error)
}

// Registry maps auth types to providers.
type Registry struct {
	providers map[config.AuthType]Provider
}

// NewRegistry creates a registry with the standard providers.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[config.AuthType]Provider)}
	r.Register(noneProvider{})
	r.Register(sshProvider{})
	r.Register(tokenProvider{})
	r.Register(basicProvider{})
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) { r.providers[p.Type()] = p }

// Lookup returns the provider for the given auth type.
func (r *Registry) Lookup(t config.AuthType) (Provider, bool) {
	if t == "" {
		t = config.AuthTypeNone
	}
	p, ok := r.providers[t]
	return p, ok
}

// Error represents an authentication configuration failure.
type Error struct {
	Type    config.AuthType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s): %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }
