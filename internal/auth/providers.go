package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/docpublish/internal/config"
)

type noneProvider struct{}

func (noneProvider) Type() config.AuthType             { return config.AuthTypeNone }
func (noneProvider) Validate(*config.AuthConfig) error { return nil }
func (noneProvider) CreateAuth(*config.AuthConfig) (transport.AuthMethod, error) {
	return nil, nil
}

type sshProvider struct{}

func (sshProvider) Type() config.AuthType { return config.AuthTypeSSH }

func (sshProvider) Validate(authCfg *config.AuthConfig) error {
	keyPath := sshKeyPath(authCfg)
	if _, err := os.Stat(keyPath); err != nil {
		return fmt.Errorf("SSH key file not readable: %s: %w", keyPath, err)
	}
	return nil
}

// CreateAuth loads the private key; Password doubles as the key passphrase.
func (sshProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	keyPath := sshKeyPath(authCfg)
	user := authCfg.Username
	if user == "" {
		user = "git"
	}
	publicKeys, err := ssh.NewPublicKeysFromFile(user, keyPath, authCfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
	}
	return publicKeys, nil
}

func sshKeyPath(authCfg *config.AuthConfig) string {
	if authCfg.KeyPath != "" {
		return authCfg.KeyPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".ssh", "id_rsa")
}

type tokenProvider struct{}

func (tokenProvider) Type() config.AuthType { return config.AuthTypeToken }

func (tokenProvider) Validate(authCfg *config.AuthConfig) error {
	if authCfg.Token == "" {
		return fmt.Errorf("token authentication requires a token")
	}
	return nil
}

// CreateAuth uses "token" as the username unless one is configured
// (GitHub Actions expects x-access-token).
func (tokenProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	user := authCfg.Username
	if user == "" {
		user = "token"
	}
	return &http.BasicAuth{Username: user, Password: authCfg.Token}, nil
}

type basicProvider struct{}

func (basicProvider) Type() config.AuthType { return config.AuthTypeBasic }

func (basicProvider) Validate(authCfg *config.AuthConfig) error {
	if authCfg.Username == "" || authCfg.Password == "" {
		return fmt.Errorf("basic authentication requires username and password")
	}
	return nil
}

func (basicProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	return &http.BasicAuth{Username: authCfg.Username, Password: authCfg.Password}, nil
}
