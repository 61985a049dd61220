// Package auth supplies the bearer token presented at handshake time.
//
// Token issuance itself happens on the platform's login surface; this
// package only loads an already-issued token from the environment or a
// file.
package auth

import (
	"fmt"
	"os"
	"strings"
)

// TokenSource yields the current bearer token.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed in-memory token.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", fmt.Errorf("empty token")
	}
	return string(t), nil
}

// EnvToken reads the token from an environment variable on every call.
type EnvToken string

func (e EnvToken) Token() (string, error) {
	v := os.Getenv(string(e))
	if v == "" {
		return "", fmt.Errorf("environment variable %s is not set", string(e))
	}
	return v, nil
}

// FileToken reads the token from a file on every call, so an external
// refresher can rotate it in place.
type FileToken string

func (f FileToken) Token() (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", string(f))
	}
	return token, nil
}

// FromEnvOrFile prefers the environment variable, falling back to the file
// path when set.
func FromEnvOrFile(envVar, path string) (TokenSource, error) {
	if os.Getenv(envVar) != "" {
		return EnvToken(envVar), nil
	}
	if path != "" {
		return FileToken(path), nil
	}
	return nil, fmt.Errorf("no token: set %s or configure server.token_path", envVar)
}
