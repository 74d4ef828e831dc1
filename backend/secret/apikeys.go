package secret

import (
	"errors"
	"os"
	"strings"
)

// envVarForProvider maps a provider id to the conventional environment
// variable carrying its API key. The environment always wins over stored
// secrets so CI and one-off runs don't need keyring access.
var envVarForProvider = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// Store resolves API keys for model providers and integrations,
// checking the environment first and falling back to a Provider backend.
type Store struct {
	backend Provider
}

func NewStore(backend Provider) *Store {
	return &Store{backend: backend}
}

// APIKey returns the configured key for the given provider id, or an
// ErrSecretNotFound if neither the environment nor the backend has one.
func (s *Store) APIKey(providerID string) (string, error) {
	if envVar, ok := envVarForProvider[providerID]; ok {
		if v := os.Getenv(envVar); v != "" {
			return v, nil
		}
	}
	if v := os.Getenv(strings.ToUpper(providerID) + "_API_KEY"); v != "" {
		return v, nil
	}

	if s.backend == nil {
		return "", &ErrSecretNotFound{Key: ProviderKey(providerID), Err: errors.New("no secret backend configured")}
	}
	return s.backend.Get(ProviderKey(providerID))
}

// HasAPIKey reports whether a key is configured without exposing it.
// The tool catalog uses it to gate integration-backed tools.
func (s *Store) HasAPIKey(providerID string) bool {
	key, err := s.APIKey(providerID)
	return err == nil && key != ""
}
