package secret

// Provider defines the interface for secret storage backends.
type Provider interface {
	// Get retrieves a secret by key.
	Get(key string) (string, error)

	// Set stores a secret with the given key.
	Set(key string, value string) error

	// Delete removes a secret by key.
	Delete(key string) error
}

// ProviderKey is the storage key holding the API key for a model provider.
func ProviderKey(providerID string) string {
	return "provider_api_key:" + providerID
}
