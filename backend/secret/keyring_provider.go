package secret

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// keychainService namespaces all entries this tool writes to the OS keyring.
const keychainService = "conjure"

// KeyringProvider backs secrets with the operating system keychain.
type KeyringProvider struct{}

func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{}
}

func (k *KeyringProvider) Get(key string) (string, error) {
	value, err := keyring.Get(keychainService, key)
	if err != nil {
		return "", mapKeyringError(key, err)
	}
	return value, nil
}

func (k *KeyringProvider) Set(key string, value string) error {
	if err := keyring.Set(keychainService, key, value); err != nil {
		return mapKeyringError(key, err)
	}
	return nil
}

func (k *KeyringProvider) Delete(key string) error {
	if err := keyring.Delete(keychainService, key); err != nil {
		return mapKeyringError(key, err)
	}
	return nil
}

func mapKeyringError(key string, err error) error {
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return &ErrSecretNotFound{Key: key, Err: err}
	case errors.Is(err, keyring.ErrSetDataTooBig):
		return &ErrSecretTooLarge{Key: key, Err: err}
	default:
		return err
	}
}
