package secret

import "errors"

// Chain resolves secrets through an ordered list of backends. Reads and
// writes fall through to the next backend when one fails, so a file store
// can stand in where no OS keyring is available (containers, headless CI).
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

func (c *Chain) Get(key string) (string, error) {
	var lastErr error = &ErrSecretNotFound{Key: key, Err: errors.New("no secret backends configured")}
	for _, p := range c.providers {
		value, err := p.Get(key)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Chain) Set(key string, value string) error {
	var lastErr error = errors.New("no secret backends configured")
	for _, p := range c.providers {
		if err := p.Set(key, value); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// Delete removes the key from every backend that holds it. A key written
// through the chain may live in any of them.
func (c *Chain) Delete(key string) error {
	var lastErr error
	for _, p := range c.providers {
		err := p.Delete(key)
		if err != nil && !errors.Is(err, &ErrSecretNotFound{}) {
			lastErr = err
		}
	}
	return lastErr
}
