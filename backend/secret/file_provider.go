package secret

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileProvider stores one secret per file under a directory, for
// environments without a usable system keyring (containers, CI).
type FileProvider struct {
	dir string
	fs  afero.Fs
}

func NewFileProvider(dir string, fs afero.Fs) (*FileProvider, error) {
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating secret directory: %w", err)
	}
	return &FileProvider{dir: dir, fs: fs}, nil
}

// fileFor maps a storage key to a filename. Keys contain ':' separators
// which are not portable across filesystems.
func (p *FileProvider) fileFor(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_").Replace(key)
	return filepath.Join(p.dir, name)
}

func (p *FileProvider) Get(key string) (string, error) {
	data, err := afero.ReadFile(p.fs, p.fileFor(key))
	if os.IsNotExist(err) {
		return "", &ErrSecretNotFound{Key: key, Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("reading secret %s: %w", key, err)
	}
	// Editors and echo tend to leave a trailing newline behind.
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (p *FileProvider) Set(key string, value string) error {
	if err := afero.WriteFile(p.fs, p.fileFor(key), []byte(value), 0o600); err != nil {
		return fmt.Errorf("writing secret %s: %w", key, err)
	}
	return nil
}

func (p *FileProvider) Delete(key string) error {
	err := p.fs.Remove(p.fileFor(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting secret %s: %w", key, err)
	}
	return nil
}
