package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tokenFile is the fixed name of the persisted token inside the state
// directory. Its absence means logged out.
const tokenFile = "token"

// TokenStore persists the single opaque authentication token.
type TokenStore interface {
	// Load returns the persisted token, or "" when none exists.
	Load() (string, error)
	// Save writes the token durably.
	Save(token string) error
	// Clear removes the persisted token. Clearing an absent token is not
	// an error.
	Clear() error
}

// FileTokenStore keeps the token in a 0600 file under the state directory.
type FileTokenStore struct {
	dir string
}

// NewFileTokenStore creates a FileTokenStore rooted at dir.
func NewFileTokenStore(dir string) (*FileTokenStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("session: token store: dir is required")
	}
	return &FileTokenStore{dir: dir}, nil
}

// Path returns the full path of the token file.
func (f *FileTokenStore) Path() string {
	return filepath.Join(f.dir, tokenFile)
}

// Load reads the persisted token. A missing file yields "", nil.
func (f *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token with owner-only permissions.
func (f *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("session: create state dir: %w", err)
	}
	if err := os.WriteFile(f.Path(), []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("session: write token: %w", err)
	}
	return nil
}

// Clear removes the token file.
func (f *FileTokenStore) Clear() error {
	err := os.Remove(f.Path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: clear token: %w", err)
	}
	return nil
}
