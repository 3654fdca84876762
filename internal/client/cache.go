package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Cache persists the signed-in identity between runs. Only the user
// record is ever cached; session tokens and passwords never touch it.
type Cache interface {
	Load() (*User, error)
	Save(u *User) error
	Clear() error
}

type cachePayload struct {
	User *User `json:"user"`
}

// FileCache stores the cached identity as a JSON file.
type FileCache struct {
	path string
}

// NewFileCache creates a cache at the given path.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load reads the cached identity. A missing file is not an error; it
// just means nobody is cached.
func (c *FileCache) Load() (*User, error) {
	b, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p cachePayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return p.User, nil
}

// Save writes the identity to disk.
func (c *FileCache) Save(u *User) error {
	b, err := json.Marshal(cachePayload{User: u})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.path, b, 0o600)
}

// Clear removes the cached identity.
func (c *FileCache) Clear() error {
	err := os.Remove(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemCache is an in-memory Cache for tests.
type MemCache struct {
	mu   sync.Mutex
	user *User
}

// Load returns the cached identity.
func (c *MemCache) Load() (*User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, nil
}

// Save replaces the cached identity.
func (c *MemCache) Save(u *User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
	return nil
}

// Clear drops the cached identity.
func (c *MemCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
	return nil
}
