package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PINCacheKey identifies a cached PIN. The key is structured rather than a
// concatenated string so a tenant slug containing a separator cannot collide
// with another tenant's entry.
type PINCacheKey struct {
	Tenant string `json:"tenant"`
	Asset  string `json:"asset"`
}

// PINCache persists the PIN a technician entered for an asset so restarting
// the CLI does not ask again.
type PINCache interface {
	Get(key PINCacheKey) (string, bool)
	Put(key PINCacheKey, pin string) error
	Delete(key PINCacheKey) error
}

type pinEntry struct {
	Key PINCacheKey `json:"key"`
	PIN string      `json:"pin"`
}

// FilePINCache stores entries as a JSON file under the user config dir.
// The file is created with mode 0600.
type FilePINCache struct {
	mu   sync.Mutex
	path string
}

// NewFilePINCache resolves the cache file under os.UserConfigDir.
func NewFilePINCache() (*FilePINCache, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve the user config dir: %w", err)
	}
	return NewFilePINCacheAt(filepath.Join(dir, "facilitydesk", "pins.json")), nil
}

// NewFilePINCacheAt creates a cache backed by an explicit path. Used by
// tests and the --pin-cache flag.
func NewFilePINCacheAt(path string) *FilePINCache {
	return &FilePINCache{path: path}
}

func (c *FilePINCache) Get(key PINCacheKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load()
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.Key == key {
			return e.PIN, true
		}
	}
	return "", false
}

func (c *FilePINCache) Put(key PINCacheKey, pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load()
	if err != nil {
		return err
	}
	for i, e := range entries {
		if e.Key == key {
			entries[i].PIN = pin
			return c.save(entries)
		}
	}
	return c.save(append(entries, pinEntry{Key: key, PIN: pin}))
}

func (c *FilePINCache) Delete(key PINCacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	return c.save(kept)
}

func (c *FilePINCache) load() ([]pinEntry, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read the PIN cache: %w", err)
	}
	var entries []pinEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt cache file is discarded rather than wedging the CLI.
		return nil, nil
	}
	return entries, nil
}

func (c *FilePINCache) save(entries []pinEntry) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create the PIN cache dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write the PIN cache: %w", err)
	}
	return nil
}
