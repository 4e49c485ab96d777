// Package credentials resolves the model API key on the server side.  It is
// the CredentialProvider behind the connection gate: "selecting" a key means
// re-reading it from the configured sources.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// ErrNoKey is returned by OpenSelectKey when no source yields a key.
var ErrNoKey = errors.New("no api key found in key file, env file or environment")

// Sources lists where a key may come from, in lookup order.  Empty fields
// are skipped.  Configured is the value from the config file and is only
// used when no other source has a key.
type Sources struct {
	KeyFile    string
	EnvFile    string
	EnvVar     string
	Configured string
}

// Store holds the currently selected key.
type Store struct {
	src Sources

	mu     sync.RWMutex
	key    string
	loaded bool
}

// NewStore constructs a Store.  Nothing is read until first use.
func NewStore(src Sources) *Store {
	return &Store{src: src}
}

// APIKey returns the selected key, loading it on first use.
func (s *Store) APIKey() string {
	s.mu.RLock()
	key, loaded := s.key, s.loaded
	s.mu.RUnlock()
	if loaded {
		return key
	}
	key, _ = s.reload()
	return key
}

// HasSelectedKey reports whether a key is available.
func (s *Store) HasSelectedKey(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	key, loaded := s.key, s.loaded
	s.mu.RUnlock()
	if !loaded {
		var err error
		if key, err = s.reload(); err != nil {
			return false, err
		}
	}
	return key != "", nil
}

// OpenSelectKey re-reads every source and selects the first key found.
func (s *Store) OpenSelectKey(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := s.reload()
	if err != nil {
		return err
	}
	if key == "" {
		return ErrNoKey
	}
	return nil
}

// Reset forgets the selected key so the next use reads the sources again.
func (s *Store) Reset() {
	s.mu.Lock()
	s.key, s.loaded = "", false
	s.mu.Unlock()
}

func (s *Store) reload() (string, error) {
	key, err := s.resolve()
	s.mu.Lock()
	s.key, s.loaded = key, err == nil
	s.mu.Unlock()
	return key, err
}

func (s *Store) resolve() (string, error) {
	if s.src.KeyFile != "" {
		raw, err := os.ReadFile(s.src.KeyFile)
		switch {
		case err == nil:
			if k := strings.TrimSpace(string(raw)); k != "" {
				return k, nil
			}
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("read key file: %w", err)
		}
	}
	if s.src.EnvVar != "" && s.src.EnvFile != "" {
		vals, err := godotenv.Read(s.src.EnvFile)
		switch {
		case err == nil:
			if k := strings.TrimSpace(vals[s.src.EnvVar]); k != "" {
				return k, nil
			}
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("read env file: %w", err)
		}
	}
	if s.src.EnvVar != "" {
		if k := strings.TrimSpace(os.Getenv(s.src.EnvVar)); k != "" {
			return k, nil
		}
	}
	return strings.TrimSpace(s.src.Configured), nil
}
