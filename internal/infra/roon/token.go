package roon

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// tokenFile is the on-disk layout of the token store.
type tokenFile struct {
	Tokens map[string]string `yaml:"tokens"`
}

// TokenStore persists the pairing tokens handed out by cores, keyed by core id.
// A store without a path keeps tokens in memory only.
type TokenStore struct {
	mu     sync.Mutex
	path   string
	tokens map[string]string
	loaded bool
}

// NewTokenStore creates a token store backed by path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{
		path:   path,
		tokens: make(map[string]string),
	}
}

// Load returns the token stored for coreID, or an empty string.
func (s *TokenStore) Load(coreID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.read(); err != nil {
		return "", err
	}
	return s.tokens[coreID], nil
}

// Save stores the token for coreID and writes the store to disk.
func (s *TokenStore) Save(coreID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.read(); err != nil {
		return err
	}
	if s.tokens[coreID] == token {
		return nil
	}
	s.tokens[coreID] = token

	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(tokenFile{Tokens: s.tokens})
	if err != nil {
		return errors.Wrap(err, "failed to encode token file")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write token file: %s", s.path)
	}
	return nil
}

// read loads the file once. A missing file is an empty store.
func (s *TokenStore) read() error {
	if s.loaded || s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read token file: %s", s.path)
	}

	var file tokenFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrapf(err, "failed to parse token file: %s", s.path)
	}
	for k, v := range file.Tokens {
		s.tokens[k] = v
	}
	s.loaded = true
	return nil
}
