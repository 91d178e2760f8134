// Package identity stores the user record attached to submitted results.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/typetest/internal/model"
)

var (
	// ErrNotFound is returned when no identity has been saved yet.
	ErrNotFound = errors.New("identity not found")
	// ErrMalformed is returned when the stored record cannot identify a user.
	ErrMalformed = errors.New("identity is malformed")
)

// Store reads and writes the identity record as a JSON file.
type Store struct {
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored identity.
func (s *Store) Load() (model.Identity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Identity{}, ErrNotFound
		}
		return model.Identity{}, fmt.Errorf("failed to read identity: %w", err)
	}
	var id model.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := Validate(id); err != nil {
		return model.Identity{}, err
	}
	return id, nil
}

// Save validates and writes the identity, replacing any previous record.
func (s *Store) Save(id model.Identity) error {
	id.Name = strings.TrimSpace(id.Name)
	id.Email = strings.TrimSpace(id.Email)
	id.College = strings.TrimSpace(id.College)
	if err := Validate(id); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create identity dir: %w", err)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace identity: %w", err)
	}
	return nil
}

// Validate checks that id names a user and a college.
func Validate(id model.Identity) error {
	if strings.TrimSpace(id.College) == "" {
		return fmt.Errorf("%w: college is required", ErrMalformed)
	}
	if id.DisplayName() == "" {
		return fmt.Errorf("%w: name or email is required", ErrMalformed)
	}
	return nil
}
