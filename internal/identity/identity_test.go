package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

func TestLoadMissingIdentity(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "identity.json"))
	_, err := s.Load()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.json")
	s := NewStore(path)

	require.NoError(t, s.Save(model.Identity{Email: " ada@example.edu ", College: "Engineering"}))
	id, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "ada@example.edu", id.Email)
	assert.Equal(t, "Engineering", id.College)
	assert.Equal(t, "ada", id.DisplayName())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveRejectsIncompleteIdentity(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "identity.json"))
	require.ErrorIs(t, s.Save(model.Identity{Name: "ada"}), ErrMalformed)
	require.ErrorIs(t, s.Save(model.Identity{College: "Engineering"}), ErrMalformed)

	_, err := s.Load()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadMalformedIdentity(t *testing.T) {
	cases := map[string]string{
		"not json":   "{name:",
		"no college": `{"name":"ada"}`,
		"no user":    `{"college":"Engineering"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "identity.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := NewStore(path).Load()
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}
