package roon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")

	store := NewTokenStore(path)
	token, err := store.Load("core-1")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("core-1", "abc"))
	require.NoError(t, store.Save("core-2", "def"))

	reopened := NewTokenStore(path)
	token, err = reopened.Load("core-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	token, err = reopened.Load("core-2")
	require.NoError(t, err)
	assert.Equal(t, "def", token)
}

func TestTokenStore_InMemory(t *testing.T) {
	store := NewTokenStore("")

	require.NoError(t, store.Save("core-1", "abc"))
	token, err := store.Load("core-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestTokenStore_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tokens: [unterminated"), 0o600))

	_, err := NewTokenStore(path).Load("core-1")
	assert.Error(t, err)
}
