package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileTokenStore(path)

	tok, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Save("abc"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	tok, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestFileTokenStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := NewFileTokenStore(path).Load()
	assert.Error(t, err)
}
