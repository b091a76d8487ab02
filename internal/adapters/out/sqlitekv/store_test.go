package sqlitekv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get("cart:v1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("cart:v1", `{"sessionId":"s-1"}`))
	v, ok, err := s.Get("cart:v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"sessionId":"s-1"}`, v)

	// Upsert replaces in place.
	require.NoError(t, s.Set("cart:v1", `{"sessionId":"s-2"}`))
	v, _, err = s.Get("cart:v1")
	require.NoError(t, err)
	assert.Equal(t, `{"sessionId":"s-2"}`, v)

	require.NoError(t, s.Delete("cart:v1"))
	_, ok, err = s.Get("cart:v1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is a no-op.
	require.NoError(t, s.Delete("cart:v1"))
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set("syncqueue:v1", "[]"))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.Get("syncqueue:v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", v)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
