package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFilePINCache_RoundTrip verifies put/get/delete against a fresh file.
func TestFilePINCache_RoundTrip(t *testing.T) {
	cache := NewFilePINCacheAt(filepath.Join(t.TempDir(), "pins.json"))
	key := PINCacheKey{Tenant: "stadtpark", Asset: "heater-1"}

	_, ok := cache.Get(key)
	assert.False(t, ok)

	require.NoError(t, cache.Put(key, "1234"))
	pin, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "1234", pin)

	require.NoError(t, cache.Put(key, "5678"))
	pin, _ = cache.Get(key)
	assert.Equal(t, "5678", pin)

	require.NoError(t, cache.Delete(key))
	_, ok = cache.Get(key)
	assert.False(t, ok)
}

// TestFilePINCache_SurvivesRestart verifies a second cache instance over the
// same file sees earlier entries.
func TestFilePINCache_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.json")
	key := PINCacheKey{Tenant: "stadtpark", Asset: "heater-1"}

	require.NoError(t, NewFilePINCacheAt(path).Put(key, "1234"))

	pin, ok := NewFilePINCacheAt(path).Get(key)
	assert.True(t, ok)
	assert.Equal(t, "1234", pin)
}

// TestFilePINCache_StructuredKey verifies tenants whose slugs would collide
// under naive string concatenation stay separate.
func TestFilePINCache_StructuredKey(t *testing.T) {
	cache := NewFilePINCacheAt(filepath.Join(t.TempDir(), "pins.json"))

	a := PINCacheKey{Tenant: "stadt", Asset: "park-heater-1"}
	b := PINCacheKey{Tenant: "stadt-park", Asset: "heater-1"}

	require.NoError(t, cache.Put(a, "1111"))
	require.NoError(t, cache.Put(b, "2222"))

	pinA, _ := cache.Get(a)
	pinB, _ := cache.Get(b)
	assert.Equal(t, "1111", pinA)
	assert.Equal(t, "2222", pinB)

	require.NoError(t, cache.Delete(a))
	_, ok := cache.Get(a)
	assert.False(t, ok)
	pinB, _ = cache.Get(b)
	assert.Equal(t, "2222", pinB)
}

// TestFilePINCache_CorruptFile verifies a corrupt cache file behaves like an
// empty cache instead of wedging the CLI.
func TestFilePINCache_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pins.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	cache := NewFilePINCacheAt(path)
	_, ok := cache.Get(PINCacheKey{Tenant: "a", Asset: "b"})
	assert.False(t, ok)

	require.NoError(t, cache.Put(PINCacheKey{Tenant: "a", Asset: "b"}, "1234"))
	pin, ok := cache.Get(PINCacheKey{Tenant: "a", Asset: "b"})
	assert.True(t, ok)
	assert.Equal(t, "1234", pin)
}

// TestFilePINCache_FileMode verifies the cache file is private to the user.
func TestFilePINCache_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "pins.json")
	require.NoError(t, NewFilePINCacheAt(path).Put(PINCacheKey{Tenant: "a", Asset: "b"}, "1234"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
