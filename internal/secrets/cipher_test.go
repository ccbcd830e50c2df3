package secrets

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return base64.URLEncoding.EncodeToString(key)
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := New(testKey())
	require.NoError(t, err)

	sealed, err := c.Encrypt("refresh-token-value")
	require.NoError(t, err)
	assert.NotEqual(t, "refresh-token-value", sealed)

	plain, ok := c.Decrypt(sealed)
	require.True(t, ok)
	assert.Equal(t, "refresh-token-value", plain)
}

func TestCipherNonDeterministic(t *testing.T) {
	c, err := New(testKey())
	require.NoError(t, err)

	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCipherDecryptFailsSoft(t *testing.T) {
	c, err := New(testKey())
	require.NoError(t, err)

	_, ok := c.Decrypt("not base64 at all!!")
	assert.False(t, ok)

	_, ok = c.Decrypt(base64.URLEncoding.EncodeToString([]byte("too short")))
	assert.False(t, ok)

	// Valid ciphertext under a different key must not open.
	other, err := New("an-entirely-different-raw-key-string")
	require.NoError(t, err)
	sealed, err := other.Encrypt("secret")
	require.NoError(t, err)

	_, ok = c.Decrypt(sealed)
	assert.False(t, ok)
}

func TestCipherRawKeyFallback(t *testing.T) {
	// Keys that are not base64 are accepted as raw bytes.
	c, err := New("plain-text-key")
	require.NoError(t, err)

	sealed, err := c.Encrypt("value")
	require.NoError(t, err)
	plain, ok := c.Decrypt(sealed)
	require.True(t, ok)
	assert.Equal(t, "value", plain)
}

func TestCipherMissingKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestDecryptOptional(t *testing.T) {
	c, err := New(testKey())
	require.NoError(t, err)

	_, ok := c.DecryptOptional(nil)
	assert.False(t, ok)

	empty := ""
	_, ok = c.DecryptOptional(&empty)
	assert.False(t, ok)

	sealed, err := c.Encrypt("token")
	require.NoError(t, err)
	plain, ok := c.DecryptOptional(&sealed)
	require.True(t, ok)
	assert.Equal(t, "token", plain)
}
