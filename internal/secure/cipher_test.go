package secure

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := New("passphrase")

	for _, plain := range []string{"a", "ana@example.com", "+63 917 123 4567", strings.Repeat("x", 16)} {
		enc, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, enc)

		raw, err := base64.StdEncoding.DecodeString(enc)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(raw), saltHeader))

		assert.Equal(t, plain, c.Decrypt(enc))
	}
}

func TestEncryptIsSalted(t *testing.T) {
	c := New("passphrase")
	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// openssl enc -aes-256-cbc -md md5 -salt -pass pass:secret-key -base64
func TestDecryptOpenSSLEnvelope(t *testing.T) {
	c := New("secret-key")
	assert.Equal(t, "09171234567", c.Decrypt("U2FsdGVkX1/yTB7Gsgye9/GKvHWME3G6roLuU9BS9FE="))
}

func TestDecryptFallsBackToInput(t *testing.T) {
	c := New("passphrase")

	assert.Equal(t, "", c.Decrypt(""))
	assert.Equal(t, "plain@example.com", c.Decrypt("plain@example.com"))

	enc := "U2FsdGVkX1/yTB7Gsgye9/GKvHWME3G6roLuU9BS9FE="
	assert.Equal(t, enc, c.Decrypt(enc), "wrong key must not yield garbage")
}

func TestNoKeyPassesThrough(t *testing.T) {
	c := New("")
	enc, err := c.Encrypt("value")
	require.NoError(t, err)
	assert.Equal(t, "value", enc)
	assert.Equal(t, "value", c.Decrypt("value"))
}
