package token

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecGenerateProducesURLSafeHighEntropySecrets(t *testing.T) {
	codec, err := NewCodec("pepper")
	require.NoError(t, err)

	first, err := codec.Generate()
	require.NoError(t, err)
	second, err := codec.Generate()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	raw, err := base64.RawURLEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, SecretBytes)
}

func TestCodecHashIsDeterministicAndPeppered(t *testing.T) {
	codec, err := NewCodec("pepper-a")
	require.NoError(t, err)
	other, err := NewCodec("pepper-b")
	require.NoError(t, err)

	h1, err := codec.Hash("secret")
	require.NoError(t, err)
	h2, err := codec.Hash("secret")
	require.NoError(t, err)
	h3, err := other.Hash("secret")
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotContains(t, h1, "secret")
}

func TestCodecVerify(t *testing.T) {
	codec, err := NewCodec("pepper")
	require.NoError(t, err)
	secret, err := codec.Generate()
	require.NoError(t, err)
	hash, err := codec.Hash(secret)
	require.NoError(t, err)

	assert.True(t, codec.Verify(secret, hash))
	assert.False(t, codec.Verify(secret+"x", hash))
	assert.False(t, codec.Verify("", hash))
}

func TestNewCodecRequiresPepper(t *testing.T) {
	_, err := NewCodec("")
	require.ErrorIs(t, err, ErrPepperMissing)
}
