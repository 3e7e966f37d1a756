package apikey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAgainstHash(t *testing.T) {
	key, hash, err := Generate(32)
	require.NoError(t, err)
	require.NotEmpty(t, key)

	v := NewVerifier("", hash)
	assert.True(t, v.Enabled())
	assert.NoError(t, v.Verify(key))
	assert.ErrorIs(t, v.Verify("wrong"), ErrInvalidKey)
	assert.ErrorIs(t, v.Verify(""), ErrInvalidKey)
}

func TestVerifyPlainDevKey(t *testing.T) {
	v := NewVerifier("dev-key", "")
	assert.NoError(t, v.Verify("dev-key"))
	assert.ErrorIs(t, v.Verify("other"), ErrInvalidKey)
}

func TestHashTakesPriority(t *testing.T) {
	_, hash, err := Generate(16)
	require.NoError(t, err)

	v := NewVerifier("plain", hash)
	assert.ErrorIs(t, v.Verify("plain"), ErrInvalidKey)
}

func TestDisabledVerifier(t *testing.T) {
	v := NewVerifier("", "")
	assert.False(t, v.Enabled())
	assert.ErrorIs(t, v.Verify("anything"), ErrInvalidKey)
}
