package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/internalhub/internal/security/token"
)

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := token.GenerateOpaqueToken(32)
	require.NoError(t, err)
	b, err := token.GenerateOpaqueToken(32)
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	// base64url sin padding: no debe traer caracteres fuera del alfabeto URL-safe.
	assert.NotContains(t, a, "=")
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestSHA256Hex(t *testing.T) {
	// Vector conocido de sha256("abc").
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		token.SHA256Hex("abc"))
}

func TestConstantTimeEquals(t *testing.T) {
	assert.True(t, token.ConstantTimeEquals("secreto", "secreto"))
	assert.False(t, token.ConstantTimeEquals("secreto", "secreta"))
	assert.False(t, token.ConstantTimeEquals("secreto", ""))
}
