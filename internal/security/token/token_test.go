package token

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDigits(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		c, err := RandomDigits(6)
		require.NoError(t, err)
		assert.Regexp(t, re, c)
		seen[c] = true
	}
	assert.Greater(t, len(seen), 150)
}

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(32)
	require.NoError(t, err)
	b, _ := GenerateOpaqueToken(32)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestRandomHexAndHash(t *testing.T) {
	h, err := RandomHex(12)
	require.NoError(t, err)
	assert.Len(t, h, 24)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(""))
}
