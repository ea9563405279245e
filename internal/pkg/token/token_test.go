package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Unique64Hex(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	_, err = Hash(a)
	assert.NoError(t, err)
}

func TestHash_Deterministic(t *testing.T) {
	raw := strings.Repeat("ab", 32)
	h1, err := Hash(raw)
	require.NoError(t, err)
	h2, err := Hash(raw)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, raw, h1)
}

func TestHash_RejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "abc", strings.Repeat("zz", 32), strings.Repeat("a", 65)} {
		_, err := Hash(raw)
		assert.Error(t, err, "input %q", raw)
	}
}
