package randstr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomString(t *testing.T) {
	alphabet := []byte("0123456789abcdef")
	g := New(alphabet)

	s := g.GenerateRandomString(32)
	require.Len(t, s, 32)
	for _, c := range s {
		assert.True(t, strings.ContainsRune(string(alphabet), c), "unexpected character %q", c)
	}

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := g.GenerateRandomString(32)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id generated: %s", id)
		seen[id] = struct{}{}
	}
}
