package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsDeterministicHex(t *testing.T) {
	t.Parallel()

	h := New()
	first, err := h.Hash([]byte("url=https://acme.com/ pages=3"))
	require.NoError(t, err)
	second, err := h.Hash([]byte("url=https://acme.com/ pages=3"))
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, first, 64)
	require.Regexp(t, "^[0-9a-f]+$", first)
}

func TestHashEmptyInput(t *testing.T) {
	t.Parallel()

	h := New()
	digest, err := h.Hash(nil)
	require.NoError(t, err)
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", digest)
}
