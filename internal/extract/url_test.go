package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fragment stripped", "https://acme.com/contact#team", "https://acme.com/contact"},
		{"empty path normalized", "https://acme.com", "https://acme.com/"},
		{"query preserved", "https://acme.com/p?id=2#x", "https://acme.com/p?id=2"},
		{"already clean", "https://acme.com/about", "https://acme.com/about"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CleanURL(tt.in)
			require.Equal(t, tt.want, got)
			require.Equal(t, got, CleanURL(got), "CleanURL must be idempotent")
		})
	}
}
