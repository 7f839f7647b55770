package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LengthAndAlphabet(t *testing.T) {
	for range 100 {
		s, err := New()
		require.NoError(t, err)
		assert.Len(t, s, Length)
		assert.True(t, Valid(s), "generated slug %q must be valid", s)
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		s, err := New()
		require.NoError(t, err)
		_, dup := seen[s]
		require.False(t, dup, "duplicate slug %q", s)
		seen[s] = struct{}{}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"abcDEF123456", true},
		{"short", false},
		{"abcDEF1234567", false},
		{"abc-EF123456", false},
		{"абвгдеёжзийк", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Valid(tt.in), tt.in)
	}
}
