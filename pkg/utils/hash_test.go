package utils

import (
	"testing"
)

func TestHashString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple string",
			input:    "hello",
			expected: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "Client address",
			input:    "203.0.113.7",
			expected: "fec52565aa0cf18f57d7cf5b3ac728503b8992d2d6f7d46da1d1201090902b02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashString(tt.input); got != tt.expected {
				t.Errorf("HashString(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestShortHash(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{name: "ip bucket", n: 16, want: "fec52565aa0cf18f"},
		{name: "static key id", n: 12, want: "fec52565aa0c"},
		{name: "zero returns full hash", n: 0, want: "fec52565aa0cf18f57d7cf5b3ac728503b8992d2d6f7d46da1d1201090902b02"},
		{name: "oversized returns full hash", n: 100, want: "fec52565aa0cf18f57d7cf5b3ac728503b8992d2d6f7d46da1d1201090902b02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortHash("203.0.113.7", tt.n); got != tt.want {
				t.Errorf("ShortHash(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}

func TestShortHash_Uniqueness(t *testing.T) {
	inputs := []string{"10.0.0.1", "10.0.0.2", "::1", "127.0.0.1", "203.0.113.7"}

	seen := make(map[string]string)
	for _, input := range inputs {
		h := ShortHash(input, 16)
		if other, ok := seen[h]; ok {
			t.Errorf("collision: %q and %q both hash to %s", input, other, h)
		}
		seen[h] = input
	}
}

func BenchmarkShortHash(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ShortHash("203.0.113.7", 16)
	}
}
