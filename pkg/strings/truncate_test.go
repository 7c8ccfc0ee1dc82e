package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world this is a long string", 15, "hello world ..."},
		{"unicode counted in runes", "ギルドの大会へようこそ", 6, "ギルド..."},
		{"no room for ellipsis", "héééé", 3, "héé"},
		{"zero disables", "anything", 0, "anything"},
		{"negative disables", "anything", -1, "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.n))
		})
	}
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "gg wp see you", OneLine("gg  wp\nsee\tyou\r\n"))
	assert.Equal(t, "", OneLine(" \n "))
}
