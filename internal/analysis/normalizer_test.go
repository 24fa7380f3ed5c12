package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input yields empty output",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only yields empty output",
			input:    "  \t\n ",
			expected: "",
		},
		{
			name:     "drops stop words and stems",
			input:    "The cats are running",
			expected: "cat run",
		},
		{
			name:     "strips digits and punctuation",
			input:    "Breaking: 42 cats jumped!!!",
			expected: "break cat jump",
		},
		{
			name:     "strips accented letters",
			input:    "Café",
			expected: "caf",
		},
		{
			name:     "only stop words",
			input:    "the and of it is",
			expected: "",
		},
		{
			name:     "collapses irregular whitespace",
			input:    "cats\t\tjumped\n\nrunning",
			expected: "cat jump run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	input := "Officials confirmed the reports on Tuesday, citing multiple independent sources."

	first := Normalize(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Normalize(input))
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "hello world", clean("Hello, World!"))
	assert.Equal(t, "a b", clean("A1 B2"))
	assert.Equal(t, "naf", clean("Naïf"))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("wouldn't"))
	assert.False(t, IsStopWord("election"))
	assert.False(t, IsStopWord("The"))
}
