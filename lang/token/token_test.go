package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	for k := ERROR; k <= IN; k++ {
		assert.NotEmpty(t, k.String(), "kind %d has no name", int(k))
		assert.NotContains(t, k.String(), "Kind(", "kind %d falls back to the numeric form", int(k))
	}
	assert.Equal(t, "Kind(999)", Kind(999).String())
}

func TestKeywordsRoundTrip(t *testing.T) {
	for lexeme, kind := range Keywords {
		require.Equal(t, lexeme, kind.String())
	}
	_, ok := Keywords["foo"]
	assert.False(t, ok)
}

func TestTokenString(t *testing.T) {
	tok := Token{Kind: IDENTIFIER, Lexeme: "abc", Line: 3}
	assert.Equal(t, `IDENTIFIER "abc" (line 3)`, tok.String())
}
