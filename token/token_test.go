package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "var", VAR.String())
	assert.Equal(t, "@out", OUT.String())
	assert.Equal(t, "UNKNOWN(9999)", Type(9999).String())
}

func TestTokenStringIncludesLexemeAndLine(t *testing.T) {
	tok := Token{Type: IDENTIFIER, Lexeme: "count", Line: 3}
	s := tok.String()
	assert.Contains(t, s, "count")
	assert.Contains(t, s, "3")
}
