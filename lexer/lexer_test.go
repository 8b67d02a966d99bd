package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"thusly/token"
)

func collect(source string) []token.Token {
	l := New(source)
	var tokens []token.Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

func types(tokens []token.Token) []token.Type {
	out := make([]token.Type, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestPunctuationAndOperators(t *testing.T) {
	tokens := collect("( ) { } : .. + +: - -: * *: / /: = != < <= > >=")
	assert.Equal(t, []token.Type{
		token.OPEN_PAREN, token.CLOSE_PAREN, token.OPEN_BRACE, token.CLOSE_BRACE,
		token.COLON, token.DOT_DOT,
		token.PLUS, token.PLUS_COLON,
		token.MINUS, token.MINUS_COLON,
		token.STAR, token.STAR_COLON,
		token.SLASH, token.SLASH_COLON,
		token.EQUALS, token.EXCLAMATION_EQUALS,
		token.LESS_THAN, token.LESS_THAN_EQUALS,
		token.GREATER_THAN, token.GREATER_THAN_EQUALS,
		token.EOF,
	}, types(tokens))
}

func TestKeywords(t *testing.T) {
	tokens := collect("and block else end false foreach if in mod none not or step true var while")
	assert.Equal(t, []token.Type{
		token.AND, token.BLOCK, token.ELSE, token.END, token.FALSE, token.FOREACH,
		token.IF, token.IN, token.MOD, token.NONE, token.NOT, token.OR, token.STEP,
		token.TRUE, token.VAR, token.WHILE, token.EOF,
	}, types(tokens))
}

func TestOutBuiltin(t *testing.T) {
	tokens := collect("@out")
	assert.Equal(t, token.OUT, tokens[0].Type)
}

func TestUnknownBuiltinIsLexicalError(t *testing.T) {
	tokens := collect("@nope")
	assert.Equal(t, token.LEXICAL_ERROR, tokens[0].Type)
}

func TestIdentifiersAreNotKeywordPrefixes(t *testing.T) {
	tokens := collect("andes")
	assert.Equal(t, token.IDENTIFIER, tokens[0].Type)
	assert.Equal(t, "andes", tokens[0].Lexeme)
}

func TestNumberLiterals(t *testing.T) {
	tokens := collect("42 3.14 0")
	assert.Equal(t, []token.Type{token.NUMBER, token.NUMBER, token.NUMBER, token.EOF}, types(tokens))
	assert.Equal(t, "42", tokens[0].Lexeme)
	assert.Equal(t, "3.14", tokens[1].Lexeme)
}

func TestNumberFollowedByRangeDotsIsNotConsumed(t *testing.T) {
	tokens := collect("1..5")
	assert.Equal(t, []token.Type{token.NUMBER, token.DOT_DOT, token.NUMBER, token.EOF}, types(tokens))
}

func TestTextLiteral(t *testing.T) {
	tokens := collect(`"hello, world"`)
	assert.Equal(t, token.TEXT, tokens[0].Type)
	assert.Equal(t, `"hello, world"`, tokens[0].Lexeme)
}

func TestMultilineTextReportsStartLine(t *testing.T) {
	tokens := collect("\"line one\nstill going\"")
	assert.Equal(t, token.TEXT, tokens[0].Type)
	assert.Equal(t, 1, tokens[0].Line)
}

func TestUnterminatedTextIsLexicalError(t *testing.T) {
	tokens := collect(`"never closed`)
	assert.Equal(t, token.LEXICAL_ERROR, tokens[0].Type)
}

func TestBlankLineNewlinesAreInsignificant(t *testing.T) {
	tokens := collect("\n\n\nvar x: 1\n")
	assert.Equal(t, []token.Type{
		token.VAR, token.IDENTIFIER, token.COLON, token.NUMBER, token.NEWLINE, token.EOF,
	}, types(tokens))
}

func TestNewlineAfterStatementIsSignificant(t *testing.T) {
	tokens := collect("var x: 1\nvar y: 2\n")
	assert.Equal(t, []token.Type{
		token.VAR, token.IDENTIFIER, token.COLON, token.NUMBER, token.NEWLINE,
		token.VAR, token.IDENTIFIER, token.COLON, token.NUMBER, token.NEWLINE,
		token.EOF,
	}, types(tokens))
}

func TestCommentOnBlankLineAbsorbsItsNewline(t *testing.T) {
	tokens := collect("// a comment\nvar x: 1\n")
	assert.Equal(t, []token.Type{
		token.VAR, token.IDENTIFIER, token.COLON, token.NUMBER, token.NEWLINE, token.EOF,
	}, types(tokens))
}

func TestCommentAfterStatementLeavesNewlineSignificant(t *testing.T) {
	tokens := collect("var x: 1 // trailing\nvar y: 2\n")
	assert.Equal(t, []token.Type{
		token.VAR, token.IDENTIFIER, token.COLON, token.NUMBER, token.NEWLINE,
		token.VAR, token.IDENTIFIER, token.COLON, token.NUMBER, token.NEWLINE,
		token.EOF,
	}, types(tokens))
}

func TestBangOnlyLegalBeforeEquals(t *testing.T) {
	tokens := collect("!")
	assert.Equal(t, token.LEXICAL_ERROR, tokens[0].Type)
}

func TestSingleDotIsLexicalError(t *testing.T) {
	tokens := collect(".")
	assert.Equal(t, token.LEXICAL_ERROR, tokens[0].Type)
}

func TestForeachStatementTokens(t *testing.T) {
	tokens := collect("foreach i in 1..10 step 2\nend\n")
	assert.Equal(t, []token.Type{
		token.FOREACH, token.IDENTIFIER, token.IN, token.NUMBER, token.DOT_DOT, token.NUMBER,
		token.STEP, token.NUMBER, token.NEWLINE, token.END, token.NEWLINE, token.EOF,
	}, types(tokens))
}
