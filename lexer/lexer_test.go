package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeywordsAndIdentifiersFoldToUpper(t *testing.T) {
	tokens, err := Tokenize("select Id from Employees")
	require.NoError(t, err)
	require.Equal(t, []Kind{SELECT, Ident, FROM, Ident, EOF}, kinds(tokens))
	require.Equal(t, "ID", tokens[1].Literal)
	require.Equal(t, "EMPLOYEES", tokens[3].Literal)
}

func TestQuotedIdentifierPreservesCaseInsensitivelyUppercased(t *testing.T) {
	tokens, err := Tokenize(`"MixedCase"`)
	require.NoError(t, err)
	require.Equal(t, QuotedIdent, tokens[0].Kind)
	require.Equal(t, "MIXEDCASE", tokens[0].Literal)
}

func TestStringLiteralWithEscapedQuote(t *testing.T) {
	tokens, err := Tokenize(`'Mark''s'`)
	require.NoError(t, err)
	require.Equal(t, StringLiteral, tokens[0].Kind)
	require.Equal(t, "Mark's", tokens[0].Literal)
}

func TestDateTimeTimestampLiterals(t *testing.T) {
	tokens, err := Tokenize(`DATE'2003-04-15' TIME'10:30:00' TIMESTAMP'2003-04-15T10:30:00'`)
	require.NoError(t, err)
	require.Equal(t, []Kind{DateLiteral, TimeLiteral, TimestampLiteral, EOF}, kinds(tokens))
	require.Equal(t, "2003-04-15", tokens[0].Literal)
}

func TestNumberLiterals(t *testing.T) {
	tokens, err := Tokenize("42 3.14 .5 1e10")
	require.NoError(t, err)
	require.Equal(t, []Kind{IntLiteral, RealLiteral, RealLiteral, RealLiteral, EOF}, kinds(tokens))
}

func TestOperatorsAndConcat(t *testing.T) {
	tokens, err := Tokenize("a <> b || c >= 1")
	require.NoError(t, err)
	require.Equal(t, []Kind{Ident, Neq, Ident, Concat, Ident, Ge, IntLiteral, EOF}, kinds(tokens))
}

func TestLineComment(t *testing.T) {
	tokens, err := Tokenize("SELECT 1 -- trailing comment\nFROM SYSTEM_DUAL")
	require.NoError(t, err)
	require.Equal(t, []Kind{SELECT, IntLiteral, FROM, Ident, EOF}, kinds(tokens))
}

func TestIllegalCharacterReportsPosition(t *testing.T) {
	_, err := Tokenize("SELECT 1 @ 2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 1, column 10")
}

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}
