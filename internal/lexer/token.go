package lexer

// TokenType is the kind of a preprocessing token.
//
// Preprocessing tokens are coarser than the parser's tokens: every operator
// is a one-byte TokenPunct and numbers follow the C "pp-number" shape, so
// "10N" or "1.5e+3f" is a single token. Every token keeps its exact source
// text; joining the lexemes of a file gives back the file with its line
// continuations removed.
type TokenType int

const (
	// TokenEOF marks the end of the input.
	TokenEOF TokenType = iota

	// TokenIdent is an identifier-shaped word: [A-Za-z_][A-Za-z0-9_]*.
	TokenIdent

	// TokenNumber is a pp-number.
	TokenNumber

	// TokenString is a double-quoted literal, quotes included.
	TokenString

	// TokenChar is a single-quoted literal, quotes included.
	TokenChar

	// TokenComment is a // or /* */ comment, delimiters included.
	TokenComment

	// TokenWhitespace is a run of blanks that does not contain a newline.
	TokenWhitespace

	// TokenNewline is an unescaped '\n'.
	TokenNewline

	// TokenPunct is any other single byte, '#' included.
	TokenPunct
)

var tokenNames = [...]string{
	TokenEOF:        "EOF",
	TokenIdent:      "IDENT",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenChar:       "CHAR",
	TokenComment:    "COMMENT",
	TokenWhitespace: "WHITESPACE",
	TokenNewline:    "NEWLINE",
	TokenPunct:      "PUNCT",
}

// String returns the upper-case name of the token type.
func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "UNKNOWN"
}

// Token is one preprocessing token.
type Token struct {
	Type   TokenType
	Lexeme string
	Pos    Position

	// Unterminated is set on string and char literals cut off by a newline
	// or end of input, and on block comments cut off by end of input.
	Unterminated bool
}

// Is reports whether the token is the punctuator ch.
func (t Token) Is(ch byte) bool {
	return t.Type == TokenPunct && len(t.Lexeme) == 1 && t.Lexeme[0] == ch
}

// IsBlank reports whether the token carries no meaning for the directive
// scanner: whitespace or a comment.
func (t Token) IsBlank() bool {
	return t.Type == TokenWhitespace || t.Type == TokenComment
}

// IsIdentStart reports whether ch may start an identifier.
func IsIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// IsIdentPart reports whether ch may continue an identifier.
func IsIdentPart(ch byte) bool {
	return IsIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isBlank(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\f', '\v':
		return true
	}
	return false
}
