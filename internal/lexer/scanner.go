package lexer

import (
	"errors"
	"io"
	"strings"
)

// Scanner splits the character stream of a FileContext into preprocessing
// tokens.
//
// The scanner never drops input: whitespace, comments and newlines are
// tokens too. It only classifies, so the preprocessor can tell an
// identifier from the same letters inside a literal or a comment.
type Scanner struct {
	fc *FileContext
}

// NewScanner returns a scanner reading from fc.
func NewScanner(fc *FileContext) *Scanner {
	return &Scanner{fc: fc}
}

// FileContext returns the cursor the scanner reads from.
func (s *Scanner) FileContext() *FileContext {
	return s.fc
}

// Next returns the next token. At end of input it returns a TokenEOF token
// and a nil error; a read failure is returned as the error.
func (s *Scanner) Next() (Token, error) {
	ch, pos, err := s.fc.Next()
	if errors.Is(err, io.EOF) {
		return Token{Type: TokenEOF, Pos: pos}, nil
	}
	if err != nil {
		return Token{}, err
	}

	var sb strings.Builder
	sb.WriteByte(ch)
	tok := Token{Pos: pos}

	switch {
	case ch == '\n':
		tok.Type = TokenNewline

	case isBlank(ch):
		tok.Type = TokenWhitespace
		err = s.consumeWhile(&sb, isBlank)

	case IsIdentStart(ch):
		tok.Type = TokenIdent
		err = s.consumeWhile(&sb, IsIdentPart)

	case isDigit(ch):
		tok.Type = TokenNumber
		err = s.scanNumber(&sb)

	case ch == '.':
		next, ok, perr := s.peek()
		if perr != nil {
			return Token{}, perr
		}
		if ok && isDigit(next) {
			tok.Type = TokenNumber
			err = s.scanNumber(&sb)
		} else {
			tok.Type = TokenPunct
		}

	case ch == '"' || ch == '\'':
		tok.Type = TokenString
		if ch == '\'' {
			tok.Type = TokenChar
		}
		tok.Unterminated, err = s.scanQuoted(&sb, ch)

	case ch == '/':
		next, ok, perr := s.peek()
		if perr != nil {
			return Token{}, perr
		}
		switch {
		case ok && next == '/':
			tok.Type = TokenComment
			err = s.consumeWhile(&sb, func(c byte) bool { return c != '\n' })
		case ok && next == '*':
			tok.Type = TokenComment
			tok.Unterminated, err = s.scanBlockComment(&sb)
		default:
			tok.Type = TokenPunct
		}

	default:
		tok.Type = TokenPunct
	}

	if err != nil {
		return Token{}, err
	}
	tok.Lexeme = sb.String()
	return tok, nil
}

// peek returns the next character. ok is false at end of input; a NUL
// byte is an ordinary character.
func (s *Scanner) peek() (ch byte, ok bool, err error) {
	ch, err = s.fc.Peek()
	if errors.Is(err, io.EOF) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return ch, true, nil
}

// take consumes the character peek just returned.
func (s *Scanner) take(sb *strings.Builder) error {
	ch, _, err := s.fc.Next()
	if err != nil {
		return err
	}
	sb.WriteByte(ch)
	return nil
}

func (s *Scanner) consumeWhile(sb *strings.Builder, pred func(byte) bool) error {
	for {
		ch, ok, err := s.peek()
		if err != nil {
			return err
		}
		if !ok || !pred(ch) {
			return nil
		}
		if err := s.take(sb); err != nil {
			return err
		}
	}
}

// scanNumber continues a pp-number: digits, letters, '_', '.', and a sign
// directly after an exponent letter.
func (s *Scanner) scanNumber(sb *strings.Builder) error {
	for {
		ch, ok, err := s.peek()
		if err != nil || !ok {
			return err
		}
		switch {
		case IsIdentPart(ch) || ch == '.':
		case ch == '+' || ch == '-':
			text := sb.String()
			last := text[len(text)-1]
			if last != 'e' && last != 'E' && last != 'p' && last != 'P' {
				return nil
			}
		default:
			return nil
		}
		if err := s.take(sb); err != nil {
			return err
		}
	}
}

// scanQuoted continues a literal opened by quote. The literal stops before
// a newline or at end of input, in which case it is reported unterminated.
func (s *Scanner) scanQuoted(sb *strings.Builder, quote byte) (bool, error) {
	for {
		ch, ok, err := s.peek()
		if err != nil {
			return false, err
		}
		if !ok || ch == '\n' {
			return true, nil
		}
		if err := s.take(sb); err != nil {
			return false, err
		}
		switch ch {
		case quote:
			return false, nil
		case '\\':
			esc, ok, err := s.peek()
			if err != nil {
				return false, err
			}
			if ok && esc != '\n' {
				if err := s.take(sb); err != nil {
					return false, err
				}
			}
		}
	}
}

// scanBlockComment continues a comment after its opening '/'.
func (s *Scanner) scanBlockComment(sb *strings.Builder) (bool, error) {
	if err := s.take(sb); err != nil { // '*'
		return false, err
	}
	prev := byte(0)
	for {
		ch, _, err := s.fc.Next()
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		sb.WriteByte(ch)
		if prev == '*' && ch == '/' {
			return false, nil
		}
		prev = ch
	}
}
