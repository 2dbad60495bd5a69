package preprocessor

import (
	"fmt"
	"strings"

	"github.com/1604042736/c/internal/lexer"
)

const (
	vaArgs = "__VA_ARGS__"
	vaOpt  = "__VA_OPT__"
)

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// isPaste reports whether toks[i] starts a '##' operator.
func isPaste(toks []lexer.Token, i int) bool {
	return i >= 0 && i+1 < len(toks) && toks[i].Is('#') && toks[i+1].Is('#')
}

// nextSolid returns the index of the first non-blank token at or after i.
func nextSolid(toks []lexer.Token, i int) int {
	for i < len(toks) && toks[i].IsBlank() {
		i++
	}
	return i
}

func isVaOpt(m *Macro, tok lexer.Token) bool {
	return m.Variadic && tok.Type == lexer.TokenIdent && tok.Lexeme == vaOpt
}

// vaOptGroup returns the operand of the __VA_OPT__ at toks[i] and the index
// just past its closing parenthesis. msg is set when the group is malformed.
func vaOptGroup(toks []lexer.Token, i int) (inner []lexer.Token, end int, msg string) {
	open := nextSolid(toks, i+1)
	if open == len(toks) || !toks[open].Is('(') {
		return nil, 0, "__VA_OPT__ must be followed by an open parenthesis"
	}
	depth := 0
	for k := open; k < len(toks); k++ {
		switch {
		case toks[k].Is('('):
			depth++
		case toks[k].Is(')'):
			depth--
			if depth == 0 {
				return toks[open+1 : k], k + 1, ""
			}
		case toks[k].Type == lexer.TokenIdent && toks[k].Lexeme == vaOpt:
			return nil, 0, "__VA_OPT__ may not appear in a __VA_OPT__ operand"
		}
	}
	return nil, 0, "unterminated __VA_OPT__"
}

// checkReplacement validates the '#', '##' and __VA_OPT__ operators of a
// replacement list. On failure it returns the offending token and a message.
func checkReplacement(m *Macro, toks []lexer.Token) (lexer.Token, string, bool) {
	toks = trimBlank(toks)
	if n := len(toks); n > 0 && (isPaste(toks, 0) || isPaste(toks, n-2)) {
		return toks[0], "'##' cannot appear at either end of a macro expansion", false
	}
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case isPaste(toks, i):
			i++
		case tok.Is('#') && m.FunctionLike():
			j := nextSolid(toks, i+1)
			if j == len(toks) || !(m.isParam(toks[j]) || isVaOpt(m, toks[j])) {
				return tok, "'#' is not followed by a macro parameter", false
			}
		case isVaOpt(m, tok):
			inner, end, msg := vaOptGroup(toks, i)
			if msg != "" {
				return tok, msg, false
			}
			if bad, msg, ok := checkReplacement(m, inner); !ok {
				return bad, msg, false
			}
			i = end - 1
		}
	}
	return lexer.Token{}, "", true
}

// piece is a run of replacement text.
type piece struct {
	text  string
	blank bool
}

type replacer struct {
	m        *Macro
	bound    map[string]string
	warnings []string
}

// substitute builds the replacement text of one invocation of m. Parameters
// take their argument text, '#' spells an argument as a string literal, '##'
// joins its neighbours and __VA_OPT__ keeps its operand only when variable
// arguments were passed. The result is not rescanned. warnings lists pastes
// that did not form a single token.
func substitute(m *Macro, bound map[string]string) (string, []string) {
	r := &replacer{m: m, bound: bound}
	return r.text(m.body), r.warnings
}

func (r *replacer) text(toks []lexer.Token) string {
	var sb strings.Builder
	for _, pc := range r.replace(toks) {
		sb.WriteString(pc.text)
	}
	return sb.String()
}

func (r *replacer) arg(tok lexer.Token) (string, bool) {
	if !r.m.isParam(tok) {
		return "", false
	}
	text, ok := r.bound[tok.Lexeme]
	return text, ok
}

// optional expands a __VA_OPT__ operand.
func (r *replacer) optional(inner []lexer.Token) string {
	if r.bound[vaArgs] == "" {
		return ""
	}
	return r.text(inner)
}

func (r *replacer) replace(toks []lexer.Token) []piece {
	var out []piece
	pasting := false
	add := func(pc piece) {
		switch {
		case pc.blank && pasting:
		case pasting:
			last := &out[len(out)-1]
			last.text = r.paste(last.text, pc.text)
			pasting = false
		default:
			out = append(out, pc)
		}
	}

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case isPaste(toks, i):
			for len(out) > 0 && out[len(out)-1].blank {
				out = out[:len(out)-1]
			}
			pasting = len(out) > 0
			i++
			continue
		case tok.Is('#') && r.m.FunctionLike():
			j := nextSolid(toks, i+1)
			if j < len(toks) && isVaOpt(r.m, toks[j]) {
				if inner, end, msg := vaOptGroup(toks, j); msg == "" {
					add(piece{text: stringify(r.optional(inner))})
					i = end - 1
					continue
				}
			}
			if j < len(toks) {
				if text, ok := r.arg(toks[j]); ok {
					add(piece{text: stringify(text)})
					i = j
					continue
				}
			}
		case isVaOpt(r.m, tok):
			if inner, end, msg := vaOptGroup(toks, i); msg == "" {
				add(piece{text: r.optional(inner)})
				i = end - 1
				continue
			}
		case tok.IsBlank():
			add(piece{text: tok.Lexeme, blank: true})
			continue
		}

		if text, ok := r.arg(tok); ok {
			add(piece{text: text})
		} else {
			add(piece{text: tok.Lexeme})
		}
	}
	return out
}

// paste joins the operands of '##'. Only the last token of left and the
// first token of right meet.
func (r *replacer) paste(left, right string) string {
	if left == "" || right == "" {
		return left + right
	}
	lt, rt := tokenize(left), tokenize(right)
	a, b := lt[len(lt)-1], rt[0]
	// The scanner splits operators into single characters, so a join of
	// two punctuators cannot be judged here.
	if !(a.Type == lexer.TokenPunct && b.Type == lexer.TokenPunct) && len(tokenize(a.Lexeme+b.Lexeme)) != 1 {
		r.warnings = append(r.warnings, fmt.Sprintf("pasting %q and %q does not give a valid preprocessing token", a.Lexeme, b.Lexeme))
	}
	return left + right
}

// stringify spells text as a string literal. Blank runs become one space;
// '"' and '\' inside string and character literals are escaped.
func stringify(text string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	space := false
	for _, tok := range tokenize(strings.TrimSpace(text)) {
		if tok.IsBlank() || tok.Type == lexer.TokenNewline {
			space = true
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		if tok.Type == lexer.TokenString || tok.Type == lexer.TokenChar {
			sb.WriteString(literalEscaper.Replace(tok.Lexeme))
		} else {
			sb.WriteString(tok.Lexeme)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
