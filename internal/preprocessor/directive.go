package preprocessor

import (
	"slices"
	"strconv"
	"strings"

	"github.com/1604042736/c/internal/lexer"
)

// condFrame is one open #if/#ifdef/#ifndef group.
type condFrame struct {
	directive string
	pos       lexer.Position

	// active is whether the current branch emits text.
	active bool
	// taken is whether some branch of the group has been selected.
	taken bool
	// parentActive is whether the enclosing group emits text.
	parentActive bool
	seenElse     bool
}

func (p *Preprocessor) skipping() bool {
	n := len(p.conds)
	return n > 0 && !p.conds[n-1].active
}

func (p *Preprocessor) top() *condFrame {
	if len(p.conds) == 0 {
		return nil
	}
	return &p.conds[len(p.conds)-1]
}

// readLine consumes the rest of the logical line. The newline is consumed
// but not returned; reachedNewline is false at end of input.
func (p *Preprocessor) readLine() (toks []lexer.Token, reachedNewline bool, err error) {
	for {
		tok, err := p.src.next()
		if err != nil {
			return nil, false, err
		}
		switch tok.Type {
		case lexer.TokenNewline:
			return toks, true, nil
		case lexer.TokenEOF:
			p.src.unread(tok)
			return toks, false, nil
		}
		toks = append(toks, tok)
	}
}

// directive handles one line starting with '#'. lead holds the blanks
// before the '#'.
func (p *Preprocessor) directive(lead []lexer.Token, hash lexer.Token) error {
	line, newline, err := p.readLine()
	if err != nil {
		return err
	}

	args := trimBlank(line)
	if len(args) == 0 {
		p.s.opts.metrics.DirectiveHandled("null")
		return nil
	}
	kw, rest := args[0], args[1:]
	if kw.Type != lexer.TokenIdent {
		if !p.skipping() {
			p.passThrough(lead, hash, line, newline)
		}
		return nil
	}

	switch kw.Lexeme {
	case "if", "ifdef", "ifndef", "elif", "elifdef", "elifndef", "else", "endif":
		p.conditional(kw, rest)
		p.s.opts.metrics.DirectiveHandled(kw.Lexeme)
		return nil
	}
	if p.skipping() {
		return nil
	}

	switch kw.Lexeme {
	case "define":
		p.define(kw, rest)
	case "undef":
		p.undef(kw, rest)
	case "include":
		if err := p.include(kw, rest); err != nil {
			return err
		}
	case "line":
		p.line(kw, rest)
	case "error":
		p.errorf(kw.Pos, "#error %s", joinText(rest))
	case "warning":
		p.warnf(kw.Pos, "#warning %s", joinText(rest))
	case "pragma":
		p.pragma(rest)
	default:
		p.s.opts.logger.Debug("passing through unknown directive",
			"directive", kw.Lexeme, "pos", hash.Pos.String())
		p.passThrough(lead, hash, line, newline)
		return nil
	}
	p.s.opts.metrics.DirectiveHandled(kw.Lexeme)
	return nil
}

// passThrough copies a directive line to the output unchanged.
func (p *Preprocessor) passThrough(lead []lexer.Token, hash lexer.Token, line []lexer.Token, newline bool) {
	p.write(lead...)
	p.write(hash)
	p.write(line...)
	if newline {
		p.result.WriteByte('\n')
	}
}

func (p *Preprocessor) define(kw lexer.Token, rest []lexer.Token) {
	toks := trimBlank(rest)
	if len(toks) == 0 {
		p.errorf(kw.Pos, "no macro name given in #define directive")
		return
	}
	nameTok := toks[0]
	if !p.checkMacroName(nameTok) {
		return
	}

	m := &Macro{Name: nameTok.Lexeme, Pos: nameTok.Pos}
	body := toks[1:]
	switch {
	case len(body) > 0 && body[0].Is('('):
		params, variadic, after, ok := p.parseParams(nameTok.Pos, body[1:])
		if !ok {
			return
		}
		m.Params, m.Variadic = params, variadic
		body = after
	case len(body) > 0 && !body[0].IsBlank():
		p.warnf(body[0].Pos, "missing whitespace after the macro name")
	}

	m.body = normalizeBody(trimBlank(body))
	m.Body = joinLexemes(m.body)
	if bad, msg, ok := checkReplacement(m, m.body); !ok {
		p.errorf(bad.Pos, "%s", msg)
		return
	}

	if prev, ok := p.s.macros.Lookup(m.Name); ok && !prev.Equal(m) {
		p.warnf(nameTok.Pos, "%q redefined (previous definition at %s)", m.Name, prev.Pos)
	}
	p.s.macros.Define(m)
	p.s.opts.logger.Debug("macro defined", "macro", m.Signature(), "body", m.Body)
}

func (p *Preprocessor) checkMacroName(tok lexer.Token) bool {
	switch {
	case tok.Type != lexer.TokenIdent:
		p.errorf(tok.Pos, "macro names must be identifiers")
		return false
	case tok.Lexeme == "defined":
		p.errorf(tok.Pos, `"defined" cannot be used as a macro name`)
		return false
	}
	return true
}

// parseParams reads a parameter list after its '('. It returns the tokens
// after the closing ')'.
func (p *Preprocessor) parseParams(pos lexer.Position, toks []lexer.Token) (params []string, variadic bool, after []lexer.Token, ok bool) {
	params = []string{}
	i := 0
	next := func() (lexer.Token, bool) {
		for i < len(toks) && toks[i].IsBlank() {
			i++
		}
		if i >= len(toks) {
			return lexer.Token{}, false
		}
		i++
		return toks[i-1], true
	}

	tok, more := next()
	if more && tok.Is(')') {
		return params, false, toks[i:], true
	}
	for {
		if !more {
			p.errorf(pos, "missing ')' in macro parameter list")
			return nil, false, nil, false
		}
		switch {
		case tok.Type == lexer.TokenIdent:
			if tok.Lexeme == "__VA_ARGS__" {
				p.errorf(tok.Pos, "__VA_ARGS__ can only appear in the expansion of a variadic macro")
				return nil, false, nil, false
			}
			if slices.Contains(params, tok.Lexeme) {
				p.errorf(tok.Pos, "duplicate macro parameter %q", tok.Lexeme)
				return nil, false, nil, false
			}
			params = append(params, tok.Lexeme)
		case isEllipsis(toks, i-1):
			variadic = true
			i += 2
		default:
			p.errorf(tok.Pos, "expected parameter name, found %q", tok.Lexeme)
			return nil, false, nil, false
		}

		tok, more = next()
		if !more {
			continue
		}
		if tok.Is(')') {
			return params, variadic, toks[i:], true
		}
		if variadic || !tok.Is(',') {
			p.errorf(tok.Pos, "expected ',' or ')' in macro parameter list, found %q", tok.Lexeme)
			return nil, false, nil, false
		}
		tok, more = next()
	}
}

func isEllipsis(toks []lexer.Token, i int) bool {
	return i+2 < len(toks) && toks[i].Is('.') && toks[i+1].Is('.') && toks[i+2].Is('.')
}

func (p *Preprocessor) undef(kw lexer.Token, rest []lexer.Token) {
	toks := trimBlank(rest)
	if len(toks) == 0 {
		p.errorf(kw.Pos, "no macro name given in #undef directive")
		return
	}
	if !p.checkMacroName(toks[0]) {
		return
	}
	if len(toks) > 1 {
		p.warnf(toks[1].Pos, "extra tokens at end of #undef directive")
	}
	if p.s.macros.Undefine(toks[0].Lexeme) {
		p.s.opts.logger.Debug("macro undefined", "macro", toks[0].Lexeme)
	}
}

func (p *Preprocessor) conditional(kw lexer.Token, rest []lexer.Token) {
	name := kw.Lexeme
	switch name {
	case "if", "ifdef", "ifndef":
		if p.skipping() {
			// Nested in a dead group: only track nesting.
			p.conds = append(p.conds, condFrame{directive: name, pos: kw.Pos, taken: true})
			return
		}
		var v bool
		switch name {
		case "if":
			v = p.condition(kw, rest)
		case "ifdef":
			v = p.definedArg(kw, rest) == 1
		case "ifndef":
			v = p.definedArg(kw, rest) == 0
		}
		p.conds = append(p.conds, condFrame{
			directive:    name,
			pos:          kw.Pos,
			active:       v,
			taken:        v,
			parentActive: true,
		})

	case "elif", "elifdef", "elifndef":
		f := p.top()
		if f == nil {
			p.errorf(kw.Pos, "#%s without #if", name)
			return
		}
		if f.seenElse {
			p.errorf(kw.Pos, "#%s after #else", name)
			return
		}
		if !f.parentActive || f.taken {
			f.active = false
			return
		}
		var v bool
		switch name {
		case "elif":
			v = p.condition(kw, rest)
		case "elifdef":
			v = p.definedArg(kw, rest) == 1
		case "elifndef":
			v = p.definedArg(kw, rest) == 0
		}
		f.active, f.taken = v, v

	case "else":
		f := p.top()
		if f == nil {
			p.errorf(kw.Pos, "#else without #if")
			return
		}
		if f.seenElse {
			p.errorf(kw.Pos, "#else after #else")
			return
		}
		f.seenElse = true
		f.active = f.parentActive && !f.taken
		f.taken = true

	case "endif":
		if len(p.conds) == 0 {
			p.errorf(kw.Pos, "#endif without #if")
			return
		}
		p.conds = p.conds[:len(p.conds)-1]
	}
}

// definedArg checks the macro name operand of #ifdef and friends. It returns
// 1 if the name is defined, 0 if not, and -1 if the operand is malformed.
func (p *Preprocessor) definedArg(kw lexer.Token, rest []lexer.Token) int {
	toks := trimBlank(rest)
	if len(toks) == 0 {
		p.errorf(kw.Pos, "no macro name given in #%s directive", kw.Lexeme)
		return -1
	}
	if toks[0].Type != lexer.TokenIdent {
		p.errorf(toks[0].Pos, "macro names must be identifiers")
		return -1
	}
	if len(toks) > 1 {
		p.warnf(toks[1].Pos, "extra tokens at end of #%s directive", kw.Lexeme)
	}
	if p.s.macros.IsDefined(toks[0].Lexeme) || isBuiltin(toks[0].Lexeme) {
		return 1
	}
	return 0
}

// closeConditionals reports groups still open at end of input.
func (p *Preprocessor) closeConditionals() {
	for _, f := range p.conds {
		p.errorf(f.pos, "unterminated #%s", f.directive)
	}
	p.conds = nil
}

// line handles #line N ["file"]. N numbers the line after the directive.
func (p *Preprocessor) line(kw lexer.Token, rest []lexer.Token) {
	toks := trimBlank(rest)
	if len(toks) == 0 || toks[0].Type != lexer.TokenNumber {
		p.errorf(kw.Pos, "#line directive requires a positive integer argument")
		return
	}
	n, err := strconv.Atoi(toks[0].Lexeme)
	if err != nil || n <= 0 {
		p.errorf(toks[0].Pos, "%q after #line is not a positive integer", toks[0].Lexeme)
		return
	}

	file := trimBlank(toks[1:])
	if len(file) > 0 {
		if file[0].Type != lexer.TokenString || file[0].Unterminated {
			p.errorf(file[0].Pos, "invalid filename %s in #line directive", file[0].Lexeme)
			return
		}
		name, err := strconv.Unquote(file[0].Lexeme)
		if err != nil {
			name = file[0].Lexeme[1 : len(file[0].Lexeme)-1]
		}
		p.filename = name
	}
	p.lineShift = n - p.fc.Row()
}

func (p *Preprocessor) pragma(rest []lexer.Token) {
	toks := trimBlank(rest)
	if len(toks) > 0 && toks[0].Type == lexer.TokenIdent && toks[0].Lexeme == "once" {
		p.s.once[p.path] = true
		return
	}
	p.s.opts.logger.Debug("ignoring pragma", "pragma", joinText(toks))
}

// trimBlank drops blanks at both ends.
func trimBlank(toks []lexer.Token) []lexer.Token {
	for len(toks) > 0 && toks[0].IsBlank() {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].IsBlank() {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// normalizeBody replaces comments with a single space.
func normalizeBody(toks []lexer.Token) []lexer.Token {
	out := make([]lexer.Token, 0, len(toks))
	for _, tok := range toks {
		if tok.Type == lexer.TokenComment {
			tok = lexer.Token{Type: lexer.TokenWhitespace, Lexeme: " ", Pos: tok.Pos}
		}
		out = append(out, tok)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func joinLexemes(toks []lexer.Token) string {
	var sb strings.Builder
	for _, tok := range toks {
		sb.WriteString(tok.Lexeme)
	}
	return sb.String()
}

// joinText renders directive operands for messages.
func joinText(toks []lexer.Token) string {
	return strings.TrimSpace(joinLexemes(normalizeBody(toks)))
}
