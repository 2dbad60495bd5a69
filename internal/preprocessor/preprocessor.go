// Package preprocessor normalizes C-- source text before it reaches the
// parser.
//
// One Preprocessor handles one translation unit in a single left-to-right
// pass. Line continuations are folded by the underlying lexer.FileContext,
// directive lines are consumed, and every identifier that names a macro is
// replaced by the macro's replacement text. Substitution is one-shot: the
// replacement is appended to the output and never scanned again, so a
// macro that mentions itself cannot loop. Inside a replacement list '#'
// stringizes a parameter, '##' pastes its neighbours and __VA_OPT__ keeps
// its operand only when variable arguments were passed.
//
// Everything else (operators, blanks, comments, string and character
// literals) is copied through byte for byte, which keeps the output's
// relationship to source positions predictable for diagnostics.
//
// Problems in the source are collected as Diagnostics and never stop the
// pass. Only an I/O failure aborts it.
package preprocessor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/1604042736/c/internal/lexer"
)

// session is the state shared by a file and the files it includes.
type session struct {
	opts   options
	macros *MacroTable
	diags  []Diagnostic

	// once holds the absolute paths of files that said #pragma once.
	once map[string]bool

	date string
	time string
}

// tokenSource is a scanner with push-back, used when looking ahead for the
// argument list of a function-like macro.
type tokenSource struct {
	scan *lexer.Scanner
	back []lexer.Token
}

func (ts *tokenSource) next() (lexer.Token, error) {
	if n := len(ts.back); n > 0 {
		tok := ts.back[n-1]
		ts.back = ts.back[:n-1]
		return tok, nil
	}
	return ts.scan.Next()
}

// unread pushes toks back so that next returns them in order.
func (ts *tokenSource) unread(toks ...lexer.Token) {
	for i := len(toks) - 1; i >= 0; i-- {
		ts.back = append(ts.back, toks[i])
	}
}

// Preprocessor is one preprocessing session bound to one file.
type Preprocessor struct {
	fc     *lexer.FileContext
	src    *tokenSource
	closer io.Closer

	// filename is what __FILE__ expands to; #line may change it.
	filename string
	dir      string
	path     string

	result strings.Builder
	s      *session

	conds     []condFrame
	lineShift int

	includeStack []string

	done bool
	err  error
}

// New starts a session reading r. filename is used in diagnostics, in
// __FILE__ and to resolve quoted #include names.
func New(r io.Reader, filename string, opts ...Option) *Preprocessor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	now := o.now()
	s := &session{
		opts:   o,
		macros: NewMacroTable(),
		once:   make(map[string]bool),
		date:   now.Format(`"Jan _2 2006"`),
		time:   now.Format(`"15:04:05"`),
	}
	for _, m := range o.defines {
		s.macros.Define(m)
	}
	return newPreprocessor(r, filename, s, nil)
}

func newPreprocessor(r io.Reader, filename string, s *session, stack []string) *Preprocessor {
	fc := lexer.NewFileContext(r, filename, 1, 1)
	p := &Preprocessor{
		fc:       fc,
		src:      &tokenSource{scan: lexer.NewScanner(fc)},
		filename: filename,
		dir:      filepath.Dir(filename),
		path:     filename,
		s:        s,
	}
	if abs, err := filepath.Abs(filename); err == nil {
		p.path = abs
	}
	p.includeStack = append(slices.Clone(stack), p.path)
	return p
}

// Open opens path and starts a session on it. Call Close when done.
func Open(path string, opts ...Option) (*Preprocessor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", path, err)
	}
	p := New(f, path, opts...)
	p.closer = f
	return p, nil
}

// Close closes the file opened by Open. It is a no-op for sessions made
// with New.
func (p *Preprocessor) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// Preprocess runs the pass and returns the normalized text. The pass runs
// once; later calls return the same outcome. On an I/O failure the error
// names the file and no partial text is returned.
func (p *Preprocessor) Preprocess() (string, error) {
	if p.done {
		if p.err != nil {
			return "", p.err
		}
		return p.result.String(), nil
	}
	p.done = true

	p.s.opts.logger.Debug("preprocessing", "file", p.filename)
	if err := p.run(); err != nil {
		p.err = fmt.Errorf("preprocess %s: %w", p.fc.Filename(), err)
		return "", p.err
	}
	p.s.opts.logger.Debug("preprocessed", "file", p.filename,
		"bytes", p.result.Len(), "macros", p.s.macros.Len(), "diagnostics", len(p.s.diags))
	return p.result.String(), nil
}

// Result returns the text accumulated so far.
func (p *Preprocessor) Result() string {
	return p.result.String()
}

// Macros returns the directive table.
func (p *Preprocessor) Macros() *MacroTable {
	return p.s.macros
}

// Diagnostics returns the problems found so far, included files too.
func (p *Preprocessor) Diagnostics() []Diagnostic {
	return slices.Clone(p.s.diags)
}

// HasErrors reports whether any diagnostic is an error.
func (p *Preprocessor) HasErrors() bool {
	return slices.ContainsFunc(p.s.diags, func(d Diagnostic) bool {
		return d.Severity == SeverityError
	})
}

// ExpandFragment applies the current directive table to a piece of code
// with the rules of the main pass: identifiers are substituted once,
// literals and comments are left alone, continuations are folded.
// Directives in the fragment are not interpreted.
func (p *Preprocessor) ExpandFragment(code string) string {
	frag := newPreprocessor(strings.NewReader(code), p.filename, p.s, p.includeStack)
	frag.lineShift = p.lineShift
	for {
		tok, err := frag.src.next()
		if err != nil || tok.Type == lexer.TokenEOF {
			break
		}
		if err := frag.emit(tok); err != nil {
			break
		}
	}
	return frag.result.String()
}

func (p *Preprocessor) run() error {
	var lead []lexer.Token
	lineStart := true

	for {
		tok, err := p.src.next()
		if err != nil {
			return err
		}
		if tok.Type == lexer.TokenEOF {
			if !p.skipping() {
				p.write(lead...)
			}
			p.closeConditionals()
			return nil
		}

		// Blanks at the start of a line are held back until we know
		// whether the line is a directive.
		if lineStart {
			if tok.IsBlank() {
				lead = append(lead, tok)
				continue
			}
			if tok.Is('#') {
				if err := p.directive(lead, tok); err != nil {
					return err
				}
				lead = lead[:0]
				continue
			}
		}

		lineStart = tok.Type == lexer.TokenNewline
		if p.skipping() {
			lead = lead[:0]
			continue
		}
		p.write(lead...)
		lead = lead[:0]
		if err := p.emit(tok); err != nil {
			return err
		}
	}
}

func (p *Preprocessor) write(toks ...lexer.Token) {
	for _, tok := range toks {
		p.result.WriteString(tok.Lexeme)
	}
}

// emit copies one token to the output, substituting macros.
func (p *Preprocessor) emit(tok lexer.Token) error {
	switch tok.Type {
	case lexer.TokenIdent:
		return p.expand(tok)
	case lexer.TokenString, lexer.TokenChar:
		if tok.Unterminated {
			p.warnf(tok.Pos, "missing terminating %c character", tok.Lexeme[0])
		}
	case lexer.TokenComment:
		if tok.Unterminated {
			p.errorf(tok.Pos, "unterminated comment")
		}
	}
	p.write(tok)
	return nil
}

func (p *Preprocessor) expand(tok lexer.Token) error {
	if text, ok := p.builtin(tok); ok {
		p.result.WriteString(text)
		p.s.opts.metrics.MacroExpanded()
		return nil
	}

	m, ok := p.s.macros.Lookup(tok.Lexeme)
	if !ok {
		p.write(tok)
		return nil
	}
	if !m.FunctionLike() {
		p.replaceMacro(tok, m, nil)
		return nil
	}
	return p.expandCall(tok, m)
}

// replaceMacro writes the replacement of one invocation of m.
func (p *Preprocessor) replaceMacro(name lexer.Token, m *Macro, bound map[string]string) {
	text, warnings := substitute(m, bound)
	for _, w := range warnings {
		p.warnf(name.Pos, "%s", w)
	}
	p.result.WriteString(text)
	p.s.opts.metrics.MacroExpanded()
}

// expandCall handles a function-like macro name. Without a following '('
// the name is an ordinary identifier.
func (p *Preprocessor) expandCall(name lexer.Token, m *Macro) error {
	consumed := []lexer.Token{name}
	for {
		tok, err := p.src.next()
		if err != nil {
			return err
		}
		if tok.IsBlank() || tok.Type == lexer.TokenNewline {
			consumed = append(consumed, tok)
			continue
		}
		if !tok.Is('(') {
			p.src.unread(append(consumed[1:], tok)...)
			p.write(name)
			return nil
		}
		consumed = append(consumed, tok)
		break
	}

	args, raw, err := p.collectArgs()
	if err != nil {
		return err
	}
	consumed = append(consumed, raw...)
	if args == nil {
		p.errorf(name.Pos, "unterminated argument list invoking macro %q", m.Name)
		p.write(consumed...)
		return nil
	}

	bound, ok := bindArgs(m, args)
	if !ok {
		p.errorf(name.Pos, "macro %q passed %d arguments, but takes %d", m.Name, len(args), len(m.Params))
		p.write(consumed...)
		return nil
	}

	p.replaceMacro(name, m, bound)
	return nil
}

// collectArgs reads up to the ')' matching an already consumed '('. Each
// argument keeps its text as written, surrounding blanks included. It
// returns nil args when the input ends first. raw holds every token read.
func (p *Preprocessor) collectArgs() (args []string, raw []lexer.Token, err error) {
	var cur strings.Builder
	depth := 1
	for {
		tok, err := p.src.next()
		if err != nil {
			return nil, raw, err
		}
		if tok.Type == lexer.TokenEOF {
			p.src.unread(tok)
			return nil, raw, nil
		}
		raw = append(raw, tok)

		switch {
		case tok.Is('('):
			depth++
		case tok.Is(')'):
			depth--
			if depth == 0 {
				return append(args, cur.String()), raw, nil
			}
		case tok.Is(',') && depth == 1:
			args = append(args, cur.String())
			cur.Reset()
			continue
		}

		if tok.Type == lexer.TokenNewline || tok.Type == lexer.TokenComment {
			cur.WriteByte(' ')
			continue
		}
		cur.WriteString(tok.Lexeme)
	}
}

// bindArgs maps parameter names to argument text. Named arguments are
// trimmed; __VA_ARGS__ is the variable arguments with their separating
// commas, as written.
func bindArgs(m *Macro, args []string) (map[string]string, bool) {
	n := len(m.Params)
	// NAME() passes one empty argument.
	if n == 0 && len(args) == 1 && strings.TrimSpace(args[0]) == "" {
		args = nil
	}

	if m.Variadic {
		if len(args) < n {
			return nil, false
		}
	} else if len(args) != n {
		return nil, false
	}

	bound := make(map[string]string, n+1)
	for i, param := range m.Params {
		bound[param] = strings.TrimSpace(args[i])
	}
	if m.Variadic {
		bound[vaArgs] = strings.TrimSpace(strings.Join(args[n:], ","))
	}
	return bound, true
}

func isBuiltin(name string) bool {
	switch name {
	case "__FILE__", "__LINE__", "__DATE__", "__TIME__":
		return true
	}
	return false
}

// builtin expands the predefined macros.
func (p *Preprocessor) builtin(tok lexer.Token) (string, bool) {
	switch tok.Lexeme {
	case "__FILE__":
		return strconv.Quote(p.filename), true
	case "__LINE__":
		return strconv.Itoa(tok.Pos.Line + p.lineShift), true
	case "__DATE__":
		return p.s.date, true
	case "__TIME__":
		return p.s.time, true
	}
	return "", false
}

func (p *Preprocessor) report(sev Severity, pos lexer.Position, format string, args ...any) {
	d := Diagnostic{Severity: sev, Pos: pos, Message: fmt.Sprintf(format, args...)}
	p.s.diags = append(p.s.diags, d)
	p.s.opts.metrics.DiagnosticReported(sev.String())
	p.s.opts.logger.Debug("diagnostic", "pos", pos.String(), "severity", sev.String(), "message", d.Message)
}

func (p *Preprocessor) errorf(pos lexer.Position, format string, args ...any) {
	p.report(SeverityError, pos, format, args...)
}

func (p *Preprocessor) warnf(pos lexer.Position, format string, args ...any) {
	p.report(SeverityWarning, pos, format, args...)
}
