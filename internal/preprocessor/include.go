package preprocessor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/1604042736/c/internal/lexer"
)

// include splices the preprocessed text of another file into the output.
// The included file shares the directive table and diagnostics.
func (p *Preprocessor) include(kw lexer.Token, rest []lexer.Token) error {
	name, quoted, ok := parseHeaderName(trimBlank(rest))
	if !ok {
		p.errorf(kw.Pos, `#include expects "FILENAME" or <FILENAME>`)
		return nil
	}

	path, found := p.findInclude(name, quoted)
	if !found {
		p.errorf(kw.Pos, "%s: no such file in the include path", name)
		return nil
	}
	if abs, err := filepath.Abs(path); err == nil && p.s.once[abs] {
		p.s.opts.logger.Debug("skipping #pragma once file", "file", path)
		return nil
	}
	if depth := len(p.includeStack); depth > p.s.opts.maxIncludeDepth {
		p.errorf(kw.Pos, "#include nested depth %d exceeds maximum of %d", depth, p.s.opts.maxIncludeDepth)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		p.errorf(kw.Pos, "cannot open %s: %v", name, err)
		return nil
	}
	defer f.Close()

	p.s.opts.logger.Debug("including file", "file", path, "from", p.filename, "depth", len(p.includeStack))
	child := newPreprocessor(f, path, p.s, p.includeStack)
	if err := child.run(); err != nil {
		return fmt.Errorf("include %s: %w", path, err)
	}

	out := child.result.String()
	p.result.WriteString(out)
	if out != "" && !strings.HasSuffix(out, "\n") {
		p.result.WriteByte('\n')
	}
	return nil
}

// parseHeaderName reads "name" or <name>.
func parseHeaderName(toks []lexer.Token) (name string, quoted bool, ok bool) {
	if len(toks) == 0 {
		return "", false, false
	}
	first := toks[0]
	if first.Type == lexer.TokenString && !first.Unterminated {
		name = first.Lexeme[1 : len(first.Lexeme)-1]
		return name, true, name != ""
	}
	if !first.Is('<') {
		return "", false, false
	}
	var sb strings.Builder
	for _, tok := range toks[1:] {
		if tok.Is('>') {
			return sb.String(), false, sb.Len() > 0
		}
		sb.WriteString(tok.Lexeme)
	}
	return "", false, false
}

// findInclude resolves a header name. Quoted names are looked up next to
// the including file first, then in the include directories in order.
func (p *Preprocessor) findInclude(name string, quoted bool) (string, bool) {
	var candidates []string
	if filepath.IsAbs(name) {
		candidates = []string{name}
	} else {
		if quoted {
			candidates = append(candidates, filepath.Join(p.dir, name))
		}
		for _, dir := range p.s.opts.includeDirs {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}
