package preprocessor

import (
	"slices"
	"strings"

	"github.com/1604042736/c/internal/lexer"
)

// Macro is one entry of the directive table.
type Macro struct {
	Name string

	// Params is nil for an object-like macro and non-nil (possibly empty)
	// for a function-like one. A trailing "..." is not listed here; it sets
	// Variadic and binds __VA_ARGS__.
	Params   []string
	Variadic bool

	// Body is the replacement text with surrounding blanks trimmed.
	Body string

	// Pos is where the macro was defined. Predefined macros have the zero
	// position.
	Pos lexer.Position

	body []lexer.Token
}

// FunctionLike reports whether the macro takes arguments.
func (m *Macro) FunctionLike() bool {
	return m.Params != nil
}

// isParam reports whether tok names a parameter, __VA_ARGS__ included.
func (m *Macro) isParam(tok lexer.Token) bool {
	if tok.Type != lexer.TokenIdent || !m.FunctionLike() {
		return false
	}
	if tok.Lexeme == vaArgs {
		return m.Variadic
	}
	return slices.Contains(m.Params, tok.Lexeme)
}

// Equal reports whether two definitions are interchangeable: same kind,
// same parameters, same replacement text.
func (m *Macro) Equal(other *Macro) bool {
	return m.FunctionLike() == other.FunctionLike() &&
		m.Variadic == other.Variadic &&
		slices.Equal(m.Params, other.Params) &&
		m.Body == other.Body
}

// Signature renders the macro as it would appear after #define.
func (m *Macro) Signature() string {
	if !m.FunctionLike() {
		return m.Name
	}
	params := append([]string(nil), m.Params...)
	if m.Variadic {
		params = append(params, "...")
	}
	return m.Name + "(" + strings.Join(params, ", ") + ")"
}

// MacroTable maps macro names to their definitions.
type MacroTable struct {
	macros map[string]*Macro
}

// NewMacroTable returns an empty table.
func NewMacroTable() *MacroTable {
	return &MacroTable{macros: make(map[string]*Macro)}
}

// Define stores m, replacing any definition of the same name. It returns the
// previous definition, if there was one.
func (t *MacroTable) Define(m *Macro) (*Macro, bool) {
	if m.body == nil && m.Body != "" {
		m.body = tokenize(m.Body)
	}
	prev, ok := t.macros[m.Name]
	t.macros[m.Name] = m
	return prev, ok
}

// Undefine removes name and reports whether it was defined.
func (t *MacroTable) Undefine(name string) bool {
	_, ok := t.macros[name]
	delete(t.macros, name)
	return ok
}

// Lookup returns the definition of name.
func (t *MacroTable) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

// IsDefined reports whether name is defined.
func (t *MacroTable) IsDefined(name string) bool {
	_, ok := t.macros[name]
	return ok
}

// Len returns the number of definitions.
func (t *MacroTable) Len() int { return len(t.macros) }

// Names returns the defined names in sorted order.
func (t *MacroTable) Names() []string {
	names := make([]string, 0, len(t.macros))
	for name := range t.macros {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// tokenize splits replacement text into preprocessing tokens.
func tokenize(text string) []lexer.Token {
	s := lexer.NewScanner(lexer.NewFileContext(strings.NewReader(text), "", 1, 1))
	var toks []lexer.Token
	for {
		tok, err := s.Next()
		if err != nil || tok.Type == lexer.TokenEOF {
			return toks
		}
		toks = append(toks, tok)
	}
}
