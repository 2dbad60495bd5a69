package symtab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/1604042736/c/internal/types"
)

// ErrNoScope is returned when popping or declaring with no open scope.
var ErrNoScope = errors.New("symtab: no open scope")

// ScopeKind is the kind of region a scope covers.
type ScopeKind int

const (
	// ScopeGlobal is the file scope.
	ScopeGlobal ScopeKind = iota

	// ScopeFunction holds a function's parameters and top-level locals.
	ScopeFunction

	// ScopeBlock is a { ... } block inside a function.
	ScopeBlock
)

// String returns a human-readable representation of the scope kind.
func (sk ScopeKind) String() string {
	switch sk {
	case ScopeGlobal:
		return "global"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Scope is one open scope: its kind, its own table and its depth
// (0 for the outermost scope).
type Scope struct {
	Kind  ScopeKind
	Table *SymTable
	Depth int
}

// String returns e.g. "block scope (depth 2, 3 symbols)".
func (s *Scope) String() string {
	return fmt.Sprintf("%s scope (depth %d, %d symbols)", s.Kind, s.Depth, s.Table.Len())
}

// ScopeStack keeps one SymTable per open scope.
//
// EXAMPLE:
//
//	int x;              // global: x
//	int f(int n) {      // function: n
//	    char x;         // block... shadows the global x
//	    { int y; }      // block: y, gone after the closing brace
//	}
//
// The parser pushes a scope on entry and pops it on exit; popping releases
// the scope's table, with all its items and types, in one step.
type ScopeStack struct {
	scopes []*Scope
	opts   []Option
}

// NewScopeStack returns an empty stack. opts are applied to every table the
// stack creates.
func NewScopeStack(opts ...Option) *ScopeStack {
	return &ScopeStack{opts: opts}
}

// Push opens a new innermost scope.
func (ss *ScopeStack) Push(kind ScopeKind) *Scope {
	scope := &Scope{
		Kind:  kind,
		Table: New(ss.opts...),
		Depth: len(ss.scopes),
	}
	ss.scopes = append(ss.scopes, scope)
	return scope
}

// Pop closes the innermost scope and releases its table.
func (ss *ScopeStack) Pop() error {
	if len(ss.scopes) == 0 {
		return ErrNoScope
	}
	top := ss.scopes[len(ss.scopes)-1]
	ss.scopes[len(ss.scopes)-1] = nil
	ss.scopes = ss.scopes[:len(ss.scopes)-1]
	top.Table.Release()
	return nil
}

// Current returns the innermost scope, or nil when none is open.
func (ss *ScopeStack) Current() *Scope {
	if len(ss.scopes) == 0 {
		return nil
	}
	return ss.scopes[len(ss.scopes)-1]
}

// Depth returns the number of open scopes.
func (ss *ScopeStack) Depth() int { return len(ss.scopes) }

// Declare binds name in the innermost scope. Redeclaration checks are the
// caller's business: use DeclaredLocally first.
func (ss *ScopeStack) Declare(name string, typ types.Type) (*TableItem, error) {
	cur := ss.Current()
	if cur == nil {
		return nil, ErrNoScope
	}
	return cur.Table.Insert(name, typ), nil
}

// DeclaredLocally returns the binding of name in the innermost scope only.
func (ss *ScopeStack) DeclaredLocally(name string) (*TableItem, bool) {
	cur := ss.Current()
	if cur == nil {
		return nil, false
	}
	return cur.Table.Find(name)
}

// Resolve finds name starting at the innermost scope and falling through to
// the outermost. It returns the item and the scope it was found in.
func (ss *ScopeStack) Resolve(name string) (*TableItem, *Scope, bool) {
	for i := len(ss.scopes) - 1; i >= 0; i-- {
		if item, ok := ss.scopes[i].Table.Find(name); ok {
			return item, ss.scopes[i], true
		}
	}
	return nil, nil, false
}

// Enclosing returns the innermost open scope of the given kind, or nil.
// The parser uses it to find the function a return statement belongs to.
func (ss *ScopeStack) Enclosing(kind ScopeKind) *Scope {
	for i := len(ss.scopes) - 1; i >= 0; i-- {
		if ss.scopes[i].Kind == kind {
			return ss.scopes[i]
		}
	}
	return nil
}

// DebugString lists the open scopes from the outermost, indented by depth,
// with their symbols.
func (ss *ScopeStack) DebugString() string {
	var sb strings.Builder
	for _, scope := range ss.scopes {
		prefix := strings.Repeat("  ", scope.Depth)
		sb.WriteString(prefix + scope.String() + "\n")
		for _, item := range scope.Table.Items() {
			sb.WriteString(prefix + "  " + item.String() + "\n")
		}
	}
	return sb.String()
}
