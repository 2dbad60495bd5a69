package preprocessor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/spf13/cast"

	"github.com/1604042736/c/internal/lexer"
)

var (
	errDivisionByZero = errors.New("division by zero in #if")
	errEmptyCondition = errors.New("#if with no expression")
)

// Operators accepted in #if. Bitwise operators are not supported.
var condOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"&&": true, "||": true, "!": true,
	"?": true, ":": true, "(": true, ")": true,
}

var twoCharOperators = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true,
	"&&": true, "||": true, "<<": true, ">>": true,
}

// condition evaluates the operand of #if or #elif. A malformed expression
// is reported and counts as false.
func (p *Preprocessor) condition(kw lexer.Token, toks []lexer.Token) bool {
	src, err := p.conditionSource(toks, make(map[string]bool))
	if err == nil && strings.TrimSpace(src) == "" {
		err = errEmptyCondition
	}
	if err == nil {
		var v bool
		if v, err = evalCondition(src); err == nil {
			return v
		}
	}
	p.errorf(kw.Pos, "#%s: %v", kw.Lexeme, err)
	return false
}

// conditionSource rewrites a directive line into an integer expression:
// defined(X) becomes 1 or 0, object-like macros are expanded, remaining
// identifiers become 0, and integer constants are normalized to decimal.
func (p *Preprocessor) conditionSource(toks []lexer.Token, hidden map[string]bool) (string, error) {
	var parts []string
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Type {
		case lexer.TokenWhitespace, lexer.TokenComment:
			continue

		case lexer.TokenIdent:
			if tok.Lexeme == "defined" {
				name, n, err := definedOperand(toks[i+1:])
				if err != nil {
					return "", err
				}
				i += n
				if p.s.macros.IsDefined(name) || isBuiltin(name) {
					parts = append(parts, "1")
				} else {
					parts = append(parts, "0")
				}
				continue
			}
			if tok.Lexeme == "__LINE__" {
				text, _ := p.builtin(tok)
				parts = append(parts, text)
				continue
			}
			m, ok := p.s.macros.Lookup(tok.Lexeme)
			if !ok || hidden[tok.Lexeme] {
				parts = append(parts, "0")
				continue
			}
			if m.FunctionLike() {
				return "", fmt.Errorf("function-like macro %q cannot be used in #if", m.Name)
			}
			hidden[m.Name] = true
			sub, err := p.conditionSource(m.body, hidden)
			delete(hidden, m.Name)
			if err != nil {
				return "", err
			}
			if sub != "" {
				parts = append(parts, sub)
			}

		case lexer.TokenNumber:
			n, err := parseIntConstant(tok.Lexeme)
			if err != nil {
				return "", err
			}
			parts = append(parts, strconv.FormatInt(n, 10))

		case lexer.TokenPunct:
			op := tok.Lexeme
			if i+1 < len(toks) && toks[i+1].Type == lexer.TokenPunct && twoCharOperators[op+toks[i+1].Lexeme] {
				op += toks[i+1].Lexeme
				i++
			}
			if !condOperators[op] {
				return "", fmt.Errorf("operator %q is not supported in #if", op)
			}
			parts = append(parts, op)

		default:
			return "", fmt.Errorf("token %s is not valid in #if", tok.Lexeme)
		}
	}
	return strings.Join(parts, " "), nil
}

// definedOperand reads "X" or "(X)" after the defined operator and returns
// the number of tokens used.
func definedOperand(toks []lexer.Token) (string, int, error) {
	i := 0
	skip := func() {
		for i < len(toks) && toks[i].IsBlank() {
			i++
		}
	}

	skip()
	paren := i < len(toks) && toks[i].Is('(')
	if paren {
		i++
		skip()
	}
	if i >= len(toks) || toks[i].Type != lexer.TokenIdent {
		return "", 0, errors.New(`operator "defined" requires an identifier`)
	}
	name := toks[i].Lexeme
	i++
	if paren {
		skip()
		if i >= len(toks) || !toks[i].Is(')') {
			return "", 0, errors.New(`missing ')' after "defined"`)
		}
		i++
	}
	return name, i, nil
}

// parseIntConstant parses a C integer constant with an optional u/l suffix.
func parseIntConstant(lexeme string) (int64, error) {
	s := strings.TrimRight(lexeme, "uUlL")
	lower := strings.ToLower(s)
	switch {
	case strings.ContainsAny(s, "_."),
		strings.HasPrefix(lower, "0o"),
		!strings.HasPrefix(lower, "0x") && strings.ContainsAny(lower, "ep"):
		return 0, fmt.Errorf("%q is not an integer constant", lexeme)
	}

	// A leading 0 means octal, as in C.
	if len(s) > 1 && s[0] == '0' && lower[1] != 'x' && lower[1] != 'b' {
		s = "0o" + s[1:]
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err == nil {
		return n, nil
	}
	if u, uerr := strconv.ParseUint(s, 0, 64); uerr == nil {
		return int64(u), nil
	}
	return 0, fmt.Errorf("%q is not an integer constant", lexeme)
}

// evalCondition compiles and runs a rewritten #if expression. Logical and
// relational operators yield 0 or 1 and accept any integer as a truth value,
// as in C. Division truncates.
func evalCondition(src string) (bool, error) {
	program, err := expr.Compile(src,
		expr.Patch(cIntegerRules{}),
		expr.Function("truthy", func(params ...any) (any, error) {
			return cast.ToBoolE(params[0])
		}, new(func(any) bool)),
		expr.Function("b2i", func(params ...any) (any, error) {
			if params[0].(bool) {
				return 1, nil
			}
			return 0, nil
		}, new(func(bool) int)),
		expr.Function("idiv", func(params ...any) (any, error) {
			a, b := params[0].(int), params[1].(int)
			if b == 0 {
				return nil, errDivisionByZero
			}
			return a / b, nil
		}, new(func(int, int) int)),
		expr.Function("imod", func(params ...any) (any, error) {
			a, b := params[0].(int), params[1].(int)
			if b == 0 {
				return nil, errDivisionByZero
			}
			return a % b, nil
		}, new(func(int, int) int)),
	)
	if err != nil {
		return false, err
	}

	out, err := expr.Run(program, map[string]any{})
	if err != nil {
		return false, err
	}
	return cast.ToBoolE(out)
}

// cIntegerRules rewrites an expr tree so it follows C's integer semantics.
type cIntegerRules struct{}

func (cIntegerRules) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.BinaryNode:
		switch n.Operator {
		case "&&", "||", "and", "or":
			n.Left = call("truthy", n.Left)
			n.Right = call("truthy", n.Right)
			ast.Patch(node, call("b2i", n))
		case "==", "!=", "<", ">", "<=", ">=":
			ast.Patch(node, call("b2i", n))
		case "/":
			ast.Patch(node, call("idiv", n.Left, n.Right))
		case "%":
			ast.Patch(node, call("imod", n.Left, n.Right))
		}
	case *ast.UnaryNode:
		if n.Operator == "!" || n.Operator == "not" {
			n.Node = call("truthy", n.Node)
			ast.Patch(node, call("b2i", n))
		}
	case *ast.ConditionalNode:
		n.Cond = call("truthy", n.Cond)
	}
}

func call(name string, args ...ast.Node) ast.Node {
	return &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: name},
		Arguments: args,
	}
}
