package preprocessor

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1604042736/c/internal/lexer"
)

func TestMacro_Signature(t *testing.T) {
	tests := []struct {
		macro    *Macro
		expected string
	}{
		{&Macro{Name: "N", Body: "10"}, "N"},
		{&Macro{Name: "F", Params: []string{}}, "F()"},
		{&Macro{Name: "MAX", Params: []string{"a", "b"}}, "MAX(a, b)"},
		{&Macro{Name: "LOG", Params: []string{"f"}, Variadic: true}, "LOG(f, ...)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.macro.Signature())
		})
	}
}

func TestMacro_Equal(t *testing.T) {
	obj := &Macro{Name: "N", Body: "1"}

	assert.True(t, obj.Equal(&Macro{Name: "N", Body: "1"}))
	assert.False(t, obj.Equal(&Macro{Name: "N", Body: "2"}))
	assert.False(t, obj.Equal(&Macro{Name: "N", Params: []string{}, Body: "1"}),
		"N and N() are different definitions")
	assert.False(t, (&Macro{Params: []string{"a"}}).Equal(&Macro{Params: []string{"b"}}))
}

func TestMacroTable(t *testing.T) {
	table := NewMacroTable()
	assert.Equal(t, 0, table.Len())
	assert.False(t, table.IsDefined("N"))

	_, existed := table.Define(&Macro{Name: "N", Body: "1 + 2"})
	assert.False(t, existed)

	m, ok := table.Lookup("N")
	require.True(t, ok)
	require.Len(t, m.body, 5, "the body is tokenized on definition")
	assert.Equal(t, lexer.TokenNumber, m.body[0].Type)
	assert.True(t, m.body[2].Is('+'))

	prev, existed := table.Define(&Macro{Name: "N", Body: "3"})
	assert.True(t, existed)
	assert.Equal(t, "1 + 2", prev.Body)

	table.Define(&Macro{Name: "A"})
	assert.Equal(t, []string{"A", "N"}, table.Names())
	assert.Equal(t, 2, table.Len())

	assert.True(t, table.Undefine("N"))
	assert.False(t, table.Undefine("N"))
	assert.False(t, table.IsDefined("N"))
}

func TestBindArgs(t *testing.T) {
	tests := []struct {
		name  string
		macro *Macro
		args  []string
		want  map[string]string
		ok    bool
	}{
		{"exact", &Macro{Params: []string{"a", "b"}}, []string{"1", "2"}, map[string]string{"a": "1", "b": "2"}, true},
		{"too few", &Macro{Params: []string{"a", "b"}}, []string{"1"}, nil, false},
		{"too many", &Macro{Params: []string{"a"}}, []string{"1", "2"}, nil, false},
		{"empty call", &Macro{Params: []string{}}, []string{""}, map[string]string{}, true},
		{"empty argument", &Macro{Params: []string{"a"}}, []string{""}, map[string]string{"a": ""}, true},
		{"arguments to none", &Macro{Params: []string{}}, []string{"1"}, nil, false},
		{"arguments are trimmed", &Macro{Params: []string{"a", "b"}}, []string{" 1 ", "\t2"}, map[string]string{"a": "1", "b": "2"}, true},
		{"empty call with blanks", &Macro{Params: []string{}}, []string{"  "}, map[string]string{}, true},
		{"variadic", &Macro{Params: []string{"f"}, Variadic: true}, []string{"x", "1", "2"},
			map[string]string{"f": "x", "__VA_ARGS__": "1,2"}, true},
		{"variadic spelling kept", &Macro{Params: []string{"f"}, Variadic: true}, []string{"x", " 1", " 2 ", "3 "},
			map[string]string{"f": "x", "__VA_ARGS__": "1, 2 ,3"}, true},
		{"variadic empty", &Macro{Params: []string{"f"}, Variadic: true}, []string{"x"},
			map[string]string{"f": "x", "__VA_ARGS__": ""}, true},
		{"variadic only", &Macro{Params: []string{}, Variadic: true}, []string{""},
			map[string]string{"__VA_ARGS__": ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bindArgs(tt.macro, tt.args)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseIntConstant(t *testing.T) {
	tests := []struct {
		lexeme  string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"42", 42, false},
		{"0x2A", 42, false},
		{"052", 42, false},
		{"0b101010", 42, false},
		{"42u", 42, false},
		{"42ULL", 42, false},
		{"18446744073709551615u", -1, false},
		{"08", 0, true},
		{"1e3", 0, true},
		{"1.0", 0, true},
		{"1_000", 0, true},
		{"0o17", 0, true},
		{"10N", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.lexeme, func(t *testing.T) {
			got, err := parseIntConstant(tt.lexeme)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiagnostic_JSON(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityError,
		Pos:      lexer.Position{Filename: "a.c", Line: 3, Column: 2, LogicalLine: 3, Offset: 20},
		Message:  "#endif without #if",
	}

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"severity": "error",
		"pos": {"Filename": "a.c", "Line": 3, "Column": 2, "LogicalLine": 3, "Offset": 20},
		"message": "#endif without #if"
	}`, string(data))
	assert.Equal(t, "a.c:3:2: error: #endif without #if", d.Error())
}

func TestStringify(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"", `""`},
		{"hi", `"hi"`},
		{"  a \t\n b  ", `"a b"`},
		{`"x"`, `"\"x\""`},
		{`'\n'`, `"'\\n'"`},
		{`p = "a\"b"`, `"p = \"a\\\"b\""`},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, stringify(tt.arg))
		})
	}
}

func TestCheckReplacement(t *testing.T) {
	fn := &Macro{Params: []string{"x"}}
	va := &Macro{Params: []string{}, Variadic: true}
	obj := &Macro{}

	tests := []struct {
		name  string
		macro *Macro
		body  string
		msg   string
	}{
		{"plain", fn, "x + 1", ""},
		{"stringize", fn, "# x", ""},
		{"stringize va args", va, "#__VA_ARGS__", ""},
		{"stringize va opt", va, "#__VA_OPT__(a)", ""},
		{"paste", fn, "x ## 1", ""},
		{"hash in object-like macro", obj, "# 1", ""},
		{"stringize non-parameter", fn, "#y", "'#' is not followed by a macro parameter"},
		{"stringize nothing", fn, "x #", "'#' is not followed by a macro parameter"},
		{"leading paste", obj, "## 1", "'##' cannot appear at either end of a macro expansion"},
		{"trailing paste", fn, "x ##", "'##' cannot appear at either end of a macro expansion"},
		{"paste at edge of va opt", va, "__VA_OPT__(## a)", "'##' cannot appear at either end of a macro expansion"},
		{"unterminated va opt", va, "__VA_OPT__(a", "unterminated __VA_OPT__"},
		{"va opt outside variadic macro", fn, "__VA_OPT__", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, msg, ok := checkReplacement(tt.macro, tokenize(tt.body))
			assert.Equal(t, tt.msg == "", ok)
			assert.Equal(t, tt.msg, msg)
		})
	}
}
