package lexer

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain reads every character Next returns.
func drain(t *testing.T, fc *FileContext) string {
	t.Helper()
	var sb strings.Builder
	for {
		ch, _, err := fc.Next()
		if errors.Is(err, io.EOF) {
			return sb.String()
		}
		require.NoError(t, err)
		sb.WriteByte(ch)
	}
}

func TestFileContext_Init(t *testing.T) {
	fc := NewFileContext(strings.NewReader(""), "a.c", 7, 3)

	assert.Equal(t, "a.c", fc.Filename())
	assert.Equal(t, 7, fc.Row())
	assert.Equal(t, 7, fc.LogicalRow())
	assert.Equal(t, 3, fc.Col())
}

func TestFileContext_Advance(t *testing.T) {
	fc := NewFileContext(strings.NewReader(""), "a.c", 1, 1)

	fc.Advance('x')
	fc.Advance('y')
	assert.Equal(t, 3, fc.Col())
	assert.Equal(t, "xy", fc.Line())

	fc.Advance('\n')
	assert.Equal(t, 2, fc.Row())
	assert.Equal(t, 2, fc.LogicalRow())
	assert.Equal(t, 1, fc.Col())
	assert.Equal(t, "", fc.Line())

	fc.AdvanceEscapedNewline()
	assert.Equal(t, 3, fc.Row())
	assert.Equal(t, 2, fc.LogicalRow())
	assert.Equal(t, 1, fc.Col())
}

func TestFileContext_ContinuationRows(t *testing.T) {
	fc := NewFileContext(strings.NewReader("a\\\nb\n"), "a.c", 1, 1)

	ch, pos, err := fc.Next()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), ch)
	assert.Equal(t, 1, pos.Line)

	ch, pos, err = fc.Next()
	require.NoError(t, err)
	assert.Equal(t, byte('b'), ch)
	assert.Equal(t, 2, pos.Line, "b sits on the second physical line")
	assert.Equal(t, 1, pos.LogicalLine, "b is still on the first logical line")
	assert.Equal(t, 2, fc.Row())
	assert.Equal(t, 1, fc.LogicalRow())

	ch, _, err = fc.Next()
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), ch)
	assert.Equal(t, 3, fc.Row())
	assert.Equal(t, 2, fc.LogicalRow())

	_, _, err = fc.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFileContext_LogicalNeverExceedsPhysical(t *testing.T) {
	inputs := []string{
		"",
		"abc",
		"a\nb\nc\n",
		"\\\n\\\n\\\n",
		"#define X \\\n  1 \\\n  2\nint x;\n",
		"trailing backslash \\",
		"\\\\\n",
	}

	for _, input := range inputs {
		fc := NewFileContext(strings.NewReader(input), "a.c", 1, 1)
		for {
			_, pos, err := fc.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			assert.LessOrEqual(t, pos.LogicalLine, pos.Line, "input %q", input)
		}
		assert.LessOrEqual(t, fc.LogicalRow(), fc.Row(), "input %q", input)
	}
}

func TestFileContext_ElidesContinuations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no continuation", "int a;\n", "int a;\n"},
		{"one continuation", "in\\\nt a;\n", "int a;\n"},
		{"consecutive continuations", "a\\\n\\\nb", "ab"},
		{"trailing backslash kept", "a\\", "a\\"},
		{"backslash before other char kept", "\"\\t\"", "\"\\t\""},
		{"crlf continuation", "in\\\r\nt a;\r\n", "int a;\r\n"},
		{"backslash before lone cr kept", "a\\\rb", "a\\\rb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := NewFileContext(strings.NewReader(tt.input), "a.c", 1, 1)
			assert.Equal(t, tt.expected, drain(t, fc))
		})
	}
}

func TestFileContext_Peek(t *testing.T) {
	fc := NewFileContext(strings.NewReader("x\\\n\\\ny\\"), "a.c", 1, 1)

	ch, err := fc.Peek()
	require.NoError(t, err)
	assert.Equal(t, byte('x'), ch)

	_, _, err = fc.Next()
	require.NoError(t, err)

	ch, err = fc.Peek()
	require.NoError(t, err)
	assert.Equal(t, byte('y'), ch, "peek looks past continuations")
	assert.Equal(t, 1, fc.Row(), "peek does not move the cursor")

	_, _, err = fc.Next()
	require.NoError(t, err)

	ch, err = fc.Peek()
	require.NoError(t, err)
	assert.Equal(t, byte('\\'), ch)

	_, _, err = fc.Next()
	require.NoError(t, err)
	_, err = fc.Peek()
	assert.ErrorIs(t, err, io.EOF)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestFileContext_ReadError(t *testing.T) {
	fc := NewFileContext(failingReader{}, "a.c", 1, 1)

	_, _, err := fc.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestFileContext_CRLFContinuation(t *testing.T) {
	fc := NewFileContext(strings.NewReader("a\\\r\nb"), "a.c", 1, 1)

	_, _, err := fc.Next()
	require.NoError(t, err)

	ch, err := fc.Peek()
	require.NoError(t, err)
	assert.Equal(t, byte('b'), ch, "peek looks past a CRLF continuation")

	ch, pos, err := fc.Next()
	require.NoError(t, err)
	assert.Equal(t, byte('b'), ch)
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 1, pos.LogicalLine)
	assert.Equal(t, 4, pos.Offset, "all three bytes of the continuation are counted")
}
