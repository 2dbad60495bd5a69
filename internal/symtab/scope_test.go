package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1604042736/c/internal/types"
)

func TestScopeKind_String(t *testing.T) {
	tests := []struct {
		kind     ScopeKind
		expected string
	}{
		{ScopeGlobal, "global"},
		{ScopeFunction, "function"},
		{ScopeBlock, "block"},
		{ScopeKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestScopeStack_PushPop(t *testing.T) {
	ss := NewScopeStack(WithBuckets(8))
	assert.Nil(t, ss.Current())
	assert.ErrorIs(t, ss.Pop(), ErrNoScope)

	global := ss.Push(ScopeGlobal)
	fn := ss.Push(ScopeFunction)

	assert.Equal(t, 2, ss.Depth())
	assert.Same(t, fn, ss.Current())
	assert.Equal(t, 0, global.Depth)
	assert.Equal(t, 1, fn.Depth)
	assert.Equal(t, 8, fn.Table.Capacity(), "options reach every table")
	assert.NotSame(t, global.Table, fn.Table)

	require.NoError(t, ss.Pop())
	assert.Same(t, global, ss.Current())
}

func TestScopeStack_Resolve(t *testing.T) {
	ss := NewScopeStack()
	_, err := ss.Declare("x", types.Int)
	assert.ErrorIs(t, err, ErrNoScope)

	global := ss.Push(ScopeGlobal)
	gx, err := ss.Declare("x", types.Int)
	require.NoError(t, err)
	_, err = ss.Declare("f", types.NewFunction([]types.Type{types.Int}, types.Int))
	require.NoError(t, err)

	fn := ss.Push(ScopeFunction)
	_, err = ss.Declare("n", types.Int)
	require.NoError(t, err)

	block := ss.Push(ScopeBlock)
	bx, err := ss.Declare("x", types.Char)
	require.NoError(t, err)

	item, scope, ok := ss.Resolve("x")
	require.True(t, ok)
	assert.Same(t, bx, item, "inner x shadows global x")
	assert.Same(t, block, scope)

	item, scope, ok = ss.Resolve("n")
	require.True(t, ok)
	assert.Equal(t, "n", item.Name)
	assert.Same(t, fn, scope)

	_, scope, ok = ss.Resolve("f")
	require.True(t, ok)
	assert.Same(t, global, scope)

	_, _, ok = ss.Resolve("missing")
	assert.False(t, ok)

	_, ok = ss.DeclaredLocally("n")
	assert.False(t, ok, "n lives in the function scope, not the block")

	require.NoError(t, ss.Pop())
	assert.Nil(t, bx.Table(), "popping releases the block's items")

	item, scope, ok = ss.Resolve("x")
	require.True(t, ok)
	assert.Same(t, gx, item)
	assert.Same(t, global, scope)
}

func TestScopeStack_Enclosing(t *testing.T) {
	ss := NewScopeStack()
	ss.Push(ScopeGlobal)
	assert.Nil(t, ss.Enclosing(ScopeFunction))

	fn := ss.Push(ScopeFunction)
	ss.Push(ScopeBlock)
	inner := ss.Push(ScopeBlock)

	assert.Same(t, fn, ss.Enclosing(ScopeFunction))
	assert.Same(t, inner, ss.Enclosing(ScopeBlock))
}

func TestScopeStack_DebugString(t *testing.T) {
	ss := NewScopeStack()
	ss.Push(ScopeGlobal)
	_, err := ss.Declare("x", types.Int)
	require.NoError(t, err)
	ss.Push(ScopeBlock)
	_, err = ss.Declare("p", types.NewPointer(types.Char))
	require.NoError(t, err)

	expected := "global scope (depth 0, 1 symbols)\n" +
		"  x: int\n" +
		"  block scope (depth 1, 1 symbols)\n" +
		"    p: char*\n"
	assert.Equal(t, expected, ss.DebugString())
}
