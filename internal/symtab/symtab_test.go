package symtab

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1604042736/c/internal/metrics"
	"github.com/1604042736/c/internal/types"
)

// sameBucket sends every name to bucket 0.
func sameBucket(string) uint64 { return 42 }

func TestNewTableItem(t *testing.T) {
	item := NewTableItem("x", types.Int)

	assert.Equal(t, "x", item.Name)
	assert.Same(t, types.Int, item.Type)
	assert.Nil(t, item.Next())
	assert.Nil(t, item.Table())
	assert.Equal(t, "x: int", item.String())
}

func TestNew(t *testing.T) {
	table := New()

	assert.Equal(t, DefaultBuckets, table.Capacity())
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, table.TypeCount())
	assert.Empty(t, table.Items())
	assert.Equal(t, Stats{}, table.Stats())

	assert.Equal(t, 16, New(WithBuckets(16)).Capacity())
	assert.Equal(t, DefaultBuckets, New(WithBuckets(0)).Capacity(), "non-positive sizes are ignored")
}

func TestSymTable_AddAndFind(t *testing.T) {
	table := New()
	x := NewTableItem("x", types.Int)
	require.NoError(t, table.Add(x))

	assert.Same(t, table, x.Table())
	assert.Equal(t, 1, table.Len())

	got, ok := table.Find("x")
	require.True(t, ok)
	assert.Same(t, x, got)

	typ, ok := table.Lookup("x")
	require.True(t, ok)
	assert.Same(t, types.Int, typ)

	_, ok = table.Find("X")
	assert.False(t, ok, "lookup is case sensitive")
	_, ok = table.Lookup("never")
	assert.False(t, ok)
}

func TestSymTable_CollidingNames(t *testing.T) {
	table := New(WithHash(sameBucket))
	x := table.Insert("x", types.Int)
	y := table.Insert("y", types.Int)

	assert.Equal(t, Stats{Items: 2, UsedBuckets: 1, LongestChain: 2}, table.Stats())

	got, ok := table.Find("x")
	require.True(t, ok)
	assert.Same(t, x, got)
	assert.Same(t, types.Int, got.Type)

	got, ok = table.Find("y")
	require.True(t, ok)
	assert.Same(t, y, got)
	assert.Same(t, types.Int, got.Type)

	_, ok = table.Find("z")
	assert.False(t, ok, "z shares the bucket but is unbound")
}

func TestSymTable_ChainIsAppendOrder(t *testing.T) {
	table := New(WithHash(sameBucket))
	a := table.Insert("a", types.Int)
	b := table.Insert("b", types.Char)
	c := table.Insert("c", types.Float)

	assert.Same(t, b, a.Next())
	assert.Same(t, c, b.Next())
	assert.Nil(t, c.Next())
	assert.Equal(t, []*TableItem{a, b, c}, table.Items())
}

func TestSymTable_Duplicates(t *testing.T) {
	table := New()
	first := table.Insert("n", types.Int)
	second := table.Insert("n", types.Double)

	assert.Equal(t, 2, table.Len())

	got, ok := table.Find("n")
	require.True(t, ok)
	assert.Same(t, first, got, "the first inserted binding wins")
	assert.Equal(t, []*TableItem{first, second}, table.FindAll("n"))
	assert.Empty(t, table.FindAll("m"))
}

func TestSymTable_AddBoundItem(t *testing.T) {
	t1, t2 := New(), New()
	item := NewTableItem("x", types.Int)

	require.NoError(t, t1.Add(item))
	assert.ErrorIs(t, t1.Add(item), ErrItemBound)
	assert.ErrorIs(t, t2.Add(item), ErrItemBound)
	assert.Equal(t, 1, t1.Len())
	assert.Equal(t, 0, t2.Len())
}

func TestSymTable_NeverResizes(t *testing.T) {
	table := New(WithBuckets(1))
	for i := 0; i < 100; i++ {
		table.Insert(fmt.Sprintf("v%d", i), types.Int)
	}

	assert.Equal(t, 1, table.Capacity())
	assert.Equal(t, Stats{Items: 100, UsedBuckets: 1, LongestChain: 100}, table.Stats())

	for i := 0; i < 100; i++ {
		item, ok := table.Find(fmt.Sprintf("v%d", i))
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("v%d", i), item.Name)
	}
}

func TestSymTable_DeterministicHash(t *testing.T) {
	names := []string{"main", "argc", "argv", "i", "j", "buf", "len", "tmp"}
	t1, t2 := New(WithBuckets(7)), New(WithBuckets(7))
	for _, name := range names {
		t1.Insert(name, types.Int)
		t2.Insert(name, types.Int)
	}

	names1 := make([]string, 0, len(names))
	for _, item := range t1.Items() {
		names1 = append(names1, item.Name)
	}
	names2 := make([]string, 0, len(names))
	for _, item := range t2.Items() {
		names2 = append(names2, item.Name)
	}
	assert.Equal(t, names1, names2)
}

func TestSymTable_TypeRegistry(t *testing.T) {
	table := New(WithMaxTypes(2))
	point := types.NewStruct("Point", nil)
	vec := types.NewStruct("Vec", nil)

	require.NoError(t, table.RegisterType(point))
	require.NoError(t, table.RegisterType(vec))
	assert.ErrorIs(t, table.RegisterType(types.NewPointer(types.Int)), ErrTypeRegistryFull)

	assert.Equal(t, 2, table.TypeCount())
	assert.Equal(t, []types.Type{point, vec}, table.Types())
}

func TestSymTable_Release(t *testing.T) {
	table := New(WithHash(sameBucket))
	a := table.Insert("a", types.Int)
	b := table.Insert("b", types.Int)
	require.NoError(t, table.RegisterType(types.NewStruct("S", nil)))

	table.Release()

	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, table.TypeCount())
	assert.Empty(t, table.Items())
	assert.Nil(t, a.Table())
	assert.Nil(t, a.Next())
	assert.Nil(t, b.Table())
	_, ok := table.Find("a")
	assert.False(t, ok)

	// Released items may be bound again.
	require.NoError(t, New().Add(a))
}

func TestSymTable_Metrics(t *testing.T) {
	m := metrics.New()
	table := New(WithHash(sameBucket), WithMetrics(m))

	table.Insert("x", types.Int)
	table.Insert("y", types.Int)
	table.Insert("z", types.Int)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.SymbolInsertions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BucketCollisions))
}
