// Package symtab implements the per-scope symbol table of the C-- front end.
//
// One SymTable exists per lexical scope. It maps identifier names to type
// descriptors through a fixed array of buckets; names that hash to the same
// bucket are chained in insertion order. The bucket array is never resized,
// so a table that receives far more names than it has buckets degrades to
// walking long chains, exactly like the original C implementation.
//
// A table knows nothing about enclosing scopes. Nesting is layered on top by
// ScopeStack, which keeps one independent table per open scope and resolves
// names from the innermost scope outwards.
package symtab

import (
	"errors"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"github.com/1604042736/c/internal/lexer"
	"github.com/1604042736/c/internal/metrics"
	"github.com/1604042736/c/internal/types"
)

const (
	// DefaultBuckets is the bucket count of a table built without WithBuckets.
	DefaultBuckets = 1000

	// DefaultMaxTypes is the type registry capacity of a table built
	// without WithMaxTypes.
	DefaultMaxTypes = 1000
)

var (
	// ErrItemBound is returned when adding an item that already belongs to
	// a table.
	ErrItemBound = errors.New("symtab: item already belongs to a table")

	// ErrTypeRegistryFull is returned by RegisterType once the per-scope
	// type registry is at capacity.
	ErrTypeRegistryFull = errors.New("symtab: type registry is full")
)

// HashFunc maps a name to a hash. It must be deterministic.
type HashFunc func(name string) uint64

// TableItem is one identifier binding.
//
// The type is referenced, not owned: descriptors are created and owned by the
// type system. An item is bound to at most one table; Add binds it, Release
// unbinds it.
type TableItem struct {
	Name string
	Type types.Type

	// Pos is where the identifier was declared. It is optional and only used
	// by callers for diagnostics.
	Pos lexer.Position

	next  *TableItem
	table *SymTable
}

// NewTableItem returns an unbound item: no table and no chain successor.
func NewTableItem(name string, typ types.Type) *TableItem {
	return &TableItem{Name: name, Type: typ}
}

// Next returns the next item in the same bucket, or nil at the chain end.
func (it *TableItem) Next() *TableItem { return it.next }

// Table returns the table the item was added to, or nil.
func (it *TableItem) Table() *SymTable { return it.table }

// String returns "name: type".
func (it *TableItem) String() string {
	if it.Type == nil {
		return it.Name + ": <nil>"
	}
	return it.Name + ": " + it.Type.String()
}

// SymTable is the symbol table of one scope.
type SymTable struct {
	buckets  []*TableItem
	types    []types.Type
	maxTypes int
	count    int

	hash    HashFunc
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a SymTable.
type Option func(*SymTable)

// WithBuckets sets the fixed bucket count. Values below 1 are ignored.
func WithBuckets(n int) Option {
	return func(t *SymTable) {
		if n > 0 {
			t.buckets = make([]*TableItem, n)
		}
	}
}

// WithMaxTypes sets the capacity of the per-scope type registry.
func WithMaxTypes(n int) Option {
	return func(t *SymTable) {
		if n > 0 {
			t.maxTypes = n
		}
	}
}

// WithHash replaces the default xxhash-based hash function.
func WithHash(fn HashFunc) Option {
	return func(t *SymTable) {
		if fn != nil {
			t.hash = fn
		}
	}
}

// WithMetrics records insertions and bucket collisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *SymTable) { t.metrics = m }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(t *SymTable) {
		if l != nil {
			t.logger = l
		}
	}
}

// New returns an empty table: every bucket empty, no registered types.
func New(opts ...Option) *SymTable {
	t := &SymTable{
		buckets:  make([]*TableItem, DefaultBuckets),
		maxTypes: DefaultMaxTypes,
		hash:     xxhash.Sum64String,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SymTable) bucket(name string) int {
	return int(t.hash(name) % uint64(len(t.buckets)))
}

// Add appends item to the chain of its bucket and binds it to t.
// Duplicate names are accepted; the earlier item keeps shadowing the later
// one for Find.
func (t *SymTable) Add(item *TableItem) error {
	if item.table != nil {
		return ErrItemBound
	}

	k := t.bucket(item.Name)
	collided := t.buckets[k] != nil
	if !collided {
		t.buckets[k] = item
	} else {
		p := t.buckets[k]
		for p.next != nil {
			p = p.next
		}
		p.next = item
	}
	item.table = t
	t.count++

	t.metrics.SymbolInserted(collided)
	t.logger.Debug("symbol added", "name", item.Name, "bucket", k, "collision", collided)
	return nil
}

// Insert creates an item for (name, typ) and adds it.
func (t *SymTable) Insert(name string, typ types.Type) *TableItem {
	item := NewTableItem(name, typ)
	_ = t.Add(item) // a fresh item is never bound
	return item
}

// Find returns the first item named name in insertion order.
// The boolean is false when the name is unbound in this table.
func (t *SymTable) Find(name string) (*TableItem, bool) {
	for p := t.buckets[t.bucket(name)]; p != nil; p = p.next {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Lookup returns the type bound to name.
func (t *SymTable) Lookup(name string) (types.Type, bool) {
	item, ok := t.Find(name)
	if !ok {
		return nil, false
	}
	return item.Type, true
}

// FindAll returns every item named name, in insertion order.
func (t *SymTable) FindAll(name string) []*TableItem {
	var items []*TableItem
	for p := t.buckets[t.bucket(name)]; p != nil; p = p.next {
		if p.Name == name {
			items = append(items, p)
		}
	}
	return items
}

// Items returns every item, bucket by bucket, each chain in insertion order.
func (t *SymTable) Items() []*TableItem {
	items := make([]*TableItem, 0, t.count)
	for _, head := range t.buckets {
		for p := head; p != nil; p = p.next {
			items = append(items, p)
		}
	}
	return items
}

// RegisterType records a type created within this scope.
func (t *SymTable) RegisterType(typ types.Type) error {
	if len(t.types) >= t.maxTypes {
		return ErrTypeRegistryFull
	}
	t.types = append(t.types, typ)
	return nil
}

// Types returns the types registered in this scope, in registration order.
func (t *SymTable) Types() []types.Type {
	return append([]types.Type(nil), t.types...)
}

// TypeCount returns the number of registered types.
func (t *SymTable) TypeCount() int { return len(t.types) }

// Len returns the number of items in the table, duplicates included.
func (t *SymTable) Len() int { return t.count }

// Capacity returns the fixed bucket count.
func (t *SymTable) Capacity() int { return len(t.buckets) }

// Stats describes how items are spread over the buckets.
type Stats struct {
	Items        int
	UsedBuckets  int
	LongestChain int
}

// Stats walks every bucket.
func (t *SymTable) Stats() Stats {
	s := Stats{Items: t.count}
	for _, head := range t.buckets {
		if head == nil {
			continue
		}
		s.UsedBuckets++
		n := 0
		for p := head; p != nil; p = p.next {
			n++
		}
		if n > s.LongestChain {
			s.LongestChain = n
		}
	}
	return s
}

// Release tears the table down at scope exit: every item is unbound and
// unlinked and the type registry is emptied. The table is empty afterwards
// and may be reused.
func (t *SymTable) Release() {
	for i, head := range t.buckets {
		for p := head; p != nil; {
			next := p.next
			p.next = nil
			p.table = nil
			p = next
		}
		t.buckets[i] = nil
	}
	clear(t.types)
	t.types = t.types[:0]
	t.count = 0
}
