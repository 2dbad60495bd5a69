// Package types defines the type descriptors of the C-- language.
//
// Descriptors are referenced by identity from symbol-table items: the table
// stores a Type, never a copy of one. The primitive types are singletons, so
// comparing them with == works, but Equals is the comparison to use because
// composite types are allocated per declaration.
//
// C-- follows C's rules where they matter to the front end:
// - arithmetic types (char, int, float, double) convert implicitly
// - struct types are nominal (struct Point != struct Vec even if the fields match)
// - function and array types are structural
package types

import (
	"fmt"
	"strings"
)

// Type is implemented by every type descriptor.
type Type interface {
	// String returns the type as it would be spelled in a declaration.
	String() string

	// Equals reports whether the two types are identical.
	Equals(other Type) bool

	// AssignableTo reports whether a value of this type may be assigned to
	// a variable of type other without a cast.
	AssignableTo(other Type) bool

	kind() Kind
}

// Kind is the coarse classification of a type.
type Kind int

const (
	KindInvalid Kind = iota
	KindVoid
	KindChar
	KindInt
	KindFloat
	KindDouble
	KindPointer
	KindArray
	KindStruct
	KindFunction
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindVoid:     "void",
	KindChar:     "char",
	KindInt:      "int",
	KindFloat:    "float",
	KindDouble:   "double",
	KindPointer:  "pointer",
	KindArray:    "array",
	KindStruct:   "struct",
	KindFunction: "function",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindOf returns the kind of t, or KindInvalid for nil.
func KindOf(t Type) Kind {
	if t == nil {
		return KindInvalid
	}
	return t.kind()
}

// Basic is a primitive type. Use the package-level singletons.
type Basic struct {
	k Kind
}

func (b *Basic) String() string { return b.k.String() }

func (b *Basic) Equals(other Type) bool {
	o, ok := other.(*Basic)
	return ok && b.k != KindInvalid && o.k == b.k
}

func (b *Basic) AssignableTo(other Type) bool {
	if b.k == KindInvalid || b.k == KindVoid {
		return false
	}
	return IsArithmetic(b) && IsArithmetic(other)
}

func (b *Basic) kind() Kind { return b.k }

// Predefined primitive types.
var (
	// Invalid is produced when checking fails, so that checking can go on.
	Invalid = &Basic{KindInvalid}
	Void    = &Basic{KindVoid}
	Char    = &Basic{KindChar}
	Int     = &Basic{KindInt}
	Float   = &Basic{KindFloat}
	Double  = &Basic{KindDouble}
)

// PointerType is T*.
type PointerType struct {
	Elem Type
}

func (p *PointerType) String() string { return p.Elem.String() + "*" }

func (p *PointerType) Equals(other Type) bool {
	o, ok := other.(*PointerType)
	return ok && p.Elem.Equals(o.Elem)
}

// AssignableTo allows identical pointers and conversions to and from void*.
func (p *PointerType) AssignableTo(other Type) bool {
	o, ok := other.(*PointerType)
	if !ok {
		return false
	}
	return p.Equals(o) || KindOf(p.Elem) == KindVoid || KindOf(o.Elem) == KindVoid
}

func (p *PointerType) kind() Kind { return KindPointer }

// ArrayType is T[Size]. Size is -1 for an incomplete array (T[]).
type ArrayType struct {
	Elem Type
	Size int
}

func (a *ArrayType) String() string {
	if a.Size < 0 {
		return a.Elem.String() + "[]"
	}
	return fmt.Sprintf("%s[%d]", a.Elem.String(), a.Size)
}

func (a *ArrayType) Equals(other Type) bool {
	o, ok := other.(*ArrayType)
	return ok && a.Size == o.Size && a.Elem.Equals(o.Elem)
}

// AssignableTo is always false: arrays are not assignable in C--.
func (a *ArrayType) AssignableTo(Type) bool { return false }

func (a *ArrayType) kind() Kind { return KindArray }

// StructField is one member of a struct.
type StructField struct {
	Name string
	Type Type
}

// StructType is a struct declaration. Named structs compare by name,
// anonymous ones by their fields.
type StructType struct {
	Name   string
	Fields []StructField
}

func (s *StructType) String() string {
	if s.Name != "" {
		return "struct " + s.Name
	}
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Type.String() + " " + f.Name + ";"
	}
	return "struct { " + strings.Join(parts, " ") + " }"
}

func (s *StructType) Equals(other Type) bool {
	o, ok := other.(*StructType)
	if !ok {
		return false
	}
	if s.Name != "" || o.Name != "" {
		return s.Name == o.Name
	}
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if f.Name != o.Fields[i].Name || !f.Type.Equals(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

func (s *StructType) AssignableTo(other Type) bool { return s.Equals(other) }

func (s *StructType) kind() Kind { return KindStruct }

// LookupField returns the field called name, or nil.
func (s *StructType) LookupField(name string) *StructField {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// FunctionType is a function signature.
type FunctionType struct {
	Params []Type
	Result Type
}

func (f *FunctionType) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	return fmt.Sprintf("%s(%s)", f.Result.String(), strings.Join(params, ", "))
}

func (f *FunctionType) Equals(other Type) bool {
	o, ok := other.(*FunctionType)
	if !ok || !f.Result.Equals(o.Result) || len(f.Params) != len(o.Params) {
		return false
	}
	for i, p := range f.Params {
		if !p.Equals(o.Params[i]) {
			return false
		}
	}
	return true
}

func (f *FunctionType) AssignableTo(Type) bool { return false }

func (f *FunctionType) kind() Kind { return KindFunction }

// IsArithmetic reports whether t is char, int, float or double.
func IsArithmetic(t Type) bool {
	switch KindOf(t) {
	case KindChar, KindInt, KindFloat, KindDouble:
		return true
	}
	return false
}

// IsIntegral reports whether t is char or int.
func IsIntegral(t Type) bool {
	k := KindOf(t)
	return k == KindChar || k == KindInt
}

// IsScalar reports whether t can be used as a condition.
func IsScalar(t Type) bool {
	return IsArithmetic(t) || KindOf(t) == KindPointer
}

// NewPointer returns elem*.
func NewPointer(elem Type) *PointerType {
	return &PointerType{Elem: elem}
}

// NewArray returns elem[size].
func NewArray(elem Type, size int) *ArrayType {
	return &ArrayType{Elem: elem, Size: size}
}

// NewStruct returns a struct type.
func NewStruct(name string, fields []StructField) *StructType {
	return &StructType{Name: name, Fields: fields}
}

// NewFunction returns a function signature.
func NewFunction(params []Type, result Type) *FunctionType {
	return &FunctionType{Params: params, Result: result}
}
