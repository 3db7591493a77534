// Package schema describes the layout of borsh-encoded types.
//
// Since the borsh wire format is not self-describing, a [Container]
// is the out-of-band artifact that lets a program without access to
// the original Go types parse or validate encoded bytes. A container
// holds the [Declaration] of a root type, and the [Definition] of
// every non-primitive type reachable from it.
//
// Containers are normally built by borsh.SchemaFor, and are
// themselves encodable with borsh.Marshal.
package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/creachadair/mds/mapset"
)

// A Declaration is the canonical name of a type's wire shape, for
// example "u64", "Vec<string>" or "Array<u8, 32>". Structurally
// identical types have textually identical declarations.
type Declaration = string

// Unit is the declaration of zero-sized values.
const Unit Declaration = "nil"

// primitives are the declarations that are self-explanatory, and
// never appear as keys in a [Definitions] map.
var primitives = mapset.New[Declaration](
	"bool",
	"u8", "u16", "u32", "u64",
	"i8", "i16", "i32", "i64",
	"f32", "f64",
	"string",
	Unit,
)

// IsPrimitive reports whether d is a primitive declaration.
func IsPrimitive(d Declaration) bool {
	return primitives.Has(d)
}

// A Definition describes the structure of the type named by a
// Declaration. It is one of [Array], [Sequence], [Tuple], [Enum] or
// [Struct].
type Definition interface {
	isDefinition()
	// References returns the declarations this definition refers
	// to, in order.
	References() []Declaration
}

// Array is a fixed-size sequence of same-type elements, whose length
// is known to both encoder and decoder.
type Array struct {
	Length   uint32
	Elements Declaration
}

// Sequence is a length-prefixed sequence of same-type elements.
type Sequence struct {
	Elements Declaration
}

// Tuple is a fixed list of possibly different types.
type Tuple struct {
	Elements []Declaration
}

// Enum is a tagged union. Option<T> and Result<T, E> are Enums with
// variants None/Some and Ok/Err.
type Enum struct {
	Variants []Variant
}

// Variant is one alternative of an [Enum].
type Variant struct {
	Name        string
	Declaration Declaration
}

// Struct is a product type.
type Struct struct {
	Fields Fields
}

func (Array) isDefinition()    {}
func (Sequence) isDefinition() {}
func (Tuple) isDefinition()    {}
func (Enum) isDefinition()     {}
func (Struct) isDefinition()   {}

func (a Array) References() []Declaration    { return []Declaration{a.Elements} }
func (s Sequence) References() []Declaration { return []Declaration{s.Elements} }
func (t Tuple) References() []Declaration    { return slices.Clone(t.Elements) }

func (e Enum) References() []Declaration {
	ret := make([]Declaration, 0, len(e.Variants))
	for _, v := range e.Variants {
		ret = append(ret, v.Declaration)
	}
	return ret
}

func (s Struct) References() []Declaration {
	if s.Fields == nil {
		return nil
	}
	return s.Fields.References()
}

func (a Array) String() string    { return fmt.Sprintf("Array{%d, %s}", a.Length, a.Elements) }
func (s Sequence) String() string { return fmt.Sprintf("Sequence{%s}", s.Elements) }
func (t Tuple) String() string    { return fmt.Sprintf("Tuple{%s}", strings.Join(t.Elements, ", ")) }

func (e Enum) String() string {
	var parts []string
	for _, v := range e.Variants {
		parts = append(parts, v.Name+": "+v.Declaration)
	}
	return fmt.Sprintf("Enum{%s}", strings.Join(parts, ", "))
}

func (s Struct) String() string { return fmt.Sprintf("Struct{%v}", s.Fields) }

// Fields are the fields of a [Struct]. It is one of [NamedFields],
// [UnnamedFields] or [EmptyFields].
type Fields interface {
	isFields()
	References() []Declaration
}

// NamedFields are the fields of a struct with named fields, in
// declaration order.
type NamedFields []Field

// Field is one named struct field.
type Field struct {
	Name        string
	Declaration Declaration
}

// UnnamedFields are the fields of a tuple-like struct.
type UnnamedFields []Declaration

// EmptyFields are the fields of a struct with no fields.
type EmptyFields struct{}

func (NamedFields) isFields()   {}
func (UnnamedFields) isFields() {}
func (EmptyFields) isFields()   {}

func (f NamedFields) References() []Declaration {
	ret := make([]Declaration, 0, len(f))
	for _, fd := range f {
		ret = append(ret, fd.Declaration)
	}
	return ret
}

func (f UnnamedFields) References() []Declaration { return slices.Clone([]Declaration(f)) }
func (EmptyFields) References() []Declaration     { return nil }

// Equal reports whether a and b are structurally equal. Nil and
// empty lists compare equal.
func Equal(a, b Definition) bool {
	switch a := a.(type) {
	case Array:
		b, ok := b.(Array)
		return ok && a == b
	case Sequence:
		b, ok := b.(Sequence)
		return ok && a == b
	case Tuple:
		b, ok := b.(Tuple)
		return ok && slices.Equal(a.Elements, b.Elements)
	case Enum:
		b, ok := b.(Enum)
		return ok && slices.Equal(a.Variants, b.Variants)
	case Struct:
		b, ok := b.(Struct)
		return ok && fieldsEqual(a.Fields, b.Fields)
	default:
		return false
	}
}

func fieldsEqual(a, b Fields) bool {
	if a == nil {
		a = EmptyFields{}
	}
	if b == nil {
		b = EmptyFields{}
	}
	switch a := a.(type) {
	case NamedFields:
		b, ok := b.(NamedFields)
		return ok && slices.Equal(a, b)
	case UnnamedFields:
		b, ok := b.(UnnamedFields)
		return ok && slices.Equal(a, b)
	case EmptyFields:
		_, ok := b.(EmptyFields)
		return ok
	default:
		return false
	}
}
