package borsh

import (
	"reflect"

	"github.com/creachadair/mds/mapset"
	"github.com/danderson/borsh/schema"
)

var (
	// kindToDecl maps the reflect.Kinds of the basic types
	// representable by borsh to their declaration.
	kindToDecl = map[reflect.Kind]schema.Declaration{
		reflect.Bool:    "bool",
		reflect.Uint8:   "u8",
		reflect.Uint16:  "u16",
		reflect.Uint32:  "u32",
		reflect.Uint64:  "u64",
		reflect.Uint:    "u64",
		reflect.Int8:    "i8",
		reflect.Int16:   "i16",
		reflect.Int32:   "i32",
		reflect.Int64:   "i64",
		reflect.Int:     "i64",
		reflect.Float32: "f32",
		reflect.Float64: "f64",
		reflect.String:  "string",
	}

	// kindToSize maps the reflect.Kinds of fixed-width basic types to
	// their encoded size.
	kindToSize = map[reflect.Kind]int{
		reflect.Bool:    1,
		reflect.Uint8:   1,
		reflect.Int8:    1,
		reflect.Uint16:  2,
		reflect.Int16:   2,
		reflect.Uint32:  4,
		reflect.Int32:   4,
		reflect.Float32: 4,
		reflect.Uint64:  8,
		reflect.Int64:   8,
		reflect.Float64: 8,
		reflect.Uint:    8,
		reflect.Int:     8,
	}

	// naturalKeyKinds is the set of map key kinds whose canonical
	// order is the natural order of their values. Arrays, structs and
	// pointers built from them order naturally too, see keyCmpFor.
	naturalKeyKinds = mapset.New(
		reflect.Bool,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Uint,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Int,
		reflect.Float32,
		reflect.Float64,
		reflect.String,
	)

	// unitType is the type of zero-sized placeholder values.
	unitType = reflect.TypeFor[struct{}]()
)
