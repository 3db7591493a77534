// Package borsh implements a canonical, deterministic binary encoding
// of Go values, and a schema system that describes the layout of
// encoded types.
//
// The wire format is little-endian with no padding and no type tags.
// Integers and floats have fixed sizes, strings and sequences carry a
// 4-byte length prefix, fixed-size arrays carry none, and enums and
// optional values carry a one byte discriminant. Map entries are
// written in a canonical order, so equal values always produce the
// same bytes, and decoding rejects any input that a different value
// would not have produced.
//
// Use [Marshal] and [Unmarshal] to convert between Go values and
// bytes. Go types map onto the wire format as described in the
// documentation of those functions, and types can take over their own
// encoding by implementing [Marshaler] and [Unmarshaler].
//
// Go has no tagged unions, so enums are represented in one of two
// ways. An interface type registered with [RegisterEnum] encodes as
// the variant matching its dynamic type. A struct with a
// [UnionLayout] marker encodes as whichever of its pointer fields is
// set. [Option] and [Result] are the common special cases.
//
// Because the wire format does not describe itself, a party needs to
// know the type of a value to decode it. [SchemaFor] produces a
// [schema.Container] that describes a type's layout, including every
// type it refers to. A container can be published alongside encoded
// data, compared with [Fingerprint], and used to decode data without
// access to the original Go types with [schema.Container.Decode].
// Containers are themselves encodable with Marshal.
package borsh
