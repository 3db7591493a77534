package borsh

import (
	"fmt"

	"github.com/danderson/borsh/fragments"
	"github.com/danderson/borsh/schema"
)

// Simple is a struct with simple fields.
type Simple struct {
	A int16
	B bool
}

// Nested is a struct with a struct field.
type Nested struct {
	A byte
	B Simple
}

// Embedded is a struct that embeds another struct by value.
type Embedded struct {
	Simple
	C byte
}

// EmbeddedShadow is a struct that embeds another struct by value,
// with one of the embedded fields shadowed by an outer field.
type EmbeddedShadow struct {
	Simple
	B byte
}

// Embedded_P is a struct that embeds another struct by pointer.
type Embedded_P struct {
	*Simple
	C byte
}

// Embedded_PV is a struct with 2 layers of embedding, first by value
// then by pointers.
type Embedded_PV struct {
	Embedded_P
}

// Arrays is a struct with various degrees of complicated sequences
// inside.
type Arrays struct {
	A []string
	B []Simple
	C [][]Nested
}

// Unexported is a struct with fields that aren't encoded.
type Unexported struct {
	A     uint8
	b     uint32
	C     uint8
	cache map[string]int
}

// Tree is a self-referential struct, broken up by a sequence.
type Tree struct {
	Value    uint32
	Children []Tree
}

// List is a self-referential struct, broken up by an optional
// pointer.
type List struct {
	Value uint32
	Next  Option[*List]
}

// Loop is a self-referential struct whose zero value never ends.
type Loop struct {
	Next *Loop
}

// Nesting is a self-referential sequence type, which has no finite
// declaration.
type Nesting []Nesting

// Shape is an enum.
type Shape interface {
	isShape()
}

type Circle struct {
	Radius float32
}

type Square struct {
	Side uint16
}

type Empty struct{}

func (Circle) isShape() {}
func (Square) isShape() {}
func (Empty) isShape()  {}

// Op is an enum with explicit discriminants.
type Op interface {
	isOp()
}

type Push struct {
	V int32
}

type Pop struct{}

type Swap struct{}

func (Push) isOp() {}
func (Pop) isOp()  {}
func (Swap) isOp() {}

func init() {
	RegisterEnum[Shape](
		Variant[Circle]("Circle"),
		Variant[Square]("Square"),
		Variant[Empty]("Empty"),
	)
	RegisterEnum[Op](
		VariantWithDiscriminant[Push]("Push", 10),
		Variant[Pop]("Pop"),
		VariantWithDiscriminant[Swap]("Swap", 2),
	)
}

// Event is a union.
type Event struct {
	_ UnionLayout

	Created *Simple
	Deleted *uint32 `borsh:"discriminant=5"`
	Renamed *string
}

// Dir is an enum registered out of discriminant order.
type Dir interface {
	isDir()
}

type North struct{}
type South struct{}

func (North) isDir() {}
func (South) isDir() {}

func init() {
	RegisterEnum[Dir](
		VariantWithDiscriminant[North]("North", 1),
		VariantWithDiscriminant[South]("South", 0),
	)
}

// Packet is a union whose fields are not in discriminant order.
type Packet struct {
	_ UnionLayout

	Data *[]byte `borsh:"discriminant=1"`
	Ack  *uint32 `borsh:"discriminant=0"`
}

// Drawing is a struct with an enum field.
type Drawing struct {
	Name   string
	Shapes []Shape
}

// SelfMarshalerVal is a struct that implements Marshaler and
// Unmarshaler, with value method receivers. Note the Unmarshaler
// implementation is deliberately unusable (UnmarshalBorsh must have
// a pointer receiver).
type SelfMarshalerVal struct {
	B byte
}

func (s SelfMarshalerVal) MarshalBorsh(e *fragments.Encoder) error {
	e.Write([]byte{s.B + 1, 0xff})
	return nil
}

func (s SelfMarshalerVal) UnmarshalBorsh(d *fragments.Decoder) error {
	bs, err := d.Read(2)
	if err != nil {
		return err
	}
	if bs[1] != 0xff {
		return fmt.Errorf("unexpected second byte %x", bs[1])
	}
	s.B = bs[0] - 1
	return nil
}

func (s SelfMarshalerVal) DeclarationBorsh() (schema.Declaration, error) {
	return "u16", nil
}

func (s SelfMarshalerVal) DefineBorsh(r *Registry) error {
	return nil
}

// SelfMarshalerPtr is a struct that implements Marshaler and
// Unmarshaler with pointer method receivers.
type SelfMarshalerPtr struct {
	B byte
}

func (s *SelfMarshalerPtr) MarshalBorsh(e *fragments.Encoder) error {
	e.Write([]byte{s.B + 1, 0xff})
	return nil
}

func (s *SelfMarshalerPtr) UnmarshalBorsh(d *fragments.Decoder) error {
	bs, err := d.Read(2)
	if err != nil {
		return err
	}
	if bs[1] != 0xff {
		return fmt.Errorf("%w: unexpected second byte %x", ErrInvalidData, bs[1])
	}
	s.B = bs[0] - 1
	return nil
}

func (s *SelfMarshalerPtr) DeclarationBorsh() (schema.Declaration, error) {
	return "u16", nil
}

func (s *SelfMarshalerPtr) DefineBorsh(r *Registry) error {
	return nil
}

// NestedSelfMarshalerPtr is a struct with a struct field that
// implements Marshaler/Unmarshaler with pointer method receivers.
type NestedSelfMarshalerPtr struct {
	A byte
	B SelfMarshalerPtr
}

// NestedSelfMarshalerVal is a struct with a field that implements
// Marshaler/Unmarshaler using value method receivers.
// NestedSelfMarshalerVal cannot be unmarshaled.
type NestedSelfMarshalerVal struct {
	A byte
	B SelfMarshalerVal
}

// Timestamp is a custom-encoded type with its own schema, a pair of
// seconds and nanoseconds packed in 12 bytes.
type Timestamp struct {
	Sec  int64
	Nsec uint32
}

func (t Timestamp) MarshalBorsh(e *fragments.Encoder) error {
	e.Int64(t.Sec)
	e.Uint32(t.Nsec)
	return nil
}

func (t *Timestamp) UnmarshalBorsh(d *fragments.Decoder) error {
	sec, err := d.Int64()
	if err != nil {
		return err
	}
	nsec, err := d.Uint32()
	if err != nil {
		return err
	}
	if nsec >= 1e9 {
		return fmt.Errorf("%w: nanoseconds %d out of range", ErrInvalidData, nsec)
	}
	*t = Timestamp{sec, nsec}
	return nil
}

func (Timestamp) DeclarationBorsh() (schema.Declaration, error) {
	return "Timestamp", nil
}

func (Timestamp) DefineBorsh(r *Registry) error {
	_, err := r.Define("Timestamp", schema.Struct{Fields: schema.UnnamedFields{"i64", "u32"}})
	return err
}

// MarshalOnly implements Marshaler without a schema.
type MarshalOnly struct{}

func (MarshalOnly) MarshalBorsh(e *fragments.Encoder) error {
	e.Uint8(42)
	return nil
}

// Record is a struct exercising most of the type mapping at once.
type Record struct {
	ID      uint64
	Name    string
	Tags    []string
	Scores  map[string]int32
	Parent  Option[uint64]
	Hash    [4]byte
	Created Timestamp
	Shape   Shape
	Status  Result[uint8, string]
	Pair    Tuple2[int16, bool]
	Members map[uint16]struct{}
}

func ptr[T any](v T) *T {
	return &v
}

func mustDeclarationFor[T any]() schema.Declaration {
	decl, err := DeclarationFor[T]()
	if err != nil {
		panic(err)
	}
	return decl
}
