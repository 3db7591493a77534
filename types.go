package borsh

import (
	"fmt"
	"reflect"

	"github.com/danderson/borsh/fragments"
	"github.com/danderson/borsh/schema"
)

// Option is an optional value of type T.
//
// An Option encodes as a presence byte, 0 for None and 1 for Some,
// followed by the encoding of Value if present. Its declaration is
// "Option<T>", defined as an enum of "None" with no payload and
// "Some" with a T payload.
type Option[T any] struct {
	Value T
	Valid bool
}

// Some returns an Option containing v.
func Some[T any](v T) Option[T] {
	return Option[T]{v, true}
}

// None returns an empty Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the Option's value, and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

func (o Option[T]) String() string {
	if !o.Valid {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.Value)
}

func (o Option[T]) MarshalBorsh(e *fragments.Encoder) error {
	if !o.Valid {
		e.Uint8(0)
		return nil
	}
	e.Uint8(1)
	return e.Value(&o.Value)
}

func (o *Option[T]) UnmarshalBorsh(d *fragments.Decoder) error {
	present, err := d.Uint8()
	if err != nil {
		return err
	}
	switch present {
	case 0:
		*o = Option[T]{}
		return nil
	case 1:
		var v T
		if err := d.Value(&v); err != nil {
			return err
		}
		*o = Some(v)
		return nil
	default:
		return invalid("option presence byte 0x%02x", present)
	}
}

func (Option[T]) minSizeBorsh() int {
	return 1
}

func (o Option[T]) DeclarationBorsh() (schema.Declaration, error) {
	return o.declarationBorsh(nil)
}

func (Option[T]) declarationBorsh(stack []reflect.Type) (schema.Declaration, error) {
	es, err := declarationFor(reflect.TypeFor[T](), stack)
	if err != nil {
		return "", err
	}
	return "Option<" + es + ">", nil
}

func (o Option[T]) DefineBorsh(r *Registry) error {
	decl, err := o.DeclarationBorsh()
	if err != nil {
		return err
	}
	es, err := DeclarationFor[T]()
	if err != nil {
		return err
	}
	def := schema.Enum{Variants: []schema.Variant{
		{Name: "None", Declaration: schema.Unit},
		{Name: "Some", Declaration: es},
	}}
	return r.defineAndInclude(decl, def, reflect.TypeFor[T]())
}

// Result is either a successful value of type T, or an error value of
// type E.
//
// A Result encodes as a byte, 0 for Ok and 1 for Err, followed by the
// encoding of Ok or Err respectively. Its declaration is
// "Result<T, E>", defined as an enum of "Ok" with a T payload and "Err"
// with an E payload.
type Result[T, E any] struct {
	Ok    T
	Err   E
	IsErr bool
}

// Ok returns a successful Result containing v.
func Ok[T, E any](v T) Result[T, E] {
	return Result[T, E]{Ok: v}
}

// Err returns a failed Result containing err.
func Err[T, E any](err E) Result[T, E] {
	return Result[T, E]{Err: err, IsErr: true}
}

func (r Result[T, E]) String() string {
	if r.IsErr {
		return fmt.Sprintf("Err(%v)", r.Err)
	}
	return fmt.Sprintf("Ok(%v)", r.Ok)
}

func (r Result[T, E]) MarshalBorsh(e *fragments.Encoder) error {
	if r.IsErr {
		e.Uint8(1)
		return e.Value(&r.Err)
	}
	e.Uint8(0)
	return e.Value(&r.Ok)
}

func (r *Result[T, E]) UnmarshalBorsh(d *fragments.Decoder) error {
	disc, err := d.Uint8()
	if err != nil {
		return err
	}
	switch disc {
	case 0:
		var v T
		if err := d.Value(&v); err != nil {
			return err
		}
		*r = Ok[T, E](v)
		return nil
	case 1:
		var v E
		if err := d.Value(&v); err != nil {
			return err
		}
		*r = Err[T](v)
		return nil
	default:
		return invalid("result discriminant 0x%02x", disc)
	}
}

func (Result[T, E]) minSizeBorsh() int {
	return 1
}

func (r Result[T, E]) DeclarationBorsh() (schema.Declaration, error) {
	return r.declarationBorsh(nil)
}

func (Result[T, E]) declarationBorsh(stack []reflect.Type) (schema.Declaration, error) {
	ds, err := declarationsFor(stack, reflect.TypeFor[T](), reflect.TypeFor[E]())
	if err != nil {
		return "", err
	}
	return "Result<" + ds[0] + ", " + ds[1] + ">", nil
}

func (r Result[T, E]) DefineBorsh(reg *Registry) error {
	decl, err := r.DeclarationBorsh()
	if err != nil {
		return err
	}
	ts := []reflect.Type{reflect.TypeFor[T](), reflect.TypeFor[E]()}
	ds, err := declarationsFor(nil, ts...)
	if err != nil {
		return err
	}
	def := schema.Enum{Variants: []schema.Variant{
		{Name: "Ok", Declaration: ds[0]},
		{Name: "Err", Declaration: ds[1]},
	}}
	return reg.defineAndInclude(decl, def, ts...)
}

// Tuple2 is a pair of values. It encodes as V0 followed by V1, and its
// declaration is "Tuple<A, B>".
type Tuple2[A, B any] struct {
	V0 A
	V1 B
}

// Tuple3 is a triple of values. It encodes as V0, V1 and V2 in order,
// and its declaration is "Tuple<A, B, C>".
type Tuple3[A, B, C any] struct {
	V0 A
	V1 B
	V2 C
}

// Tuple4 is a quadruple of values. It encodes as V0 through V3 in
// order, and its declaration is "Tuple<A, B, C, D>".
type Tuple4[A, B, C, D any] struct {
	V0 A
	V1 B
	V2 C
	V3 D
}

func (Tuple2[A, B]) elems() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()}
}

func (Tuple3[A, B, C]) elems() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C]()}
}

func (Tuple4[A, B, C, D]) elems() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C](), reflect.TypeFor[D]()}
}

func (t Tuple2[A, B]) DeclarationBorsh() (schema.Declaration, error) {
	return t.declarationBorsh(nil)
}

func (t Tuple3[A, B, C]) DeclarationBorsh() (schema.Declaration, error) {
	return t.declarationBorsh(nil)
}

func (t Tuple4[A, B, C, D]) DeclarationBorsh() (schema.Declaration, error) {
	return t.declarationBorsh(nil)
}

func (t Tuple2[A, B]) declarationBorsh(stack []reflect.Type) (schema.Declaration, error) {
	return tupleDeclarationFor(stack, t.elems())
}

func (t Tuple3[A, B, C]) declarationBorsh(stack []reflect.Type) (schema.Declaration, error) {
	return tupleDeclarationFor(stack, t.elems())
}

func (t Tuple4[A, B, C, D]) declarationBorsh(stack []reflect.Type) (schema.Declaration, error) {
	return tupleDeclarationFor(stack, t.elems())
}

func (t Tuple2[A, B]) DefineBorsh(r *Registry) error {
	return defineTuple(r, t.elems())
}

func (t Tuple3[A, B, C]) DefineBorsh(r *Registry) error {
	return defineTuple(r, t.elems())
}

func (t Tuple4[A, B, C, D]) DefineBorsh(r *Registry) error {
	return defineTuple(r, t.elems())
}

func declarationsFor(stack []reflect.Type, ts ...reflect.Type) ([]schema.Declaration, error) {
	ret := make([]schema.Declaration, 0, len(ts))
	for _, t := range ts {
		d, err := declarationFor(t, stack)
		if err != nil {
			return nil, err
		}
		ret = append(ret, d)
	}
	return ret, nil
}

func tupleDeclarationFor(stack []reflect.Type, elems []reflect.Type) (schema.Declaration, error) {
	ds, err := declarationsFor(stack, elems...)
	if err != nil {
		return "", err
	}
	return tupleDeclaration(ds), nil
}

func defineTuple(r *Registry, elems []reflect.Type) error {
	ds, err := declarationsFor(nil, elems...)
	if err != nil {
		return err
	}
	return r.defineAndInclude(tupleDeclaration(ds), schema.Tuple{Elements: ds}, elems...)
}
