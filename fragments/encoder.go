package fragments

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
)

// An EncoderFunc writes a value to the given encoder.
type EncoderFunc func(enc *Encoder, val reflect.Value) error

// An Encoder provides utilities to write a borsh message to a byte
// slice.
type Encoder struct {
	// Mapper provides [EncoderFunc]s for types given to
	// [Encoder.Value]. If Mapper is nil, the Encoder functions
	// normally except that [Encoder.Value] always returns an error.
	Mapper func(reflect.Type) (EncoderFunc, error)
	// Out is the encoded output.
	Out []byte

	depth int
}

// Write writes bs as-is to the output.
func (e *Encoder) Write(bs []byte) {
	e.Out = append(e.Out, bs...)
}

// Uint8 writes a uint8.
func (e *Encoder) Uint8(u8 uint8) {
	e.Out = append(e.Out, u8)
}

// Uint16 writes a uint16.
func (e *Encoder) Uint16(u16 uint16) {
	e.Out = binary.LittleEndian.AppendUint16(e.Out, u16)
}

// Uint32 writes a uint32.
func (e *Encoder) Uint32(u32 uint32) {
	e.Out = binary.LittleEndian.AppendUint32(e.Out, u32)
}

// Uint64 writes a uint64.
func (e *Encoder) Uint64(u64 uint64) {
	e.Out = binary.LittleEndian.AppendUint64(e.Out, u64)
}

// Int8 writes an int8.
func (e *Encoder) Int8(i8 int8) { e.Uint8(uint8(i8)) }

// Int16 writes an int16.
func (e *Encoder) Int16(i16 int16) { e.Uint16(uint16(i16)) }

// Int32 writes an int32.
func (e *Encoder) Int32(i32 int32) { e.Uint32(uint32(i32)) }

// Int64 writes an int64.
func (e *Encoder) Int64(i64 int64) { e.Uint64(uint64(i64)) }

// Float32 writes the IEEE 754 bits of f32.
func (e *Encoder) Float32(f32 float32) {
	e.Uint32(math.Float32bits(f32))
}

// Float64 writes the IEEE 754 bits of f64.
func (e *Encoder) Float64(f64 float64) {
	e.Uint64(math.Float64bits(f64))
}

// Bool writes b as a single 0 or 1 byte.
func (e *Encoder) Bool(b bool) {
	if b {
		e.Uint8(1)
	} else {
		e.Uint8(0)
	}
}

// Len writes a 4-byte length prefix. It returns an error wrapping
// [ErrLengthOverflow] if n doesn't fit.
func (e *Encoder) Len(n int) error {
	if n < 0 || uint64(n) > MaxLen {
		return fmt.Errorf("%w: %d elements", ErrLengthOverflow, n)
	}
	e.Uint32(uint32(n))
	return nil
}

// Bytes writes a length-prefixed byte sequence.
func (e *Encoder) Bytes(bs []byte) error {
	if err := e.Len(len(bs)); err != nil {
		return err
	}
	e.Out = append(e.Out, bs...)
	return nil
}

// String writes a length-prefixed UTF-8 string. The prefix counts
// bytes, not characters.
func (e *Encoder) String(s string) error {
	if err := e.Len(len(s)); err != nil {
		return err
	}
	e.Out = append(e.Out, s...)
	return nil
}

// Value writes v to the output, using the [EncoderFunc] provided by
// [Encoder.Mapper].
//
// The encoding is chosen by the dynamic type of v. To encode a value
// according to an interface type, pass a pointer to it instead:
// pointers encode as the value they point to.
func (e *Encoder) Value(v any) error {
	if e.Mapper == nil {
		return errors.New("Mapper not provided to Encoder")
	}
	fn, err := e.Mapper(reflect.TypeOf(v))
	if err != nil {
		return err
	}
	return fn(e, reflect.ValueOf(v))
}

// Sequence writes a length-prefixed sequence of n elements.
//
// Sequence elements must be added within the provided elements
// function, and there must be exactly n of them.
func (e *Encoder) Sequence(n int, elements func() error) error {
	if err := e.Len(n); err != nil {
		return err
	}
	return elements()
}

// Nest calls fn one nesting level deeper. If that exceeds
// [MaxDepth], Nest returns an error wrapping [ErrInvalidData] instead
// of calling fn.
func (e *Encoder) Nest(fn func() error) error {
	if e.depth >= MaxDepth {
		return errDepth()
	}
	e.depth++
	defer func() { e.depth-- }()
	return fn()
}
