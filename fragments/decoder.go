package fragments

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"
)

// A DecoderFunc reads a value into val.
type DecoderFunc func(dec *Decoder, val reflect.Value) error

// A Decoder provides utilities to read a borsh message from a byte
// slice.
type Decoder struct {
	// Mapper provides [DecoderFunc]s for types given to
	// [Decoder.Value]. If Mapper is nil, the Decoder functions
	// normally except that [Decoder.Value] always returns an error.
	Mapper func(reflect.Type) (DecoderFunc, error)
	// In is the input to read.
	In []byte

	// offset is the number of bytes of In consumed so far.
	offset int
	depth  int
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.offset
}

// Remaining returns the number of unread input bytes.
func (d *Decoder) Remaining() int {
	return len(d.In) - d.offset
}

// Read reads n bytes, with no framing.
//
// The returned slice aliases [Decoder.In], callers that retain it
// must copy it.
func (d *Decoder) Read(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrUnexpectedEnd, n, d.offset, d.Remaining())
	}
	ret := d.In[d.offset : d.offset+n : d.offset+n]
	d.offset += n
	return ret, nil
}

// Uint8 reads a uint8.
func (d *Decoder) Uint8() (uint8, error) {
	bs, err := d.Read(1)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

// Uint16 reads a uint16.
func (d *Decoder) Uint16() (uint16, error) {
	bs, err := d.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(bs), nil
}

// Uint32 reads a uint32.
func (d *Decoder) Uint32() (uint32, error) {
	bs, err := d.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(bs), nil
}

// Uint64 reads a uint64.
func (d *Decoder) Uint64() (uint64, error) {
	bs, err := d.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(bs), nil
}

// Int8 reads an int8.
func (d *Decoder) Int8() (int8, error) {
	u, err := d.Uint8()
	return int8(u), err
}

// Int16 reads an int16.
func (d *Decoder) Int16() (int16, error) {
	u, err := d.Uint16()
	return int16(u), err
}

// Int32 reads an int32.
func (d *Decoder) Int32() (int32, error) {
	u, err := d.Uint32()
	return int32(u), err
}

// Int64 reads an int64.
func (d *Decoder) Int64() (int64, error) {
	u, err := d.Uint64()
	return int64(u), err
}

// Float32 reads a float32.
func (d *Decoder) Float32() (float32, error) {
	u, err := d.Uint32()
	return math.Float32frombits(u), err
}

// Float64 reads a float64.
func (d *Decoder) Float64() (float64, error) {
	u, err := d.Uint64()
	return math.Float64frombits(u), err
}

// Bool reads a boolean. Bytes other than 0 and 1 are rejected with
// [ErrInvalidData].
func (d *Decoder) Bool() (bool, error) {
	u, err := d.Uint8()
	if err != nil {
		return false, err
	}
	switch u {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, invalid("boolean byte 0x%02x at offset %d", u, d.offset-1)
	}
}

// Len reads a 4-byte length prefix.
func (d *Decoder) Len() (int, error) {
	u, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	return int(u), nil
}

// Bytes reads a length-prefixed byte sequence. The returned slice is
// a copy.
func (d *Decoder) Bytes() ([]byte, error) {
	ln, err := d.Len()
	if err != nil {
		return nil, err
	}
	bs, err := d.Read(ln)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), bs...), nil
}

// String reads a length-prefixed string. Bytes that aren't valid
// UTF-8 are rejected with [ErrInvalidData].
func (d *Decoder) String() (string, error) {
	ln, err := d.Len()
	if err != nil {
		return "", err
	}
	bs, err := d.Read(ln)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(bs) {
		return "", invalid("string at offset %d is not valid UTF-8", d.offset-ln)
	}
	return string(bs), nil
}

// Value reads a value into v, using the [DecoderFunc] provided by
// [Decoder.Mapper]. v must be a non-nil pointer.
func (d *Decoder) Value(v any) error {
	if d.Mapper == nil {
		return errors.New("Mapper not provided to Decoder")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return fmt.Errorf("outval of Decoder.Value must be a pointer, got %T", v)
	}
	if rv.IsNil() {
		return fmt.Errorf("outval of Decoder.Value must not be a nil pointer")
	}
	fn, err := d.Mapper(rv.Type().Elem())
	if err != nil {
		return err
	}
	return fn(d, rv.Elem())
}

// Sequence reads a length-prefixed sequence.
//
// minElemSize is the smallest number of bytes a single element can
// encode to. If the sequence's declared length cannot possibly fit in
// the remaining input, Sequence fails with [ErrUnexpectedEnd] without
// calling readElement, so that hostile length prefixes don't cause
// large allocations.
//
// Otherwise, readElement is called once per element with the index
// of the element to decode. Sequence stops at the first error.
// Sequence returns the declared number of elements.
func (d *Decoder) Sequence(minElemSize int, readElement func(int) error) (int, error) {
	ln, err := d.Len()
	if err != nil {
		return 0, err
	}
	if err := d.CheckLen(ln, minElemSize); err != nil {
		return 0, err
	}
	for i := range ln {
		if err := readElement(i); err != nil {
			return i, err
		}
	}
	return ln, nil
}

// CheckLen reports whether n elements of at least minElemSize bytes
// each can fit in the remaining input.
func (d *Decoder) CheckLen(n, minElemSize int) error {
	if minElemSize > 0 && uint64(n)*uint64(minElemSize) > uint64(d.Remaining()) {
		return fmt.Errorf("%w: %d elements of at least %d bytes declared at offset %d, only %d bytes remain", ErrUnexpectedEnd, n, minElemSize, d.offset, d.Remaining())
	}
	return nil
}

// Nest calls fn one nesting level deeper. If that exceeds
// [MaxDepth], Nest returns an error wrapping [ErrInvalidData] instead
// of calling fn.
func (d *Decoder) Nest(fn func() error) error {
	if d.depth >= MaxDepth {
		return errDepth()
	}
	d.depth++
	defer func() { d.depth-- }()
	return fn()
}
