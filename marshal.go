package borsh

import (
	"bytes"
	"log"
	"math"
	"reflect"
	"slices"

	"github.com/danderson/borsh/fragments"
)

// Marshal returns the borsh encoding of v.
//
// Marshal traverses the value v recursively. If an encountered value
// implements [Marshaler], Marshal calls MarshalBorsh on it to produce
// its encoding.
//
// Otherwise, Marshal uses the following type-dependent default
// encodings:
//
// bool encodes as one byte, 0 or 1. uint8 through uint64 and int8
// through int64 encode as little-endian integers of the same width,
// and float32 and float64 as their little-endian IEEE 754 bits. int
// and uint encode as 8 byte integers regardless of platform.
//
// String values encode as a 4-byte byte count followed by the UTF-8
// bytes.
//
// Slice values encode as a 4-byte element count followed by each
// element. Nil slices encode the same as an empty slice. Array values
// encode each element, with no count.
//
// Struct values encode each exported field in declaration order,
// according to its own type, with no padding. Embedded struct fields
// are encoded as if their inner exported fields were fields in the
// outer struct, subject to the usual Go visibility rules. Structs with
// a [UnionLayout] marker encode as tagged unions instead.
//
// Map values encode as a 4-byte entry count followed by each key and
// value, in canonical key order. Keys of boolean, integer, float and
// string kinds are ordered by value. Array and struct keys made of
// such values are ordered element by element, in encoding order.
// Other keys, including enums, [Option] and types with custom codecs,
// are ordered by their encoded bytes. map[K]struct{} is the encoding
// of a set.
//
// Pointer values encode as the value pointed to. A nil pointer
// encodes as the zero value of the type pointed to.
//
// Interface values whose type was registered with [RegisterEnum]
// encode as enums. To marshal a value as an enum, pass a pointer to
// the interface value, since Marshal's own argument is an interface
// whose dynamic type would otherwise be used.
//
// uintptr, complex64, complex128, unregistered interfaces, channel,
// and function values cannot be encoded. Attempting to encode such
// values causes Marshal to return a [TypeError]. Slices of types that
// always encode to zero bytes are also rejected with a [TypeError],
// since their length could not be bounded when decoding.
func Marshal(v any) ([]byte, error) {
	return MarshalAppend(nil, v)
}

// MarshalAppend is like [Marshal], but appends the encoding of v to
// bs.
func MarshalAppend(bs []byte, v any) ([]byte, error) {
	if v == nil {
		return bs, typeErr(nil, "cannot marshal nil interface")
	}
	val := reflect.ValueOf(v)
	enc, err := encoderFor(val.Type())
	if err != nil {
		return bs, err
	}
	e := fragments.Encoder{
		Mapper: encoderFor,
		Out:    bs,
	}
	if err := enc(&e, val); err != nil {
		return bs, err
	}
	return e.Out, nil
}

// Marshaler is the interface implemented by types that can marshal
// themselves to the borsh wire format.
//
// MarshalBorsh must produce output that [Unmarshaler.UnmarshalBorsh]
// can consume, and that matches the schema declared by
// [Describer], if the type implements it.
type Marshaler interface {
	MarshalBorsh(e *fragments.Encoder) error
}

var marshalerType = reflect.TypeFor[Marshaler]()

const debugCodecs = false

func debugCodec(msg string, args ...any) {
	if !debugCodecs {
		return
	}
	log.Printf(msg, args...)
}

var encoders cache[fragments.EncoderFunc]

// encoderFor returns the encoder func for the given type, if the type
// is representable in the borsh wire format.
func encoderFor(t reflect.Type) (fragments.EncoderFunc, error) {
	if t == nil {
		return nil, typeErr(nil, "cannot encode nil interface")
	}
	return encoders.Get(t, newEncoder, forwardEncoder)
}

// forwardEncoder returns an encoder that defers to the result of an
// in-progress encoder build. It is how recursive types refer to
// themselves.
func forwardEncoder(wait func() (fragments.EncoderFunc, error)) fragments.EncoderFunc {
	return func(e *fragments.Encoder, v reflect.Value) error {
		enc, err := wait()
		if err != nil {
			return err
		}
		return enc(e, v)
	}
}

func newEncoder(t reflect.Type) (fragments.EncoderFunc, error) {
	debugCodec("encoderFor(%s)", t)

	if t.Kind() == reflect.Pointer {
		return newPtrEncoder(t)
	}

	// If a value's pointer type implements Marshaler, we can avoid
	// a value copy by using it. But we can only use it for
	// addressable values, which requires an additional runtime check.
	if reflect.PointerTo(t).Implements(marshalerType) {
		return newCondAddrMarshalEncoder(t), nil
	} else if t.Implements(marshalerType) {
		return newMarshalEncoder(), nil
	}

	if info := enumFor(t); info != nil {
		return newEnumEncoder(info)
	}

	switch t.Kind() {
	case reflect.Bool:
		return newBoolEncoder(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return newIntEncoder(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return newUintEncoder(t), nil
	case reflect.Float32:
		return newFloat32Encoder(), nil
	case reflect.Float64:
		return newFloat64Encoder(), nil
	case reflect.String:
		return newStringEncoder(), nil
	case reflect.Slice:
		return newSliceEncoder(t)
	case reflect.Array:
		return newArrayEncoder(t)
	case reflect.Struct:
		return newStructEncoder(t)
	case reflect.Map:
		return newMapEncoder(t)
	case reflect.Interface:
		return nil, typeErr(t, "interface is not a registered enum")
	}
	return nil, typeErr(t, "no borsh mapping for type")
}

func newCondAddrMarshalEncoder(t reflect.Type) fragments.EncoderFunc {
	ptr := newMarshalEncoder()
	if t.Implements(marshalerType) {
		val := newMarshalEncoder()
		return func(e *fragments.Encoder, v reflect.Value) error {
			if v.CanAddr() {
				return ptr(e, v.Addr())
			} else {
				return val(e, v)
			}
		}
	} else {
		return func(e *fragments.Encoder, v reflect.Value) error {
			if !v.CanAddr() {
				// Marshaler only has a pointer receiver, copy the
				// value to somewhere addressable.
				cp := reflect.New(t)
				cp.Elem().Set(v)
				return ptr(e, cp)
			}
			return ptr(e, v.Addr())
		}
	}
}

func newMarshalEncoder() fragments.EncoderFunc {
	return func(e *fragments.Encoder, v reflect.Value) error {
		m := v.Interface().(Marshaler)
		return m.MarshalBorsh(e)
	}
}

func newPtrEncoder(t reflect.Type) (fragments.EncoderFunc, error) {
	elemEnc, err := encoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(e *fragments.Encoder, v reflect.Value) error {
		if v.IsNil() {
			return elemEnc(e, reflect.New(t.Elem()).Elem())
		}
		return elemEnc(e, v.Elem())
	}
	return fn, nil
}

func newBoolEncoder() fragments.EncoderFunc {
	return func(e *fragments.Encoder, v reflect.Value) error {
		e.Bool(v.Bool())
		return nil
	}
}

func newIntEncoder(t reflect.Type) fragments.EncoderFunc {
	switch kindToSize[t.Kind()] {
	case 1:
		return func(e *fragments.Encoder, v reflect.Value) error {
			e.Int8(int8(v.Int()))
			return nil
		}
	case 2:
		return func(e *fragments.Encoder, v reflect.Value) error {
			e.Int16(int16(v.Int()))
			return nil
		}
	case 4:
		return func(e *fragments.Encoder, v reflect.Value) error {
			e.Int32(int32(v.Int()))
			return nil
		}
	case 8:
		return func(e *fragments.Encoder, v reflect.Value) error {
			e.Int64(v.Int())
			return nil
		}
	default:
		panic("invalid newIntEncoder type")
	}
}

func newUintEncoder(t reflect.Type) fragments.EncoderFunc {
	switch kindToSize[t.Kind()] {
	case 1:
		return func(e *fragments.Encoder, v reflect.Value) error {
			e.Uint8(uint8(v.Uint()))
			return nil
		}
	case 2:
		return func(e *fragments.Encoder, v reflect.Value) error {
			e.Uint16(uint16(v.Uint()))
			return nil
		}
	case 4:
		return func(e *fragments.Encoder, v reflect.Value) error {
			e.Uint32(uint32(v.Uint()))
			return nil
		}
	case 8:
		return func(e *fragments.Encoder, v reflect.Value) error {
			e.Uint64(v.Uint())
			return nil
		}
	default:
		panic("invalid newUintEncoder type")
	}
}

func newFloat32Encoder() fragments.EncoderFunc {
	return func(e *fragments.Encoder, v reflect.Value) error {
		e.Uint32(math.Float32bits(float32(v.Float())))
		return nil
	}
}

func newFloat64Encoder() fragments.EncoderFunc {
	return func(e *fragments.Encoder, v reflect.Value) error {
		e.Uint64(math.Float64bits(v.Float()))
		return nil
	}
}

func newStringEncoder() fragments.EncoderFunc {
	return func(e *fragments.Encoder, v reflect.Value) error {
		return e.String(v.String())
	}
}

func newSliceEncoder(t reflect.Type) (fragments.EncoderFunc, error) {
	if zeroSized(t.Elem()) {
		return nil, typeErr(t, "sequences of zero-sized %s cannot be decoded safely", t.Elem())
	}
	if t.Elem().Kind() == reflect.Uint8 && !hasCustomCodec(t.Elem()) {
		// Fast path for []byte
		return func(e *fragments.Encoder, v reflect.Value) error {
			return e.Bytes(v.Bytes())
		}, nil
	}
	if canBulkCopy(t.Elem()) {
		return func(e *fragments.Encoder, v reflect.Value) error {
			return e.Sequence(v.Len(), func() error {
				bulkEncode(e, v)
				return nil
			})
		}, nil
	}

	elemEnc, err := encoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(e *fragments.Encoder, v reflect.Value) error {
		return e.Nest(func() error {
			return e.Sequence(v.Len(), func() error {
				for i := range v.Len() {
					if err := elemEnc(e, v.Index(i)); err != nil {
						return err
					}
				}
				return nil
			})
		})
	}
	return fn, nil
}

func newArrayEncoder(t reflect.Type) (fragments.EncoderFunc, error) {
	if t.Elem().Kind() == reflect.Uint8 && !hasCustomCodec(t.Elem()) {
		// Fast path for [N]byte
		n := t.Len()
		return func(e *fragments.Encoder, v reflect.Value) error {
			bs := make([]byte, n)
			reflect.Copy(reflect.ValueOf(bs), v)
			e.Write(bs)
			return nil
		}, nil
	}

	elemEnc, err := encoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(e *fragments.Encoder, v reflect.Value) error {
		for i := range v.Len() {
			if err := elemEnc(e, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return fn, nil
}

func newStructEncoder(t reflect.Type) (fragments.EncoderFunc, error) {
	fs, err := getStructInfo(t)
	if err != nil {
		return nil, typeErr(t, "getting struct info: %w", err)
	}
	if fs.IsUnion {
		return newUnionEncoder(fs)
	}

	var frags []fragments.EncoderFunc
	for _, f := range fs.StructFields {
		fEnc, err := newStructFieldEncoder(f)
		if err != nil {
			return nil, err
		}
		frags = append(frags, fEnc)
	}

	fn := func(e *fragments.Encoder, v reflect.Value) error {
		return e.Nest(func() error {
			for _, frag := range frags {
				if err := frag(e, v); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return fn, nil
}

// Note, the returned fragment encoder expects to be given the entire
// struct, not just the one field being encoded.
func newStructFieldEncoder(f *structField) (fragments.EncoderFunc, error) {
	fEnc, err := encoderFor(f.Type)
	if err != nil {
		return nil, err
	}
	fn := func(e *fragments.Encoder, v reflect.Value) error {
		fv := f.GetWithZero(v)
		return fEnc(e, fv)
	}
	return fn, nil
}

func newUnionEncoder(fs *structInfo) (fragments.EncoderFunc, error) {
	var frags []fragments.EncoderFunc
	for _, f := range fs.StructFields {
		fEnc, err := encoderFor(f.Type)
		if err != nil {
			return nil, err
		}
		frags = append(frags, fEnc)
	}

	fn := func(e *fragments.Encoder, v reflect.Value) error {
		set := -1
		for i, f := range fs.StructFields {
			if f.GetWithZero(v).IsNil() {
				continue
			}
			if set >= 0 {
				return invalid("union %s has both %s and %s set", fs.Name, fs.StructFields[set].Name, f.Name)
			}
			set = i
		}
		if set < 0 {
			return invalid("union %s has no variant set", fs.Name)
		}
		f := fs.StructFields[set]
		return e.Nest(func() error {
			e.Uint8(f.Discriminant)
			return frags[set](e, f.GetWithZero(v))
		})
	}
	return fn, nil
}

func newEnumEncoder(info *enumInfo) (fragments.EncoderFunc, error) {
	frags := map[reflect.Type]fragments.EncoderFunc{}
	for _, vr := range info.Variants {
		vEnc, err := encoderFor(vr.typ)
		if err != nil {
			return nil, err
		}
		frags[vr.typ] = vEnc
	}

	fn := func(e *fragments.Encoder, v reflect.Value) error {
		if v.IsNil() {
			return invalid("cannot encode nil %s", info.Type)
		}
		inner := v.Elem()
		idx, ok := info.byType[inner.Type()]
		if !ok {
			return typeErr(inner.Type(), "not a registered variant of enum %s", info.Type)
		}
		return e.Nest(func() error {
			e.Uint8(info.Variants[idx].disc)
			return frags[inner.Type()](e, inner)
		})
	}
	return fn, nil
}

func newMapEncoder(t reflect.Type) (fragments.EncoderFunc, error) {
	kt := t.Key()
	kEnc, err := encoderFor(kt)
	if err != nil {
		return nil, err
	}
	vt := t.Elem()
	vEnc, err := encoderFor(vt)
	if err != nil {
		return nil, err
	}

	if kCmp := keyCmpFor(kt); kCmp != nil {
		type entry struct {
			key, val reflect.Value
		}
		fn := func(e *fragments.Encoder, v reflect.Value) error {
			// MapRange rather than MapIndex, so that NaN keys can
			// be read back.
			ents := make([]entry, 0, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				ents = append(ents, entry{iter.Key(), iter.Value()})
			}
			slices.SortFunc(ents, func(a, b entry) int {
				return kCmp(a.key, b.key)
			})
			for i := 1; i < len(ents); i++ {
				if kCmp(ents[i-1].key, ents[i].key) == 0 {
					return invalid("distinct keys of %s compare equal: %v", t, ents[i].key)
				}
			}
			return e.Nest(func() error {
				return e.Sequence(len(ents), func() error {
					for _, ent := range ents {
						if err := kEnc(e, ent.key); err != nil {
							return err
						}
						if err := vEnc(e, ent.val); err != nil {
							return err
						}
					}
					return nil
				})
			})
		}
		return fn, nil
	}

	type entry struct {
		key []byte
		val reflect.Value
	}
	fn := func(e *fragments.Encoder, v reflect.Value) error {
		ents := make([]entry, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			ke := fragments.Encoder{Mapper: e.Mapper}
			if err := kEnc(&ke, iter.Key()); err != nil {
				return err
			}
			ents = append(ents, entry{ke.Out, iter.Value()})
		}
		slices.SortFunc(ents, func(a, b entry) int {
			return bytes.Compare(a.key, b.key)
		})
		for i := 1; i < len(ents); i++ {
			if bytes.Equal(ents[i-1].key, ents[i].key) {
				return invalid("distinct keys of %s have the same encoding % x", t, ents[i].key)
			}
		}
		return e.Nest(func() error {
			return e.Sequence(len(ents), func() error {
				for _, ent := range ents {
					e.Write(ent.key)
					if err := vEnc(e, ent.val); err != nil {
						return err
					}
				}
				return nil
			})
		})
	}
	return fn, nil
}
