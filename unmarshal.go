package borsh

import (
	"bytes"
	"math"
	"reflect"

	"github.com/danderson/borsh/fragments"
)

// Unmarshal decodes the borsh encoding in data and stores the result
// in the value pointed to by v. If v is nil or not a pointer,
// Unmarshal returns a [TypeError].
//
// The whole of data must be consumed by the decoded value. Trailing
// bytes cause Unmarshal to return an error wrapping [ErrInvalidData].
// Use [UnmarshalPrefix] to decode a value from the front of a longer
// input.
//
// Generally, Unmarshal applies the inverse of the rules used by
// [Marshal]. Since the wire format does not describe itself, it is up
// to the caller to know the expected message format and match it.
//
// Unmarshal traverses the value v recursively. If an encountered
// value implements [Unmarshaler], Unmarshal calls UnmarshalBorsh to
// unmarshal it. Types implementing [Unmarshaler] must implement
// UnmarshalBorsh with a pointer receiver. Attempting to unmarshal
// using an UnmarshalBorsh method with a value receiver results in a
// [TypeError].
//
// Decoding is atomic: the value pointed to by v is only modified if
// the whole input decodes successfully. Slices, maps and pointers in
// the result are freshly allocated, and never share storage with
// their previous value or with data.
//
// Input that violates an encoding rule, for example a boolean byte
// other than 0 or 1, invalid UTF-8 text, an unknown enum or union
// discriminant, map keys that are not in strictly increasing canonical
// order, or nesting deeper than [fragments.MaxDepth], results in an
// error wrapping [ErrInvalidData]. Input that ends before the value is
// complete results in an error wrapping [ErrUnexpectedEnd].
func Unmarshal(data []byte, v any) error {
	_, err := unmarshal(data, v, true)
	return err
}

// UnmarshalPrefix is like [Unmarshal], but decodes a single value
// from the front of data and returns the number of bytes consumed.
// Trailing bytes are not an error.
func UnmarshalPrefix(data []byte, v any) (int, error) {
	return unmarshal(data, v, false)
}

func unmarshal(data []byte, v any, exact bool) (int, error) {
	if v == nil {
		return 0, typeErr(nil, "can't unmarshal into nil interface")
	}
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Pointer {
		return 0, typeErr(val.Type(), "can't unmarshal into a non-pointer")
	}
	if val.IsNil() {
		return 0, typeErr(val.Type(), "can't unmarshal into a nil pointer")
	}
	t := val.Type().Elem()
	dec, err := decoderFor(t)
	if err != nil {
		return 0, err
	}
	d := fragments.Decoder{
		Mapper: decoderFor,
		In:     data,
	}
	tmp := reflect.New(t).Elem()
	if err := dec(&d, tmp); err != nil {
		return 0, err
	}
	if exact && d.Remaining() > 0 {
		return 0, invalid("%d trailing bytes after %s at offset %d", d.Remaining(), t, d.Offset())
	}
	val.Elem().Set(tmp)
	return d.Offset(), nil
}

// Unmarshaler is the interface implemented by types that can
// unmarshal themselves.
//
// UnmarshalBorsh must have a pointer receiver. If Unmarshal encounters
// an Unmarshaler whose UnmarshalBorsh method takes a value receiver,
// it will return a [TypeError].
//
// UnmarshalBorsh is responsible for consuming exactly the bytes that
// [Marshaler.MarshalBorsh] produced for the value.
type Unmarshaler interface {
	UnmarshalBorsh(d *fragments.Decoder) error
}

var unmarshalerType = reflect.TypeFor[Unmarshaler]()

var decoders cache[fragments.DecoderFunc]

// decoderFor returns the decoder func for the given type, if the type
// is representable in the borsh wire format.
func decoderFor(t reflect.Type) (fragments.DecoderFunc, error) {
	if t == nil {
		return nil, typeErr(nil, "cannot decode into nil interface")
	}
	return decoders.Get(t, newDecoder, forwardDecoder)
}

// forwardDecoder returns a decoder that defers to the result of an
// in-progress decoder build. It is how recursive types refer to
// themselves.
func forwardDecoder(wait func() (fragments.DecoderFunc, error)) fragments.DecoderFunc {
	return func(d *fragments.Decoder, v reflect.Value) error {
		dec, err := wait()
		if err != nil {
			return err
		}
		return dec(d, v)
	}
}

func newDecoder(t reflect.Type) (fragments.DecoderFunc, error) {
	debugCodec("decoderFor(%s)", t)

	// We only want Unmarshalers with pointer receivers, since a value
	// receiver would silently discard the results of the
	// UnmarshalBorsh call and lead to confusing bugs. Values handed to
	// decoders are always addressable, so a value whose pointer
	// implements Unmarshaler can decode through its address. Pointers
	// are handled below, by allocating and decoding the pointed-to
	// value.
	if t.Kind() != reflect.Pointer {
		if t.Implements(unmarshalerType) && t.Kind() != reflect.Interface {
			return nil, typeErr(t, "refusing to use borsh.Unmarshaler implementation with value receiver, Unmarshalers must use pointer receivers")
		} else if reflect.PointerTo(t).Implements(unmarshalerType) {
			return newAddrMarshalDecoder(t), nil
		}
	}

	if info := enumFor(t); info != nil {
		return newEnumDecoder(info)
	}

	switch t.Kind() {
	case reflect.Pointer:
		return newPtrDecoder(t)
	case reflect.Bool:
		return newBoolDecoder(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return newIntDecoder(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return newUintDecoder(t), nil
	case reflect.Float32:
		return newFloat32Decoder(), nil
	case reflect.Float64:
		return newFloat64Decoder(), nil
	case reflect.String:
		return newStringDecoder(), nil
	case reflect.Slice:
		return newSliceDecoder(t)
	case reflect.Array:
		return newArrayDecoder(t)
	case reflect.Struct:
		return newStructDecoder(t)
	case reflect.Map:
		return newMapDecoder(t)
	case reflect.Interface:
		return nil, typeErr(t, "interface is not a registered enum")
	}

	return nil, typeErr(t, "no borsh mapping for type")
}

func newAddrMarshalDecoder(t reflect.Type) fragments.DecoderFunc {
	return func(d *fragments.Decoder, v reflect.Value) error {
		m := v.Addr().Interface().(Unmarshaler)
		return m.UnmarshalBorsh(d)
	}
}

func newPtrDecoder(t reflect.Type) (fragments.DecoderFunc, error) {
	elem := t.Elem()
	elemDec, err := decoderFor(elem)
	if err != nil {
		return nil, err
	}
	fn := func(d *fragments.Decoder, v reflect.Value) error {
		ptr := reflect.New(elem)
		if err := elemDec(d, ptr.Elem()); err != nil {
			return err
		}
		v.Set(ptr)
		return nil
	}
	return fn, nil
}

func newBoolDecoder() fragments.DecoderFunc {
	return func(d *fragments.Decoder, v reflect.Value) error {
		b, err := d.Bool()
		if err != nil {
			return err
		}
		v.SetBool(b)
		return nil
	}
}

func newIntDecoder(t reflect.Type) fragments.DecoderFunc {
	switch kindToSize[t.Kind()] {
	case 1:
		return func(d *fragments.Decoder, v reflect.Value) error {
			i8, err := d.Int8()
			if err != nil {
				return err
			}
			v.SetInt(int64(i8))
			return nil
		}
	case 2:
		return func(d *fragments.Decoder, v reflect.Value) error {
			i16, err := d.Int16()
			if err != nil {
				return err
			}
			v.SetInt(int64(i16))
			return nil
		}
	case 4:
		return func(d *fragments.Decoder, v reflect.Value) error {
			i32, err := d.Int32()
			if err != nil {
				return err
			}
			v.SetInt(int64(i32))
			return nil
		}
	case 8:
		return func(d *fragments.Decoder, v reflect.Value) error {
			i64, err := d.Int64()
			if err != nil {
				return err
			}
			if v.OverflowInt(i64) {
				return invalid("%d overflows %s", i64, v.Type())
			}
			v.SetInt(i64)
			return nil
		}
	default:
		panic("invalid newIntDecoder type")
	}
}

func newUintDecoder(t reflect.Type) fragments.DecoderFunc {
	switch kindToSize[t.Kind()] {
	case 1:
		return func(d *fragments.Decoder, v reflect.Value) error {
			u8, err := d.Uint8()
			if err != nil {
				return err
			}
			v.SetUint(uint64(u8))
			return nil
		}
	case 2:
		return func(d *fragments.Decoder, v reflect.Value) error {
			u16, err := d.Uint16()
			if err != nil {
				return err
			}
			v.SetUint(uint64(u16))
			return nil
		}
	case 4:
		return func(d *fragments.Decoder, v reflect.Value) error {
			u32, err := d.Uint32()
			if err != nil {
				return err
			}
			v.SetUint(uint64(u32))
			return nil
		}
	case 8:
		return func(d *fragments.Decoder, v reflect.Value) error {
			u64, err := d.Uint64()
			if err != nil {
				return err
			}
			if v.OverflowUint(u64) {
				return invalid("%d overflows %s", u64, v.Type())
			}
			v.SetUint(u64)
			return nil
		}
	default:
		panic("invalid newUintDecoder type")
	}
}

func newFloat32Decoder() fragments.DecoderFunc {
	return func(d *fragments.Decoder, v reflect.Value) error {
		u32, err := d.Uint32()
		if err != nil {
			return err
		}
		v.SetFloat(float64(math.Float32frombits(u32)))
		return nil
	}
}

func newFloat64Decoder() fragments.DecoderFunc {
	return func(d *fragments.Decoder, v reflect.Value) error {
		u64, err := d.Uint64()
		if err != nil {
			return err
		}
		v.SetFloat(math.Float64frombits(u64))
		return nil
	}
}

func newStringDecoder() fragments.DecoderFunc {
	return func(d *fragments.Decoder, v reflect.Value) error {
		s, err := d.String()
		if err != nil {
			return err
		}
		v.SetString(s)
		return nil
	}
}

func newSliceDecoder(t reflect.Type) (fragments.DecoderFunc, error) {
	if zeroSized(t.Elem()) {
		return nil, typeErr(t, "sequences of zero-sized %s cannot be decoded safely", t.Elem())
	}
	if canBulkCopy(t.Elem()) {
		sz := int(t.Elem().Size())
		return func(d *fragments.Decoder, v reflect.Value) error {
			n, err := d.Len()
			if err != nil {
				return err
			}
			if err := d.CheckLen(n, sz); err != nil {
				return err
			}
			s, err := bulkDecode(d, t, n)
			if err != nil {
				return err
			}
			v.Set(s)
			return nil
		}, nil
	}

	elemDec, err := decoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	minElem := minSize(t.Elem())

	fn := func(d *fragments.Decoder, v reflect.Value) error {
		n, err := d.Len()
		if err != nil {
			return err
		}
		if err := d.CheckLen(n, minElem); err != nil {
			return err
		}
		s := reflect.MakeSlice(t, 0, min(n, d.Remaining()))
		err = d.Nest(func() error {
			for i := range n {
				s = reflect.Append(s, reflect.Zero(t.Elem()))
				if err := elemDec(d, s.Index(i)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		v.Set(s)
		return nil
	}
	return fn, nil
}

func newArrayDecoder(t reflect.Type) (fragments.DecoderFunc, error) {
	if t.Elem().Kind() == reflect.Uint8 && !hasCustomCodec(t.Elem()) {
		// Fast path for [N]byte
		n := t.Len()
		return func(d *fragments.Decoder, v reflect.Value) error {
			bs, err := d.Read(n)
			if err != nil {
				return err
			}
			reflect.Copy(v, reflect.ValueOf(bs))
			return nil
		}, nil
	}

	elemDec, err := decoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(d *fragments.Decoder, v reflect.Value) error {
		for i := range v.Len() {
			if err := elemDec(d, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return fn, nil
}

func newStructDecoder(t reflect.Type) (fragments.DecoderFunc, error) {
	fs, err := getStructInfo(t)
	if err != nil {
		return nil, typeErr(t, "getting struct info: %w", err)
	}
	if fs.IsUnion {
		return newUnionDecoder(fs)
	}

	var frags []fragments.DecoderFunc
	for _, f := range fs.StructFields {
		fDec, err := newStructFieldDecoder(f)
		if err != nil {
			return nil, err
		}
		frags = append(frags, fDec)
	}

	fn := func(d *fragments.Decoder, v reflect.Value) error {
		return d.Nest(func() error {
			for _, frag := range frags {
				if err := frag(d, v); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return fn, nil
}

// Note, the returned fragment decoder expects to be given the entire
// struct, not just the one field being decoded.
func newStructFieldDecoder(f *structField) (fragments.DecoderFunc, error) {
	fDec, err := decoderFor(f.Type)
	if err != nil {
		return nil, err
	}
	fn := func(d *fragments.Decoder, v reflect.Value) error {
		fv := f.GetWithAlloc(v)
		return fDec(d, fv)
	}
	return fn, nil
}

func newUnionDecoder(fs *structInfo) (fragments.DecoderFunc, error) {
	frags := map[uint8]fragments.DecoderFunc{}
	for _, f := range fs.StructFields {
		fDec, err := decoderFor(f.Type)
		if err != nil {
			return nil, err
		}
		frags[f.Discriminant] = fDec
	}

	fn := func(d *fragments.Decoder, v reflect.Value) error {
		return d.Nest(func() error {
			disc, err := d.Uint8()
			if err != nil {
				return err
			}
			f := fs.Variant(disc)
			if f == nil {
				return invalid("unknown discriminant %d for union %s", disc, fs.Name)
			}
			for _, other := range fs.StructFields {
				if other != f {
					other.GetWithAlloc(v).SetZero()
				}
			}
			return frags[disc](d, f.GetWithAlloc(v))
		})
	}
	return fn, nil
}

func newEnumDecoder(info *enumInfo) (fragments.DecoderFunc, error) {
	frags := make([]fragments.DecoderFunc, len(info.Variants))
	for i, vr := range info.Variants {
		vDec, err := decoderFor(vr.typ)
		if err != nil {
			return nil, err
		}
		frags[i] = vDec
	}

	fn := func(d *fragments.Decoder, v reflect.Value) error {
		return d.Nest(func() error {
			disc, err := d.Uint8()
			if err != nil {
				return err
			}
			idx, ok := info.byDisc[disc]
			if !ok {
				return invalid("unknown discriminant %d for enum %s", disc, info.Type)
			}
			inner := reflect.New(info.Variants[idx].typ).Elem()
			if err := frags[idx](d, inner); err != nil {
				return err
			}
			v.Set(inner)
			return nil
		})
	}
	return fn, nil
}

func newMapDecoder(t reflect.Type) (fragments.DecoderFunc, error) {
	kt := t.Key()
	kDec, err := decoderFor(kt)
	if err != nil {
		return nil, err
	}
	vt := t.Elem()
	vDec, err := decoderFor(vt)
	if err != nil {
		return nil, err
	}
	minEntry := minSize(kt) + minSize(vt)

	// less reports whether the key just decoded from keyBytes into
	// key sorts strictly after the previous key.
	var less func(prev, key reflect.Value, prevBytes, keyBytes []byte) bool
	if kCmp := keyCmpFor(kt); kCmp != nil {
		less = func(prev, key reflect.Value, _, _ []byte) bool {
			return kCmp(prev, key) < 0
		}
	} else {
		less = func(_, _ reflect.Value, prevBytes, keyBytes []byte) bool {
			return bytes.Compare(prevBytes, keyBytes) < 0
		}
	}

	fn := func(d *fragments.Decoder, v reflect.Value) error {
		n, err := d.Len()
		if err != nil {
			return err
		}
		if err := d.CheckLen(n, minEntry); err != nil {
			return err
		}
		m := reflect.MakeMapWithSize(t, min(n, d.Remaining()))

		var (
			prevKey   reflect.Value
			prevBytes []byte
		)
		err = d.Nest(func() error {
			for i := range n {
				start := d.Offset()
				key := reflect.New(kt).Elem()
				if err := kDec(d, key); err != nil {
					return err
				}
				keyBytes := d.In[start:d.Offset()]
				if i > 0 && !less(prevKey, key, prevBytes, keyBytes) {
					return invalid("map key at offset %d is not in canonical order", start)
				}
				val := reflect.New(vt).Elem()
				if err := vDec(d, val); err != nil {
					return err
				}
				m.SetMapIndex(key, val)
				prevKey, prevBytes = key, keyBytes
			}
			return nil
		})
		if err != nil {
			return err
		}
		v.Set(m)
		return nil
	}
	return fn, nil
}
