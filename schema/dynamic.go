package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/danderson/borsh/fragments"
)

// Record is the dynamic representation of a struct with named
// fields.
type Record []NamedValue

// NamedValue is one field of a [Record].
type NamedValue struct {
	Name  string
	Value any
}

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// EnumValue is the dynamic representation of an enum value.
type EnumValue struct {
	Variant string
	Value   any
}

// Decode decodes data according to the container's schema, without
// needing the Go type that produced it. It returns the decoded value
// and the number of bytes consumed.
//
// Primitives decode to the matching Go scalar types (uint8 through
// uint64, int8 through int64, float32, float64, bool and string), and
// "nil" to nil. Sequences, arrays, tuples and tuple-like structs
// decode to []any, structs with named fields to [Record], and enums
// to [EnumValue].
//
// Enum discriminants are interpreted as the variant's position in the
// definition.
//
// Elements of "HashMap<K, V>" and "HashSet<K>" declarations must be in
// canonical key order with no duplicates. Keys of primitive, array,
// tuple and struct declarations made of primitives are ordered by
// value, element by element. Other keys are ordered by their encoded
// bytes.
func (c Container) Decode(data []byte) (any, int, error) {
	d := fragments.Decoder{In: data}
	v, err := c.decode(&d, c.Declaration)
	if err != nil {
		return nil, 0, err
	}
	return v, d.Offset(), nil
}

func (c Container) decode(d *fragments.Decoder, decl Declaration) (any, error) {
	if IsPrimitive(decl) {
		return decodePrimitive(d, decl)
	}
	def, err := c.Lookup(decl)
	if err != nil {
		return nil, err
	}

	var ret any
	err = d.Nest(func() error {
		switch def := def.(type) {
		case Array:
			l := make([]any, 0, min(int(def.Length), d.Remaining()))
			for range def.Length {
				v, err := c.decode(d, def.Elements)
				if err != nil {
					return err
				}
				l = append(l, v)
			}
			ret = l
		case Sequence:
			sz := c.minSize(def.Elements, nil)
			if sz == 0 {
				return fmt.Errorf("%w: %s has zero-sized elements", fragments.ErrInvalidData, decl)
			}
			k := c.keyedFor(decl, def)
			var order *keyOrder
			if k != nil {
				order = c.newKeyOrder(k.Key)
			}
			l := []any{}
			_, err := d.Sequence(sz, func(i int) error {
				var (
					v   any
					err error
				)
				if k != nil {
					v, err = c.decodeKeyed(d, k, order)
				} else {
					v, err = c.decode(d, def.Elements)
				}
				if err != nil {
					return err
				}
				l = append(l, v)
				return nil
			})
			if err != nil {
				return err
			}
			ret = l
		case Tuple:
			l, err := c.decodeList(d, def.Elements)
			if err != nil {
				return err
			}
			ret = l
		case Enum:
			disc, err := d.Uint8()
			if err != nil {
				return err
			}
			if int(disc) >= len(def.Variants) {
				return fmt.Errorf("%w: discriminant %d out of range for %s (%d variants)", fragments.ErrInvalidData, disc, decl, len(def.Variants))
			}
			vr := def.Variants[disc]
			v, err := c.decode(d, vr.Declaration)
			if err != nil {
				return err
			}
			ret = EnumValue{vr.Name, v}
		case Struct:
			switch fs := def.Fields.(type) {
			case NamedFields:
				r := make(Record, 0, len(fs))
				for _, f := range fs {
					v, err := c.decode(d, f.Declaration)
					if err != nil {
						return err
					}
					r = append(r, NamedValue{f.Name, v})
				}
				ret = r
			case UnnamedFields:
				l, err := c.decodeList(d, fs)
				if err != nil {
					return err
				}
				ret = l
			default:
				ret = Record{}
			}
		default:
			return fmt.Errorf("unknown definition type %T for %s", def, decl)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (c Container) decodeList(d *fragments.Decoder, decls []Declaration) ([]any, error) {
	ret := make([]any, 0, len(decls))
	for _, e := range decls {
		v, err := c.decode(d, e)
		if err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}
	return ret, nil
}

var primitiveSizes = map[Declaration]int{
	"bool": 1, "u8": 1, "i8": 1,
	"u16": 2, "i16": 2,
	"u32": 4, "i32": 4, "f32": 4,
	"u64": 8, "i64": 8, "f64": 8,
	"string": 4,
	Unit:     0,
}

// minSize returns the fewest bytes a value of decl can encode to.
// Undefined declarations and definitions that refer back to
// themselves without an intervening length prefix or discriminant
// count as zero.
func (c Container) minSize(decl Declaration, visiting map[Declaration]bool) int {
	if sz, ok := primitiveSizes[decl]; ok {
		return sz
	}
	if visiting[decl] {
		return 0
	}
	if visiting == nil {
		visiting = map[Declaration]bool{}
	}
	visiting[decl] = true
	defer delete(visiting, decl)

	sum := func(ds []Declaration) int {
		n := 0
		for _, d := range ds {
			n += c.minSize(d, visiting)
		}
		return n
	}
	switch def := c.Definitions[decl].(type) {
	case Array:
		return int(def.Length) * c.minSize(def.Elements, visiting)
	case Sequence:
		return 4
	case Enum:
		return 1
	case Tuple:
		return sum(def.Elements)
	case Struct:
		if def.Fields == nil {
			return 0
		}
		return sum(def.Fields.References())
	default:
		return 0
	}
}

func decodePrimitive(d *fragments.Decoder, decl Declaration) (any, error) {
	switch decl {
	case "bool":
		return d.Bool()
	case "u8":
		return d.Uint8()
	case "u16":
		return d.Uint16()
	case "u32":
		return d.Uint32()
	case "u64":
		return d.Uint64()
	case "i8":
		return d.Int8()
	case "i16":
		return d.Int16()
	case "i32":
		return d.Int32()
	case "i64":
		return d.Int64()
	case "f32":
		return d.Float32()
	case "f64":
		return d.Float64()
	case "string":
		return d.String()
	case Unit:
		return nil, nil
	default:
		panic(fmt.Sprintf("unhandled primitive %q", decl))
	}
}

// Encode encodes v according to the container's schema.
//
// Encode accepts the values produced by [Container.Decode], as well
// as JSON-shaped values: map[string]any for structs with named
// fields, a single-key map[string]any or a bare variant name string
// for enums, any slice or array for lists, and any Go number or
// [json.Number] for numeric primitives as long as the value fits the
// declared type exactly.
//
// Maps and sets are encoded in canonical key order, whatever the order
// of the input, and duplicate keys are an error.
func (c Container) Encode(v any) ([]byte, error) {
	var e fragments.Encoder
	if err := c.encode(&e, c.Declaration, v); err != nil {
		return nil, err
	}
	return e.Out, nil
}

func (c Container) encode(e *fragments.Encoder, decl Declaration, v any) error {
	if IsPrimitive(decl) {
		return encodePrimitive(e, decl, v)
	}
	def, err := c.Lookup(decl)
	if err != nil {
		return err
	}

	return e.Nest(func() error {
		switch def := def.(type) {
		case Array:
			l, err := asList(decl, v)
			if err != nil {
				return err
			}
			if len(l) != int(def.Length) {
				return fmt.Errorf("%w: %s wants %d elements, got %d", ErrSizeMismatch, decl, def.Length, len(l))
			}
			for _, ev := range l {
				if err := c.encode(e, def.Elements, ev); err != nil {
					return err
				}
			}
			return nil
		case Sequence:
			l, err := asList(decl, v)
			if err != nil {
				return err
			}
			if k := c.keyedFor(decl, def); k != nil {
				return c.encodeKeyed(e, decl, k, l)
			}
			return e.Sequence(len(l), func() error {
				for _, ev := range l {
					if err := c.encode(e, def.Elements, ev); err != nil {
						return err
					}
				}
				return nil
			})
		case Tuple:
			return c.encodeList(e, decl, def.Elements, v)
		case Enum:
			name, payload, err := asEnum(decl, v)
			if err != nil {
				return err
			}
			for i, vr := range def.Variants {
				if vr.Name == name {
					e.Uint8(uint8(i))
					return c.encode(e, vr.Declaration, payload)
				}
			}
			return fmt.Errorf("%w: %s has no variant %q", fragments.ErrInvalidData, decl, name)
		case Struct:
			switch fs := def.Fields.(type) {
			case NamedFields:
				return c.encodeRecord(e, decl, fs, v)
			case UnnamedFields:
				return c.encodeList(e, decl, fs, v)
			default:
				return nil
			}
		default:
			return fmt.Errorf("unknown definition type %T for %s", def, decl)
		}
	})
}

func (c Container) encodeList(e *fragments.Encoder, decl Declaration, decls []Declaration, v any) error {
	l, err := asList(decl, v)
	if err != nil {
		return err
	}
	if len(l) != len(decls) {
		return fmt.Errorf("%w: %s has %d elements, got %d", ErrSizeMismatch, decl, len(decls), len(l))
	}
	for i, ev := range l {
		if err := c.encode(e, decls[i], ev); err != nil {
			return err
		}
	}
	return nil
}

func (c Container) encodeRecord(e *fragments.Encoder, decl Declaration, fs NamedFields, v any) error {
	var get func(string) (any, bool)
	n := 0
	switch r := v.(type) {
	case Record:
		get, n = r.Get, len(r)
	case map[string]any:
		get = func(k string) (any, bool) {
			v, ok := r[k]
			return v, ok
		}
		n = len(r)
	default:
		return fmt.Errorf("%w: cannot encode %T as struct %s", fragments.ErrInvalidData, v, decl)
	}
	if n != len(fs) {
		return fmt.Errorf("%w: struct %s has %d fields, got %d", fragments.ErrInvalidData, decl, len(fs), n)
	}
	for _, f := range fs {
		fv, ok := get(f.Name)
		if !ok {
			return fmt.Errorf("%w: missing field %s.%s", fragments.ErrInvalidData, decl, f.Name)
		}
		if err := c.encode(e, f.Declaration, fv); err != nil {
			return fmt.Errorf("field %s.%s: %w", decl, f.Name, err)
		}
	}
	return nil
}

func asList(decl Declaration, v any) ([]any, error) {
	if l, ok := v.([]any); ok {
		return l, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: cannot encode %T as %s", fragments.ErrInvalidData, v, decl)
	}
	ret := make([]any, rv.Len())
	for i := range ret {
		ret[i] = rv.Index(i).Interface()
	}
	return ret, nil
}

func asEnum(decl Declaration, v any) (name string, payload any, err error) {
	switch ev := v.(type) {
	case EnumValue:
		return ev.Variant, ev.Value, nil
	case string:
		return ev, nil, nil
	case map[string]any:
		if len(ev) == 1 {
			for k, v := range ev {
				return k, v, nil
			}
		}
	}
	return "", nil, fmt.Errorf("%w: cannot encode %T as enum %s", fragments.ErrInvalidData, v, decl)
}

func encodePrimitive(e *fragments.Encoder, decl Declaration, v any) error {
	switch decl {
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return mismatch(decl, v)
		}
		e.Bool(b)
	case "u8", "u16", "u32", "u64":
		bits, _ := strconv.Atoi(decl[1:])
		u, err := toUint(decl, v, bits)
		if err != nil {
			return err
		}
		switch bits {
		case 8:
			e.Uint8(uint8(u))
		case 16:
			e.Uint16(uint16(u))
		case 32:
			e.Uint32(uint32(u))
		default:
			e.Uint64(u)
		}
	case "i8", "i16", "i32", "i64":
		bits, _ := strconv.Atoi(decl[1:])
		i, err := toInt(decl, v, bits)
		if err != nil {
			return err
		}
		switch bits {
		case 8:
			e.Int8(int8(i))
		case 16:
			e.Int16(int16(i))
		case 32:
			e.Int32(int32(i))
		default:
			e.Int64(i)
		}
	case "f32":
		f, err := toFloat(decl, v)
		if err != nil {
			return err
		}
		e.Float32(float32(f))
	case "f64":
		f, err := toFloat(decl, v)
		if err != nil {
			return err
		}
		e.Float64(f)
	case "string":
		s, ok := v.(string)
		if !ok {
			return mismatch(decl, v)
		}
		return e.String(s)
	case Unit:
		if v != nil {
			if rv := reflect.ValueOf(v); !(rv.Kind() == reflect.Struct && rv.NumField() == 0) {
				return mismatch(decl, v)
			}
		}
	default:
		panic(fmt.Sprintf("unhandled primitive %q", decl))
	}
	return nil
}

func mismatch(decl Declaration, v any) error {
	return fmt.Errorf("%w: cannot encode %T as %s", fragments.ErrInvalidData, v, decl)
}

func outOfRange(decl Declaration, v any) error {
	return fmt.Errorf("%w: %v out of range for %s", fragments.ErrInvalidData, v, decl)
}

func toUint(decl Declaration, v any, bits int) (uint64, error) {
	var u uint64
	switch n := v.(type) {
	case json.Number:
		p, err := strconv.ParseUint(string(n), 10, bits)
		if err != nil {
			return 0, outOfRange(decl, v)
		}
		return p, nil
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= math.Ldexp(1, bits) {
			return 0, outOfRange(decl, v)
		}
		return uint64(n), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u = rv.Uint()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return 0, outOfRange(decl, v)
		}
		u = uint64(rv.Int())
	default:
		return 0, mismatch(decl, v)
	}
	if bits < 64 && u >= 1<<bits {
		return 0, outOfRange(decl, v)
	}
	return u, nil
}

func toInt(decl Declaration, v any, bits int) (int64, error) {
	var i int64
	switch n := v.(type) {
	case json.Number:
		p, err := strconv.ParseInt(string(n), 10, bits)
		if err != nil {
			return 0, outOfRange(decl, v)
		}
		return p, nil
	case float64:
		lim := math.Ldexp(1, bits-1)
		if n != math.Trunc(n) || n < -lim || n >= lim {
			return 0, outOfRange(decl, v)
		}
		return int64(n), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, outOfRange(decl, v)
		}
		i = int64(rv.Uint())
	default:
		return 0, mismatch(decl, v)
	}
	if bits < 64 && (i < -(1<<(bits-1)) || i >= 1<<(bits-1)) {
		return 0, outOfRange(decl, v)
	}
	return i, nil
}

func toFloat(decl Declaration, v any) (float64, error) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return 0, mismatch(decl, v)
		}
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	default:
		return 0, mismatch(decl, v)
	}
}
