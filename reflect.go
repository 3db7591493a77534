package borsh

import (
	"iter"
	"reflect"
)

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// hasCustomCodec reports whether t or *t implements [Marshaler] or
// [Unmarshaler].
func hasCustomCodec(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return t.Implements(marshalerType) || pt.Implements(marshalerType) || t.Implements(unmarshalerType) || pt.Implements(unmarshalerType)
}

// zeroSized reports whether values of t always encode to zero bytes.
func zeroSized(t reflect.Type) bool {
	return zeroSizedVisit(t, map[reflect.Type]bool{})
}

func zeroSizedVisit(t reflect.Type, visiting map[reflect.Type]bool) bool {
	if visiting[t] {
		return false
	}
	visiting[t] = true
	defer delete(visiting, t)

	if t.Kind() != reflect.Pointer && hasCustomCodec(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Pointer:
		return zeroSizedVisit(t.Elem(), visiting)
	case reflect.Array:
		return t.Len() == 0 || zeroSizedVisit(t.Elem(), visiting)
	case reflect.Struct:
		fs, err := getStructInfo(t)
		if err != nil || fs.IsUnion {
			return false
		}
		for _, f := range fs.StructFields {
			if !zeroSizedVisit(f.Type, visiting) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// minSizer is implemented by types with custom codecs that always
// encode to at least minSizeBorsh bytes.
type minSizer interface {
	minSizeBorsh() int
}

var minSizerType = reflect.TypeFor[minSizer]()

// minSize returns a lower bound on the encoded size of values of t.
func minSize(t reflect.Type) int {
	return minSizeVisit(t, map[reflect.Type]bool{})
}

func minSizeVisit(t reflect.Type, visiting map[reflect.Type]bool) int {
	if sz, ok := kindToSize[t.Kind()]; ok && !hasCustomCodec(t) {
		return sz
	}
	if visiting[t] {
		return 0
	}
	visiting[t] = true
	defer delete(visiting, t)

	if t.Kind() != reflect.Pointer && hasCustomCodec(t) {
		if t.Implements(minSizerType) {
			return reflect.Zero(t).Interface().(minSizer).minSizeBorsh()
		}
		return 0
	}
	switch t.Kind() {
	case reflect.Pointer:
		return minSizeVisit(t.Elem(), visiting)
	case reflect.String, reflect.Slice, reflect.Map:
		return 4
	case reflect.Interface:
		return 1
	case reflect.Array:
		return t.Len() * minSizeVisit(t.Elem(), visiting)
	case reflect.Struct:
		fs, err := getStructInfo(t)
		if err != nil {
			return 0
		}
		if fs.IsUnion {
			return 1
		}
		ret := 0
		for _, f := range fs.StructFields {
			ret += minSizeVisit(f.Type, visiting)
		}
		return ret
	default:
		return 0
	}
}

// allocSteps partitions a multi-hop traversal of struct fields into
// segments that end at either the final value, or at a struct pointer
// that might be nil.
//
// This partition is used by [structField.GetWithZero] and
// [structField.GetWithAlloc] to load embedded struct fields that
// require traversing a nil pointer.
func allocSteps(t reflect.Type, idx []int) [][]int {
	var ret [][]int
	prev := 0
	t = t.Field(idx[0]).Type
	for i := 1; i < len(idx); i++ {
		if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
			// Hop through a struct pointer that might be nil, cut.
			ret = append(ret, idx[prev:i])
			prev = i
			t = t.Elem()
		}
		t = t.Field(idx[i]).Type
	}
	ret = append(ret, idx[prev:])
	return ret
}

// structFields iterates over the fields of t in declaration order,
// descending into embedded structs.
func structFields(t reflect.Type, idx []int) iter.Seq[reflect.StructField] {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			f := t.Field(i)
			idx = append(idx, i)
			if f.Anonymous && f.Type != unionLayoutType {
				at := f.Type
				if at.Kind() == reflect.Pointer {
					at = at.Elem()
				}
				if at.Kind() == reflect.Struct && !hasCustomCodec(at) {
					for af := range structFields(at, idx) {
						if !yield(af) {
							return
						}
					}
					idx = idx[:len(idx)-1]
					continue
				}
			}
			f.Index = append([]int(nil), idx...)
			if !yield(f) {
				return
			}
			idx = idx[:len(idx)-1]
		}
	}
}
