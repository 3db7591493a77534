package borsh

import (
	"cmp"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// UnionLayout marks a struct as a union. A struct with a field of type
// UnionLayout is encoded as a tagged union of its exported fields,
// which must all be pointers. Exactly one of the fields must be
// non-nil when encoding. The encoding is a one byte discriminant
// followed by the encoding of the value the non-nil field points to.
//
// Discriminants are assigned in field order starting at 0. A field can
// select its discriminant explicitly with a `borsh:"discriminant=N"`
// tag, and subsequent untagged fields continue counting from there.
//
//	type Shape struct {
//	    _ borsh.UnionLayout
//
//	    Circle *Circle
//	    Square *Square `borsh:"discriminant=5"`
//	}
type UnionLayout struct{}

var unionLayoutType = reflect.TypeFor[UnionLayout]()

// maxVariants is the number of distinct values of a one byte
// discriminant.
const maxVariants = 256

// structField is the information about a struct field that needs to
// be marshaled/unmarshaled.
type structField struct {
	Name  string
	Index [][]int
	Type  reflect.Type

	// Discriminant is the union discriminant of the field. It is
	// only meaningful for the fields of unions.
	Discriminant uint8
}

// GetWithZero loads the struct field from structVal. If loading
// requires traversing a nil pointer into an embedded struct,
// GetWithZero returns a non-settable zero value of the field.
func (f *structField) GetWithZero(structVal reflect.Value) reflect.Value {
	v := structVal
	for i, hop := range f.Index {
		if i > 0 {
			if v.IsNil() {
				return reflect.Zero(f.Type)
			}
			v = v.Elem()
		}
		v = v.FieldByIndex(hop)
	}
	return v
}

// GetWithAlloc loads the struct field from structVal. If loading
// requires traversing a nil pointer into an embedded struct,
// GetWithAlloc allocates zero values appropriately. The returned
// [reflect.Value] is settable.
func (f *structField) GetWithAlloc(structVal reflect.Value) reflect.Value {
	v := structVal
	for i, hop := range f.Index {
		if i > 0 {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.FieldByIndex(hop)
	}
	return v
}

func (f *structField) String() string {
	kindStr := ""
	if ks := f.Type.Kind().String(); ks != f.Type.String() {
		kindStr = fmt.Sprintf(" (%s)", ks)
	}
	return fmt.Sprintf("%s: %s%s at %v", f.Name, f.Type, kindStr, f.Index)
}

// structInfo is the information about a struct relevant to
// marshaling/unmarshaling.
type structInfo struct {
	// Name is the struct's name, for use in diagnostics.
	Name string
	// Type is the struct's type, for use in diagnostics.
	Type reflect.Type
	// IsUnion is whether the struct carries a [UnionLayout] marker.
	IsUnion bool

	// StructFields is the information about each struct field
	// eligible for borsh encoding/decoding. For unions, each field is
	// one variant.
	StructFields []*structField
}

func (s *structInfo) String() string {
	var ret strings.Builder
	kind := "struct"
	if s.IsUnion {
		kind = "union"
	}
	fmt.Fprintf(&ret, "%s: %s, fields:\n", s.Name, kind)
	for _, f := range s.StructFields {
		ret.WriteString(f.String())
		if s.IsUnion {
			fmt.Fprintf(&ret, " = %d", f.Discriminant)
		}
		ret.WriteByte('\n')
	}
	return ret.String()
}

// Variant returns the union field with discriminant d, or nil.
func (s *structInfo) Variant(d uint8) *structField {
	for _, f := range s.StructFields {
		if f.Discriminant == d {
			return f
		}
	}
	return nil
}

// getStructInfo returns the structInfo for t.
//
// getStructInfo returns an error if t is not a struct, or if the
// struct is malformed in a way that prevents its use for borsh
// encoding.
func getStructInfo(t reflect.Type) (*structInfo, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}

	ret := &structInfo{
		Name: t.String(),
		Type: t,
	}

	var (
		candidates []reflect.StructField
		depth      = map[string]int{}
		count      = map[string]int{}
	)
	for field := range structFields(t, nil) {
		if field.Type == unionLayoutType {
			ret.IsUnion = true
			continue
		}
		d, seen := depth[field.Name]
		switch {
		case !seen || len(field.Index) < d:
			depth[field.Name] = len(field.Index)
			count[field.Name] = 1
		case len(field.Index) == d:
			count[field.Name]++
		}
		candidates = append(candidates, field)
	}

	var tagged []*structField
	for _, field := range candidates {
		// Shadowed and ambiguous fields are invisible, as in Go
		// selector expressions.
		if len(field.Index) != depth[field.Name] || count[field.Name] != 1 {
			continue
		}
		if !field.IsExported() {
			continue
		}

		disc, hasDisc, err := parseStructTag(field)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", ret.Name, field.Name, err)
		}
		fieldInfo := &structField{
			Name:  field.Name,
			Type:  field.Type,
			Index: allocSteps(t, field.Index),
		}
		ret.StructFields = append(ret.StructFields, fieldInfo)
		if hasDisc {
			fieldInfo.Discriminant = disc
			tagged = append(tagged, fieldInfo)
		}
	}

	if !ret.IsUnion {
		if len(tagged) > 0 {
			return nil, fmt.Errorf("field %s.%s has a discriminant, but %s is not a union", ret.Name, tagged[0].Name, ret.Name)
		}
		return ret, nil
	}

	if len(ret.StructFields) == 0 {
		return nil, fmt.Errorf("union %s has no variants", ret.Name)
	}
	if len(ret.StructFields) > maxVariants {
		return nil, fmt.Errorf("union %s has %d variants, the maximum is %d", ret.Name, len(ret.StructFields), maxVariants)
	}
	seen := map[uint8]*structField{}
	next := 0
	for _, f := range ret.StructFields {
		if f.Type.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("union variant %s.%s must be a pointer, got %s", ret.Name, f.Name, f.Type)
		}
		if !isTagged(tagged, f) {
			if next >= maxVariants {
				return nil, fmt.Errorf("union variant %s.%s has implicit discriminant %d, which does not fit in a byte", ret.Name, f.Name, next)
			}
			f.Discriminant = uint8(next)
		}
		if prev := seen[f.Discriminant]; prev != nil {
			return nil, fmt.Errorf("union variants %s.%s and %s.%s have the same discriminant %d", ret.Name, prev.Name, ret.Name, f.Name, f.Discriminant)
		}
		seen[f.Discriminant] = f
		next = int(f.Discriminant) + 1
	}

	return ret, nil
}

func isTagged(tagged []*structField, f *structField) bool {
	for _, t := range tagged {
		if t == f {
			return true
		}
	}
	return false
}

// parseStructTag returns the information contained in field's "borsh"
// struct tag.
func parseStructTag(field reflect.StructField) (disc uint8, hasDisc bool, err error) {
	tag, ok := field.Tag.Lookup("borsh")
	if !ok {
		return 0, false, nil
	}
	for _, f := range strings.Split(tag, ",") {
		if val, ok := strings.CutPrefix(f, "discriminant="); ok {
			d, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return 0, false, fmt.Errorf("invalid discriminant %q: %w", val, err)
			}
			disc, hasDisc = uint8(d), true
		} else if f != "" {
			return 0, false, fmt.Errorf("unknown borsh tag option %q", f)
		}
	}
	return disc, hasDisc, nil
}

// keyCmpFor returns the natural ordering of map keys of type t, or nil
// if keys of type t are ordered by their encoded bytes.
//
// Keys of naturalKeyKinds compare by value. Arrays and structs whose
// elements all have a natural ordering compare element by element,
// in encoding order. Pointers compare by the values they point to,
// with nil pointers equal to the zero value.
func keyCmpFor(t reflect.Type) func(a, b reflect.Value) int {
	return keyCmpVisit(t, map[reflect.Type]bool{})
}

func keyCmpVisit(t reflect.Type, visiting map[reflect.Type]bool) func(a, b reflect.Value) int {
	if hasCustomCodec(t) || visiting[t] {
		return nil
	}
	if naturalKeyKinds.Has(t.Kind()) {
		return mapKeyCmp(t)
	}
	visiting[t] = true
	defer delete(visiting, t)

	switch t.Kind() {
	case reflect.Pointer:
		elemCmp := keyCmpVisit(t.Elem(), visiting)
		if elemCmp == nil {
			return nil
		}
		zero := reflect.Zero(t.Elem())
		deref := func(v reflect.Value) reflect.Value {
			if v.IsNil() {
				return zero
			}
			return v.Elem()
		}
		return func(a, b reflect.Value) int {
			return elemCmp(deref(a), deref(b))
		}
	case reflect.Array:
		elemCmp := keyCmpVisit(t.Elem(), visiting)
		if elemCmp == nil {
			return nil
		}
		return func(a, b reflect.Value) int {
			for i := range a.Len() {
				if c := elemCmp(a.Index(i), b.Index(i)); c != 0 {
					return c
				}
			}
			return 0
		}
	case reflect.Struct:
		fs, err := getStructInfo(t)
		if err != nil || fs.IsUnion {
			return nil
		}
		cmps := make([]func(a, b reflect.Value) int, len(fs.StructFields))
		for i, f := range fs.StructFields {
			if cmps[i] = keyCmpVisit(f.Type, visiting); cmps[i] == nil {
				return nil
			}
		}
		return func(a, b reflect.Value) int {
			for i, f := range fs.StructFields {
				if c := cmps[i](f.GetWithZero(a), f.GetWithZero(b)); c != 0 {
					return c
				}
			}
			return 0
		}
	default:
		return nil
	}
}

// mapKeyCmp returns a comparison function for the given map key type,
// which must be in naturalKeyKinds.
func mapKeyCmp(t reflect.Type) func(a, b reflect.Value) int {
	switch t.Kind() {
	case reflect.Bool:
		return func(a, b reflect.Value) int {
			if a.Bool() == b.Bool() {
				return 0
			}
			if !a.Bool() {
				return -1
			}
			return 1
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Int(), b.Int())
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Uint(), b.Uint())
		}
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Float(), b.Float())
		}
	case reflect.String:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.String(), b.String())
		}
	default:
		panic("invalid map key type")
	}
}
