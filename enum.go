package borsh

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// An EnumVariant describes one alternative of an enum, for use with
// [RegisterEnum].
type EnumVariant struct {
	name     string
	typ      reflect.Type
	disc     uint8
	explicit bool
}

// Variant returns an enum variant named name, whose payload is a
// value of type T. Its discriminant is one more than the previous
// variant's, or 0 for the first variant.
func Variant[T any](name string) EnumVariant {
	return EnumVariant{name: name, typ: reflect.TypeFor[T]()}
}

// VariantWithDiscriminant is like [Variant], but explicitly sets the
// variant's discriminant.
func VariantWithDiscriminant[T any](name string, discriminant uint8) EnumVariant {
	return EnumVariant{name: name, typ: reflect.TypeFor[T](), disc: discriminant, explicit: true}
}

// enumInfo is the registered information about an enum interface.
type enumInfo struct {
	Type     reflect.Type
	Variants []EnumVariant

	byType map[reflect.Type]int
	byDisc map[uint8]int
}

func (e *enumInfo) String() string {
	var ret strings.Builder
	fmt.Fprintf(&ret, "enum %s:", e.Type)
	for _, v := range e.Variants {
		fmt.Fprintf(&ret, "\n  %d: %s (%s)", v.disc, v.name, v.typ)
	}
	return ret.String()
}

var (
	enumsMu sync.Mutex
	enums   = map[reflect.Type]*enumInfo{}
)

// RegisterEnum registers the interface type I as an enum, whose
// variants are the given types.
//
// A value of type I encodes as the one byte discriminant of the
// variant matching the value's dynamic type, followed by the encoding
// of the value itself. Encoding a nil I, or a value whose dynamic type
// is not a registered variant, is an error.
//
// Every variant type must implement I, and each variant's name, type
// and discriminant must be unique within the enum. An enum can have at
// most 256 variants.
//
// RegisterEnum must be called before I is first encoded, decoded or
// described, typically from an init function. RegisterEnum panics if
// I is not an interface, if I is already registered, or if the
// variants are invalid.
func RegisterEnum[I any](variants ...EnumVariant) {
	t := reflect.TypeFor[I]()
	if t.Kind() != reflect.Interface {
		panic(fmt.Errorf("cannot use type %s (%s) as an enum, enums must be interfaces", t, t.Kind()))
	}
	if t.Name() == "" {
		panic(fmt.Errorf("cannot use unnamed interface %s as an enum", t))
	}
	if len(variants) == 0 {
		panic(fmt.Errorf("enum %s must have at least one variant", t))
	}
	if len(variants) > maxVariants {
		panic(fmt.Errorf("enum %s has %d variants, the maximum is %d", t, len(variants), maxVariants))
	}

	info := &enumInfo{
		Type:   t,
		byType: map[reflect.Type]int{},
		byDisc: map[uint8]int{},
	}
	names := map[string]bool{}
	next := 0
	for i, v := range variants {
		if v.typ.Kind() == reflect.Interface {
			panic(fmt.Errorf("enum variant %s.%s has interface type %s, variants must be concrete types", t, v.name, v.typ))
		}
		if !v.typ.Implements(t) {
			panic(fmt.Errorf("enum variant %s.%s has type %s, which does not implement %s", t, v.name, v.typ, t))
		}
		if v.name == "" {
			panic(fmt.Errorf("enum variant %d of %s has no name", i, t))
		}
		if names[v.name] {
			panic(fmt.Errorf("duplicate enum variant name %s.%s", t, v.name))
		}
		names[v.name] = true
		if prev, ok := info.byType[v.typ]; ok {
			panic(fmt.Errorf("enum variants %s.%s and %s.%s have the same type %s", t, variants[prev].name, t, v.name, v.typ))
		}
		if !v.explicit {
			if next >= maxVariants {
				panic(fmt.Errorf("enum variant %s.%s has implicit discriminant %d, which does not fit in a byte", t, v.name, next))
			}
			v.disc = uint8(next)
		}
		if prev, ok := info.byDisc[v.disc]; ok {
			panic(fmt.Errorf("enum variants %s.%s and %s.%s have the same discriminant %d", t, variants[prev].name, t, v.name, v.disc))
		}
		next = int(v.disc) + 1
		info.byType[v.typ] = i
		info.byDisc[v.disc] = i
		info.Variants = append(info.Variants, v)
	}

	enumsMu.Lock()
	defer enumsMu.Unlock()
	if prev := enums[t]; prev != nil {
		panic(fmt.Errorf("duplicate enum registration for %s, existing registration %s", t, prev))
	}
	enums[t] = info
}

// enumFor returns the enum registration for t, or nil if t is not a
// registered enum.
func enumFor(t reflect.Type) *enumInfo {
	if t.Kind() != reflect.Interface {
		return nil
	}
	enumsMu.Lock()
	defer enumsMu.Unlock()
	return enums[t]
}
