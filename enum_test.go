package borsh

import (
	"reflect"
	"strings"
	"testing"
)

type panicEnum interface {
	isPanicEnum()
}

type pe1 struct{}
type pe2 struct{}
type pe3 uint8

func (pe1) isPanicEnum() {}
func (pe2) isPanicEnum() {}
func (pe3) isPanicEnum() {}

func TestRegisterEnumPanics(t *testing.T) {
	mustPanic := func(t *testing.T, want string, fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("RegisterEnum did not panic")
			}
			if testing.Verbose() {
				t.Logf("RegisterEnum panic: %v", r)
			}
			if err, ok := r.(error); !ok || !strings.Contains(err.Error(), want) {
				t.Fatalf("RegisterEnum panicked with %v, want error containing %q", r, want)
			}
		}()
		fn()
	}

	t.Run("not interface", func(t *testing.T) {
		mustPanic(t, "must be interfaces", func() {
			RegisterEnum[pe1](Variant[pe1]("A"))
		})
	})
	t.Run("unnamed interface", func(t *testing.T) {
		mustPanic(t, "unnamed interface", func() {
			RegisterEnum[interface{ isPanicEnum() }](Variant[pe1]("A"))
		})
	})
	t.Run("no variants", func(t *testing.T) {
		mustPanic(t, "at least one variant", func() {
			RegisterEnum[panicEnum]()
		})
	})
	t.Run("interface variant", func(t *testing.T) {
		mustPanic(t, "must be concrete", func() {
			RegisterEnum[panicEnum](Variant[panicEnum]("A"))
		})
	})
	t.Run("not implemented", func(t *testing.T) {
		mustPanic(t, "does not implement", func() {
			RegisterEnum[panicEnum](Variant[Simple]("A"))
		})
	})
	t.Run("no name", func(t *testing.T) {
		mustPanic(t, "has no name", func() {
			RegisterEnum[panicEnum](Variant[pe1](""))
		})
	})
	t.Run("duplicate name", func(t *testing.T) {
		mustPanic(t, "duplicate enum variant name", func() {
			RegisterEnum[panicEnum](Variant[pe1]("A"), Variant[pe2]("A"))
		})
	})
	t.Run("duplicate type", func(t *testing.T) {
		mustPanic(t, "have the same type", func() {
			RegisterEnum[panicEnum](Variant[pe1]("A"), Variant[pe1]("B"))
		})
	})
	t.Run("duplicate discriminant", func(t *testing.T) {
		mustPanic(t, "have the same discriminant", func() {
			RegisterEnum[panicEnum](
				VariantWithDiscriminant[pe1]("A", 1),
				VariantWithDiscriminant[pe2]("B", 1))
		})
	})
	t.Run("implicit after explicit collides", func(t *testing.T) {
		mustPanic(t, "have the same discriminant", func() {
			RegisterEnum[panicEnum](
				VariantWithDiscriminant[pe1]("A", 1),
				VariantWithDiscriminant[pe2]("B", 0),
				Variant[pe3]("C"))
		})
	})
	t.Run("implicit overflow", func(t *testing.T) {
		mustPanic(t, "does not fit in a byte", func() {
			RegisterEnum[panicEnum](
				VariantWithDiscriminant[pe1]("A", 255),
				Variant[pe2]("B"))
		})
	})
	t.Run("duplicate registration", func(t *testing.T) {
		mustPanic(t, "duplicate enum registration", func() {
			RegisterEnum[Shape](Variant[Circle]("Circle"))
		})
	})

	if enumFor(reflect.TypeFor[panicEnum]()) != nil {
		t.Fatal("failed registrations left panicEnum registered")
	}
}

func TestEnumInfo(t *testing.T) {
	info := enumFor(reflect.TypeFor[Op]())
	if info == nil {
		t.Fatal("Op is not registered")
	}
	if testing.Verbose() {
		t.Log(info)
	}
	want := map[string]uint8{"Push": 10, "Pop": 11, "Swap": 2}
	for _, v := range info.Variants {
		if v.disc != want[v.name] {
			t.Errorf("variant %s has discriminant %d, want %d", v.name, v.disc, want[v.name])
		}
	}
	if enumFor(reflect.TypeFor[Simple]()) != nil {
		t.Error("enumFor(Simple) returned a registration")
	}
	if enumFor(reflect.TypeFor[any]()) != nil {
		t.Error("enumFor(any) returned a registration")
	}
}

func TestUnionInfo(t *testing.T) {
	info, err := getStructInfo(reflect.TypeFor[Event]())
	if err != nil {
		t.Fatalf("getStructInfo(Event) failed: %v", err)
	}
	if testing.Verbose() {
		t.Log(info)
	}
	if !info.IsUnion {
		t.Fatal("Event is not a union")
	}
	for d, name := range map[uint8]string{0: "Created", 5: "Deleted", 6: "Renamed"} {
		f := info.Variant(d)
		if f == nil || f.Name != name {
			t.Errorf("Variant(%d) = %v, want %s", d, f, name)
		}
	}
	if f := info.Variant(1); f != nil {
		t.Errorf("Variant(1) = %v, want nil", f)
	}

	bad := []struct {
		name string
		t    reflect.Type
		want string
	}{
		{"no variants", reflect.TypeFor[struct{ _ UnionLayout }](), "has no variants"},
		{"non-pointer", reflect.TypeFor[struct {
			_ UnionLayout
			A uint8
		}](), "must be a pointer"},
		{"duplicate", reflect.TypeFor[struct {
			_ UnionLayout
			A *uint8 `borsh:"discriminant=3"`
			B *uint8 `borsh:"discriminant=3"`
		}](), "same discriminant"},
		{"implicit collision", reflect.TypeFor[struct {
			_ UnionLayout
			A *uint8 `borsh:"discriminant=1"`
			B *uint8 `borsh:"discriminant=0"`
			C *uint8
		}](), "same discriminant"},
		{"overflow", reflect.TypeFor[struct {
			_ UnionLayout
			A *uint8 `borsh:"discriminant=255"`
			B *uint8
		}](), "does not fit in a byte"},
		{"bad discriminant", reflect.TypeFor[struct {
			_ UnionLayout
			A *uint8 `borsh:"discriminant=256"`
		}](), "invalid discriminant"},
		{"unknown option", reflect.TypeFor[struct {
			_ UnionLayout
			A *uint8 `borsh:"discriminant=1,omitempty"`
		}](), "unknown borsh tag option"},
		{"not a union", reflect.TypeFor[struct {
			A uint8 `borsh:"discriminant=1"`
		}](), "is not a union"},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			_, err := getStructInfo(tc.t)
			if err == nil {
				t.Fatalf("getStructInfo(%s) succeeded, want error", tc.t)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("getStructInfo(%s) returned %v, want error containing %q", tc.t, err, tc.want)
			}
		})
	}
}
