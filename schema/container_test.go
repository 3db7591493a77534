package schema_test

import (
	"errors"
	"testing"

	"github.com/danderson/borsh/schema"
	"github.com/google/go-cmp/cmp"
)

func TestDefinitionsAdd(t *testing.T) {
	ds := schema.Definitions{}

	added, err := ds.Add("Vec<u8>", schema.Sequence{"u8"})
	if err != nil {
		t.Fatalf("first Add got err: %v", err)
	}
	if !added {
		t.Fatal("first Add reported no insertion")
	}

	added, err = ds.Add("Vec<u8>", schema.Sequence{"u8"})
	if err != nil {
		t.Fatalf("repeat Add got err: %v", err)
	}
	if added {
		t.Fatal("repeat Add reported insertion")
	}

	_, err = ds.Add("Vec<u8>", schema.Sequence{"u16"})
	if !errors.Is(err, schema.ErrConflict) {
		t.Fatalf("conflicting Add got err %v, want ErrConflict", err)
	}
	var ce *schema.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("conflicting Add err %T is not a *ConflictError", err)
	}
	if ce.Declaration != "Vec<u8>" {
		t.Errorf("ConflictError names %q, want Vec<u8>", ce.Declaration)
	}
	if got := ds["Vec<u8>"]; !schema.Equal(got, schema.Sequence{"u8"}) {
		t.Errorf("conflicting Add overwrote definition, got %v", got)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b schema.Definition
		want bool
	}{
		{"same array", schema.Array{3, "u8"}, schema.Array{3, "u8"}, true},
		{"array length", schema.Array{3, "u8"}, schema.Array{4, "u8"}, false},
		{"array vs sequence", schema.Array{3, "u8"}, schema.Sequence{"u8"}, false},
		{"nil tuple", schema.Tuple{}, schema.Tuple{[]string{}}, true},
		{"tuple order", schema.Tuple{[]string{"u8", "u16"}}, schema.Tuple{[]string{"u16", "u8"}}, false},
		{
			"enum",
			schema.Enum{[]schema.Variant{{"None", "nil"}, {"Some", "u8"}}},
			schema.Enum{[]schema.Variant{{"None", "nil"}, {"Some", "u8"}}},
			true,
		},
		{
			"enum variant name",
			schema.Enum{[]schema.Variant{{"A", "nil"}}},
			schema.Enum{[]schema.Variant{{"B", "nil"}}},
			false,
		},
		{"empty struct", schema.Struct{}, schema.Struct{schema.EmptyFields{}}, true},
		{
			"named vs unnamed",
			schema.Struct{schema.NamedFields{{"A", "u8"}}},
			schema.Struct{schema.UnnamedFields{"u8"}},
			false,
		},
		{
			"field name",
			schema.Struct{schema.NamedFields{{"A", "u8"}}},
			schema.Struct{schema.NamedFields{{"B", "u8"}}},
			false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := schema.Equal(tc.a, tc.b); got != tc.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if got := schema.Equal(tc.b, tc.a); got != tc.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tc.b, tc.a, got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      schema.Container
		wantErr error
	}{
		{"primitive", schema.Container{Declaration: "u64"}, nil},
		{
			"complete",
			schema.Container{
				Declaration: "Foo",
				Definitions: schema.Definitions{
					"Foo":     schema.Struct{schema.NamedFields{{"A", "Vec<u8>"}, {"B", "string"}}},
					"Vec<u8>": schema.Sequence{"u8"},
				},
			},
			nil,
		},
		{
			"recursive",
			schema.Container{
				Declaration: "List",
				Definitions: schema.Definitions{
					"List":         schema.Struct{schema.NamedFields{{"Next", "Option<List>"}}},
					"Option<List>": schema.Enum{[]schema.Variant{{"None", "nil"}, {"Some", "List"}}},
				},
			},
			nil,
		},
		{"missing root", schema.Container{Declaration: "Foo"}, schema.ErrUndefined},
		{
			"missing field",
			schema.Container{
				Declaration: "Foo",
				Definitions: schema.Definitions{
					"Foo": schema.Struct{schema.UnnamedFields{"Bar"}},
				},
			},
			schema.ErrUndefined,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() got err: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() got err %v, want %v", err, tc.wantErr)
			} else if testing.Verbose() {
				t.Logf("got expected err: %v", err)
			}
		})
	}
}

func TestContainerEqual(t *testing.T) {
	a := schema.Container{
		Declaration: "Vec<u8>",
		Definitions: schema.Definitions{"Vec<u8>": schema.Sequence{"u8"}},
	}
	b := schema.Container{
		Declaration: "Vec<u8>",
		Definitions: schema.Definitions{"Vec<u8>": schema.Sequence{"u8"}},
	}
	if !a.Equal(b) {
		t.Error("identical containers are not Equal")
	}
	b.Definitions["Vec<u16>"] = schema.Sequence{"u16"}
	if a.Equal(b) {
		t.Error("containers with different definitions are Equal")
	}
	// cmp uses the Equal method.
	if diff := cmp.Diff(a, a); diff != "" {
		t.Errorf("cmp.Diff of identical containers:\n%s", diff)
	}
}

func TestDeclarations(t *testing.T) {
	ds := schema.Definitions{
		"b": schema.Sequence{"u8"},
		"a": schema.Sequence{"u8"},
		"c": schema.Sequence{"u8"},
	}
	if diff := cmp.Diff(ds.Declarations(), []string{"a", "b", "c"}); diff != "" {
		t.Errorf("Declarations() wrong order (-got+want):\n%s", diff)
	}
}
