package borshgen_test

import (
	"errors"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/danderson/borsh"
	"github.com/danderson/borsh/internal/borshgen"
	"github.com/danderson/borsh/schema"
)

// squash collapses whitespace runs, so that expectations don't depend
// on gofmt's alignment of struct fields.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func mustGenerate(t *testing.T, c schema.Container) string {
	t.Helper()
	got, err := borshgen.Types(c, "gen")
	if err != nil {
		t.Fatalf("generating types: %v\n%s", err, got)
	}
	if testing.Verbose() {
		t.Logf("generated:\n%s", got)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "gen.go", got, parser.AllErrors); err != nil {
		t.Fatalf("generated code doesn't parse: %v", err)
	}
	return got
}

func checkContains(t *testing.T, got string, want []string) {
	t.Helper()
	sq := squash(got)
	for _, w := range want {
		if !strings.Contains(sq, squash(w)) {
			t.Errorf("generated code is missing %q", w)
		}
	}
}

func TestTypes(t *testing.T) {
	c := schema.Container{
		Declaration: "Drawing",
		Definitions: schema.Definitions{
			"Drawing": schema.Struct{Fields: schema.NamedFields{
				{"name", "string"},
				{"shapes", "Vec<Shape>"},
				{"origin", "Option<Point>"},
				{"tags", "HashSet<string>"},
				{"index", "HashMap<u32, Point>"},
				{"pair", "Tuple<u8, bool>"},
				{"digest", "Array<u8, 4>"},
				{"status", "Result<nil, string>"},
				{"owner_id", "u64"},
			}},
			"Vec<Shape>":          schema.Sequence{"Shape"},
			"Option<Point>":       schema.Enum{[]schema.Variant{{"None", "nil"}, {"Some", "Point"}}},
			"HashSet<string>":     schema.Sequence{"string"},
			"HashMap<u32, Point>": schema.Sequence{"Tuple<u32, Point>"},
			"Tuple<u32, Point>":   schema.Tuple{[]schema.Declaration{"u32", "Point"}},
			"Tuple<u8, bool>":     schema.Tuple{[]schema.Declaration{"u8", "bool"}},
			"Array<u8, 4>":        schema.Array{4, "u8"},
			"Result<nil, string>": schema.Enum{[]schema.Variant{{"Ok", "nil"}, {"Err", "string"}}},
			"Point":               schema.Struct{Fields: schema.UnnamedFields{"i32", "i32"}},
			"Shape": schema.Enum{[]schema.Variant{
				{"Circle", "Circle"},
				{"Dot", "nil"},
				{"Scaled", "Tuple<f32, Shape>"},
				{"Radius", "Circle"},
			}},
			"Circle":            schema.Struct{Fields: schema.NamedFields{{"radius", "f64"}}},
			"Tuple<f32, Shape>": schema.Tuple{[]schema.Declaration{"f32", "Shape"}},
		},
	}

	got := mustGenerate(t, c)
	checkContains(t, got, []string{
		"// Code generated by borsh generate. DO NOT EDIT.",
		"package gen",
		`import "github.com/danderson/borsh"`,
		`type Drawing struct {
			Name    string
			Shapes  []Shape
			Origin  borsh.Option[Point]
			Tags    map[string]struct{}
			Index   map[uint32]Point
			Pair    borsh.Tuple2[uint8, bool]
			Digest  [4]uint8
			Status  borsh.Result[struct{}, string]
			OwnerID uint64
		}`,
		`type Point struct {
			V0 int32
			V1 int32
		}`,
		`type Circle struct {
			Radius float64
		}`,
		"type Shape interface { isShape() }",
		"func (Circle) isShape() {}",
		"type ShapeDot struct{}",
		"func (ShapeDot) isShape() {}",
		"type ShapeScaled borsh.Tuple2[float32, Shape]",
		"type ShapeRadius Circle",
		"func (ShapeRadius) isShape() {}",
		`borsh.RegisterEnum[Shape](
			borsh.Variant[Circle]("Circle"),
			borsh.Variant[ShapeDot]("Dot"),
			borsh.Variant[ShapeScaled]("Scaled"),
			borsh.Variant[ShapeRadius]("Radius"),
		)`,
	})
}

func TestTypesRecursive(t *testing.T) {
	c := schema.Container{
		Declaration: "Node",
		Definitions: schema.Definitions{
			"Node": schema.Struct{Fields: schema.NamedFields{
				{"value", "string"},
				{"next", "Option<Node>"},
				{"kids", "Vec<Node>"},
				{"pair", "Pair"},
			}},
			"Option<Node>": schema.Enum{[]schema.Variant{{"None", "nil"}, {"Some", "Node"}}},
			"Vec<Node>":    schema.Sequence{"Node"},
			"Pair":         schema.Struct{Fields: schema.NamedFields{{"left", "Loop"}}},
			"Loop":         schema.Struct{Fields: schema.NamedFields{{"next", "Option<Node>"}}},
			"Wrap":         schema.Enum{[]schema.Variant{{"Inner", "Wrap"}, {"Leaf", "u8"}}},
			"Bytes":        schema.Sequence{"u8"},
		},
	}
	// Wrap and Bytes are unreachable from the root, but are still
	// generated.
	got := mustGenerate(t, c)
	checkContains(t, got, []string{
		`type Node struct {
			Value string
			Next  borsh.Option[*Node]
			Kids  []Node
			Pair  *Pair
		}`,
		`type Pair struct {
			Left *Loop
		}`,
		`type Loop struct {
			Next borsh.Option[*Node]
		}`,
		`type WrapInner struct {
			V Wrap
		}`,
		"type WrapLeaf uint8",
		"type Bytes []uint8",
	})
}

func TestTypesNoImport(t *testing.T) {
	got := mustGenerate(t, schema.Container{
		Declaration: "Simple",
		Definitions: schema.Definitions{
			"Simple": schema.Struct{Fields: schema.NamedFields{{"A", "i16"}, {"B", "bool"}}},
			"Empty":  schema.Struct{Fields: schema.EmptyFields{}},
		},
	})
	if strings.Contains(got, "import") {
		t.Errorf("generated code imports borsh needlessly:\n%s", got)
	}
	checkContains(t, got, []string{"type Empty struct{}"})
}

type genTree struct {
	Value    uint32
	Children []genTree
	Label    borsh.Option[string]
}

type genShape interface{ isGenShape() }

type genCircle struct{ Radius float32 }
type genSquare struct{ Side uint16 }

func (genCircle) isGenShape() {}
func (genSquare) isGenShape() {}

type genDrawing struct {
	Name   string
	Shapes []genShape
	Trees  map[string]genTree
}

func init() {
	borsh.RegisterEnum[genShape](
		borsh.Variant[genCircle]("Circle"),
		borsh.Variant[genSquare]("Square"))
}

func TestTypesFromSchema(t *testing.T) {
	c, err := borsh.SchemaFor[genDrawing]()
	if err != nil {
		t.Fatalf("SchemaFor failed: %v", err)
	}
	got := mustGenerate(t, c)
	checkContains(t, got, []string{
		`type GenDrawing struct {
			Name   string
			Shapes []GenShape
			Trees  map[string]GenTree
		}`,
		`type GenTree struct {
			Value    uint32
			Children []GenTree
			Label    borsh.Option[string]
		}`,
		"type GenShape interface { isGenShape() }",
		"type GenCircle struct { Radius float32 }",
		"func (GenCircle) isGenShape() {}",
		"func (GenSquare) isGenShape() {}",
		`borsh.Variant[GenSquare]("Square")`,
	})
}

func TestTypesErrors(t *testing.T) {
	tests := []struct {
		name string
		c    schema.Container
		is   error
	}{
		{
			"undefined",
			schema.Container{Declaration: "A", Definitions: schema.Definitions{
				"A": schema.Struct{Fields: schema.NamedFields{{"x", "B"}}},
			}},
			schema.ErrUndefined,
		},
		{
			"tuple arity",
			schema.Container{Declaration: "A", Definitions: schema.Definitions{
				"A":         schema.Struct{Fields: schema.NamedFields{{"x", "Tuple<u8>"}}},
				"Tuple<u8>": schema.Tuple{[]schema.Declaration{"u8"}},
			}},
			borshgen.ErrUnsupported,
		},
		{
			"slice key",
			schema.Container{Declaration: "HashSet<Vec<u8>>", Definitions: schema.Definitions{
				"HashSet<Vec<u8>>": schema.Sequence{"Vec<u8>"},
				"Vec<u8>":          schema.Sequence{"u8"},
				"A":                schema.Struct{Fields: schema.NamedFields{{"x", "HashSet<Vec<u8>>"}}},
			}},
			borshgen.ErrUnsupported,
		},
		{
			"duplicate field",
			schema.Container{Declaration: "A", Definitions: schema.Definitions{
				"A": schema.Struct{Fields: schema.NamedFields{{"a_id", "u8"}, {"aID", "u8"}}},
			}},
			borshgen.ErrUnsupported,
		},
		{
			"bad field name",
			schema.Container{Declaration: "A", Definitions: schema.Definitions{
				"A": schema.Struct{Fields: schema.NamedFields{{"1st", "u8"}}},
			}},
			borshgen.ErrUnsupported,
		},
		{
			"wrapper collision",
			schema.Container{Declaration: "E", Definitions: schema.Definitions{
				"E":  schema.Enum{[]schema.Variant{{"X", "u8"}}},
				"EX": schema.Struct{Fields: schema.EmptyFields{}},
			}},
			borshgen.ErrUnsupported,
		},
		{
			"empty enum",
			schema.Container{Declaration: "E", Definitions: schema.Definitions{
				"E": schema.Enum{},
			}},
			borshgen.ErrUnsupported,
		},
		{
			"bad option",
			schema.Container{Declaration: "A", Definitions: schema.Definitions{
				"A":          schema.Struct{Fields: schema.NamedFields{{"x", "Option<u8>"}}},
				"Option<u8>": schema.Enum{[]schema.Variant{{"Some", "u8"}, {"None", "nil"}}},
			}},
			borshgen.ErrUnsupported,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := borshgen.Types(tc.c, "gen")
			if err == nil {
				t.Fatalf("Types succeeded, want error:\n%s", got)
			}
			if testing.Verbose() {
				t.Logf("Types err: %v", err)
			}
			if !errors.Is(err, tc.is) {
				t.Fatalf("Types returned %v, want %v", err, tc.is)
			}
		})
	}

	if _, err := borshgen.Types(schema.Container{Declaration: "u8"}, "not a package"); err == nil {
		t.Error("Types accepted an invalid package name")
	}
}
