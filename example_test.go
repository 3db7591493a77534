package borsh_test

import (
	"fmt"

	"github.com/danderson/borsh"
)

type Point struct {
	X, Y int16
}

type Animal interface {
	isAnimal()
}

type Cat struct{ Lives uint8 }
type Dog struct{ Name string }

func (Cat) isAnimal() {}
func (Dog) isAnimal() {}

func init() {
	borsh.RegisterEnum[Animal](
		borsh.Variant[Cat]("Cat"),
		borsh.Variant[Dog]("Dog"))
}

func ExampleMarshal() {
	bs, err := borsh.Marshal(Point{1, -2})
	if err != nil {
		panic(err)
	}
	fmt.Printf("% x\n", bs)

	bs, err = borsh.Marshal(borsh.Some[uint64](7))
	if err != nil {
		panic(err)
	}
	fmt.Printf("% x\n", bs)
	// Output:
	// 01 00 fe ff
	// 01 07 00 00 00 00 00 00 00
}

func ExampleRegisterEnum() {
	bs, err := borsh.Marshal([]Animal{Cat{9}, Dog{"Rex"}})
	if err != nil {
		panic(err)
	}
	fmt.Printf("% x\n", bs)

	var animals []Animal
	if err := borsh.Unmarshal(bs, &animals); err != nil {
		panic(err)
	}
	fmt.Println(animals)
	// Output:
	// 02 00 00 00 00 09 01 03 00 00 00 52 65 78
	// [{9} {Rex}]
}

func ExampleSchemaFor() {
	c, err := borsh.SchemaFor[Point]()
	if err != nil {
		panic(err)
	}
	fmt.Println(c.Declaration)
	fmt.Println(c.Definitions["Point"])

	bs, err := borsh.Marshal(Point{1, -2})
	if err != nil {
		panic(err)
	}
	v, _, err := c.Decode(bs)
	if err != nil {
		panic(err)
	}
	fmt.Println(v)
	// Output:
	// Point
	// Struct{[{X i16} {Y i16}]}
	// [{X 1} {Y -2}]
}
