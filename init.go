package borsh

import "github.com/danderson/borsh/schema"

func init() {
	RegisterEnum[schema.Definition](
		Variant[schema.Array]("Array"),
		Variant[schema.Sequence]("Sequence"),
		Variant[schema.Tuple]("Tuple"),
		Variant[schema.Enum]("Enum"),
		Variant[schema.Struct]("Struct"),
	)
	RegisterEnum[schema.Fields](
		Variant[schema.NamedFields]("NamedFields"),
		Variant[schema.UnnamedFields]("UnnamedFields"),
		Variant[schema.EmptyFields]("EmptyFields"),
	)
}
