package borsh

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/danderson/borsh/schema"
	"github.com/zeebo/blake3"
)

// MaxSchemaDepth is the deepest chain of nested definitions that
// schema collection follows before failing with [schema.ErrCycle].
const MaxSchemaDepth = 256

// A Registry accumulates the definitions of the types reachable from
// a root type, during a single schema collection.
type Registry struct {
	defs  schema.Definitions
	depth int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: schema.Definitions{}}
}

// Definitions returns the definitions collected so far.
func (r *Registry) Definitions() schema.Definitions {
	return r.defs
}

// Define records def as the definition of decl, and reports whether
// decl was newly defined. It returns an error wrapping
// [schema.ErrConflict] if decl already has a different definition.
func (r *Registry) Define(decl schema.Declaration, def schema.Definition) (bool, error) {
	return r.defs.Add(decl, def)
}

// Include adds the definition of t and of every type t refers to, and
// returns t's declaration.
//
// Include stops descending at definitions that are already present,
// so recursive types are included once.
func (r *Registry) Include(t reflect.Type) (schema.Declaration, error) {
	decl, err := declarationFor(t, nil)
	if err != nil {
		return "", err
	}
	if schema.IsPrimitive(decl) {
		return decl, nil
	}
	if r.depth >= MaxSchemaDepth {
		return "", fmt.Errorf("%w: definitions nest deeper than %d at %s", schema.ErrCycle, MaxSchemaDepth, decl)
	}
	r.depth++
	defer func() { r.depth-- }()

	if err := r.define(derefType(t), decl); err != nil {
		return "", err
	}
	return decl, nil
}

// IncludeFor is [Registry.Include] for the type T.
func IncludeFor[T any](r *Registry) (schema.Declaration, error) {
	return r.Include(reflect.TypeFor[T]())
}

// defineAndInclude defines decl as def, and if it was newly defined,
// includes the types it refers to.
func (r *Registry) defineAndInclude(decl schema.Declaration, def schema.Definition, refs ...reflect.Type) error {
	added, err := r.Define(decl, def)
	if err != nil || !added {
		return err
	}
	for _, ref := range refs {
		if _, err := r.Include(ref); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) define(t reflect.Type, decl schema.Declaration) error {
	if d, ok := describerFor(t, describerType); ok {
		return d.(Describer).DefineBorsh(r)
	}

	if info := enumFor(t); info != nil {
		var (
			def  schema.Enum
			refs []reflect.Type
		)
		vs := slices.SortedFunc(slices.Values(info.Variants), func(a, b EnumVariant) int {
			return cmp.Compare(a.disc, b.disc)
		})
		for i, v := range vs {
			if int(v.disc) != i {
				return typeErr(t, "enum variant %s has discriminant %d, schemas require discriminants 0 to %d", v.name, v.disc, len(vs)-1)
			}
			vd, err := declarationFor(v.typ, nil)
			if err != nil {
				return err
			}
			def.Variants = append(def.Variants, schema.Variant{Name: v.name, Declaration: vd})
			refs = append(refs, v.typ)
		}
		return r.defineAndInclude(decl, def, refs...)
	}

	switch t.Kind() {
	case reflect.Slice:
		es, err := declarationFor(t.Elem(), nil)
		if err != nil {
			return err
		}
		return r.defineAndInclude(decl, schema.Sequence{Elements: es}, t.Elem())
	case reflect.Array:
		es, err := declarationFor(t.Elem(), nil)
		if err != nil {
			return err
		}
		return r.defineAndInclude(decl, schema.Array{Length: uint32(t.Len()), Elements: es}, t.Elem())
	case reflect.Map:
		ks, err := declarationFor(t.Key(), nil)
		if err != nil {
			return err
		}
		if t.Elem() == unitType {
			return r.defineAndInclude(decl, schema.Sequence{Elements: ks}, t.Key())
		}
		vs, err := declarationFor(t.Elem(), nil)
		if err != nil {
			return err
		}
		entry := tupleDeclaration([]schema.Declaration{ks, vs})
		if _, err := r.Define(entry, schema.Tuple{Elements: []schema.Declaration{ks, vs}}); err != nil {
			return err
		}
		return r.defineAndInclude(decl, schema.Sequence{Elements: entry}, t.Key(), t.Elem())
	case reflect.Struct:
		fs, err := getStructInfo(t)
		if err != nil {
			return typeErr(t, "getting struct info: %w", err)
		}
		if fs.IsUnion {
			return r.defineUnion(t, decl, fs)
		}
		if len(fs.StructFields) == 0 {
			return r.defineAndInclude(decl, schema.Struct{Fields: schema.EmptyFields{}})
		}
		var (
			fields schema.NamedFields
			refs   []reflect.Type
		)
		for _, f := range fs.StructFields {
			fd, err := declarationFor(f.Type, nil)
			if err != nil {
				return err
			}
			fields = append(fields, schema.Field{Name: f.Name, Declaration: fd})
			refs = append(refs, f.Type)
		}
		return r.defineAndInclude(decl, schema.Struct{Fields: fields}, refs...)
	}
	return typeErr(t, "no schema definition for %s", decl)
}

// defineUnion defines a union as an enum whose variants are the
// union's fields, ordered by discriminant.
func (r *Registry) defineUnion(t reflect.Type, decl schema.Declaration, fs *structInfo) error {
	var (
		def  schema.Enum
		refs []reflect.Type
	)
	for d := range maxVariants {
		f := fs.Variant(uint8(d))
		if f == nil {
			continue
		}
		if d != len(def.Variants) {
			return typeErr(t, "union variant %s has discriminant %d, schemas require discriminants 0 to %d", f.Name, d, len(fs.StructFields)-1)
		}
		vt := f.Type.Elem()
		vd, err := declarationFor(vt, nil)
		if err != nil {
			return err
		}
		def.Variants = append(def.Variants, schema.Variant{Name: f.Name, Declaration: vd})
		refs = append(refs, vt)
	}
	return r.defineAndInclude(decl, def, refs...)
}

// SchemaFor returns the schema container of T.
//
// The returned container is built fresh for each call, and may be
// modified by the caller.
func SchemaFor[T any]() (schema.Container, error) {
	return schemaFor(reflect.TypeFor[T]())
}

// SchemaOf returns the schema container of v's type.
func SchemaOf(v any) (schema.Container, error) {
	return schemaFor(reflect.TypeOf(v))
}

// MustSchemaFor is like [SchemaFor], but panics on error.
func MustSchemaFor[T any]() schema.Container {
	ret, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return ret
}

func schemaFor(t reflect.Type) (schema.Container, error) {
	r := NewRegistry()
	decl, err := r.Include(t)
	if err != nil {
		return schema.Container{}, err
	}
	return schema.Container{
		Declaration: decl,
		Definitions: r.Definitions(),
	}, nil
}

// Fingerprint returns the BLAKE3-256 hash of c's borsh encoding.
//
// Since both the encoding and the container are canonical, two
// programs agree on a fingerprint exactly when they agree on the
// schema, which makes fingerprints suitable for cheaply checking
// format compatibility out of band.
func Fingerprint(c schema.Container) ([32]byte, error) {
	bs, err := Marshal(c)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(bs), nil
}
