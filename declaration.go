package borsh

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/danderson/borsh/schema"
)

// A Describer provides its own schema.
//
// DeclarationBorsh and DefineBorsh are invoked on zero values of the
// Describer. DeclarationBorsh must return a constant value, and must
// not depend on the declaration of the Describer's own type.
//
// DefineBorsh adds the definition of the type to r with
// [Registry.Define], and then calls [Registry.Include] for every type
// the definition refers to. DefineBorsh is not called for types whose
// declaration is primitive.
type Describer interface {
	DeclarationBorsh() (schema.Declaration, error)
	DefineBorsh(r *Registry) error
}

var describerType = reflect.TypeFor[Describer]()

// stackDescriber is implemented by this package's generic types, so
// that recursion through their type parameters is detected.
type stackDescriber interface {
	declarationBorsh(stack []reflect.Type) (schema.Declaration, error)
}

var stackDescriberType = reflect.TypeFor[stackDescriber]()

// DeclarationFor returns the schema declaration of T.
func DeclarationFor[T any]() (schema.Declaration, error) {
	return declarationFor(reflect.TypeFor[T](), nil)
}

// DeclarationOf returns the schema declaration of v's type.
func DeclarationOf(v any) (schema.Declaration, error) {
	return declarationFor(reflect.TypeOf(v), nil)
}

var declarations cache[schema.Declaration]

func declarationFor(t reflect.Type, stack []reflect.Type) (schema.Declaration, error) {
	if t == nil {
		return "", typeErr(t, "nil interface")
	}
	if slices.Contains(stack, t) {
		return "", fmt.Errorf("%w: declaration of %s depends on itself", schema.ErrCycle, t)
	}
	stack = append(stack, t)
	return declarations.Get(t, func(t reflect.Type) (schema.Declaration, error) {
		return newDeclaration(t, stack)
	}, nil)
}

// newDeclaration computes the declaration of t. stack is the chain of
// types whose declarations are being computed, ending with t.
func newDeclaration(t reflect.Type, stack []reflect.Type) (schema.Declaration, error) {
	if t.Kind() == reflect.Pointer {
		return declarationFor(t.Elem(), stack)
	}

	if d, ok := describerFor(t, stackDescriberType); ok {
		return d.(stackDescriber).declarationBorsh(stack)
	}
	if d, ok := describerFor(t, describerType); ok {
		return d.(Describer).DeclarationBorsh()
	}
	if hasCustomCodec(t) {
		return "", typeErr(t, "custom Marshaler or Unmarshaler must also implement Describer")
	}

	if info := enumFor(t); info != nil {
		return t.Name(), nil
	}

	if decl, ok := kindToDecl[t.Kind()]; ok {
		return decl, nil
	}

	switch t.Kind() {
	case reflect.Slice:
		es, err := declarationFor(t.Elem(), stack)
		if err != nil {
			return "", err
		}
		return "Vec<" + es + ">", nil
	case reflect.Array:
		es, err := declarationFor(t.Elem(), stack)
		if err != nil {
			return "", err
		}
		return "Array<" + es + ", " + strconv.Itoa(t.Len()) + ">", nil
	case reflect.Map:
		ks, err := declarationFor(t.Key(), stack)
		if err != nil {
			return "", err
		}
		if t.Elem() == unitType {
			return "HashSet<" + ks + ">", nil
		}
		vs, err := declarationFor(t.Elem(), stack)
		if err != nil {
			return "", err
		}
		return "HashMap<" + ks + ", " + vs + ">", nil
	case reflect.Struct:
		if t == unitType {
			return schema.Unit, nil
		}
		fs, err := getStructInfo(t)
		if err != nil {
			return "", typeErr(t, "getting struct info: %w", err)
		}
		if t.Name() == "" {
			if !fs.IsUnion && len(fs.StructFields) == 0 {
				return schema.Unit, nil
			}
			return "", typeErr(t, "anonymous structs have no declaration, use a named type")
		}
		if strings.Contains(t.Name(), "[") {
			return "", typeErr(t, "generic structs must implement Describer")
		}
		return t.Name(), nil
	case reflect.Interface:
		return "", typeErr(t, "interface is not a registered enum")
	}
	return "", typeErr(t, "no borsh mapping for type")
}

// describerFor returns the zero value of t or *t, whichever implements
// iface.
func describerFor(t, iface reflect.Type) (any, bool) {
	if t.Kind() == reflect.Interface {
		return nil, false
	}
	if t.Implements(iface) {
		return reflect.Zero(t).Interface(), true
	}
	if reflect.PointerTo(t).Implements(iface) {
		return reflect.New(t).Interface(), true
	}
	return nil, false
}

func tupleDeclaration(elems []schema.Declaration) schema.Declaration {
	return "Tuple<" + strings.Join(elems, ", ") + ">"
}
