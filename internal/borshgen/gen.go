// Package borshgen generates Go type declarations from a borsh schema.
//
// The generated types encode to the same bytes as the types that
// produced the schema. They are not guaranteed to produce an identical
// schema: enum variants that have no named Go type get a synthesized
// wrapper type, whose declaration is the wrapper's name.
package borshgen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"strconv"
	"strings"
	"unicode"

	"github.com/creachadair/mds/mapset"
	"github.com/danderson/borsh/schema"
)

// ErrUnsupported is returned when a schema uses a shape that has no
// Go equivalent.
var ErrUnsupported = errors.New("unsupported schema shape")

var primitiveTypes = map[schema.Declaration]string{
	"bool":      "bool",
	"u8":        "uint8",
	"u16":       "uint16",
	"u32":       "uint32",
	"u64":       "uint64",
	"i8":        "int8",
	"i16":       "int16",
	"i32":       "int32",
	"i64":       "int64",
	"f32":       "float32",
	"f64":       "float64",
	"string":    "string",
	schema.Unit: "struct{}",
}

type generator struct {
	c         schema.Container
	out       bytes.Buffer
	inits     bytes.Buffer
	names     mapset.Set[string]
	usesBorsh bool
}

// Types returns the Go source of a file in package pkg, which declares
// a type for every named definition in c.
func Types(c schema.Container, pkg string) (string, error) {
	if !token.IsIdentifier(pkg) {
		return "", fmt.Errorf("invalid package name %q", pkg)
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	g := generator{c: c, names: mapset.New[string]()}
	var body bytes.Buffer
	if err := g.Container(); err != nil {
		return "", err
	}
	body.WriteString("// Code generated by borsh generate. DO NOT EDIT.\n\n")
	fmt.Fprintf(&body, "package %s\n\n", pkg)
	if g.usesBorsh {
		body.WriteString("import \"github.com/danderson/borsh\"\n\n")
	}
	body.Write(g.out.Bytes())

	ret, err := format.Source(body.Bytes())
	if err != nil {
		return body.String(), err
	}
	return string(ret), nil
}

func (g *generator) s(s string) {
	g.out.WriteString(s)
}

func (g *generator) f(msg string, args ...any) {
	fmt.Fprintf(&g.out, msg, args...)
}

func (g *generator) init(msg string, args ...any) {
	fmt.Fprintf(&g.inits, msg, args...)
}

func (g *generator) Container() error {
	decls := g.c.Definitions.Declarations()
	for _, decl := range decls {
		if !isNamed(decl) {
			continue
		}
		name := publicIdentifier(decl)
		if g.names.Has(name) {
			return fmt.Errorf("%w: declarations %q and another both map to Go type %s", ErrUnsupported, decl, name)
		}
		g.names.Add(name)
	}

	for _, decl := range decls {
		if !isNamed(decl) {
			continue
		}
		var err error
		switch def := g.c.Definitions[decl].(type) {
		case schema.Struct:
			err = g.Struct(decl, def)
		case schema.Enum:
			err = g.Enum(decl, def)
		case schema.Tuple:
			err = g.Struct(decl, schema.Struct{Fields: schema.UnnamedFields(def.Elements)})
		case schema.Sequence, schema.Array:
			err = g.Alias(decl)
		default:
			err = fmt.Errorf("%w: %q has unknown definition %T", ErrUnsupported, decl, def)
		}
		if err != nil {
			return err
		}
	}

	if inits := g.inits.String(); len(inits) > 0 {
		g.f(`func init() {
%s
}
`, strings.TrimSpace(inits))
	}
	return nil
}

// Struct writes the Go struct for decl.
func (g *generator) Struct(decl schema.Declaration, def schema.Struct) error {
	name := publicIdentifier(decl)
	var (
		names []string
		types []string
	)
	switch fs := def.Fields.(type) {
	case schema.NamedFields:
		for _, f := range fs {
			names = append(names, publicIdentifier(f.Name))
			types = append(types, f.Declaration)
		}
	case schema.UnnamedFields:
		for i, d := range fs {
			names = append(names, "V"+strconv.Itoa(i))
			types = append(types, d)
		}
	}
	if len(names) == 0 {
		g.f("// %s is the borsh type %q.\ntype %s struct{}\n\n", name, decl, name)
		return nil
	}

	seen := mapset.New[string]()
	g.f("// %s is the borsh type %q.\ntype %s struct {\n", name, decl, name)
	for i, fname := range names {
		if !token.IsIdentifier(fname) || !token.IsExported(fname) {
			return fmt.Errorf("%w: field %q of %q is not a valid Go identifier", ErrUnsupported, fname, decl)
		}
		if seen.Has(fname) {
			return fmt.Errorf("%w: %q has two fields named %s", ErrUnsupported, decl, fname)
		}
		seen.Add(fname)
		typ, err := g.goType(types[i], decl)
		if err != nil {
			return fmt.Errorf("field %s of %q: %w", fname, decl, err)
		}
		g.f("%s %s\n", fname, typ)
	}
	g.s("}\n\n")
	return nil
}

// Enum writes an interface for decl, a type for each of its variants,
// and the registration that ties them together.
func (g *generator) Enum(decl schema.Declaration, def schema.Enum) error {
	if len(def.Variants) == 0 {
		return fmt.Errorf("%w: enum %q has no variants", ErrUnsupported, decl)
	}
	name := publicIdentifier(decl)
	marker := "is" + name
	g.f("// %s is the borsh enum %q.\ntype %s interface {\n%s()\n}\n\n", name, decl, name, marker)

	var (
		used  = mapset.New[string]()
		names = mapset.New[string]()
		regs  []string
	)
	for _, v := range def.Variants {
		if names.Has(v.Name) {
			return fmt.Errorf("%w: enum %q has two variants named %q", ErrUnsupported, decl, v.Name)
		}
		names.Add(v.Name)

		vt, err := g.variantType(decl, v, used)
		if err != nil {
			return err
		}
		used.Add(vt)
		g.f("func (%s) %s() {}\n\n", vt, marker)
		regs = append(regs, fmt.Sprintf("borsh.Variant[%s](%q)", vt, v.Name))
	}
	g.usesBorsh = true
	g.init("borsh.RegisterEnum[%s](\n%s,\n)\n", name, strings.Join(regs, ",\n"))
	return nil
}

// variantType returns the Go type for variant v of enum decl, writing
// a wrapper type if the variant's payload has no distinct named type.
func (g *generator) variantType(decl schema.Declaration, v schema.Variant, used mapset.Set[string]) (string, error) {
	if isNamed(v.Declaration) {
		switch g.c.Definitions[v.Declaration].(type) {
		case schema.Struct, schema.Tuple:
			if n := publicIdentifier(v.Declaration); !used.Has(n) {
				return n, nil
			}
		}
	}

	wrapper := publicIdentifier(decl) + publicIdentifier(v.Name)
	if !token.IsIdentifier(wrapper) {
		return "", fmt.Errorf("%w: variant %q of %q is not a valid Go identifier", ErrUnsupported, v.Name, decl)
	}
	if g.names.Has(wrapper) {
		return "", fmt.Errorf("%w: variant type %s of %q collides with another type", ErrUnsupported, wrapper, decl)
	}
	g.names.Add(wrapper)

	if v.Declaration == schema.Unit {
		g.f("type %s struct{}\n\n", wrapper)
		return wrapper, nil
	}
	typ, err := g.goType(v.Declaration, "")
	if err != nil {
		return "", fmt.Errorf("variant %s of %q: %w", v.Name, decl, err)
	}
	if g.isInterface(v.Declaration) {
		// Enum variants must be concrete types.
		g.f("type %s struct {\nV %s\n}\n\n", wrapper, typ)
	} else {
		g.f("type %s %s\n\n", wrapper, typ)
	}
	return wrapper, nil
}

// Alias writes a named slice or array type for decl.
func (g *generator) Alias(decl schema.Declaration) error {
	name := publicIdentifier(decl)
	typ, err := g.literalType(decl, decl)
	if err != nil {
		return err
	}
	g.f("// %s is the borsh type %q.\ntype %s %s\n\n", name, decl, name, typ)
	return nil
}

// goType returns the Go type expression for decl, as used inside the
// named type from.
func (g *generator) goType(decl, from schema.Declaration) (string, error) {
	if t, ok := primitiveTypes[decl]; ok {
		return t, nil
	}
	if isNamed(decl) {
		if _, err := g.c.Lookup(decl); err != nil {
			return "", err
		}
		name := publicIdentifier(decl)
		if from != "" && g.isStruct(decl) && g.reaches(decl, from, mapset.New[schema.Declaration]()) {
			return "*" + name, nil
		}
		return name, nil
	}
	return g.literalType(decl, from)
}

// literalType returns the unnamed Go type expression for decl.
func (g *generator) literalType(decl, from schema.Declaration) (string, error) {
	def, err := g.c.Lookup(decl)
	if err != nil {
		return "", err
	}
	switch def := def.(type) {
	case schema.Sequence:
		switch {
		case strings.HasPrefix(decl, "HashSet<"):
			k, err := g.keyType(def.Elements)
			if err != nil {
				return "", err
			}
			return "map[" + k + "]struct{}", nil
		case strings.HasPrefix(decl, "HashMap<"):
			entry, err := g.c.Lookup(def.Elements)
			if err != nil {
				return "", err
			}
			tup, ok := entry.(schema.Tuple)
			if !ok || len(tup.Elements) != 2 {
				return "", fmt.Errorf("%w: map %q has entries %v, want a pair", ErrUnsupported, decl, entry)
			}
			k, err := g.keyType(tup.Elements[0])
			if err != nil {
				return "", err
			}
			v, err := g.goType(tup.Elements[1], "")
			if err != nil {
				return "", err
			}
			return "map[" + k + "]" + v, nil
		default:
			e, err := g.goType(def.Elements, "")
			if err != nil {
				return "", err
			}
			return "[]" + e, nil
		}
	case schema.Array:
		e, err := g.goType(def.Elements, from)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[%d]%s", def.Length, e), nil
	case schema.Tuple:
		if n := len(def.Elements); n < 2 || n > 4 {
			return "", fmt.Errorf("%w: %q has %d elements, Go tuples have 2 to 4", ErrUnsupported, decl, n)
		}
		elems, err := g.goTypes(def.Elements, from)
		if err != nil {
			return "", err
		}
		g.usesBorsh = true
		return fmt.Sprintf("borsh.Tuple%d[%s]", len(elems), strings.Join(elems, ", ")), nil
	case schema.Enum:
		switch {
		case strings.HasPrefix(decl, "Option<") && hasVariants(def, "None", "Some") && def.Variants[0].Declaration == schema.Unit:
			elems, err := g.goTypes([]schema.Declaration{def.Variants[1].Declaration}, from)
			if err != nil {
				return "", err
			}
			g.usesBorsh = true
			return "borsh.Option[" + elems[0] + "]", nil
		case strings.HasPrefix(decl, "Result<") && hasVariants(def, "Ok", "Err"):
			elems, err := g.goTypes([]schema.Declaration{def.Variants[0].Declaration, def.Variants[1].Declaration}, from)
			if err != nil {
				return "", err
			}
			g.usesBorsh = true
			return "borsh.Result[" + strings.Join(elems, ", ") + "]", nil
		}
	}
	return "", fmt.Errorf("%w: no Go type for %q defined as %v", ErrUnsupported, decl, def)
}

func (g *generator) goTypes(decls []schema.Declaration, from schema.Declaration) ([]string, error) {
	ret := make([]string, 0, len(decls))
	for _, d := range decls {
		t, err := g.goType(d, from)
		if err != nil {
			return nil, err
		}
		ret = append(ret, t)
	}
	return ret, nil
}

func (g *generator) keyType(decl schema.Declaration) (string, error) {
	k, err := g.goType(decl, "")
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(k, "[]") || strings.HasPrefix(k, "map[") {
		return "", fmt.Errorf("%w: %q cannot be a map key", ErrUnsupported, decl)
	}
	return k, nil
}

func (g *generator) isStruct(decl schema.Declaration) bool {
	switch g.c.Definitions[decl].(type) {
	case schema.Struct, schema.Tuple:
		return true
	}
	return false
}

func (g *generator) isInterface(decl schema.Declaration) bool {
	_, ok := g.c.Definitions[decl].(schema.Enum)
	return ok && isNamed(decl)
}

// reaches reports whether a Go value of type decl contains a value of
// type target without indirection. Slices, maps and interfaces break
// the chain.
func (g *generator) reaches(decl, target schema.Declaration, seen mapset.Set[schema.Declaration]) bool {
	if decl == target {
		return true
	}
	if seen.Has(decl) || schema.IsPrimitive(decl) {
		return false
	}
	seen.Add(decl)
	switch def := g.c.Definitions[decl].(type) {
	case schema.Sequence:
		return false
	case schema.Enum:
		if g.isInterface(decl) {
			return false
		}
		for _, ref := range def.References() {
			if g.reaches(ref, target, seen) {
				return true
			}
		}
	case schema.Definition:
		for _, ref := range def.References() {
			if g.reaches(ref, target, seen) {
				return true
			}
		}
	}
	return false
}

func hasVariants(e schema.Enum, a, b string) bool {
	return len(e.Variants) == 2 && e.Variants[0].Name == a && e.Variants[1].Name == b
}

// isNamed reports whether decl names a user type, rather than a
// primitive or a generic built-in like "Vec<u8>".
func isNamed(decl schema.Declaration) bool {
	return !schema.IsPrimitive(decl) && !strings.ContainsAny(decl, "<>, ")
}

func identifier(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	fs := strings.Split(s, "_")
	for i := range fs {
		if i == 0 {
			fst := true
			fs[i] = strings.Map(func(r rune) rune {
				if fst {
					fst = false
					return unicode.ToLower(r)
				}
				return r
			}, fs[i])
		} else {
			switch fs[i] {
			case "id":
				fs[i] = "ID"
			default:
				fs[i] = title(fs[i])
			}
		}
	}
	return strings.Join(fs, "")
}

func publicIdentifier(s string) string {
	return title(identifier(s))
}

func title(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
