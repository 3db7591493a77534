package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrConflict is returned when two structurally different
	// definitions are recorded under the same declaration. It
	// indicates that two distinct types were given the same name.
	ErrConflict = errors.New("conflicting schema definitions")
	// ErrCycle is returned when collecting a schema does not
	// terminate within the recursion budget.
	ErrCycle = errors.New("schema recursion does not terminate")
	// ErrUndefined is returned when a schema refers to a
	// declaration it doesn't define.
	ErrUndefined = errors.New("undefined declaration")
	// ErrSizeMismatch is returned when a fixed-size array's length
	// disagrees with its declared length.
	ErrSizeMismatch = errors.New("array size mismatch")
)

// ConflictError is the error returned when a declaration is given
// two different definitions.
type ConflictError struct {
	Declaration Declaration
	Existing    Definition
	New         Definition
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("redefining %q as %v, already defined as %v", e.Declaration, e.New, e.Existing)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// Definitions maps declarations to their definitions.
type Definitions map[Declaration]Definition

// Add records def as the definition of decl, and reports whether
// decl was not previously defined.
//
// If decl is already defined as a structurally equal definition, Add
// returns false. If it is defined differently, Add returns a
// [*ConflictError].
func (ds Definitions) Add(decl Declaration, def Definition) (bool, error) {
	if prev, ok := ds[decl]; ok {
		if !Equal(prev, def) {
			return false, &ConflictError{decl, prev, def}
		}
		return false, nil
	}
	ds[decl] = def
	return true, nil
}

// Declarations returns the defined declarations in sorted order.
func (ds Definitions) Declarations() []Declaration {
	return slices.Sorted(maps.Keys(ds))
}

// Container is the complete description of one type: its declaration,
// plus the definitions of every type it transitively contains.
type Container struct {
	Declaration Declaration
	Definitions Definitions
}

// Equal reports whether c and other describe the same schema.
func (c Container) Equal(other Container) bool {
	if c.Declaration != other.Declaration || len(c.Definitions) != len(other.Definitions) {
		return false
	}
	for decl, def := range c.Definitions {
		od, ok := other.Definitions[decl]
		if !ok || !Equal(def, od) {
			return false
		}
	}
	return true
}

// Validate checks that every declaration reachable from the root is
// either primitive or defined.
func (c Container) Validate() error {
	seen := map[Declaration]bool{}
	var walk func(d Declaration, from Declaration) error
	walk = func(d Declaration, from Declaration) error {
		if IsPrimitive(d) || seen[d] {
			return nil
		}
		seen[d] = true
		def, ok := c.Definitions[d]
		if !ok {
			if from == "" {
				return fmt.Errorf("%w: root %q", ErrUndefined, d)
			}
			return fmt.Errorf("%w: %q (referenced by %q)", ErrUndefined, d, from)
		}
		for _, ref := range def.References() {
			if err := walk(ref, d); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(c.Declaration, "")
}

// Lookup returns the definition of d. It returns an error wrapping
// [ErrUndefined] if d is neither primitive nor defined, and a nil
// Definition if d is primitive.
func (c Container) Lookup(d Declaration) (Definition, error) {
	if IsPrimitive(d) {
		return nil, nil
	}
	def, ok := c.Definitions[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUndefined, d)
	}
	return def, nil
}
