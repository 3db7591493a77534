package schema

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/danderson/borsh/fragments"
)

// keyed describes a sequence whose elements are the canonically
// ordered keys of a set, or key and value entries of a map.
type keyed struct {
	Key   Declaration
	Value Declaration
	// Entries is whether elements are key and value pairs.
	Entries bool
}

// keyedFor returns the key structure of the sequence decl, or nil if
// decl is not a map or set.
func (c Container) keyedFor(decl Declaration, seq Sequence) *keyed {
	switch {
	case strings.HasPrefix(decl, "HashSet<"):
		return &keyed{Key: seq.Elements}
	case strings.HasPrefix(decl, "HashMap<"):
		if ent, ok := c.Definitions[seq.Elements].(Tuple); ok && len(ent.Elements) == 2 {
			return &keyed{Key: ent.Elements[0], Value: ent.Elements[1], Entries: true}
		}
	}
	return nil
}

// keyOrder checks that successive keys of a map or set are in
// canonical order.
type keyOrder struct {
	cmp       func(a, b any) int
	n         int
	prev      any
	prevBytes []byte
}

func (c Container) newKeyOrder(key Declaration) *keyOrder {
	return &keyOrder{cmp: c.keyCmp(key, nil)}
}

// next records key, whose encoding is bs, and reports whether it
// sorts strictly after the previous key.
func (o *keyOrder) next(key any, bs []byte) bool {
	ok := o.n == 0 || o.compare(o.prev, key, o.prevBytes, bs) < 0
	o.n++
	o.prev, o.prevBytes = key, bs
	return ok
}

func (o *keyOrder) compare(a, b any, aBytes, bBytes []byte) int {
	if o.cmp != nil {
		return o.cmp(a, b)
	}
	return bytes.Compare(aBytes, bBytes)
}

// decodeKeyed decodes one element of a map or set, and checks that
// its key sorts after the previous element's.
func (c Container) decodeKeyed(d *fragments.Decoder, k *keyed, order *keyOrder) (any, error) {
	start := d.Offset()
	key, err := c.decode(d, k.Key)
	if err != nil {
		return nil, err
	}
	if !order.next(key, d.In[start:d.Offset()]) {
		return nil, fmt.Errorf("%w: key at offset %d is not in canonical order", fragments.ErrInvalidData, start)
	}
	if !k.Entries {
		return key, nil
	}
	val, err := c.decode(d, k.Value)
	if err != nil {
		return nil, err
	}
	return []any{key, val}, nil
}

// encodeKeyed encodes the elements of a map or set in canonical key
// order.
func (c Container) encodeKeyed(e *fragments.Encoder, decl Declaration, k *keyed, l []any) error {
	type entry struct {
		key []byte
		// norm is the key as Decode returns it.
		norm any
		val  any
	}
	order := c.newKeyOrder(k.Key)
	ents := make([]entry, 0, len(l))
	for _, ev := range l {
		kv, vv := ev, any(nil)
		if k.Entries {
			pair, err := asList(decl, ev)
			if err != nil {
				return err
			}
			if len(pair) != 2 {
				return fmt.Errorf("%w: %s entries have 2 elements, got %d", ErrSizeMismatch, decl, len(pair))
			}
			kv, vv = pair[0], pair[1]
		}
		var ke fragments.Encoder
		if err := c.encode(&ke, k.Key, kv); err != nil {
			return err
		}
		ent := entry{key: ke.Out, val: vv}
		if order.cmp != nil {
			kd := fragments.Decoder{In: ke.Out}
			norm, err := c.decode(&kd, k.Key)
			if err != nil {
				return err
			}
			ent.norm = norm
		}
		ents = append(ents, ent)
	}

	entCmp := func(a, b entry) int {
		return order.compare(a.norm, b.norm, a.key, b.key)
	}
	slices.SortFunc(ents, entCmp)
	for i := 1; i < len(ents); i++ {
		if entCmp(ents[i-1], ents[i]) == 0 {
			return fmt.Errorf("%w: %s has duplicate keys encoding to % x", fragments.ErrInvalidData, decl, ents[i].key)
		}
	}

	return e.Sequence(len(ents), func() error {
		for _, ent := range ents {
			e.Write(ent.key)
			if !k.Entries {
				continue
			}
			if err := c.encode(e, k.Value, ent.val); err != nil {
				return err
			}
		}
		return nil
	})
}

// keyCmp returns the natural ordering of decoded values of decl, or
// nil if keys of decl are ordered by their encoded bytes.
//
// Primitives compare by value. Arrays, tuples and structs whose
// elements all have a natural ordering compare element by element.
func (c Container) keyCmp(decl Declaration, visiting map[Declaration]bool) func(a, b any) int {
	if IsPrimitive(decl) {
		return comparePrimitive
	}
	if visiting[decl] {
		return nil
	}
	if visiting == nil {
		visiting = map[Declaration]bool{}
	}
	visiting[decl] = true
	defer delete(visiting, decl)

	elems := func(ds []Declaration) func(a, b any) int {
		cmps := make([]func(a, b any) int, len(ds))
		for i, d := range ds {
			if cmps[i] = c.keyCmp(d, visiting); cmps[i] == nil {
				return nil
			}
		}
		return func(a, b any) int {
			as, bs := elemValues(a), elemValues(b)
			for i, fn := range cmps {
				if r := fn(as[i], bs[i]); r != 0 {
					return r
				}
			}
			return 0
		}
	}

	switch def := c.Definitions[decl].(type) {
	case Array:
		return elems(slices.Repeat([]Declaration{def.Elements}, int(def.Length)))
	case Tuple:
		return elems(def.Elements)
	case Struct:
		return elems(def.References())
	default:
		return nil
	}
}

// elemValues returns the elements of a decoded array, tuple or
// struct.
func elemValues(v any) []any {
	r, ok := v.(Record)
	if !ok {
		l, _ := v.([]any)
		return l
	}
	ret := make([]any, len(r))
	for i, f := range r {
		ret[i] = f.Value
	}
	return ret
}

// comparePrimitive compares two decoded values of the same primitive
// declaration.
func comparePrimitive(a, b any) int {
	switch a := a.(type) {
	case bool:
		b := b.(bool)
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		default:
			return 1
		}
	case uint8:
		return cmp.Compare(a, b.(uint8))
	case uint16:
		return cmp.Compare(a, b.(uint16))
	case uint32:
		return cmp.Compare(a, b.(uint32))
	case uint64:
		return cmp.Compare(a, b.(uint64))
	case int8:
		return cmp.Compare(a, b.(int8))
	case int16:
		return cmp.Compare(a, b.(int16))
	case int32:
		return cmp.Compare(a, b.(int32))
	case int64:
		return cmp.Compare(a, b.(int64))
	case float32:
		return cmp.Compare(a, b.(float32))
	case float64:
		return cmp.Compare(a, b.(float64))
	case string:
		return cmp.Compare(a, b.(string))
	default:
		// Unit values are all equal.
		return 0
	}
}
