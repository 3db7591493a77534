package fragments_test

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/danderson/borsh/fragments"
)

func TestEncoder(t *testing.T) {
	tests := []struct {
		name string
		in   func(*fragments.Encoder)
		want []byte
	}{
		{
			"raw bytes",
			func(e *fragments.Encoder) {
				e.Write([]byte{1, 2, 3})
			},
			[]byte{0x01, 0x02, 0x03},
		},

		{
			"byte sequence",
			func(e *fragments.Encoder) {
				e.Bytes([]byte{1, 2, 3})
			},
			[]byte{
				0x03, 0x00, 0x00, 0x00, // length
				0x01, 0x02, 0x03, // val
			},
		},

		{
			"string",
			func(e *fragments.Encoder) {
				e.String("foo")
			},
			[]byte{
				0x03, 0x00, 0x00, 0x00, // length
				0x66, 0x6f, 0x6f, // val
			},
		},

		{
			"multibyte string counts bytes",
			func(e *fragments.Encoder) {
				e.String("é")
			},
			[]byte{
				0x02, 0x00, 0x00, 0x00, // length
				0xc3, 0xa9,
			},
		},

		{
			"uints",
			func(e *fragments.Encoder) {
				e.Uint8(42)
				e.Uint16(66)
				e.Uint32(42)
				e.Uint64(66)
			},
			[]byte{
				0x2a,
				0x42, 0x00,
				0x2a, 0x00, 0x00, 0x00,
				0x42, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			},
		},

		{
			"no padding",
			func(e *fragments.Encoder) {
				e.Uint8(1)
				e.Uint64(2)
				e.Uint8(3)
				e.Uint32(4)
			},
			[]byte{
				0x01,
				0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
				0x03,
				0x04, 0x00, 0x00, 0x00,
			},
		},

		{
			"ints",
			func(e *fragments.Encoder) {
				e.Int8(-1)
				e.Int16(-2)
				e.Int32(-3)
				e.Int64(-4)
			},
			[]byte{
				0xff,
				0xfe, 0xff,
				0xfd, 0xff, 0xff, 0xff,
				0xfc, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			},
		},

		{
			"floats",
			func(e *fragments.Encoder) {
				e.Float32(1)
				e.Float64(-2)
			},
			[]byte{
				0x00, 0x00, 0x80, 0x3f,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xc0,
			},
		},

		{
			"bools",
			func(e *fragments.Encoder) {
				e.Bool(true)
				e.Bool(false)
			},
			[]byte{0x01, 0x00},
		},

		{
			"sequence",
			func(e *fragments.Encoder) {
				e.Sequence(2, func() error {
					e.Uint16(1)
					e.Uint16(2)
					return nil
				})
			},
			[]byte{
				0x02, 0x00, 0x00, 0x00, // count
				0x01, 0x00,
				0x02, 0x00,
			},
		},

		{
			"empty sequence",
			func(e *fragments.Encoder) {
				e.Sequence(0, func() error { return nil })
			},
			[]byte{
				0x00, 0x00, 0x00, 0x00, // count
			},
		},

		{
			"mapper",
			func(e *fragments.Encoder) {
				e.Mapper = func(t reflect.Type) (fragments.EncoderFunc, error) {
					return func(e *fragments.Encoder, v reflect.Value) error {
						e.Write([]byte(v.Type().String()))
						return nil
					}, nil
				}
				e.Value("foo")
				e.Value(uint16(42))
			},
			[]byte{
				0x73, 0x74, 0x72, 0x69, 0x6e, 0x67, // "string"
				0x75, 0x69, 0x6e, 0x74, 0x31, 0x36, // "uint16"
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var e fragments.Encoder
			tc.in(&e)
			if got := e.Out; !bytes.Equal(got, tc.want) {
				t.Errorf("incorrect encode:\n  got: % x\n want: % x", got, tc.want)
			} else if testing.Verbose() {
				t.Logf("encoder got: % x", got)
			}
		})
	}
}

func TestEncoderLenOverflow(t *testing.T) {
	var e fragments.Encoder
	if err := e.Len(-1); !errors.Is(err, fragments.ErrLengthOverflow) {
		t.Errorf("Len(-1) got err %v, want ErrLengthOverflow", err)
	}
	if math.MaxInt > math.MaxUint32 {
		n := int(uint64(math.MaxUint32) + 1)
		if err := e.Len(n); !errors.Is(err, fragments.ErrLengthOverflow) {
			t.Errorf("Len(%d) got err %v, want ErrLengthOverflow", n, err)
		}
		if err := e.Sequence(n, func() error {
			t.Fatal("Sequence called elements func despite overflow")
			return nil
		}); !errors.Is(err, fragments.ErrLengthOverflow) {
			t.Errorf("Sequence(%d) got err %v, want ErrLengthOverflow", n, err)
		}
	}
	if len(e.Out) != 0 {
		t.Errorf("overflowing Len wrote % x, want nothing", e.Out)
	}
}

func TestEncoderNest(t *testing.T) {
	var e fragments.Encoder
	var recurse func(int) error
	recurse = func(n int) error {
		if n == 0 {
			return nil
		}
		return e.Nest(func() error { return recurse(n - 1) })
	}
	if err := recurse(fragments.MaxDepth); err != nil {
		t.Fatalf("nesting %d deep got err: %v", fragments.MaxDepth, err)
	}
	if err := recurse(fragments.MaxDepth + 1); !errors.Is(err, fragments.ErrInvalidData) {
		t.Fatalf("nesting %d deep got err %v, want ErrInvalidData", fragments.MaxDepth+1, err)
	}
	// Depth unwinds after failure.
	if err := recurse(1); err != nil {
		t.Fatalf("nesting after failure got err: %v", err)
	}
}
