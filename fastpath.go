package borsh

import (
	"reflect"
	"unsafe"

	"github.com/danderson/borsh/fragments"
	"golang.org/x/sys/cpu"
)

// canBulkCopy reports whether slices of t can be copied to and from
// the wire as raw memory.
//
// This is true on little-endian hosts for fixed-width numbers whose
// in-memory size matches their wire size. bool is excluded because
// decoding must reject bytes other than 0 and 1, and int and uint
// because their in-memory size depends on the platform.
func canBulkCopy(t reflect.Type) bool {
	if cpu.IsBigEndian || hasCustomCodec(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Uint8, reflect.Int8,
		reflect.Uint16, reflect.Int16,
		reflect.Uint32, reflect.Int32, reflect.Float32,
		reflect.Uint64, reflect.Int64, reflect.Float64:
		return true
	default:
		return false
	}
}

// bulkEncode writes the elements of slice v as raw memory.
func bulkEncode(e *fragments.Encoder, v reflect.Value) {
	n := v.Len() * int(v.Type().Elem().Size())
	if n == 0 {
		return
	}
	e.Write(unsafe.Slice((*byte)(v.UnsafePointer()), n))
}

// bulkDecode reads n elements of slice type t as raw memory.
func bulkDecode(d *fragments.Decoder, t reflect.Type, n int) (reflect.Value, error) {
	sz := int(t.Elem().Size())
	bs, err := d.Read(n * sz)
	if err != nil {
		return reflect.Value{}, err
	}
	ret := reflect.MakeSlice(t, n, n)
	if n > 0 {
		copy(unsafe.Slice((*byte)(ret.UnsafePointer()), n*sz), bs)
	}
	return ret, nil
}
