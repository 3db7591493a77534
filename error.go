package borsh

import (
	"fmt"
	"reflect"

	"github.com/danderson/borsh/fragments"
	"github.com/danderson/borsh/schema"
)

var (
	// ErrUnexpectedEnd is returned when the input ends before a value
	// is fully decoded.
	ErrUnexpectedEnd = fragments.ErrUnexpectedEnd
	// ErrInvalidData is returned when input bytes violate an encoding
	// rule, for example an out of range discriminant, a boolean byte
	// other than 0 or 1, map keys out of canonical order, or trailing
	// bytes after a complete value.
	ErrInvalidData = fragments.ErrInvalidData
	// ErrLengthOverflow is returned when a sequence, string or map has
	// more elements than its 4-byte length prefix can count.
	ErrLengthOverflow = fragments.ErrLengthOverflow
	// ErrSizeMismatch is returned when a fixed-size array's length
	// disagrees with its declared length.
	ErrSizeMismatch = schema.ErrSizeMismatch
)

// TypeError is the error returned when a type cannot be represented
// in the borsh wire format.
type TypeError struct {
	// Type is the name of the type that caused the error.
	Type string
	// Reason is an explanation of why the type isn't representable by
	// borsh.
	Reason error
}

func (e TypeError) Error() string {
	return fmt.Sprintf("borsh cannot represent %s: %s", e.Type, e.Reason)
}

func (e TypeError) Unwrap() error {
	return e.Reason
}

func typeErr(t reflect.Type, reason string, args ...any) error {
	ts := "nil"
	if t != nil {
		ts = t.String()
	}
	return TypeError{ts, fmt.Errorf(reason, args...)}
}

func invalid(msg string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidData, fmt.Sprintf(msg, args...))
}
