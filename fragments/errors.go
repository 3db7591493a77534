package fragments

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnexpectedEnd is returned when the input ends before a
	// value is fully decoded.
	ErrUnexpectedEnd = errors.New("unexpected end of input")
	// ErrInvalidData is returned when input bytes are present but
	// violate an encoding rule.
	ErrInvalidData = errors.New("invalid data")
	// ErrLengthOverflow is returned when a sequence is too long for
	// its 4-byte length prefix.
	ErrLengthOverflow = errors.New("length overflows 4-byte prefix")
)

// MaxLen is the largest element count a length prefix can carry.
const MaxLen = math.MaxUint32

// MaxDepth is the deepest nesting of [Encoder.Nest] or [Decoder.Nest]
// calls allowed before encoding or decoding fails.
const MaxDepth = 512

func invalid(msg string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidData, fmt.Sprintf(msg, args...))
}

func errDepth() error {
	return invalid("nesting exceeds maximum depth %d", MaxDepth)
}
