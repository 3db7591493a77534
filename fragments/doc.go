// Package fragments provides low-level encoding and decoding helpers
// to construct and parse borsh messages.
//
// The provided encoder and decoder are very low level, and do not
// know about the structure of the values being processed. It is the
// caller's responsibility to produce valid messages using these
// tools.
//
// You should not need to use this package at all, unless you are
// writing your own borsh.Marshaler/borsh.Unmarshaler
// implementations, in which case your code will be handed a
// [Encoder]/[Decoder] and expected to produce correct fragments with
// it.
//
// All multi-byte values are little-endian. Nothing is ever padded or
// aligned.
package fragments
