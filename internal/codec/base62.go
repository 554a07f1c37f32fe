// Package codec implements the base62 mapping between link indices and
// public identifiers.
package codec

import (
	"errors"
	"math"
	"strings"
)

// ErrInvalidIdentifier is returned when a public identifier cannot be
// decoded back to a link index.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// alphabet is the radix digit-to-character mapping. The ordering is part of
// the wire format: changing it would break every previously issued link.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = uint64(len(alphabet))

// Encode converts a link index to its public identifier.
func Encode(n uint64) string {
	if n == 0 {
		return "0"
	}

	// uint64 max needs 11 base62 digits
	var buf [11]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = alphabet[n%base]
		n /= base
	}
	return string(buf[i:])
}

// Decode converts a public identifier back to its link index. Identifiers
// containing characters outside the alphabet, empty strings, and values
// that overflow uint64 fail with ErrInvalidIdentifier.
func Decode(s string) (uint64, error) {
	if s == "" {
		return 0, ErrInvalidIdentifier
	}

	var n uint64
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(alphabet, s[i])
		if d < 0 {
			return 0, ErrInvalidIdentifier
		}
		if n > (math.MaxUint64-uint64(d))/base {
			return 0, ErrInvalidIdentifier
		}
		n = n*base + uint64(d)
	}
	return n, nil
}
