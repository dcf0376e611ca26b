// Package base62 implements a bijective mapping between non-negative
// integers and strings over the 62-character alphabet of digits,
// lowercase and uppercase letters. It backs generated short codes:
// encoding a unique row id yields a unique code without retries.
package base62

import (
	"fmt"
	"strings"
)

// Alphabet orders symbols by digit value: '0' is 0, 'z' is 35, 'Z' is 61.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = int64(len(Alphabet))

// Encode converts a non-negative integer into its base62 representation,
// most-significant digit first, without padding. Encode(0) returns "0".
// Negative input is a programming error and panics.
func Encode(n int64) string {
	if n < 0 {
		panic(fmt.Sprintf("base62: cannot encode negative number %d", n))
	}
	if n == 0 {
		return string(Alphabet[0])
	}

	// int64 max needs at most 11 base62 digits.
	var buf [11]byte
	i := len(buf)

	for n > 0 {
		i--
		buf[i] = Alphabet[n%base]
		n /= base
	}

	return string(buf[i:])
}

// Decode is the inverse of Encode. It fails on an empty string, on bytes
// outside the alphabet and on values overflowing int64.
func Decode(s string) (int64, error) {
	const op = "base62.Decode"

	if s == "" {
		return 0, fmt.Errorf("%s: empty string", op)
	}

	var n int64
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(Alphabet, s[i])
		if d < 0 {
			return 0, fmt.Errorf("%s: invalid character %q at position %d", op, s[i], i)
		}

		if n > (1<<63-1-int64(d))/base {
			return 0, fmt.Errorf("%s: value overflows int64", op)
		}

		n = n*base + int64(d)
	}

	return n, nil
}
