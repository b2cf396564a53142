package utils

import (
	"golang.org/x/exp/constraints"
)

const BitsPerByte = 8

// Returns an all ones bitmask of n bits of the given unsigned integer type
func AllOnes[T constraints.Unsigned](bits int) T {
	return (T(1) << bits) - T(1)
}
