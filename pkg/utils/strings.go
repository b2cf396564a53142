package utils

import (
	"strconv"
	"strings"
)

// Formats an uint value into a fixed width binary string of n bits, most significant bit first.
// Values wider than n bits are truncated to their n least significant bits.
func FormatUintBinary(value uint64, bits int) string {
	if bits < 64 {
		value &= AllOnes[uint64](bits)
	}
	return leftPad(strconv.FormatUint(value, 2), bits, '0')
}

// Formats an uint value into a fixed width lowercase hex string of n digits, without prefix.
// Values that need more than n digits are printed in full.
func FormatUintHex(value uint64, digits int) string {
	return leftPad(strconv.FormatUint(value, 16), digits, '0')
}

// Left justifies s into a column of the given width, padding with spaces
func PadRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func leftPad(s string, width int, fill byte) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(string(fill), width-len(s)) + s
}
