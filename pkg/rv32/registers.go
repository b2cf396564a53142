// Package rv32 holds the fixed facts about the RV32 integer register file that the
// trace pipeline needs to render register writes.
package rv32

import "fmt"

// NumRegisters is the size of the RV32I integer register file
const NumRegisters = 32

// Zero is the index of the hard-wired zero register
const Zero = 0

// abiNames follows the RISC-V calling convention, indexed by register number
var abiNames = [NumRegisters]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// ABIName returns the calling convention name of register x<index>.
// Indices outside the register file fall back to the raw "x<index>" form.
func ABIName(index int) string {
	if index < 0 || index >= NumRegisters {
		return fmt.Sprintf("x%d", index)
	}
	return abiNames[index]
}

// IsZero reports whether index names the hard-wired zero register
func IsZero(index int) bool {
	return index == Zero
}
