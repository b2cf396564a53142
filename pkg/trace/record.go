// Package trace defines the canonical, comparison-ready trace record shared by every
// executor and its riscv-dv compatible CSV serialization.
package trace

import (
	"fmt"
	"strings"
)

// MachineMode is the privilege mode column value of every canonical record
const MachineMode = "3"

// Write is a register write performed by a retired instruction
type Write struct {
	Register int
	Value    uint64
}

// Record is one retired, architecturally visible instruction effect.
// All fields are already in canonical text form so that comparison is plain equality.
type Record struct {
	// PC is the lowercase, zero-padded hexadecimal program counter
	PC string

	// Binary is the lowercase, zero-padded hexadecimal instruction word
	Binary string

	// GPR is the formatted register write ("abi:0xvalue"), empty when there is none
	GPR string

	// Mnemonic and Operand come from the disassembly of PC
	Mnemonic string
	Operand  string

	// InstrStr is the padded mnemonic followed by the operands
	InstrStr string
}

// String renders a record for diagnostics
func (r *Record) String() string {
	if r == nil {
		return "<end of trace>"
	}
	return fmt.Sprintf("pc=%s binary=%s gpr=%s instr=%q", r.PC, r.Binary, r.GPR, strings.TrimSpace(r.InstrStr))
}

// Stream is the ordered trace of one executor run
type Stream []Record
