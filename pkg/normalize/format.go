package normalize

import (
	"strings"

	"github.com/Manu343726/lockstep/pkg/rv32"
	"github.com/Manu343726/lockstep/pkg/trace"
	"github.com/Manu343726/lockstep/pkg/utils"
)

// MnemonicColumn is the width the mnemonic is left-justified into in the instruction string
const MnemonicColumn = 7

// InstructionWordDigits is the width of the canonical instruction word
const InstructionWordDigits = 8

// FormatOperands drops a trailing "#" comment and leaves exactly one space after every comma
func FormatOperands(operands string) string {
	if i := strings.Index(operands, "#"); i >= 0 {
		operands = operands[:i]
	}
	operands = strings.TrimSpace(operands)
	if operands == "" {
		return ""
	}

	parts := strings.Split(operands, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}

// FormatInstruction renders the padded mnemonic followed by one space and the already formatted operands
func FormatInstruction(mnemonic, operands string) string {
	if mnemonic == "" {
		return ""
	}
	return utils.PadRight(mnemonic, MnemonicColumn) + " " + operands
}

// FormatWrite renders a register write as "abi:0xvalue", the value truncated and zero-padded to xlen bits
func FormatWrite(write trace.Write, xlen int) string {
	value := write.Value
	if xlen < 64 {
		value &= utils.AllOnes[uint64](xlen)
	}
	return rv32.ABIName(write.Register) + ":0x" + utils.FormatUintHex(value, xlen/4)
}

// FormatPC renders a program counter as xlen/4 lowercase hex digits
func FormatPC(pc uint64, xlen int) string {
	return utils.FormatUintHex(pc, xlen/4)
}

// FormatBinary renders an instruction word as 8 lowercase hex digits
func FormatBinary(binary uint64) string {
	return utils.FormatUintHex(binary, InstructionWordDigits)
}
