package toolchain

import (
	"debug/elf"
	"fmt"
	"os"
)

// ELFInfo summarizes the ELF header fields relevant to trace canonicalization
type ELFInfo struct {
	// XLEN is the register width implied by the ELF class (32 or 64)
	XLEN int

	// Entry is the ELF entry point
	Entry uint64
}

// InspectELF checks that path is a little-endian RISC-V ELF file and reports its class and entry point
func InspectELF(path string) (*ELFInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	elfFile, err := elf.NewFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file %s: %w", path, err)
	}

	if elfFile.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("expected RISC-V ELF file, got %v", elfFile.Machine)
	}

	if elfFile.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("expected little-endian ELF file, got %v", elfFile.Data)
	}

	info := &ELFInfo{Entry: elfFile.Entry}
	switch elfFile.Class {
	case elf.ELFCLASS32:
		info.XLEN = 32
	case elf.ELFCLASS64:
		info.XLEN = 64
	default:
		return nil, fmt.Errorf("unsupported ELF class %v", elfFile.Class)
	}

	return info, nil
}
