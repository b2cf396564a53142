package disasm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultResetAddress is where RISC-V test harnesses conventionally place the payload
const DefaultResetAddress uint64 = 0x80000000

// DefaultEntrySymbol labels the first instruction of a generated test
const DefaultEntrySymbol = "_start"

// FindSymbol scans a symbol listing (nm, or objdump -t) for the first line that contains
// symbol as a whitespace delimited token and parses that line's first field as its address.
func FindSymbol(r io.Reader, symbol string) (address uint64, found bool, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !containsToken(fields[1:], symbol) {
			continue
		}

		address, err := ParseAddress(fields[0])
		if err != nil {
			continue
		}
		return address, true, nil
	}

	if err := scanner.Err(); err != nil {
		return 0, false, fmt.Errorf("error reading symbol table: %w", err)
	}
	return 0, false, nil
}

func containsToken(fields []string, token string) bool {
	for _, field := range fields {
		if field == token {
			return true
		}
	}
	return false
}
