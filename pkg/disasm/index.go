// Package disasm builds the address to instruction map of a test binary from an
// external disassembler listing and resolves the address where the test payload starts.
package disasm

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/Manu343726/lockstep/pkg/utils"
)

// instructionLine matches objdump -d lines such as "80000014:	00128293          	addi	t0,a0,1"
var instructionLine = regexp.MustCompile(
	`^\s*(?P<address>[0-9a-fA-F]+):\s+(?P<encoding>[0-9a-fA-F]+)\s+(?P<mnemonic>[A-Za-z_.]+)\s*(?P<operands>.*)$`)

var (
	addressGroup  = instructionLine.SubexpIndex("address")
	encodingGroup = instructionLine.SubexpIndex("encoding")
	mnemonicGroup = instructionLine.SubexpIndex("mnemonic")
	operandsGroup = instructionLine.SubexpIndex("operands")
)

// Entry is one disassembled instruction
type Entry struct {
	Address  uint64
	Encoding string
	Mnemonic string

	// Operands is the raw operand text, trailing comments included
	Operands string
}

// Index maps instruction addresses to their disassembly. It is read-only once built.
type Index struct {
	entries map[uint64]Entry
	lowest  uint64
	highest uint64
}

// NewIndex builds an index from a set of entries; later entries win on duplicate addresses
func NewIndex(entries ...Entry) *Index {
	index := &Index{entries: make(map[uint64]Entry, len(entries))}
	for _, entry := range entries {
		index.add(entry)
	}
	return index
}

func (i *Index) add(entry Entry) {
	if len(i.entries) == 0 || entry.Address < i.lowest {
		i.lowest = entry.Address
	}
	if len(i.entries) == 0 || entry.Address > i.highest {
		i.highest = entry.Address
	}
	i.entries[entry.Address] = entry
}

// ParseInstructionLine matches a single listing line. Headers, labels and blank lines yield false.
func ParseInstructionLine(line string) (Entry, bool) {
	match := instructionLine.FindStringSubmatch(line)
	if match == nil {
		return Entry{}, false
	}

	address, err := strconv.ParseUint(match[addressGroup], 16, 64)
	if err != nil {
		return Entry{}, false
	}

	return Entry{
		Address:  address,
		Encoding: strings.ToLower(match[encodingGroup]),
		Mnemonic: match[mnemonicGroup],
		Operands: strings.TrimSpace(match[operandsGroup]),
	}, true
}

// ParseIndex reads a disassembly listing. Lines that are not instructions are ignored.
func ParseIndex(r io.Reader) (*Index, error) {
	index := NewIndex()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if entry, ok := ParseInstructionLine(scanner.Text()); ok {
			index.add(entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading disassembly: %w", err)
	}
	return index, nil
}

// Lookup returns the instruction at address
func (i *Index) Lookup(address uint64) (Entry, bool) {
	entry, ok := i.entries[address]
	return entry, ok
}

// LookupHex returns the instruction at a hexadecimal address, with or without 0x prefix or zero padding
func (i *Index) LookupHex(address string) (Entry, bool) {
	value, err := ParseAddress(address)
	if err != nil {
		return Entry{}, false
	}
	return i.Lookup(value)
}

// Len returns the number of distinct instruction addresses
func (i *Index) Len() int {
	return len(i.entries)
}

// Entries returns every indexed instruction in address order
func (i *Index) Entries() []Entry {
	return utils.Map(utils.SortedKeys(i.entries), func(address uint64) Entry { return i.entries[address] })
}

// Bounds returns the lowest and highest indexed addresses. ok is false for an empty index.
func (i *Index) Bounds() (lowest, highest uint64, ok bool) {
	return i.lowest, i.highest, len(i.entries) > 0
}

// ParseAddress parses a hexadecimal address with optional 0x prefix
func ParseAddress(text string) (uint64, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	return strconv.ParseUint(text, 16, 64)
}
