package disasm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Manu343726/lockstep/pkg/toolchain"
)

// Options configures how a program's disassembly is loaded
type Options struct {
	// EntrySymbol is the symbol marking the start of the test payload
	EntrySymbol string

	// ResetAddress is used as entry address when EntrySymbol is not in the symbol table
	ResetAddress uint64

	// Logger receives non-fatal warnings. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultOptions returns the conventional entry symbol and reset address
func DefaultOptions() *Options {
	return &Options{
		EntrySymbol:  DefaultEntrySymbol,
		ResetAddress: DefaultResetAddress,
	}
}

// Program is the disassembly of one test binary plus its resolved entry address
type Program struct {
	Index *Index
	Entry uint64

	// EntryFromSymbol is false when Entry is the fallback reset address
	EntryFromSymbol bool
}

// Load disassembles elfPath and resolves its entry address using the given toolchain.
// Failing to run objdump is fatal; a symbol table that cannot be produced or lacks the
// entry symbol only downgrades the entry address to the reset address.
func Load(ctx context.Context, tc *toolchain.Toolchain, elfPath string, opts *Options) (*Program, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	listing, err := tc.Disassemble(ctx, elfPath)
	if err != nil {
		return nil, err
	}

	index, err := ParseIndex(bytes.NewReader(listing))
	if err != nil {
		return nil, err
	}
	logger.Debug("disassembly indexed", "elf", elfPath, "instructions", index.Len())

	symbols, nmErr := tc.Symbols(ctx, elfPath)
	if nmErr != nil {
		logger.Warn("symbol table unavailable, using reset address as entry",
			"elf", elfPath, "reset", fmt.Sprintf("%#x", opts.ResetAddress), "error", nmErr)
		symbols = nil
	}

	program, err := Resolve(index, bytes.NewReader(symbols), opts.EntrySymbol, opts.ResetAddress)
	if err != nil {
		return nil, err
	}
	// A stripped ELF makes nm succeed with an empty listing
	if !program.EntryFromSymbol && nmErr == nil && opts.EntrySymbol != "" {
		logger.Warn("entry symbol not found, using reset address as entry",
			"elf", elfPath, "symbol", opts.EntrySymbol, "reset", fmt.Sprintf("%#x", opts.ResetAddress))
	}

	for _, warning := range program.LayoutWarnings() {
		logger.Warn(warning, "elf", elfPath, "entry", fmt.Sprintf("%#x", program.Entry))
	}

	return program, nil
}

// Resolve pairs an index with the entry address found in a symbol listing, falling back to resetAddress
func Resolve(index *Index, symbols io.Reader, entrySymbol string, resetAddress uint64) (*Program, error) {
	program := &Program{Index: index, Entry: resetAddress}

	if symbols == nil || entrySymbol == "" {
		return program, nil
	}

	address, found, err := FindSymbol(symbols, entrySymbol)
	if err != nil {
		return nil, err
	}
	if found {
		program.Entry = address
		program.EntryFromSymbol = true
	}
	return program, nil
}

// LayoutWarnings reports memory layouts for which the "pc >= entry" start-of-test gate is
// unreliable: an entry outside the disassembled code, or code placed below the entry
// that the gate would silently exclude.
func (p *Program) LayoutWarnings() []string {
	lowest, highest, ok := p.Index.Bounds()
	if !ok {
		return []string{"disassembly is empty, no trace record can be enriched"}
	}

	var warnings []string
	if _, found := p.Index.Lookup(p.Entry); !found {
		warnings = append(warnings, "entry address is not an instruction address of the binary")
	}
	if p.Entry > highest {
		warnings = append(warnings, "entry address is above every instruction, all records will be gated out")
	}
	if lowest < p.Entry {
		warnings = append(warnings, fmt.Sprintf("code below the entry address (from %#x) is treated as bootstrap", lowest))
	}
	return warnings
}
