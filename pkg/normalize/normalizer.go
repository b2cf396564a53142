// Package normalize turns raw executor commit logs into canonical trace streams.
//
// Each executor describes a retired instruction with its own text dialect; the
// normalizer applies the same filters and the same formatting to every dialect
// so that two logs of the same architectural execution produce identical streams:
//
//   - records are dropped until the start-of-test gate opens on the entry address
//   - records without a register write, or writing x0, are dropped
//   - the remaining records are enriched with the disassembly of their PC
package normalize

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Manu343726/lockstep/pkg/disasm"
	"github.com/Manu343726/lockstep/pkg/rv32"
	"github.com/Manu343726/lockstep/pkg/trace"
	"github.com/Manu343726/lockstep/pkg/utils"
)

// GateMode selects when the start-of-test gate opens
type GateMode string

const (
	// GateAtOrAbove opens on the first PC greater than or equal to the entry address
	GateAtOrAbove GateMode = "at-or-above"

	// GateExact opens only when the PC equals the entry address; use it when bootstrap
	// code is placed above the payload
	GateExact GateMode = "exact"
)

// GateModes lists the supported gate modes by name
var GateModes = map[string]GateMode{
	string(GateAtOrAbove): GateAtOrAbove,
	string(GateExact):     GateExact,
}

// ParseGateMode validates a gate mode name
func ParseGateMode(name string) (GateMode, error) {
	if mode, ok := GateModes[name]; ok {
		return mode, nil
	}
	return "", fmt.Errorf("unknown gate mode %q (supported: %v)", name, utils.SortedKeys(GateModes))
}

func (g GateMode) opens(pc, entry uint64) bool {
	if g == GateExact {
		return pc == entry
	}
	return pc >= entry
}

// Options configures a normalizer
type Options struct {
	// Entry is the address where the test payload begins
	Entry uint64

	// Gate selects the start-of-test rule (GateAtOrAbove if empty)
	Gate GateMode

	// XLEN is the register width used to render PCs and register values (32 if zero)
	XLEN int

	// Logger receives aggregate warnings. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Stats counts what happened to the lines of one log.
// A low Retained count relative to Matched is the aggregate signal of unexpected parse skips.
type Stats struct {
	Lines        int `yaml:"lines"`
	Matched      int `yaml:"matched"`
	GatedOut     int `yaml:"gated_out"`
	NoWrite      int `yaml:"no_write"`
	ZeroRegister int `yaml:"zero_register"`
	Retained     int `yaml:"retained"`
	IndexMisses  int `yaml:"index_misses"`

	// GateOpened is false if no commit ever reached the entry address
	GateOpened bool `yaml:"gate_opened"`
}

// Normalizer converts the log of one executor into a canonical trace stream
type Normalizer struct {
	dialect *Dialect
	index   *disasm.Index
	options Options
	logger  *slog.Logger
}

// New creates a normalizer for logs written in dialect, enriched from index
func New(dialect *Dialect, index *disasm.Index, opts *Options) *Normalizer {
	options := Options{}
	if opts != nil {
		options = *opts
	}
	if options.Gate == "" {
		options.Gate = GateAtOrAbove
	}
	if options.XLEN == 0 {
		options.XLEN = 32
	}
	if index == nil {
		index = disasm.NewIndex()
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Normalizer{
		dialect: dialect,
		index:   index,
		options: options,
		logger:  logger.With("dialect", dialect.Name),
	}
}

// Dialect returns the dialect this normalizer parses
func (n *Normalizer) Dialect() *Dialect {
	return n.dialect
}

// Normalize reads a raw log and returns its canonical stream in log order.
// Lines that are not commit lines are skipped silently.
func (n *Normalizer) Normalize(r io.Reader) (trace.Stream, Stats, error) {
	var (
		stream trace.Stream
		stats  Stats
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		stats.Lines++

		commit, ok := n.dialect.ParseCommit(scanner.Text())
		if !ok {
			continue
		}
		stats.Matched++

		if !stats.GateOpened {
			if !n.options.Gate.opens(commit.PC, n.options.Entry) {
				stats.GatedOut++
				continue
			}
			stats.GateOpened = true
		}

		if commit.Write == nil {
			stats.NoWrite++
			continue
		}
		if rv32.IsZero(commit.Write.Register) {
			stats.ZeroRegister++
			continue
		}

		record, found := n.Record(commit)
		if !found {
			stats.IndexMisses++
		}
		stream = append(stream, record)
		stats.Retained++
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("error reading %s log: %w", n.dialect.Name, err)
	}

	n.report(stats)
	return stream, stats, nil
}

// NormalizeFile normalizes the log at path
func (n *Normalizer) NormalizeFile(path string) (trace.Stream, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open %s log: %w", n.dialect.Name, err)
	}
	defer f.Close()

	return n.Normalize(f)
}

// Record builds the canonical record of a retained commit. found is false when the PC is
// not in the disassembly, in which case the mnemonic and operand fields stay empty.
func (n *Normalizer) Record(commit Commit) (trace.Record, bool) {
	record := trace.Record{
		PC:     FormatPC(commit.PC, n.options.XLEN),
		Binary: FormatBinary(commit.Binary),
	}
	if commit.Write != nil {
		record.GPR = FormatWrite(*commit.Write, n.options.XLEN)
	}

	entry, found := n.index.Lookup(commit.PC)
	if found {
		record.Mnemonic = entry.Mnemonic
		record.Operand = FormatOperands(entry.Operands)
		record.InstrStr = FormatInstruction(record.Mnemonic, record.Operand)
	}

	return record, found
}

func (n *Normalizer) report(stats Stats) {
	n.logger.Debug("log normalized",
		"lines", stats.Lines, "matched", stats.Matched, "retained", stats.Retained,
		"gated", stats.GatedOut, "nowrite", stats.NoWrite, "x0", stats.ZeroRegister)

	if stats.Matched > 0 && !stats.GateOpened {
		n.logger.Warn("no commit reached the entry address, trace is empty",
			"entry", fmt.Sprintf("%#x", n.options.Entry), "gate", n.options.Gate)
	}
	if stats.Matched == 0 && stats.Lines > 0 {
		n.logger.Warn("no commit line recognized", "lines", stats.Lines)
	}
	if stats.IndexMisses > 0 {
		n.logger.Warn("retained commits outside the disassembly", "count", stats.IndexMisses)
	}
}
