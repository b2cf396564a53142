// Package regression runs the canonicalize-and-compare pipeline over a collection of
// seeds; a single seed is just a collection of one.
//
// For every seed the runner optionally builds the RTL memory image, disassembles the
// test ELF, normalizes the RTL and Spike commit logs, writes both canonical traces and
// compares them with Spike as the reference. Seeds are independent and run in parallel
// up to the configured number of jobs. Tool and I/O failures abort the run; trace
// mismatches are results, not errors.
package regression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Manu343726/lockstep/pkg/compare"
	"github.com/Manu343726/lockstep/pkg/config"
	"github.com/Manu343726/lockstep/pkg/disasm"
	"github.com/Manu343726/lockstep/pkg/memimage"
	"github.com/Manu343726/lockstep/pkg/normalize"
	"github.com/Manu343726/lockstep/pkg/toolchain"
	"github.com/Manu343726/lockstep/pkg/trace"
	"github.com/Manu343726/lockstep/pkg/utils"
)

// ErrDuplicateSeed is returned when a seed is listed twice, since both runs would write the same files
var ErrDuplicateSeed = errors.New("duplicate seed")

// Runner executes the per-seed pipeline
type Runner struct {
	config *config.Config
	tools  *toolchain.Toolchain
	logger *slog.Logger
}

// NewRunner creates a runner. cfg must be valid (see config.Config.Validate).
func NewRunner(cfg *config.Config, tools *toolchain.Toolchain, logger *slog.Logger) *Runner {
	if tools == nil {
		tools = toolchain.New(cfg.ToolchainConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{config: cfg, tools: tools, logger: logger}
}

// Run processes every seed and summarizes the outcome in seed order
func (r *Runner) Run(ctx context.Context, seeds []int) (*Summary, error) {
	seen := make(map[int]bool, len(seeds))
	for _, seed := range seeds {
		if seen[seed] {
			return nil, utils.MakeError(ErrDuplicateSeed, "%d", seed)
		}
		seen[seed] = true
	}

	results := make([]Result, len(seeds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Jobs)
	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			result, err := r.RunSeed(ctx, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = *result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Summarize(results), nil
}

// RunSeed runs the whole pipeline for one seed
func (r *Runner) RunSeed(ctx context.Context, seed int) (*Result, error) {
	logger := r.logger.With("seed", seed)
	paths := r.config.Expand(seed)

	xlen, err := r.config.XLEN()
	if err != nil {
		return nil, err
	}
	gate, err := r.config.GateMode()
	if err != nil {
		return nil, err
	}
	disasmOpts, err := r.config.DisasmOptions()
	if err != nil {
		return nil, err
	}
	disasmOpts.Logger = logger

	info, err := toolchain.InspectELF(paths.ELF)
	if err != nil {
		return nil, err
	}
	if info.XLEN != xlen {
		logger.Warn("ELF class does not match the configured ISA",
			"elf", paths.ELF, "elf_xlen", info.XLEN, "isa", r.config.ISA)
	}

	if r.config.BuildImage {
		if err := r.buildImage(ctx, paths, logger); err != nil {
			return nil, err
		}
	}

	toolCtx, cancel := r.toolContext(ctx)
	program, err := disasm.Load(toolCtx, r.tools, paths.ELF, disasmOpts)
	cancel()
	if err != nil {
		return nil, err
	}

	normalizeOpts := &normalize.Options{
		Entry:  program.Entry,
		Gate:   gate,
		XLEN:   xlen,
		Logger: logger,
	}

	spike, spikeStats, err := normalize.New(normalize.Spike, program.Index, normalizeOpts).NormalizeFile(paths.SpikeLog)
	if err != nil {
		return nil, err
	}
	rtl, rtlStats, err := normalize.New(normalize.RTL, program.Index, normalizeOpts).NormalizeFile(paths.RTLLog)
	if err != nil {
		return nil, err
	}

	if err := writeTrace(paths.SpikeTrace, spike); err != nil {
		return nil, err
	}
	if err := writeTrace(paths.RTLTrace, rtl); err != nil {
		return nil, err
	}

	if len(spike) == 0 && len(rtl) == 0 {
		logger.Warn("both traces are empty, the comparison is vacuous")
	}

	verdict := compare.Streams(spike, rtl)
	if verdict.Pass {
		logger.Info("traces match", "records", verdict.Compared)
	} else {
		logger.Info("traces differ", "index", verdict.Index, "fields", verdict.Fields)
	}

	return &Result{
		Seed:       seed,
		Pass:       verdict.Pass,
		Entry:      fmt.Sprintf("%#x", program.Entry),
		SpikeStats: spikeStats,
		RTLStats:   rtlStats,
		Verdict:    verdict,
		Paths:      paths,
	}, nil
}

func (r *Runner) buildImage(ctx context.Context, paths config.Paths, logger *slog.Logger) error {
	if err := ensureDir(paths.Binary); err != nil {
		return err
	}

	toolCtx, cancel := r.toolContext(ctx)
	defer cancel()

	if err := r.tools.ExtractBinary(toolCtx, paths.ELF, paths.Binary); err != nil {
		return err
	}

	if err := ensureDir(paths.MemImage); err != nil {
		return err
	}
	words, err := memimage.ConvertFile(paths.Binary, paths.MemImage)
	if err != nil {
		return err
	}

	logger.Debug("memory image built", "mem", paths.MemImage, "words", words)
	return nil
}

func (r *Runner) toolContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.ToolTimeout > 0 {
		return context.WithTimeout(ctx, r.config.ToolTimeout)
	}
	return context.WithCancel(ctx)
}

func writeTrace(path string, stream trace.Stream) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return trace.WriteCSVFile(path, stream)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
