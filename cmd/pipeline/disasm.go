package pipeline

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Manu343726/lockstep/cmd/cli"
	"github.com/Manu343726/lockstep/pkg/disasm"
	"github.com/Manu343726/lockstep/pkg/normalize"
	"github.com/Manu343726/lockstep/pkg/utils"
)

var disasmEntryOnly bool

var DisasmCmd = &cobra.Command{
	Use:   "disasm <elf>",
	Short: "Show the disassembly index and the test entry address of an ELF",
	Long: `Disassembles a test ELF with the toolchain objdump and prints the address to instruction
map used to enrich the traces, together with the resolved test entry address.

The entry address is the address of the configured entry symbol (--entry-symbol, "_start" by default),
or the configured reset address if the symbol cannot be found.`,
	Args: cobra.ExactArgs(1),
	Run:  cli.Main(runDisasm),
}

func init() {
	DisasmCmd.Flags().BoolVar(&disasmEntryOnly, "entry-only", false, "Print only the entry address")
}

func runDisasm(ctx context.Context, s *cli.Session, cmd *cobra.Command, args []string) (int, error) {
	program, err := loadProgram(ctx, s, args[0])
	if err != nil {
		return cli.ExitFailure, err
	}

	if disasmEntryOnly {
		fmt.Printf("%#x\n", program.Entry)
		return cli.ExitPass, nil
	}

	xlen, err := s.Config.XLEN()
	if err != nil {
		return cli.ExitFailure, err
	}

	source := "reset address"
	if program.EntryFromSymbol {
		source = s.Config.EntrySymbol
	}
	fmt.Printf("entry %#x (%s), %d instructions\n", program.Entry, source, program.Index.Len())

	for _, entry := range program.Index.Entries() {
		fmt.Printf("%s:  %-8s  %s\n",
			utils.FormatUintHex(entry.Address, xlen/4), entry.Encoding, normalize.FormatInstruction(entry.Mnemonic, entry.Operands))
	}

	return cli.ExitPass, nil
}

// loadProgram disassembles an ELF with the session toolchain and settings
func loadProgram(ctx context.Context, s *cli.Session, elfPath string) (*disasm.Program, error) {
	opts, err := s.Config.DisasmOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = s.Logger

	toolCtx, cancel := s.ToolContext(ctx)
	defer cancel()

	return disasm.Load(toolCtx, s.Tools, elfPath, opts)
}
