package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Manu343726/lockstep/cmd/cli"
	"github.com/Manu343726/lockstep/pkg/normalize"
	"github.com/Manu343726/lockstep/pkg/trace"
	"github.com/Manu343726/lockstep/pkg/utils"
)

var (
	normalizeLogPath string
	normalizeCSVPath string
	normalizeELFPath string
	normalizeDialect string
)

var NormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Convert a commit log into a canonical trace CSV",
	Long: `Parses the commit log of an executor (the RTL testbench or Spike), keeps the register
writing commits retired from the test entry address onwards, enriches them with the disassembly
of the test ELF and writes them as a canonical trace CSV.

Supported dialects:
` + strings.Join(utils.Map(utils.SortedKeys(normalize.Dialects), func(name string) string { return "  " + name }), "\n") + `

Examples:
  lockstep normalize --log out/rtl_trace_0.log --csv out/rtl_trace_0.csv --elf test.o
  lockstep normalize --dialect spike --log spike.log --csv spike.csv --elf test.o`,
	Args: cobra.NoArgs,
	Run:  cli.Main(runNormalize),
}

func init() {
	NormalizeCmd.Flags().StringVar(&normalizeLogPath, "log", "", "Input commit log")
	NormalizeCmd.Flags().StringVar(&normalizeCSVPath, "csv", "", "Output CSV file")
	NormalizeCmd.Flags().StringVar(&normalizeELFPath, "elf", "", "ELF file for disassembly")
	NormalizeCmd.Flags().StringVarP(&normalizeDialect, "dialect", "d", normalize.RTL.Name, "Log dialect: "+strings.Join(utils.SortedKeys(normalize.Dialects), ", "))
	NormalizeCmd.MarkFlagRequired("log")
	NormalizeCmd.MarkFlagRequired("csv")
	NormalizeCmd.MarkFlagRequired("elf")
}

func runNormalize(ctx context.Context, s *cli.Session, cmd *cobra.Command, args []string) (int, error) {
	dialect, err := normalize.LookupDialect(normalizeDialect)
	if err != nil {
		return cli.ExitFailure, err
	}
	xlen, err := s.Config.XLEN()
	if err != nil {
		return cli.ExitFailure, err
	}
	gate, err := s.Config.GateMode()
	if err != nil {
		return cli.ExitFailure, err
	}

	program, err := loadProgram(ctx, s, normalizeELFPath)
	if err != nil {
		return cli.ExitFailure, err
	}

	normalizer := normalize.New(dialect, program.Index, &normalize.Options{
		Entry:  program.Entry,
		Gate:   gate,
		XLEN:   xlen,
		Logger: s.Logger,
	})

	stream, stats, err := normalizer.NormalizeFile(normalizeLogPath)
	if err != nil {
		return cli.ExitFailure, err
	}
	if err := trace.WriteCSVFile(normalizeCSVPath, stream); err != nil {
		return cli.ExitFailure, err
	}

	fmt.Printf("%d records written to %s (%d commit lines, %d before entry)\n",
		stats.Retained, normalizeCSVPath, stats.Matched, stats.GatedOut)
	return cli.ExitPass, nil
}
