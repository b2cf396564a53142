package pipeline

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Manu343726/lockstep/cmd/cli"
	"github.com/Manu343726/lockstep/pkg/compare"
)

var CompareCmd = &cobra.Command{
	Use:   "compare <expected.csv> <actual.csv>",
	Short: "Compare two canonical trace CSVs",
	Long: `Compares two canonical trace CSVs record by record (program counter, instruction word,
register write and instruction string) and reports the first mismatch.

Exits with status 0 when the traces are identical and 1 when they differ.`,
	Args: cobra.ExactArgs(2),
	Run:  cli.Main(runCompare),
}

func runCompare(ctx context.Context, s *cli.Session, cmd *cobra.Command, args []string) (int, error) {
	verdict, err := compare.Files(args[0], args[1])
	if err != nil {
		return cli.ExitFailure, err
	}

	cli.PrintVerdict(os.Stdout, "", verdict)
	return cli.ExitStatus(verdict), nil
}
