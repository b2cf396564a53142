package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Manu343726/lockstep/cmd/cli"
	"github.com/Manu343726/lockstep/pkg/regression"
)

var (
	runSeedsFile  string
	runReportPath string
)

var RunCmd = &cobra.Command{
	Use:   "run [seed...]",
	Short: "Normalize and compare the RTL and Spike traces of one or more seeds",
	Long: `Runs the comparison flow for every seed: builds the RTL memory image (with --build-image),
disassembles the test ELF, normalizes the RTL and Spike commit logs into canonical trace CSVs
and compares them, Spike being the reference.

File locations come from the configured layout templates, which expand {out}, {seed} and {test}.
Seeds run in parallel up to --jobs. A mismatching seed does not stop the others; any tool or file
failure aborts the run.

Examples:
  lockstep run 1 2 3
  lockstep run --seeds-file logs/seeds.txt --jobs 8 --report out/summary.yaml`,
	Run: cli.Main(runRegression),
}

func init() {
	RunCmd.Flags().StringVar(&runSeedsFile, "seeds-file", "", "Read seeds from a file, one per line")
	RunCmd.Flags().StringVar(&runReportPath, "report", "", "Write a YAML summary of the run to this file")
	RunCmd.Flags().Bool("build-image", false, "Build the RTL memory image of every seed first")
	cobra.CheckErr(viper.BindPFlag("build_image", RunCmd.Flags().Lookup("build-image")))
}

func runRegression(ctx context.Context, s *cli.Session, cmd *cobra.Command, args []string) (int, error) {
	seeds, err := regression.ParseSeeds(args)
	if err != nil {
		return cli.ExitFailure, err
	}
	if runSeedsFile != "" {
		fromFile, err := regression.ReadSeedsFile(runSeedsFile)
		if err != nil {
			return cli.ExitFailure, err
		}
		seeds = append(seeds, fromFile...)
	}
	if len(seeds) == 0 {
		return cli.ExitFailure, errors.New("no seeds given")
	}

	runner := regression.NewRunner(s.Config, s.Tools, s.Logger)
	summary, err := runner.Run(ctx, seeds)
	if err != nil {
		return cli.ExitFailure, err
	}

	for _, result := range summary.Results {
		cli.PrintVerdict(os.Stdout, fmt.Sprintf("SEED %d", result.Seed), result.Verdict)
	}
	fmt.Printf("%d passed, %d failed\n", summary.Passed, summary.Failed)

	if runReportPath != "" {
		if err := summary.WriteYAML(runReportPath); err != nil {
			return cli.ExitFailure, err
		}
	}

	if !summary.OK() {
		return cli.ExitMismatch, nil
	}
	return cli.ExitPass, nil
}
