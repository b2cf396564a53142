package settings

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Manu343726/lockstep/cmd/cli"
	"github.com/Manu343726/lockstep/pkg/config"
)

// ConfigCmd groups the configuration commands
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the lockstep configuration",
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints the configuration resulting from defaults, the configuration file, environment
variables and flags, in the configuration file format. The output can be saved as ~/.lockstep.yaml.`,
	Args: cobra.NoArgs,
	Run:  cli.Main(runShow),
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		schema, err := config.Schema()
		if err != nil {
			cli.Fatal(err)
		}
		os.Stdout.Write(append(schema, '\n'))
	},
}

func init() {
	ConfigCmd.AddCommand(showCmd, schemaCmd)
}

func runShow(ctx context.Context, s *cli.Session, cmd *cobra.Command, args []string) (int, error) {
	data, err := s.Config.YAML()
	if err != nil {
		return cli.ExitFailure, err
	}
	if _, err := os.Stdout.Write(data); err != nil {
		return cli.ExitFailure, err
	}
	return cli.ExitPass, nil
}
