package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Manu343726/lockstep/cmd/cli"
	"github.com/Manu343726/lockstep/cmd/pipeline"
	"github.com/Manu343726/lockstep/cmd/settings"
	"github.com/Manu343726/lockstep/cmd/tools"
	"github.com/Manu343726/lockstep/pkg/config"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "lockstep",
	Short: "Compare RISC-V RTL execution traces against the Spike reference simulator",
	Long: `Lockstep turns the commit logs of a RISC-V RTL core and of the Spike instruction set simulator
into canonical, directly comparable trace CSVs and compares them record by record.

It also builds the memory images loaded by the RTL testbench and runs the whole flow over
regression seeds.

Settings come from flags, LOCKSTEP_* environment variables (RISCV_PREFIX, TARGET_ISA and
DEFAULT_TEST_NAME are also honored), the configuration file ($HOME/.lockstep.yaml or --config)
and built-in defaults, in that order.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(cli.ExitFailure)
	}
}

func init() {
	RootCmd.AddCommand(
		pipeline.MemCmd,
		pipeline.DisasmCmd,
		pipeline.NormalizeCmd,
		pipeline.CompareCmd,
		pipeline.RunCmd,
		settings.ConfigCmd,
		tools.ToolsCmd,
	)
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.lockstep.yaml)")
	flags.BoolP("verbose", "v", false, "Print debug output")
	flags.String("log-file", "", "Also write JSON logs to this file")
	flags.String("isa", config.DefaultISA, "Target ISA; rv32 or rv64 sets the register width")
	flags.String("toolchain-prefix", config.DefaultToolchainPrefix, "Prefix of the binutils executables")
	flags.String("toolchain-dir", "", "Directory searched for the binutils before PATH")
	flags.String("test-name", config.DefaultTestName, "Generated test name used in file layouts")
	flags.String("entry-symbol", config.DefaultEntrySymbol, "Symbol marking the start of the test payload")
	flags.String("reset-address", config.DefaultResetAddress, "Entry address used when the entry symbol is missing")
	flags.String("gate", config.DefaultGate, "Start-of-test gate: at-or-above or exact")
	flags.StringP("out-dir", "o", config.DefaultOutDir, "Output directory expanded as {out} in file layouts")
	flags.IntP("jobs", "j", config.DefaultJobs, "Number of seeds processed in parallel")
	flags.Duration("tool-timeout", config.DefaultToolTimeout, "Timeout of every external tool invocation (0 disables it)")

	for key, flag := range map[string]string{
		"verbose":           "verbose",
		"log_file":          "log-file",
		"isa":               "isa",
		"toolchain.prefix":  "toolchain-prefix",
		"toolchain.bin_dir": "toolchain-dir",
		"test_name":         "test-name",
		"entry_symbol":      "entry-symbol",
		"reset_address":     "reset-address",
		"gate":              "gate",
		"out_dir":           "out-dir",
		"jobs":              "jobs",
		"tool_timeout":      "tool-timeout",
	} {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".lockstep" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lockstep")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		cli.Fatal(err)
	}
}
