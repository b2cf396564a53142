// Package cli holds what every lockstep subcommand shares: configuration and logger setup,
// exit status conventions and colored verdict output.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Manu343726/lockstep/pkg/compare"
	"github.com/Manu343726/lockstep/pkg/config"
	"github.com/Manu343726/lockstep/pkg/logging"
	"github.com/Manu343726/lockstep/pkg/toolchain"
)

// Exit status of every command
const (
	ExitPass     = 0
	ExitMismatch = 1
	ExitFailure  = 2
)

var (
	colorPass   = color.New(color.FgGreen, color.Bold)
	colorFail   = color.New(color.FgRed, color.Bold)
	colorError  = color.New(color.FgRed, color.Bold)
	colorLabel  = color.New(color.FgHiBlack)
	colorField  = color.New(color.FgYellow, color.Bold)
	colorRecord = color.New(color.FgWhite, color.Bold)
)

// Session is the state built once per command invocation
type Session struct {
	Config *config.Config
	Logger *slog.Logger
	Tools  *toolchain.Toolchain

	closer io.Closer
}

// Open loads the configuration from viper and builds the logger and toolchain it describes
func Open() (*Session, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Console: os.Stderr,
		Verbose: cfg.Verbose,
		File:    cfg.LogFile,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		Config: cfg,
		Logger: logger.Logger,
		Tools:  toolchain.New(cfg.ToolchainConfig()),
		closer: logger,
	}, nil
}

// Close flushes the session logger
func (s *Session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ToolContext bounds an external tool invocation by the configured timeout
func (s *Session) ToolContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Config.ToolTimeout > 0 {
		return context.WithTimeout(ctx, s.Config.ToolTimeout)
	}
	return context.WithCancel(ctx)
}

// Command is the body of a subcommand. It returns the exit status for normal outcomes
// (pass or mismatch) and an error for failures.
type Command func(ctx context.Context, s *Session, cmd *cobra.Command, args []string) (int, error)

// Main adapts a Command to a cobra Run function that exits with the status returned by Run
func Main(command Command) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if status := Run(cmd, args, command, os.Stderr); status != ExitPass {
			os.Exit(status)
		}
	}
}

// Run opens a session, executes command with a context canceled on interrupt and maps the
// outcome to an exit status. Failures are reported on errOut and always yield ExitFailure,
// whatever status the command returned along with the error.
func Run(cmd *cobra.Command, args []string, command Command, errOut io.Writer) int {
	session, err := Open()
	if err != nil {
		PrintError(errOut, err)
		return ExitFailure
	}
	defer session.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	status, err := command(ctx, session, cmd, args)
	if err != nil {
		PrintError(errOut, err)
		return ExitFailure
	}
	return status
}

// Fatal reports a failure on stderr and exits with ExitFailure
func Fatal(err error) {
	PrintError(os.Stderr, err)
	os.Exit(ExitFailure)
}

// PrintError writes a red diagnostic
func PrintError(w io.Writer, err error) {
	colorError.Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}

// ExitStatus maps a comparison verdict to the process exit status
func ExitStatus(verdict compare.Verdict) int {
	if verdict.Pass {
		return ExitPass
	}
	return ExitMismatch
}

// PrintVerdict writes the PASS/FAIL line of a comparison and, on failure, the diverging record pair
func PrintVerdict(w io.Writer, label string, verdict compare.Verdict) {
	if label != "" {
		fmt.Fprintf(w, "%s: ", label)
	}

	if verdict.Pass {
		colorPass.Fprint(w, "PASS")
		fmt.Fprintf(w, " - %d records match\n", verdict.Compared)
		return
	}

	colorFail.Fprint(w, "FAIL")
	fmt.Fprintf(w, " - mismatch at record %d (expected %d records, got %d)\n",
		verdict.Index, verdict.ExpectedLen, verdict.ActualLen)

	colorLabel.Fprint(w, "  fields:   ")
	for i, field := range verdict.Fields {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		colorField.Fprint(w, string(field))
	}
	fmt.Fprintln(w)

	colorLabel.Fprint(w, "  expected: ")
	colorRecord.Fprintln(w, verdict.Expected.String())
	colorLabel.Fprint(w, "  actual:   ")
	colorRecord.Fprintln(w, verdict.Actual.String())
}
