package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Manu343726/lockstep/cmd/cli"
	"github.com/Manu343726/lockstep/pkg/memimage"
)

var (
	memFromELF bool
	memBinPath string
	memVerify  bool
)

var MemCmd = &cobra.Command{
	Use:   "mem <input> <output.mem>",
	Short: "Convert a raw binary into an RTL memory image",
	Long: `Converts a raw binary file into the text memory image loaded by the RTL testbench:
one line per 32-bit little-endian word, written as 32 binary digits, most significant bit first.
The last word is zero padded.

With --elf the input is a test ELF, which is first flattened with the toolchain objcopy.

Examples:
  # Convert a raw binary
  lockstep mem test.bin test.mem

  # Flatten an ELF and convert it, keeping the raw binary next to the image
  lockstep mem --elf out/asm_test/riscv_arithmetic_basic_test_0.o test.mem

  # Check that the image decodes back to the binary
  lockstep mem --verify test.bin test.mem`,
	Args: cobra.ExactArgs(2),
	Run:  cli.Main(runMem),
}

func init() {
	MemCmd.Flags().BoolVar(&memFromELF, "elf", false, "Input is an ELF file to flatten with objcopy first")
	MemCmd.Flags().StringVar(&memBinPath, "bin", "", "Raw binary written by --elf (default: output path with .bin extension)")
	MemCmd.Flags().BoolVar(&memVerify, "verify", false, "Decode the written image and check it against the binary")
}

func runMem(ctx context.Context, s *cli.Session, cmd *cobra.Command, args []string) (int, error) {
	input, output := args[0], args[1]

	if memFromELF {
		bin := memBinPath
		if bin == "" {
			bin = strings.TrimSuffix(output, filepath.Ext(output)) + ".bin"
		}

		toolCtx, cancel := s.ToolContext(ctx)
		err := s.Tools.ExtractBinary(toolCtx, input, bin)
		cancel()
		if err != nil {
			return cli.ExitFailure, err
		}

		s.Logger.Debug("ELF flattened", "elf", input, "bin", bin)
		input = bin
	}

	words, err := memimage.ConvertFile(input, output)
	if err != nil {
		return cli.ExitFailure, err
	}
	s.Logger.Info("memory image written", "mem", output, "words", words)

	if memVerify {
		if err := verifyImage(input, output); err != nil {
			return cli.ExitFailure, err
		}
		s.Logger.Info("memory image verified", "mem", output)
	}

	return cli.ExitPass, nil
}

func verifyImage(binPath, memPath string) error {
	data, err := os.ReadFile(binPath)
	if err != nil {
		return fmt.Errorf("failed to read binary: %w", err)
	}
	decoded, err := memimage.DecodeFile(memPath)
	if err != nil {
		return err
	}

	if !bytes.Equal(memimage.Build(data).Bytes(), decoded) {
		return fmt.Errorf("memory image %s does not decode back to %s", memPath, binPath)
	}
	return nil
}
