package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Manu343726/lockstep/cmd/cli"
	"github.com/Manu343726/lockstep/pkg/memimage"
	"github.com/Manu343726/lockstep/pkg/normalize"
	"github.com/Manu343726/lockstep/pkg/trace"
	"github.com/Manu343726/lockstep/pkg/utils"
)

var supportedTopics = map[string]func() string{
	"dialects": dialectsDoc,
	"memimage": memImageDoc,
	"trace":    traceDoc,
}

var docsCmd = &cobra.Command{
	Use:   "docs topic",
	Short: "Show lockstep file format documentation",
	Long: `Dumps the documentation of the specified file format.
By default the tool dumps the documentation to stdout, but it can be redirected to a file using the --output flag.

Supported topics:
` + strings.Join(utils.Map(utils.SortedKeys(supportedTopics), func(topic string) string { return "  " + topic }), "\n"),
	Args:      cobra.MatchAll(cobra.OnlyValidArgs, cobra.ExactArgs(1)),
	ValidArgs: utils.SortedKeys(supportedTopics),
	Run: func(cmd *cobra.Command, args []string) {
		doc := supportedTopics[args[0]]()

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile == "" {
			fmt.Print(doc)
			return
		}

		if err := os.WriteFile(outputFile, []byte(doc), 0o644); err != nil {
			cli.Fatal(fmt.Errorf("error writing documentation: %w", err))
		}
	},
}

func init() {
	ToolsCmd.AddCommand(docsCmd)
	docsCmd.Flags().String("output", "", "Output file. If not specified, the documentation is dumped to stdout.")
}

func traceDoc() string {
	var b strings.Builder

	b.WriteString("Canonical trace CSV\n\n")
	fmt.Fprintf(&b, "Header: %s\n\n", strings.Join(trace.Header, ","))
	b.WriteString("One row per retired instruction that wrote a non-zero integer register, in retirement order,\n")
	b.WriteString("starting at the test entry address.\n\n")
	b.WriteString("  pc         program counter, lowercase hex, XLEN/4 digits, no prefix\n")
	b.WriteString("  instr      mnemonic from the disassembly of pc\n")
	b.WriteString("  gpr        register write as abi_name:0xvalue, value XLEN/4 hex digits\n")
	b.WriteString("  csr        always empty\n")
	b.WriteString("  binary     instruction word, lowercase hex, 8 digits\n")
	fmt.Fprintf(&b, "  mode       always %s (machine mode)\n", trace.MachineMode)
	fmt.Fprintf(&b, "  instr_str  mnemonic padded to %d columns, a space and the operands\n", normalize.MnemonicColumn)
	b.WriteString("  operand    operands separated by \", \", disassembler comments removed\n")
	b.WriteString("  pad        always empty\n\n")
	b.WriteString("instr, instr_str and operand are empty when pc is not in the disassembly.\n")

	return b.String()
}

func memImageDoc() string {
	var b strings.Builder

	b.WriteString("RTL memory image\n\n")
	fmt.Fprintf(&b, "The raw binary is split in %d byte little-endian words, the last one zero padded.\n", memimage.WordSize)
	fmt.Fprintf(&b, "Each word is written on its own line as %d binary digits, most significant bit first.\n\n", memimage.WordBits)
	b.WriteString("Example: bytes 93 00 50 00 (li ra,5)\n")
	fmt.Fprintf(&b, "  %s\n", memimage.FormatWord(0x00500093))

	return b.String()
}

func dialectsDoc() string {
	var b strings.Builder

	b.WriteString("Commit log dialects\n\n")
	b.WriteString("Lines not matching the dialect pattern are ignored. Matches may appear anywhere in a line.\n\n")
	for _, name := range utils.SortedKeys(normalize.Dialects) {
		fmt.Fprintf(&b, "%s\n  %s\n", name, normalize.Dialects[name].Pattern())
	}

	return b.String()
}
