package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()

	RootCmd.SetArgs(args)
	defer RootCmd.SetArgs(nil)
	return RootCmd.Execute()
}

func walk(cmd *cobra.Command, visit func(*cobra.Command)) {
	visit(cmd)
	for _, child := range cmd.Commands() {
		walk(child, visit)
	}
}

func TestCommands_FlagsMergeWithoutConflicts(t *testing.T) {
	walk(RootCmd, func(cmd *cobra.Command) {
		assert.NotPanics(t, func() {
			cmd.LocalFlags()
			cmd.InheritedFlags()
		}, cmd.CommandPath())
	})
}

func TestToolsDocs_WritesTopic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.txt")

	require.NoError(t, execute(t, "tools", "docs", "trace", "--output", path))

	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Header: pc,instr,gpr,csr,binary,mode,instr_str,operand,pad\n")
}

func TestToolsDocs_RejectsUnknownTopic(t *testing.T) {
	assert.Error(t, execute(t, "tools", "docs", "registers"))
}
