// Package toolchain discovers and drives the external GNU binutils of a RISC-V
// cross toolchain (objdump, nm, objcopy).
//
// Tools are resolved lazily, so a command that only needs objcopy does not fail
// because objdump is missing. Every invocation takes a context; the package adds
// no timeout of its own.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Tool names a binutils program without its target prefix
type Tool string

const (
	Objdump Tool = "objdump"
	Nm      Tool = "nm"
	Objcopy Tool = "objcopy"
)

// ErrToolFailure matches every error caused by an external tool that could not be
// started or that exited with an error status
var ErrToolFailure = errors.New("external tool failure")

// ToolError describes a failed tool invocation
type ToolError struct {
	Tool     Tool
	Path     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s %s)", e.Path, strings.Join(e.Args, " "))
	}
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		fmt.Fprintf(&b, ": %s", stderr)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is makes every ToolError match ErrToolFailure
func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailure
}

// Config holds the toolchain discovery settings
type Config struct {
	// Prefix is the target triple prepended to each tool name (e.g. "riscv64-unknown-elf")
	Prefix string

	// BinDir, if set, is searched before PATH
	BinDir string
}

// DefaultConfig returns the conventional bare-metal RISC-V toolchain settings
func DefaultConfig() *Config {
	return &Config{
		Prefix: "riscv64-unknown-elf",
	}
}

// Toolchain runs binutils programs for one configured target
type Toolchain struct {
	config *Config
}

// New returns a toolchain for the given configuration (DefaultConfig if nil)
func New(config *Config) *Toolchain {
	if config == nil {
		config = DefaultConfig()
	}
	return &Toolchain{config: config}
}

// Config returns the toolchain configuration
func (t *Toolchain) Config() Config {
	return *t.config
}

// Executable returns the prefixed executable name of a tool
func (t *Toolchain) Executable(tool Tool) string {
	name := string(tool)
	if t.config.Prefix != "" {
		name = strings.TrimSuffix(t.config.Prefix, "-") + "-" + name
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}

// Find resolves the full path of a tool.
// Search order:
// 1. Config.BinDir
// 2. System PATH
func (t *Toolchain) Find(tool Tool) (string, error) {
	exe := t.Executable(tool)

	if t.config.BinDir != "" {
		path := filepath.Join(t.config.BinDir, exe)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	path, err := exec.LookPath(exe)
	if err != nil {
		return "", &ToolError{Tool: tool, Err: fmt.Errorf("%s not found; is the RISC-V toolchain installed?: %w", exe, err)}
	}
	return path, nil
}

// Result holds the captured output of a successful invocation
type Result struct {
	Command string
	Stdout  []byte
	Stderr  []byte
}

// Run executes a tool and captures its output. A missing tool, a start failure,
// cancellation and a non-zero exit status all yield a *ToolError.
func (t *Toolchain) Run(ctx context.Context, tool Tool, args ...string) (*Result, error) {
	path, err := t.Find(tool)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		toolErr := &ToolError{
			Tool:   tool,
			Path:   path,
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			toolErr.Err = ctxErr
		} else {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				toolErr.ExitCode = exitErr.ExitCode()
			}
		}
		return nil, toolErr
	}

	return &Result{
		Command: fmt.Sprintf("%s %s", path, strings.Join(args, " ")),
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
	}, nil
}

// Disassemble returns the objdump -d listing of an ELF file
func (t *Toolchain) Disassemble(ctx context.Context, elfPath string) ([]byte, error) {
	result, err := t.Run(ctx, Objdump, "-d", elfPath)
	if err != nil {
		return nil, err
	}
	return result.Stdout, nil
}

// Symbols returns the nm symbol listing of an ELF file
func (t *Toolchain) Symbols(ctx context.Context, elfPath string) ([]byte, error) {
	result, err := t.Run(ctx, Nm, elfPath)
	if err != nil {
		return nil, err
	}
	return result.Stdout, nil
}

// ExtractBinary writes the raw loadable contents of an ELF file to outPath (objcopy -O binary)
func (t *Toolchain) ExtractBinary(ctx context.Context, elfPath, outPath string) error {
	_, err := t.Run(ctx, Objcopy, "-O", "binary", elfPath, outPath)
	return err
}
