// Package config holds the single configuration value of a lockstep run.
//
// The configuration is built once by the CLI (flags, environment, config file and
// defaults, through viper) and then passed explicitly to every component; no
// component looks up the environment on its own.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Manu343726/lockstep/pkg/disasm"
	"github.com/Manu343726/lockstep/pkg/normalize"
	"github.com/Manu343726/lockstep/pkg/toolchain"
	"github.com/Manu343726/lockstep/pkg/utils"
)

// ErrInvalid matches every validation error
var ErrInvalid = errors.New("invalid configuration")

// Toolchain configures binutils discovery
type Toolchain struct {
	Prefix string `mapstructure:"prefix" yaml:"prefix" json:"prefix" jsonschema:"title=Toolchain prefix,description=Target triple prepended to objdump/nm/objcopy (env RISCV_PREFIX)"`
	BinDir string `mapstructure:"bin_dir" yaml:"bin_dir" json:"bin_dir,omitempty" jsonschema:"title=Toolchain directory,description=Directory searched for the tools before PATH"`
}

// Layout holds the per-seed file path templates. Placeholders: {out}, {seed}, {test}.
type Layout struct {
	ELF        string `mapstructure:"elf" yaml:"elf" json:"elf" jsonschema:"description=Compiled test ELF"`
	Binary     string `mapstructure:"binary" yaml:"binary" json:"binary" jsonschema:"description=Raw binary extracted with objcopy"`
	MemImage   string `mapstructure:"mem_image" yaml:"mem_image" json:"mem_image" jsonschema:"description=Memory image loaded by the RTL testbench"`
	RTLLog     string `mapstructure:"rtl_log" yaml:"rtl_log" json:"rtl_log" jsonschema:"description=RTL commit log"`
	SpikeLog   string `mapstructure:"spike_log" yaml:"spike_log" json:"spike_log" jsonschema:"description=Spike commit log"`
	RTLTrace   string `mapstructure:"rtl_trace" yaml:"rtl_trace" json:"rtl_trace" jsonschema:"description=Canonical RTL trace CSV"`
	SpikeTrace string `mapstructure:"spike_trace" yaml:"spike_trace" json:"spike_trace" jsonschema:"description=Canonical Spike trace CSV"`
}

// Config is the explicit configuration of the pipeline
type Config struct {
	Toolchain Toolchain `mapstructure:"toolchain" yaml:"toolchain" json:"toolchain"`

	ISA          string `mapstructure:"isa" yaml:"isa" json:"isa" jsonschema:"title=Target ISA,description=ISA string; its rv32/rv64 prefix sets the register width (env TARGET_ISA)"`
	TestName     string `mapstructure:"test_name" yaml:"test_name" json:"test_name" jsonschema:"title=Test name,description=Generated test name used in file layouts (env DEFAULT_TEST_NAME)"`
	EntrySymbol  string `mapstructure:"entry_symbol" yaml:"entry_symbol" json:"entry_symbol" jsonschema:"title=Entry symbol,description=Symbol marking the start of the test payload"`
	ResetAddress string `mapstructure:"reset_address" yaml:"reset_address" json:"reset_address" jsonschema:"title=Reset address,description=Entry address used when the entry symbol is missing"`
	Gate         string `mapstructure:"gate" yaml:"gate" json:"gate" jsonschema:"title=Start-of-test gate,enum=at-or-above,enum=exact"`

	OutDir      string        `mapstructure:"out_dir" yaml:"out_dir" json:"out_dir" jsonschema:"title=Output directory"`
	Layout      Layout        `mapstructure:"layout" yaml:"layout" json:"layout"`
	Jobs        int           `mapstructure:"jobs" yaml:"jobs" json:"jobs" jsonschema:"title=Parallel seeds,minimum=1"`
	ToolTimeout time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout" json:"tool_timeout" jsonschema:"title=External tool timeout,type=string,description=Duration such as 90s or 2m"`
	BuildImage  bool          `mapstructure:"build_image" yaml:"build_image" json:"build_image" jsonschema:"title=Build memory image,description=Run objcopy and the image builder for every seed"`

	Verbose bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	LogFile string `mapstructure:"log_file" yaml:"log_file" json:"log_file,omitempty" jsonschema:"description=Also write JSON logs to this file"`
}

// XLEN returns the register width implied by the ISA string
func (c *Config) XLEN() (int, error) {
	isa := strings.ToLower(c.ISA)
	switch {
	case strings.HasPrefix(isa, "rv32"):
		return 32, nil
	case strings.HasPrefix(isa, "rv64"):
		return 64, nil
	default:
		return 0, utils.MakeError(ErrInvalid, "unsupported ISA %q, expected rv32* or rv64*", c.ISA)
	}
}

// Reset returns the parsed reset address
func (c *Config) Reset() (uint64, error) {
	address, err := disasm.ParseAddress(c.ResetAddress)
	if err != nil {
		return 0, utils.MakeError(ErrInvalid, "reset address %q: %v", c.ResetAddress, err)
	}
	return address, nil
}

// GateMode returns the parsed start-of-test gate mode
func (c *Config) GateMode() (normalize.GateMode, error) {
	mode, err := normalize.ParseGateMode(c.Gate)
	if err != nil {
		return "", utils.MakeError(ErrInvalid, "%v", err)
	}
	return mode, nil
}

// ToolchainConfig converts the toolchain section for pkg/toolchain
func (c *Config) ToolchainConfig() *toolchain.Config {
	return &toolchain.Config{
		Prefix: c.Toolchain.Prefix,
		BinDir: c.Toolchain.BinDir,
	}
}

// DisasmOptions converts the entry resolution settings for pkg/disasm
func (c *Config) DisasmOptions() (*disasm.Options, error) {
	reset, err := c.Reset()
	if err != nil {
		return nil, err
	}
	return &disasm.Options{EntrySymbol: c.EntrySymbol, ResetAddress: reset}, nil
}

// Validate checks every derived value and the per-seed uniqueness of output paths
func (c *Config) Validate() error {
	if _, err := c.XLEN(); err != nil {
		return err
	}
	if _, err := c.Reset(); err != nil {
		return err
	}
	if _, err := c.GateMode(); err != nil {
		return err
	}
	if c.Jobs < 1 {
		return utils.MakeError(ErrInvalid, "jobs must be at least 1, got %d", c.Jobs)
	}
	if c.ToolTimeout < 0 {
		return utils.MakeError(ErrInvalid, "tool timeout must not be negative")
	}

	outputs := map[string]string{
		"layout.binary":      c.Layout.Binary,
		"layout.mem_image":   c.Layout.MemImage,
		"layout.rtl_trace":   c.Layout.RTLTrace,
		"layout.spike_trace": c.Layout.SpikeTrace,
	}
	for _, key := range utils.SortedKeys(outputs) {
		if !strings.Contains(outputs[key], SeedPlaceholder) {
			return utils.MakeError(ErrInvalid, "%s %q must contain %s so that seeds do not overwrite each other", key, outputs[key], SeedPlaceholder)
		}
	}
	if c.Layout.RTLTrace == c.Layout.SpikeTrace {
		return utils.MakeError(ErrInvalid, "rtl and spike traces share the path template %q", c.Layout.RTLTrace)
	}

	return nil
}

// Placeholders understood by layout templates
const (
	OutPlaceholder  = "{out}"
	SeedPlaceholder = "{seed}"
	TestPlaceholder = "{test}"
)

// Paths are the layout templates expanded for one seed
type Paths Layout

// Expand resolves the layout templates for a seed
func (c *Config) Expand(seed int) Paths {
	r := strings.NewReplacer(
		OutPlaceholder, c.OutDir,
		SeedPlaceholder, fmt.Sprint(seed),
		TestPlaceholder, c.TestName,
	)
	return Paths{
		ELF:        r.Replace(c.Layout.ELF),
		Binary:     r.Replace(c.Layout.Binary),
		MemImage:   r.Replace(c.Layout.MemImage),
		RTLLog:     r.Replace(c.Layout.RTLLog),
		SpikeLog:   r.Replace(c.Layout.SpikeLog),
		RTLTrace:   r.Replace(c.Layout.RTLTrace),
		SpikeTrace: r.Replace(c.Layout.SpikeTrace),
	}
}
