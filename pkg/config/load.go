package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every configuration environment variable (LOCKSTEP_ISA, LOCKSTEP_TOOLCHAIN_PREFIX, ...)
const EnvPrefix = "LOCKSTEP"

// Default values
const (
	DefaultToolchainPrefix = "riscv64-unknown-elf"
	DefaultISA             = "rv32i"
	DefaultTestName        = "riscv_arithmetic_basic_test"
	DefaultEntrySymbol     = "_start"
	DefaultResetAddress    = "0x80000000"
	DefaultGate            = "at-or-above"
	DefaultOutDir          = "out"
	DefaultJobs            = 1
	DefaultToolTimeout     = 2 * time.Minute
)

// DefaultLayout mirrors the directory structure produced by the riscv-dv generation flow
func DefaultLayout() Layout {
	return Layout{
		ELF:        "{out}/asm_test/{test}_{seed}.o",
		Binary:     "{out}/asm_test/{test}_{seed}.bin",
		MemImage:   "{out}/asm_test/{test}_{seed}.mem",
		RTLLog:     "{out}/rtl_trace_{seed}.log",
		SpikeLog:   "{out}/spike_sim/{test}_{seed}.log",
		RTLTrace:   "{out}/rtl_trace_{seed}.csv",
		SpikeTrace: "{out}/spike_trace_{seed}.csv",
	}
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Toolchain:    Toolchain{Prefix: DefaultToolchainPrefix},
		ISA:          DefaultISA,
		TestName:     DefaultTestName,
		EntrySymbol:  DefaultEntrySymbol,
		ResetAddress: DefaultResetAddress,
		Gate:         DefaultGate,
		OutDir:       DefaultOutDir,
		Layout:       DefaultLayout(),
		Jobs:         DefaultJobs,
		ToolTimeout:  DefaultToolTimeout,
	}
}

// legacyEnv maps configuration keys to the environment variables used by the riscv-dv shell flow
var legacyEnv = map[string]string{
	"toolchain.prefix": "RISCV_PREFIX",
	"isa":              "TARGET_ISA",
	"test_name":        "DEFAULT_TEST_NAME",
}

// SetDefaults registers every default and environment binding on v
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("toolchain.prefix", d.Toolchain.Prefix)
	v.SetDefault("toolchain.bin_dir", d.Toolchain.BinDir)
	v.SetDefault("isa", d.ISA)
	v.SetDefault("test_name", d.TestName)
	v.SetDefault("entry_symbol", d.EntrySymbol)
	v.SetDefault("reset_address", d.ResetAddress)
	v.SetDefault("gate", d.Gate)
	v.SetDefault("out_dir", d.OutDir)
	v.SetDefault("layout.elf", d.Layout.ELF)
	v.SetDefault("layout.binary", d.Layout.Binary)
	v.SetDefault("layout.mem_image", d.Layout.MemImage)
	v.SetDefault("layout.rtl_log", d.Layout.RTLLog)
	v.SetDefault("layout.spike_log", d.Layout.SpikeLog)
	v.SetDefault("layout.rtl_trace", d.Layout.RTLTrace)
	v.SetDefault("layout.spike_trace", d.Layout.SpikeTrace)
	v.SetDefault("jobs", d.Jobs)
	v.SetDefault("tool_timeout", d.ToolTimeout)
	v.SetDefault("build_image", d.BuildImage)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("log_file", d.LogFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Prefixed names win over the legacy ones
	for key, legacy := range legacyEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy)
	}
}

// FromViper decodes and validates the configuration held by v.
// SetDefaults must have been called on v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
