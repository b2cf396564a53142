package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Manu343726/lockstep/pkg/normalize"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, setup func(v *viper.Viper)) (*Config, error) {
	t.Helper()

	v := viper.New()
	SetDefaults(v)
	if setup != nil {
		setup(v)
	}
	return FromViper(v)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	xlen, err := cfg.XLEN()
	require.NoError(t, err)
	assert.Equal(t, 32, xlen)

	reset, err := cfg.Reset()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x80000000), reset)

	gate, err := cfg.GateMode()
	require.NoError(t, err)
	assert.Equal(t, normalize.GateAtOrAbove, gate)
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := load(t, nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromViper_LegacyEnvironment(t *testing.T) {
	t.Setenv("RISCV_PREFIX", "riscv32-unknown-elf")
	t.Setenv("TARGET_ISA", "rv64gc")
	t.Setenv("DEFAULT_TEST_NAME", "riscv_rand_instr_test")

	cfg, err := load(t, nil)
	require.NoError(t, err)
	assert.Equal(t, "riscv32-unknown-elf", cfg.Toolchain.Prefix)
	assert.Equal(t, "rv64gc", cfg.ISA)
	assert.Equal(t, "riscv_rand_instr_test", cfg.TestName)

	xlen, err := cfg.XLEN()
	require.NoError(t, err)
	assert.Equal(t, 64, xlen)
}

func TestFromViper_PrefixedEnvironmentWinsOverLegacy(t *testing.T) {
	t.Setenv("TARGET_ISA", "rv64gc")
	t.Setenv("LOCKSTEP_ISA", "rv32im")
	t.Setenv("LOCKSTEP_JOBS", "4")
	t.Setenv("LOCKSTEP_TOOL_TIMEOUT", "30s")

	cfg, err := load(t, nil)
	require.NoError(t, err)
	assert.Equal(t, "rv32im", cfg.ISA)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
}

func TestFromViper_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lockstep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
isa: rv32im
gate: exact
entry_symbol: main
layout:
  rtl_log: "{out}/logs/rtl_{seed}.log"
`), 0o644))

	cfg, err := load(t, func(v *viper.Viper) {
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	})
	require.NoError(t, err)
	assert.Equal(t, "rv32im", cfg.ISA)
	assert.Equal(t, "exact", cfg.Gate)
	assert.Equal(t, "main", cfg.EntrySymbol)
	assert.Equal(t, "{out}/logs/rtl_{seed}.log", cfg.Layout.RTLLog)
	assert.Equal(t, DefaultLayout().SpikeLog, cfg.Layout.SpikeLog)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"isa":           func(c *Config) { c.ISA = "arm64" },
		"reset address": func(c *Config) { c.ResetAddress = "boot" },
		"gate":          func(c *Config) { c.Gate = "sometimes" },
		"jobs":          func(c *Config) { c.Jobs = 0 },
		"timeout":       func(c *Config) { c.ToolTimeout = -time.Second },
		"unseeded csv":  func(c *Config) { c.Layout.RTLTrace = "{out}/rtl.csv" },
		"shared trace":  func(c *Config) { c.Layout.SpikeTrace = c.Layout.RTLTrace },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestExpand(t *testing.T) {
	cfg := Default()
	cfg.OutDir = "out_2025"

	paths := cfg.Expand(42)
	assert.Equal(t, "out_2025/asm_test/riscv_arithmetic_basic_test_42.o", paths.ELF)
	assert.Equal(t, "out_2025/rtl_trace_42.log", paths.RTLLog)
	assert.Equal(t, "out_2025/spike_sim/riscv_arithmetic_basic_test_42.log", paths.SpikeLog)
	assert.Equal(t, "out_2025/rtl_trace_42.csv", paths.RTLTrace)
	assert.Equal(t, "out_2025/spike_trace_42.csv", paths.SpikeTrace)
	assert.NotEqual(t, paths.MemImage, cfg.Expand(43).MemImage)
}

func TestDisasmOptions(t *testing.T) {
	cfg := Default()
	cfg.ResetAddress = "0x1000"

	opts, err := cfg.DisasmOptions()
	require.NoError(t, err)
	assert.Equal(t, "_start", opts.EntrySymbol)
	assert.Equal(t, uint64(0x1000), opts.ResetAddress)
}

func TestYAML_LoadsBack(t *testing.T) {
	data, err := Default().YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "tool_timeout: 2m0s")

	path := filepath.Join(t.TempDir(), ".lockstep.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := load(t, func(v *viper.Viper) {
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "lockstep configuration", schema["title"])

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, properties, "layout")
	assert.Contains(t, properties, "toolchain")

	isa, ok := properties["isa"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Target ISA", isa["title"])

	gate, ok := properties["gate"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"at-or-above", "exact"}, gate["enum"])
}
