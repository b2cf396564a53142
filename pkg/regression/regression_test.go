package regression

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Manu343726/lockstep/pkg/compare"
	"github.com/Manu343726/lockstep/pkg/config"
	"github.com/Manu343726/lockstep/pkg/logging"
	"github.com/Manu343726/lockstep/pkg/toolchain"
	"github.com/Manu343726/lockstep/pkg/trace"
)

const listing = `
test.o:     file format elf32-littleriscv

Disassembly of section .text:

80000000 <_start>:
80000000:	00500093          	li	ra,5
80000004:	00a00113          	li	sp,10
80000008:	002081b3          	add	gp,ra,sp
8000000c:	00000013          	nop
`

const spikeLog = `core   0: 3 0x00001000 (0x00000297) x5  0x00001000
core   0: 0x80000000 (0x00500093) li      ra, 5
core   0: 3 0x80000000 (0x00500093) x1  0x00000005
core   0: 3 0x80000004 (0x00a00113) x2  0x0000000a
core   0: 3 0x80000008 (0x002081b3) x3  0x0000000f
core   0: 3 0x8000000c (0x00000013) x0  0x00000000
`

const rtlLog = `core   0: 0x80000000 (0x00500093) x1  0x00000005
core   0: 0x80000004 (0x00a00113) x2  0x0000000a
core   0: 0x80000008 (0x002081b3) x3  0x0000000f
core   0: 0x8000000c (0x00000013) x0  0x00000000
`

type fixture struct {
	config *config.Config
	tools  *toolchain.Toolchain
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake binutils are shell scripts")
	}

	bin := t.TempDir()
	tools := toolchain.New(&toolchain.Config{Prefix: "lockstep-test-elf", BinDir: bin})

	install := func(tool toolchain.Tool, script string) {
		path := filepath.Join(bin, tools.Executable(tool))
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	}

	listingPath := filepath.Join(bin, "listing.txt")
	require.NoError(t, os.WriteFile(listingPath, []byte(listing), 0o644))
	install(toolchain.Objdump, "cat "+listingPath)
	install(toolchain.Nm, "echo '80000000 T _start'")
	// objcopy -O binary <elf> <out>: a single "li ra,5" word
	install(toolchain.Objcopy, `printf '\223\000\120\000' > "$4"`)

	cfg := config.Default()
	cfg.OutDir = t.TempDir()
	cfg.Jobs = 2

	return &fixture{config: cfg, tools: tools}
}

// seed lays out the ELF and both logs of a seed
func (f *fixture) seed(t *testing.T, seed int, spike, rtl string) config.Paths {
	t.Helper()

	paths := f.config.Expand(seed)
	write := func(path string, data []byte) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}

	write(paths.ELF, elfHeader())
	write(paths.SpikeLog, []byte(spike))
	write(paths.RTLLog, []byte(rtl))
	return paths
}

func (f *fixture) runner() *Runner {
	return NewRunner(f.config, f.tools, logging.Discard())
}

// elfHeader is a section-less RV32 executable header
func elfHeader() []byte {
	header := make([]byte, 52)
	copy(header, []byte{0x7f, 'E', 'L', 'F', 1, 1, 1})
	binary.LittleEndian.PutUint16(header[16:], 2)
	binary.LittleEndian.PutUint16(header[18:], 243)
	binary.LittleEndian.PutUint32(header[20:], 1)
	binary.LittleEndian.PutUint32(header[24:], 0x80000000)
	binary.LittleEndian.PutUint16(header[40:], 52)
	return header
}

func TestRunSeed_MatchingTraces(t *testing.T) {
	f := newFixture(t)
	paths := f.seed(t, 1, spikeLog, rtlLog)

	result, err := f.runner().RunSeed(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, 3, result.Verdict.Compared)
	assert.Equal(t, "0x80000000", result.Entry)

	assert.Equal(t, 1, result.SpikeStats.GatedOut)
	assert.Equal(t, 1, result.SpikeStats.NoWrite)
	assert.Equal(t, 1, result.SpikeStats.ZeroRegister)
	assert.Equal(t, 1, result.RTLStats.ZeroRegister)

	spike, err := trace.ReadCSVFile(paths.SpikeTrace)
	require.NoError(t, err)
	rtl, err := trace.ReadCSVFile(paths.RTLTrace)
	require.NoError(t, err)
	require.Len(t, spike, 3)
	assert.Equal(t, spike, rtl)
	assert.Equal(t, "80000008", spike[2].PC)
	assert.Equal(t, "gp:0x0000000f", spike[2].GPR)
	assert.Equal(t, "add     gp, ra, sp", spike[2].InstrStr)
}

func TestRun_CountsMismatchesWithoutFailing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, spikeLog, rtlLog)
	f.seed(t, 2, spikeLog, strings.Replace(rtlLog, "x3  0x0000000f", "x3  0x00000010", 1))
	f.seed(t, 3, spikeLog, rtlLog)

	summary, err := f.runner().Run(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.OK())
	assert.Equal(t, []int{2}, summary.FailedSeeds())

	require.Len(t, summary.Results, 3)
	for i, result := range summary.Results {
		assert.Equal(t, i+1, result.Seed)
	}

	mismatch := summary.Results[1].Mismatch
	require.NotNil(t, mismatch)
	assert.Equal(t, 2, mismatch.Index)
	assert.Equal(t, []string{string(compare.FieldGPR)}, mismatch.Fields)
	assert.Contains(t, mismatch.Actual, "gp:0x00000010")
	assert.Nil(t, summary.Results[0].Mismatch)
}

func TestRun_MissingLogIsFatal(t *testing.T) {
	f := newFixture(t)
	paths := f.seed(t, 1, spikeLog, rtlLog)
	require.NoError(t, os.Remove(paths.RTLLog))

	_, err := f.runner().Run(context.Background(), []int{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "seed 1")
}

func TestRun_MissingObjdumpIsFatal(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, spikeLog, rtlLog)
	f.tools = toolchain.New(&toolchain.Config{Prefix: "lockstep-missing-elf", BinDir: t.TempDir()})

	_, err := f.runner().Run(context.Background(), []int{1})
	assert.ErrorIs(t, err, toolchain.ErrToolFailure)
}

func TestRun_RejectsDuplicateSeeds(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner().Run(context.Background(), []int{4, 5, 4})
	assert.ErrorIs(t, err, ErrDuplicateSeed)
}

func TestRunSeed_BuildsMemoryImage(t *testing.T) {
	f := newFixture(t)
	f.config.BuildImage = true
	paths := f.seed(t, 7, spikeLog, rtlLog)

	result, err := f.runner().RunSeed(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, result.Pass)

	mem, err := os.ReadFile(paths.MemImage)
	require.NoError(t, err)
	assert.Equal(t, "00000000010100000000000010010011\n", string(mem))
}

func TestRunSeed_EmptyTracesPassVacuously(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, "", "")

	result, err := f.runner().RunSeed(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Zero(t, result.Verdict.Compared)
}

func TestSummary_WriteYAML(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, spikeLog, rtlLog)
	f.seed(t, 2, spikeLog, strings.Replace(rtlLog, "0x80000004 (0x00a00113)", "0x80000004 (0x00b00113)", 1))

	summary, err := f.runner().Run(context.Background(), []int{1, 2})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "summary.yaml")
	require.NoError(t, summary.WriteYAML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var report struct {
		Passed  int `yaml:"passed"`
		Failed  int `yaml:"failed"`
		Results []struct {
			Seed     int  `yaml:"seed"`
			Pass     bool `yaml:"pass"`
			Mismatch *struct {
				Index  int      `yaml:"index"`
				Fields []string `yaml:"fields"`
			} `yaml:"mismatch"`
			Spike struct {
				Retained int `yaml:"retained"`
			} `yaml:"spike"`
		} `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal(data, &report))

	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 3, report.Results[0].Spike.Retained)
	require.NotNil(t, report.Results[1].Mismatch)
	assert.Equal(t, 1, report.Results[1].Mismatch.Index)
	assert.Equal(t, []string{"binary"}, report.Results[1].Mismatch.Fields)
}
