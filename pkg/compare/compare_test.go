package compare

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Manu343726/lockstep/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeStream(n int) trace.Stream {
	stream := make(trace.Stream, n)
	for i := range stream {
		stream[i] = trace.Record{
			PC:       fmt.Sprintf("%08x", 0x80000000+4*i),
			Binary:   fmt.Sprintf("%08x", 0x00100093+i),
			GPR:      fmt.Sprintf("ra:0x%08x", i),
			Mnemonic: "addi",
			Operand:  fmt.Sprintf("ra, zero, %d", i),
			InstrStr: fmt.Sprintf("addi    ra, zero, %d", i),
		}
	}
	return stream
}

func clone(stream trace.Stream) trace.Stream {
	return append(trace.Stream{}, stream...)
}

func TestStreams_Reflexive(t *testing.T) {
	for _, n := range []int{0, 1, 10} {
		stream := makeStream(n)
		verdict := Streams(stream, clone(stream))

		assert.True(t, verdict.Pass, "n=%d", n)
		assert.Equal(t, n, verdict.Compared)
		assert.Nil(t, verdict.Expected)
		assert.Nil(t, verdict.Actual)
	}
}

func TestStreams_SwappedNeighboursFailAtFirstSwap(t *testing.T) {
	stream := makeStream(6)

	for i := 0; i+1 < len(stream); i++ {
		swapped := clone(stream)
		swapped[i], swapped[i+1] = swapped[i+1], swapped[i]

		verdict := Streams(stream, swapped)
		require.False(t, verdict.Pass)
		assert.Equal(t, i, verdict.Index)
		assert.Equal(t, i, verdict.Compared)
	}
}

func TestStreams_EachFieldIsCompared(t *testing.T) {
	cases := map[Field]func(*trace.Record){
		FieldPC:          func(r *trace.Record) { r.PC = "deadbeef" },
		FieldBinary:      func(r *trace.Record) { r.Binary = "00000013" },
		FieldGPR:         func(r *trace.Record) { r.GPR = "ra:0xffffffff" },
		FieldInstruction: func(r *trace.Record) { r.InstrStr = "nop     " },
	}

	for field, mutate := range cases {
		t.Run(string(field), func(t *testing.T) {
			expected := makeStream(3)
			actual := clone(expected)
			mutate(&actual[1])

			verdict := Streams(expected, actual)
			require.False(t, verdict.Pass)
			assert.Equal(t, 1, verdict.Index)
			assert.Equal(t, []Field{field}, verdict.Fields)
			assert.Equal(t, expected[1], *verdict.Expected)
			assert.Equal(t, actual[1], *verdict.Actual)
		})
	}
}

func TestStreams_OperandTextAloneIsNotCompared(t *testing.T) {
	expected := makeStream(2)
	actual := clone(expected)
	actual[0].Operand = "something else"
	actual[0].Mnemonic = "other"

	assert.True(t, Streams(expected, actual).Pass)
}

func TestStreams_ShorterActualFailsAtItsEnd(t *testing.T) {
	expected := makeStream(5)

	verdict := Streams(expected, expected[:3])
	require.False(t, verdict.Pass)
	assert.Equal(t, 3, verdict.Index)
	assert.Equal(t, []Field{FieldLength}, verdict.Fields)
	assert.Equal(t, expected[3], *verdict.Expected)
	assert.Nil(t, verdict.Actual)
	assert.Equal(t, 5, verdict.ExpectedLen)
	assert.Equal(t, 3, verdict.ActualLen)
}

func TestStreams_ShorterExpectedFailsAtItsEnd(t *testing.T) {
	actual := makeStream(2)

	verdict := Streams(nil, actual)
	require.False(t, verdict.Pass)
	assert.Equal(t, 0, verdict.Index)
	assert.Nil(t, verdict.Expected)
	assert.Equal(t, actual[0], *verdict.Actual)
}

func TestVerdictString(t *testing.T) {
	stream := makeStream(2)
	assert.Equal(t, "[PASSED]: 2 matched", Streams(stream, stream).String())

	other := clone(stream)
	other[1].PC = "00000000"
	assert.Contains(t, Streams(stream, other).String(), "[FAILED]: mismatch at record 1 (pc)")
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "spike.csv")
	b := filepath.Join(dir, "rtl.csv")

	stream := makeStream(4)
	require.NoError(t, trace.WriteCSVFile(a, stream))
	require.NoError(t, trace.WriteCSVFile(b, stream))

	verdict, err := Files(a, b)
	require.NoError(t, err)
	assert.True(t, verdict.Pass)

	_, err = Files(a, filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
