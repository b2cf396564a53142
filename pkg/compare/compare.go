// Package compare decides whether two canonical trace streams describe the same
// architectural execution.
//
// Comparison is strict field equality walked index by index; every formatting
// concern is settled by the normalizers beforehand.
package compare

import (
	"fmt"
	"strings"

	"github.com/Manu343726/lockstep/pkg/trace"
)

// Field names a compared record field
type Field string

const (
	FieldPC          Field = "pc"
	FieldBinary      Field = "binary"
	FieldGPR         Field = "gpr"
	FieldInstruction Field = "instr_str"

	// FieldLength reports that one stream ended before the other
	FieldLength Field = "length"
)

// Verdict is the outcome of comparing two streams.
// Mismatch is an expected outcome of the pipeline, never an error.
type Verdict struct {
	Pass bool

	// Compared is the number of record pairs that matched before the verdict was reached
	Compared int

	// Index is the first mismatching position; meaningful only when Pass is false
	Index int

	// Expected and Actual are the records at Index; nil when that stream had already ended
	Expected *trace.Record
	Actual   *trace.Record

	// Fields lists what differed at Index
	Fields []Field

	ExpectedLen int
	ActualLen   int
}

// Streams walks expected and actual pairwise and stops at the first difference
func Streams(expected, actual trace.Stream) Verdict {
	verdict := Verdict{
		ExpectedLen: len(expected),
		ActualLen:   len(actual),
	}

	common := min(len(expected), len(actual))
	for i := 0; i < common; i++ {
		if fields := Diff(&expected[i], &actual[i]); len(fields) > 0 {
			verdict.Index = i
			verdict.Expected = &expected[i]
			verdict.Actual = &actual[i]
			verdict.Fields = fields
			return verdict
		}
		verdict.Compared++
	}

	if len(expected) != len(actual) {
		verdict.Index = common
		verdict.Fields = []Field{FieldLength}
		if common < len(expected) {
			verdict.Expected = &expected[common]
		}
		if common < len(actual) {
			verdict.Actual = &actual[common]
		}
		return verdict
	}

	verdict.Pass = true
	return verdict
}

// Diff returns the compared fields that differ between two records
func Diff(a, b *trace.Record) []Field {
	var fields []Field
	if a.PC != b.PC {
		fields = append(fields, FieldPC)
	}
	if a.Binary != b.Binary {
		fields = append(fields, FieldBinary)
	}
	if a.GPR != b.GPR {
		fields = append(fields, FieldGPR)
	}
	if a.InstrStr != b.InstrStr {
		fields = append(fields, FieldInstruction)
	}
	return fields
}

// Files loads two canonical trace CSV files and compares them
func Files(expectedPath, actualPath string) (Verdict, error) {
	expected, err := trace.ReadCSVFile(expectedPath)
	if err != nil {
		return Verdict{}, err
	}
	actual, err := trace.ReadCSVFile(actualPath)
	if err != nil {
		return Verdict{}, err
	}
	return Streams(expected, actual), nil
}

// String summarizes the verdict in one line
func (v Verdict) String() string {
	if v.Pass {
		return fmt.Sprintf("[PASSED]: %d matched", v.Compared)
	}

	names := make([]string, len(v.Fields))
	for i, field := range v.Fields {
		names[i] = string(field)
	}
	return fmt.Sprintf("[FAILED]: mismatch at record %d (%s), %d matched, lengths %d/%d",
		v.Index, strings.Join(names, ", "), v.Compared, v.ExpectedLen, v.ActualLen)
}
