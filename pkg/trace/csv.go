package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Manu343726/lockstep/pkg/utils"
)

// Header lists the canonical trace CSV columns, in order
var Header = []string{"pc", "instr", "gpr", "csr", "binary", "mode", "instr_str", "operand", "pad"}

// ErrBadHeader is returned when a CSV file does not carry the canonical header
var ErrBadHeader = errors.New("not a canonical trace CSV")

func (r *Record) row() []string {
	return []string{r.PC, r.Mnemonic, r.GPR, "", r.Binary, MachineMode, r.InstrStr, r.Operand, ""}
}

// WriteCSV writes the header and one row per record
func WriteCSV(w io.Writer, stream Stream) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return err
	}
	for i := range stream {
		if err := writer.Write(stream[i].row()); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes a canonical trace CSV to path
func WriteCSVFile(path string, stream Stream) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace CSV: %w", err)
	}

	if err := WriteCSV(f, stream); err != nil {
		f.Close()
		return fmt.Errorf("failed to write trace CSV %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close trace CSV %s: %w", path, err)
	}
	return nil
}

// ReadCSV parses a canonical trace CSV. Columns are located by header name.
func ReadCSV(r io.Reader) (Stream, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, utils.MakeError(ErrBadHeader, "empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("error reading trace CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range Header {
		if _, ok := columns[name]; !ok {
			return nil, utils.MakeError(ErrBadHeader, "missing column %q", name)
		}
	}

	var stream Stream
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading trace CSV: %w", err)
		}

		field := func(name string) string {
			if i := columns[name]; i < len(row) {
				return row[i]
			}
			return ""
		}

		stream = append(stream, Record{
			PC:       field("pc"),
			Binary:   field("binary"),
			GPR:      field("gpr"),
			Mnemonic: field("instr"),
			Operand:  field("operand"),
			InstrStr: field("instr_str"),
		})
	}

	return stream, nil
}

// ReadCSVFile reads the canonical trace CSV at path
func ReadCSVFile(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace CSV: %w", err)
	}
	defer f.Close()

	stream, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stream, nil
}
