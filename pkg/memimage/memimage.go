// Package memimage converts raw object bytes into the word-oriented text memory image
// loaded by the RTL testbench with $readmemb.
//
// Every 4 input bytes become one little-endian 32-bit word, rendered as exactly 32
// binary digits (most significant bit first) on its own line. A short final chunk is
// right-padded with zero bytes so that no simulated memory bit is left undefined.
package memimage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Manu343726/lockstep/pkg/utils"
)

const (
	// WordSize is the number of input bytes packed into each memory word
	WordSize = 4

	// WordBits is the number of binary digits per rendered line
	WordBits = WordSize * utils.BitsPerByte
)

// ErrMalformedLine is returned by Decode when a line is not exactly WordBits binary digits
var ErrMalformedLine = errors.New("malformed memory image line")

// Image is an ordered sequence of 32-bit memory words
type Image []uint32

// Build packs data into little-endian words, zero-padding the final partial chunk
func Build(data []byte) Image {
	words := make(Image, 0, WordCount(len(data)))

	for offset := 0; offset < len(data); offset += WordSize {
		words = append(words, packWord(data[offset:min(offset+WordSize, len(data))]))
	}

	return words
}

// WordCount returns the number of words an input of n bytes produces
func WordCount(n int) int {
	return (n + WordSize - 1) / WordSize
}

// FormatWord renders a word as its fixed width binary line (without newline)
func FormatWord(word uint32) string {
	return utils.FormatUintBinary(uint64(word), WordBits)
}

// WriteTo writes one newline-terminated binary line per word
func (img Image) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64

	for _, word := range img {
		n, err := bw.WriteString(FormatWord(word) + "\n")
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, bw.Flush()
}

// Bytes returns the little-endian byte contents of the image, including any tail padding
func (img Image) Bytes() []byte {
	out := make([]byte, len(img)*WordSize)
	for i, word := range img {
		binary.LittleEndian.PutUint32(out[i*WordSize:], word)
	}
	return out
}

// Convert streams r into w as a memory image and returns the number of words written
func Convert(r io.Reader, w io.Writer) (int, error) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	chunk := make([]byte, WordSize)
	words := 0

	for {
		n, err := io.ReadFull(br, chunk)
		if n > 0 {
			if _, werr := bw.WriteString(FormatWord(packWord(chunk[:n])) + "\n"); werr != nil {
				return words, werr
			}
			words++
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return words, err
		}
	}

	return words, bw.Flush()
}

// ConvertFile converts the raw binary at src into a memory image file at dst.
// An empty source yields an empty image, not an error.
func ConvertFile(src, dst string) (int, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open binary: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create memory image: %w", err)
	}

	words, err := Convert(in, out)
	if err != nil {
		out.Close()
		return words, fmt.Errorf("failed to write memory image %s: %w", dst, err)
	}

	if err := out.Close(); err != nil {
		return words, fmt.Errorf("failed to close memory image %s: %w", dst, err)
	}

	return words, nil
}

// Decode parses a memory image back into its little-endian bytes (padding included)
func Decode(r io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(r)
	var out []byte
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")

		if len(text) != WordBits || strings.Trim(text, "01") != "" {
			return nil, utils.MakeError(ErrMalformedLine, "line %d: %q", line, text)
		}

		word, err := strconv.ParseUint(text, 2, WordBits)
		if err != nil {
			return nil, utils.MakeError(ErrMalformedLine, "line %d: %v", line, err)
		}

		out = binary.LittleEndian.AppendUint32(out, uint32(word))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading memory image: %w", err)
	}

	return out, nil
}

// DecodeFile reads and decodes the memory image at path
func DecodeFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory image: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// packWord decodes up to WordSize bytes as a little-endian word, zero-padding short chunks
func packWord(chunk []byte) uint32 {
	var padded [WordSize]byte
	copy(padded[:], chunk)
	return binary.LittleEndian.Uint32(padded[:])
}
