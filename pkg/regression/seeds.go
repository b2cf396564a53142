package regression

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Manu343726/lockstep/pkg/utils"
)

// ErrBadSeed is returned for seed text that is not an integer
var ErrBadSeed = errors.New("invalid seed")

// ParseSeeds converts seed arguments to integers
func ParseSeeds(args []string) ([]int, error) {
	seeds := make([]int, 0, len(args))
	for _, arg := range args {
		seed, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return nil, utils.MakeError(ErrBadSeed, "%q", arg)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

// ReadSeeds reads one seed per line, as written by the test generation flow (logs/seeds.txt).
// Blank lines and '#' comments are ignored.
func ReadSeeds(r io.Reader) ([]int, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), "#")
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading seeds: %w", err)
	}

	return ParseSeeds(lines)
}

// ReadSeedsFile reads the seeds file at path
func ReadSeedsFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seeds file: %w", err)
	}
	defer f.Close()

	return ReadSeeds(f)
}
