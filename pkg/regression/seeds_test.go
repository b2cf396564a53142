package regression

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeeds(t *testing.T) {
	seeds, err := ParseSeeds([]string{"1", " 42", "-3"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 42, -3}, seeds)

	_, err = ParseSeeds([]string{"1", "two"})
	assert.ErrorIs(t, err, ErrBadSeed)
	assert.ErrorContains(t, err, `"two"`)
}

func TestReadSeeds_SkipsBlanksAndComments(t *testing.T) {
	seeds, err := ReadSeeds(strings.NewReader("100\n\n  200  \n# nightly\n300 # flaky\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{100, 200, 300}, seeds)
}

func TestReadSeedsFile_Missing(t *testing.T) {
	_, err := ReadSeedsFile(filepath.Join(t.TempDir(), "seeds.txt"))
	assert.ErrorContains(t, err, "failed to open seeds file")
}
