package regression

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Manu343726/lockstep/pkg/compare"
	"github.com/Manu343726/lockstep/pkg/config"
	"github.com/Manu343726/lockstep/pkg/normalize"
	"github.com/Manu343726/lockstep/pkg/utils"
)

// Result is the outcome of one seed
type Result struct {
	Seed  int    `yaml:"seed"`
	Pass  bool   `yaml:"pass"`
	Entry string `yaml:"entry"`

	SpikeStats normalize.Stats `yaml:"spike"`
	RTLStats   normalize.Stats `yaml:"rtl"`

	Verdict compare.Verdict `yaml:"-"`
	Paths   config.Paths    `yaml:"-"`

	Mismatch *Mismatch `yaml:"mismatch,omitempty"`
}

// Mismatch is the report form of a failed verdict
type Mismatch struct {
	Index    int      `yaml:"index"`
	Fields   []string `yaml:"fields"`
	Expected string   `yaml:"expected"`
	Actual   string   `yaml:"actual"`
}

// Summary aggregates the results of a run
type Summary struct {
	Passed  int      `yaml:"passed"`
	Failed  int      `yaml:"failed"`
	Results []Result `yaml:"results"`
}

// Summarize counts passes and failures and fills the report form of every mismatch
func Summarize(results []Result) *Summary {
	summary := &Summary{Results: results}

	for i := range summary.Results {
		result := &summary.Results[i]
		if result.Pass {
			summary.Passed++
			continue
		}

		summary.Failed++
		result.Mismatch = &Mismatch{
			Index:    result.Verdict.Index,
			Fields:   utils.Map(result.Verdict.Fields, func(f compare.Field) string { return string(f) }),
			Expected: result.Verdict.Expected.String(),
			Actual:   result.Verdict.Actual.String(),
		}
	}

	return summary
}

// OK reports whether every seed passed
func (s *Summary) OK() bool {
	return s.Failed == 0
}

// FailedSeeds lists the seeds whose traces differ
func (s *Summary) FailedSeeds() []int {
	failed := utils.Filter(s.Results, func(r Result) bool { return !r.Pass })
	return utils.Map(failed, func(r Result) int { return r.Seed })
}

// WriteYAML persists the summary as a YAML report
func (s *Summary) WriteYAML(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
