package report

import (
	"fmt"

	"github.com/imazen/crusader/internal/model"
)

// Summary accumulates per-verdict counts across every dependent in a
// run, the source of truth for the process exit code (spec.md §6).
type Summary struct {
	Passed    int
	Regressed int
	Broken    int
	Skipped   int
}

// Count increments the bucket matching verdict.
func (s *Summary) Count(verdict model.Verdict) {
	switch verdict {
	case model.VerdictPassed:
		s.Passed++
	case model.VerdictRegressed:
		s.Regressed++
	case model.VerdictBroken:
		s.Broken++
	}
}

// Total is the number of offered-version rows counted.
func (s Summary) Total() int { return s.Passed + s.Regressed + s.Broken }

// ExitCode implements spec.md §6's exit code rule: 0 when every row is
// Passed or Broken, -2 when any row Regressed.
func (s Summary) ExitCode() int {
	if s.Regressed > 0 {
		return -2
	}
	return 0
}

// Format renders the human-readable summary block.
func (s Summary) Format() string {
	return fmt.Sprintf(
		"\nSummary:\n  ✓ Passed:    %d\n  ✗ Regressed: %d\n  ⚠ Broken:    %d\n  ————————————\n  Total:       %d\n\n",
		s.Passed, s.Regressed, s.Broken, s.Total(),
	)
}
