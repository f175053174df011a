package signal

import (
	"strings"

	"github.com/sawpanic/backtestlab/internal/domain"
	"github.com/sawpanic/backtestlab/internal/indicators"
)

// ValidatePatterns checks that every pattern name a StrategySpec selects is
// recognized by the pattern catalog (internal/indicators), a
// construction-time check per §9 Design Notes ("unknown indicator keys are a
// construction-time error" extended to pattern names).
func ValidatePatterns(selected []string) error {
	known := make(map[string]bool, len(indicators.KnownPatterns()))
	for _, n := range indicators.KnownPatterns() {
		known[n] = true
	}
	var unknown []string
	for _, n := range selected {
		if !known[n] {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return domain.InvalidInput("unknown pattern name(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}
