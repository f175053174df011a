package indicators

import "github.com/sawpanic/backtestlab/internal/domain"

// patternWindow is how many trailing bars a pattern detector inspects.
const patternWindow = 20

// patternDetector is a named chart-pattern rule: given the trailing closes
// window ending at bar i (inclusive), report whether the pattern fired on
// bar i. The pattern library is an extension point (§4.1) — new detectors
// register here.
type patternDetector func(closes []float64) bool

var patternCatalog = map[string]patternDetector{
	"double_bottom":       detectDoubleBottom,
	"head_and_shoulders":  detectHeadAndShoulders,
	"wedge":               detectWedge,
}

// DetectPatterns fills frame.Rows[i].Patterns[name] for each enabled pattern
// name. Unknown pattern names are skipped — the catalog only recognizes the
// names registered in patternCatalog at construction time of the strategy
// spec (validated by internal/signal.ValidatePatterns).
func DetectPatterns(frame *domain.IndicatorFrame, selected []string) {
	n := frame.Len()
	closes := make([]float64, n)
	for i, r := range frame.Rows {
		closes[i] = r.Close
	}

	for _, name := range selected {
		detector, ok := patternCatalog[name]
		if !ok {
			continue
		}
		for i := 0; i < n; i++ {
			if i+1 < patternWindow {
				frame.Rows[i].Patterns[name] = false
				continue
			}
			window := closes[i-patternWindow+1 : i+1]
			frame.Rows[i].Patterns[name] = detector(window)
		}
	}
}

// KnownPatterns returns the set of pattern names the catalog recognizes, for
// construction-time validation of a StrategySpec's patterns.selected list.
func KnownPatterns() []string {
	names := make([]string, 0, len(patternCatalog))
	for name := range patternCatalog {
		names = append(names, name)
	}
	return names
}

// localMinima returns the indices of local minima in xs (a value lower than
// both neighbors).
func localMinima(xs []float64) []int {
	var out []int
	for i := 1; i < len(xs)-1; i++ {
		if xs[i] < xs[i-1] && xs[i] < xs[i+1] {
			out = append(out, i)
		}
	}
	return out
}

// localMaxima returns the indices of local maxima in xs.
func localMaxima(xs []float64) []int {
	var out []int
	for i := 1; i < len(xs)-1; i++ {
		if xs[i] > xs[i-1] && xs[i] > xs[i+1] {
			out = append(out, i)
		}
	}
	return out
}

// detectDoubleBottom fires when the window has two local minima of
// comparable depth (within 2%) separated by a rally, with the pattern
// completing (closing above the intervening peak) by the last bar.
func detectDoubleBottom(closes []float64) bool {
	minima := localMinima(closes)
	if len(minima) < 2 {
		return false
	}
	a, b := minima[len(minima)-2], minima[len(minima)-1]
	if b-a < 3 {
		return false
	}
	depthA, depthB := closes[a], closes[b]
	if depthA == 0 {
		return false
	}
	if absRatio(depthA, depthB) > 0.02 {
		return false
	}
	peak := maxOf(closes[a:b])
	return closes[len(closes)-1] > peak
}

// detectHeadAndShoulders fires on three local maxima where the middle one
// (the head) is the tallest and the two shoulders are of comparable height,
// followed by a break below the neckline (the lower of the two intervening
// troughs).
func detectHeadAndShoulders(closes []float64) bool {
	maxima := localMaxima(closes)
	if len(maxima) < 3 {
		return false
	}
	l, h, r := maxima[len(maxima)-3], maxima[len(maxima)-2], maxima[len(maxima)-1]
	if closes[h] <= closes[l] || closes[h] <= closes[r] {
		return false
	}
	if absRatio(closes[l], closes[r]) > 0.05 {
		return false
	}
	neckline := minOf(closes[l:r])
	return closes[len(closes)-1] < neckline
}

// detectWedge fires when the trailing highs and lows both trend in the same
// direction while converging (the spread between them narrows over the
// window), a shape conventionally read as a wedge.
func detectWedge(closes []float64) bool {
	n := len(closes)
	if n < 6 {
		return false
	}
	firstHalf := closes[:n/2]
	secondHalf := closes[n/2:]
	spreadFirst := maxOf(firstHalf) - minOf(firstHalf)
	spreadSecond := maxOf(secondHalf) - minOf(secondHalf)
	if spreadFirst == 0 {
		return false
	}
	converging := spreadSecond < spreadFirst*0.7
	sameDirection := (closes[n/2]-closes[0])*(closes[n-1]-closes[n/2]) > 0
	return converging && sameDirection
}

func absRatio(a, b float64) float64 {
	if a == 0 {
		return 1
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d / absOf(a)
}

func absOf(a float64) float64 {
	if a < 0 {
		return -a
	}
	return a
}
