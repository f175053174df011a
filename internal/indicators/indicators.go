// Package indicators implements the Indicator & Pattern Layer (spec.md §4.1):
// a fixed catalog of derived series computed left-to-right over OHLCV, each
// parameterized by a window length. The first N-1 outputs of an N-window
// indicator are left at domain.Invalid rather than silently zeroed.
package indicators

import (
	"math"
	"sort"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// Compute fills in the derived columns of frame according to cfg, using the
// bars already present in frame (frame.Rows[i].Bar). Patterns are detected
// afterward using the now-populated indicator columns.
func Compute(frame *domain.IndicatorFrame, cfg domain.TechnicalConfig, patternCfg domain.PatternsConfig) error {
	n := frame.Len()
	if n == 0 {
		return domain.InvalidInput("indicator frame has no rows")
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, r := range frame.Rows {
		closes[i] = r.Close
		highs[i] = r.High
		lows[i] = r.Low
		volumes[i] = float64(r.Volume)
	}

	if cfg.EnableRSI {
		period := orDefault(cfg.RSIPeriod, 14)
		rsi := RSI(closes, period)
		for i := range frame.Rows {
			frame.Rows[i].RSI = rsi[i]
		}
	}

	if cfg.EnableMACD {
		fast := orDefault(cfg.MACDFast, 12)
		slow := orDefault(cfg.MACDSlow, 26)
		signal := orDefault(cfg.MACDSignal, 9)
		macd, sig, hist := MACD(closes, fast, slow, signal)
		for i := range frame.Rows {
			frame.Rows[i].MACD = macd[i]
			frame.Rows[i].MACDSignal = sig[i]
			frame.Rows[i].MACDHist = hist[i]
		}
	}

	if cfg.EnableATR {
		period := orDefault(cfg.ATRPeriod, 14)
		atr := ATR(highs, lows, closes, period)
		for i := range frame.Rows {
			frame.Rows[i].ATR = atr[i]
		}
	}

	if cfg.EnableADX {
		period := orDefault(cfg.ADXPeriod, 14)
		adx := ADX(highs, lows, closes, period)
		for i := range frame.Rows {
			frame.Rows[i].ADX = adx[i]
		}
	}

	if cfg.EnableBB {
		period := orDefault(cfg.BBPeriod, 20)
		stddev := cfg.BBStdDev
		if stddev == 0 {
			stddev = 2.0
		}
		upper, mid, lower := Bollinger(closes, period, stddev)
		for i := range frame.Rows {
			frame.Rows[i].BBUpper = upper[i]
			frame.Rows[i].BBMid = mid[i]
			frame.Rows[i].BBLower = lower[i]
		}
	}

	if cfg.EnableKD {
		period := orDefault(cfg.KDPeriod, 9)
		k, d := KD(highs, lows, closes, period)
		for i := range frame.Rows {
			frame.Rows[i].KD_K = k[i]
			frame.Rows[i].KD_D = d[i]
		}
	}

	for _, period := range cfg.MAPeriods {
		ma := SMA(closes, period)
		for i := range frame.Rows {
			frame.Rows[i].MA[period] = ma[i]
		}
	}

	volWindow := orDefault(cfg.VolumeWindow, 20)
	volRatio := VolumeRatio(volumes, volWindow)
	for i := range frame.Rows {
		frame.Rows[i].VolumeRatio = volRatio[i]
	}

	DetectPatterns(frame, patternCfg.Selected)

	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// invalidPrefix returns a slice of length n filled with domain.Invalid.
func invalidPrefix(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = domain.Invalid
	}
	return out
}

// SMA computes the simple moving average over `period` bars.
func SMA(closes []float64, period int) []float64 {
	n := len(closes)
	out := invalidPrefix(n)
	if period <= 0 || period > n {
		return out
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += closes[i]
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// RSI computes the Relative Strength Index using Wilder smoothing.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := invalidPrefix(n)
	if period <= 0 || n <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return out
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// EMA computes the exponential moving average, seeded with an SMA of the
// first `period` values as is conventional.
func EMA(closes []float64, period int) []float64 {
	n := len(closes)
	out := invalidPrefix(n)
	if period <= 0 || n < period {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	seed := sum / float64(period)
	out[period-1] = seed
	prev := seed
	for i := period; i < n; i++ {
		prev = closes[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// MACD computes the MACD line, signal line, and histogram.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	n := len(closes)
	macd = invalidPrefix(n)
	sig = invalidPrefix(n)
	hist = invalidPrefix(n)

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	macdSeries := make([]float64, 0, n)
	macdStart := -1
	for i := 0; i < n; i++ {
		if domain.IsInvalid(emaFast[i]) || domain.IsInvalid(emaSlow[i]) {
			continue
		}
		if macdStart == -1 {
			macdStart = i
		}
		macdSeries = append(macdSeries, emaFast[i]-emaSlow[i])
	}
	if macdStart == -1 {
		return macd, sig, hist
	}
	for i, v := range macdSeries {
		macd[macdStart+i] = v
	}

	signalSeries := EMA(macdSeries, signal)
	for i, v := range signalSeries {
		if !domain.IsInvalid(v) {
			idx := macdStart + i
			sig[idx] = v
			hist[idx] = macd[idx] - v
		}
	}
	return macd, sig, hist
}

// ATR computes the Average True Range over `period` bars using Wilder
// smoothing of the True Range series.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := invalidPrefix(n)
	if period <= 0 || n <= period {
		return out
	}
	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		tr[i] = trueRange(highs[i], lows[i], closes[i-1])
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	out[period] = atr
	for i := period + 1; i < n; i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out
}

func trueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// ADX computes the Average Directional Index over `period` bars.
func ADX(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := invalidPrefix(n)
	if period <= 0 || n <= 2*period {
		return out
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(highs[i], lows[i], closes[i-1])
	}

	smoothedTR := wilderSmooth(tr, period)
	smoothedPlusDM := wilderSmooth(plusDM, period)
	smoothedMinusDM := wilderSmooth(minusDM, period)

	dx := invalidPrefix(n)
	for i := period; i < n; i++ {
		if smoothedTR[i] == 0 {
			continue
		}
		plusDI := 100 * smoothedPlusDM[i] / smoothedTR[i]
		minusDI := 100 * smoothedMinusDM[i] / smoothedTR[i]
		denom := plusDI + minusDI
		if denom == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / denom
	}

	adxStart := 2 * period
	if adxStart >= n {
		return out
	}
	sum := 0.0
	for i := period; i < adxStart; i++ {
		sum += dx[i]
	}
	adx := sum / float64(period)
	out[adxStart] = adx
	for i := adxStart + 1; i < n; i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		out[i] = adx
	}
	return out
}

func wilderSmooth(values []float64, period int) []float64 {
	n := len(values)
	out := make([]float64, n)
	sum := 0.0
	for i := 1; i <= period && i < n; i++ {
		sum += values[i]
	}
	out[period] = sum
	for i := period + 1; i < n; i++ {
		out[i] = out[i-1] - out[i-1]/float64(period) + values[i]
	}
	return out
}

// Bollinger computes the upper/middle/lower Bollinger Bands.
func Bollinger(closes []float64, period int, stddevMult float64) (upper, mid, lower []float64) {
	n := len(closes)
	upper = invalidPrefix(n)
	mid = invalidPrefix(n)
	lower = invalidPrefix(n)
	if period <= 0 || n < period {
		return
	}
	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		mean := meanOf(window)
		sd := stddevOf(window, mean)
		mid[i] = mean
		upper[i] = mean + stddevMult*sd
		lower[i] = mean - stddevMult*sd
	}
	return
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddevOf(xs []float64, mean float64) float64 {
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// KD computes the stochastic oscillator's %K and %D lines.
func KD(highs, lows, closes []float64, period int) (k, d []float64) {
	n := len(closes)
	k = invalidPrefix(n)
	d = invalidPrefix(n)
	if period <= 0 || n < period {
		return
	}
	rawK := invalidPrefix(n)
	for i := period - 1; i < n; i++ {
		hh := maxOf(highs[i-period+1 : i+1])
		ll := minOf(lows[i-period+1 : i+1])
		if hh == ll {
			rawK[i] = 50.0
			continue
		}
		rawK[i] = (closes[i] - ll) / (hh - ll) * 100
	}
	// %K is a 3-period SMA of raw K, %D is a 3-period SMA of %K.
	smoothK := SMA(rawK, 3)
	for i := range smoothK {
		if !domain.IsInvalid(rawK[i]) && !domain.IsInvalid(smoothK[i]) {
			k[i] = smoothK[i]
		}
	}
	smoothD := SMA(k, 3)
	copy(d, smoothD)
	return
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs {
		if x < m {
			m = x
		}
	}
	return m
}

// VolumeRatio computes current volume / trailing `window`-bar average
// volume (pre-clamp; the Scoring Engine clamps to [0,100]).
func VolumeRatio(volumes []float64, window int) []float64 {
	n := len(volumes)
	out := invalidPrefix(n)
	if window <= 0 || n < window {
		return out
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += volumes[i]
		if i >= window {
			sum -= volumes[i-window]
		}
		if i >= window-1 {
			avg := sum / float64(window)
			if avg > 0 {
				out[i] = volumes[i] / avg
			} else {
				out[i] = domain.Invalid
			}
		}
	}
	return out
}

// sortedCopy is a small helper used by pattern detectors that need an
// ascending view of a window without mutating the source slice.
func sortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}
