package domain

// Regime is a named market-condition tag that may scale TotalScore when the
// strategy spec declares it applies to that regime.
type Regime string

const (
	RegimeTrend     Regime = "trend"
	RegimeReversion Regime = "reversion"
	RegimeBreakout  Regime = "breakout"
	RegimeChoppy    Regime = "choppy"
	RegimeHighVol   Regime = "high_vol"
)

// Weights holds the Scoring Engine's composition weights; StrategySpec.Validate
// checks that they sum to ~1.0.
type Weights struct {
	Pattern   float64 `json:"pattern" yaml:"pattern"`
	Technical float64 `json:"technical" yaml:"technical"`
	Volume    float64 `json:"volume" yaml:"volume"`
}

// TechnicalConfig toggles and parameterizes each indicator in the catalog.
// Unknown indicator keys are a construction-time error (§9 Design Notes):
// config.LoadStrategySpec rejects any YAML key that has no field here.
type TechnicalConfig struct {
	RSIPeriod      int  `json:"rsi_period" yaml:"rsi_period"`
	EnableRSI      bool `json:"enable_rsi" yaml:"enable_rsi"`
	MACDFast       int  `json:"macd_fast" yaml:"macd_fast"`
	MACDSlow       int  `json:"macd_slow" yaml:"macd_slow"`
	MACDSignal     int  `json:"macd_signal" yaml:"macd_signal"`
	EnableMACD     bool `json:"enable_macd" yaml:"enable_macd"`
	ATRPeriod      int  `json:"atr_period" yaml:"atr_period"`
	EnableATR      bool `json:"enable_atr" yaml:"enable_atr"`
	ADXPeriod      int  `json:"adx_period" yaml:"adx_period"`
	EnableADX      bool `json:"enable_adx" yaml:"enable_adx"`
	BBPeriod       int  `json:"bb_period" yaml:"bb_period"`
	BBStdDev       float64 `json:"bb_stddev" yaml:"bb_stddev"`
	EnableBB       bool `json:"enable_bb" yaml:"enable_bb"`
	KDPeriod       int  `json:"kd_period" yaml:"kd_period"`
	EnableKD       bool `json:"enable_kd" yaml:"enable_kd"`
	MAPeriods      []int `json:"ma_periods" yaml:"ma_periods"`
	VolumeWindow   int  `json:"volume_window" yaml:"volume_window"`
}

// PatternsConfig enumerates which named chart patterns are enabled. The
// pattern library is an extension point (§4.1); the contract is a boolean
// flag column per enabled pattern name.
type PatternsConfig struct {
	Selected []string `json:"selected" yaml:"selected"`
}

// SignalsConfig carries the Scoring Engine's weights.
type SignalsConfig struct {
	Weights Weights `json:"weights" yaml:"weights"`
}

// FiltersConfig holds screening predicates that sit outside the core loop
// (§6): the core never reads these, they pass through for external
// screening/recommendation services.
type FiltersConfig map[string]any

// Config is the `config` subsection of a StrategySpec.
type Config struct {
	Technical TechnicalConfig `json:"technical" yaml:"technical"`
	Patterns  PatternsConfig  `json:"patterns" yaml:"patterns"`
	Signals   SignalsConfig   `json:"signals" yaml:"signals"`
	Filters   FiltersConfig   `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// SignalParams parameterizes the Signal Engine's state machine (§4.3).
type SignalParams struct {
	BuyScore        float64 `json:"buy_score" yaml:"buy_score"`
	SellScore       float64 `json:"sell_score" yaml:"sell_score"`
	BuyConfirmDays  int     `json:"buy_confirm_days" yaml:"buy_confirm_days"`
	SellConfirmDays int     `json:"sell_confirm_days" yaml:"sell_confirm_days"`
	CooldownDays    int     `json:"cooldown_days" yaml:"cooldown_days"`
}

// StrategySpec is the immutable, serializable description of one strategy
// (§3). It never carries behavior itself; behavior is dispatched through the
// registry in internal/signal by StrategyID.
type StrategySpec struct {
	StrategyID      string         `json:"strategy_id" yaml:"strategy_id"`
	StrategyVersion string         `json:"strategy_version" yaml:"strategy_version"`
	Params          SignalParams   `json:"params" yaml:"params"`
	Config          Config         `json:"config" yaml:"config"`
	Regime          []Regime       `json:"regime" yaml:"regime"`
}

// Validate checks the structural invariants spec.md §6 requires before any
// evaluation begins. Failures are ErrInvalidInput.
func (s *StrategySpec) Validate() error {
	if s.StrategyID == "" {
		return InvalidInput("strategy_id is required")
	}
	if s.StrategyVersion == "" {
		return InvalidInput("strategy_version is required")
	}
	w := s.Config.Signals.Weights
	sum := w.Pattern + w.Technical + w.Volume
	if sum < 0.99 || sum > 1.01 {
		return InvalidInput("signals.weights must sum to ~1.0, got %.4f", sum)
	}
	if s.Params.BuyConfirmDays < 1 || s.Params.SellConfirmDays < 1 {
		return InvalidInput("buy_confirm_days and sell_confirm_days must be >= 1")
	}
	if s.Params.CooldownDays < 0 {
		return InvalidInput("cooldown_days must be >= 0")
	}
	return nil
}
