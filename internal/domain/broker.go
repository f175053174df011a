package domain

// ExecutionPrice selects when a signal on bar t actually fills (§4.4).
type ExecutionPrice string

const (
	// ExecutionNextOpen fills at the open of bar t+1 (default; avoids look-ahead).
	ExecutionNextOpen ExecutionPrice = "next_open"
	// ExecutionClose fills at the close of bar t.
	ExecutionClose ExecutionPrice = "close"
)

// SizingMode selects how target share count is computed before the volume cap (§4.4).
type SizingMode string

const (
	SizingAllIn      SizingMode = "all_in"
	SizingFixed      SizingMode = "fixed_amount"
	SizingRiskBased  SizingMode = "risk_based"
)

// BrokerConfig is the full set of recognized execution knobs from §6. Zero
// values are not meaningful defaults for every field; use DefaultBrokerConfig.
type BrokerConfig struct {
	FeeBps    float64 `json:"fee_bps" yaml:"fee_bps"`
	FeeFloor  float64 `json:"fee_floor" yaml:"fee_floor"`
	TaxRate   float64 `json:"tax_rate" yaml:"tax_rate"`
	SlippageBps float64 `json:"slippage_bps" yaml:"slippage_bps"`

	StopLossPct     *float64 `json:"stop_loss_pct,omitempty" yaml:"stop_loss_pct,omitempty"`
	TakeProfitPct   *float64 `json:"take_profit_pct,omitempty" yaml:"take_profit_pct,omitempty"`
	StopLossATRMult *float64 `json:"stop_loss_atr_mult,omitempty" yaml:"stop_loss_atr_mult,omitempty"`
	TakeProfitATRMult *float64 `json:"take_profit_atr_mult,omitempty" yaml:"take_profit_atr_mult,omitempty"`
	ATRPeriod       int      `json:"atr_period" yaml:"atr_period"`

	ExecutionPrice ExecutionPrice `json:"execution_price" yaml:"execution_price"`

	EnableLimitUpDown  bool    `json:"enable_limit_up_down" yaml:"enable_limit_up_down"`
	LimitUpDownPct     float64 `json:"limit_up_down_pct" yaml:"limit_up_down_pct"`
	EnableVolumeConstraint bool `json:"enable_volume_constraint" yaml:"enable_volume_constraint"`
	MaxParticipationRate  float64 `json:"max_participation_rate" yaml:"max_participation_rate"`

	SizingMode   SizingMode `json:"sizing_mode" yaml:"sizing_mode"`
	FixedAmount  *float64   `json:"fixed_amount,omitempty" yaml:"fixed_amount,omitempty"`
	RiskPct      *float64   `json:"risk_pct,omitempty" yaml:"risk_pct,omitempty"`

	AllowPyramid        bool `json:"allow_pyramid" yaml:"allow_pyramid"`
	AllowReentry        bool `json:"allow_reentry" yaml:"allow_reentry"`
	ReentryCooldownDays int  `json:"reentry_cooldown_days" yaml:"reentry_cooldown_days"`
	MaxPositions        *int `json:"max_positions,omitempty" yaml:"max_positions,omitempty"`
	LotSize             int  `json:"lot_size" yaml:"lot_size"`
}

// DefaultBrokerConfig returns the §6 default values.
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		FeeBps:                 14.25,
		FeeFloor:               20.0,
		TaxRate:                0.003,
		SlippageBps:            5.0,
		ATRPeriod:              14,
		ExecutionPrice:         ExecutionNextOpen,
		EnableLimitUpDown:      true,
		LimitUpDownPct:         0.10,
		EnableVolumeConstraint: true,
		MaxParticipationRate:   0.05,
		SizingMode:             SizingAllIn,
		AllowPyramid:           false,
		AllowReentry:           true,
		ReentryCooldownDays:    0,
		LotSize:                1000,
	}
}

// Validate checks the cross-field coherence rules §6/§7 require.
func (c *BrokerConfig) Validate() error {
	if c.SizingMode == SizingFixed && c.FixedAmount == nil {
		return InvalidInput("sizing_mode=fixed_amount requires fixed_amount")
	}
	if c.SizingMode == SizingRiskBased && c.RiskPct == nil {
		return InvalidInput("sizing_mode=risk_based requires risk_pct")
	}
	if c.LotSize <= 0 {
		return InvalidInput("lot_size must be > 0")
	}
	if c.ExecutionPrice != ExecutionNextOpen && c.ExecutionPrice != ExecutionClose {
		return InvalidInput("execution_price must be next_open or close, got %q", c.ExecutionPrice)
	}
	return nil
}
