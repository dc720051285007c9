package options

import (
	"encoding/json"
	"math"
	"time"
)

// Record is a contract joined with its live quote. StrikePrice and
// OptionType always come from the contract side.
type Record struct {
	Code              string     `json:"code"`
	Name              string     `json:"name,omitempty"`
	StrikePrice       float64    `json:"strike_price"`
	StrikeTime        time.Time  `json:"strike_time"`
	OptionType        OptionType `json:"option_type"`
	OpenInterest      int64      `json:"open_interest"`
	Volume            int64      `json:"volume"`
	LastPrice         float64    `json:"last_price"`
	PrevClosePrice    float64    `json:"prev_close_price"`
	Turnover          float64    `json:"turnover"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	Delta             float64    `json:"delta"`
	ContractSize      float64    `json:"contract_size"`
	UpdateTime        time.Time  `json:"update_time,omitempty"`
}

// MarshalJSON renders an unparsed strike price as null; encoding/json
// rejects NaN.
func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	var strike *float64
	if !math.IsNaN(r.StrikePrice) {
		value := r.StrikePrice
		strike = &value
	}
	return json.Marshal(struct {
		alias
		StrikePrice *float64 `json:"strike_price"`
	}{alias: alias(r), StrikePrice: strike})
}
