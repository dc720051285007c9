package options

import "time"

// Quote holds the live market fields of one contract. Fields the upstream did
// not provide are left at their zero value; HasVolume/HasOpenInterest tell
// the join whether the quote side carries those columns.
type Quote struct {
	Code              string     `json:"code"`
	StrikePrice       float64    `json:"strike_price"`
	OptionType        OptionType `json:"option_type,omitempty"`
	Volume            int64      `json:"volume"`
	OpenInterest      int64      `json:"open_interest"`
	HasVolume         bool       `json:"-"`
	HasOpenInterest   bool       `json:"-"`
	LastPrice         float64    `json:"last_price"`
	PrevClosePrice    float64    `json:"prev_close_price"`
	Turnover          float64    `json:"turnover"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	Delta             float64    `json:"delta"`
	ContractSize      float64    `json:"contract_size"`
	UpdateTime        time.Time  `json:"update_time"`
}
