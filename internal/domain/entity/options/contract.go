package options

import (
	"math"
	"time"
)

// RawContract is an option chain row as delivered by a source, before any
// coercion. Numeric and date fields are kept as text.
type RawContract struct {
	Code         string `json:"code"`
	Name         string `json:"name,omitempty"`
	StrikePrice  string `json:"strike_price"`
	StrikeTime   string `json:"strike_time"`
	OptionType   string `json:"option_type"`
	OpenInterest string `json:"open_interest,omitempty"`
	Volume       string `json:"volume,omitempty"`
	LotSize      int64  `json:"lot_size,omitempty"`
}

// Contract is a normalized chain row. StrikePrice is NaN and StrikeTime is
// the zero time when the source value could not be parsed.
type Contract struct {
	Code         string     `json:"code"`
	Name         string     `json:"name,omitempty"`
	StrikePrice  float64    `json:"strike_price"`
	StrikeTime   time.Time  `json:"strike_time"`
	OptionType   OptionType `json:"option_type"`
	OpenInterest int64      `json:"open_interest"`
	Volume       int64      `json:"volume"`
	LotSize      int64      `json:"lot_size,omitempty"`
}

// HasStrikePrice reports whether the strike price was parsed.
func (c Contract) HasStrikePrice() bool {
	return !math.IsNaN(c.StrikePrice)
}

// HasStrikeTime reports whether the expiry was parsed.
func (c Contract) HasStrikeTime() bool {
	return !c.StrikeTime.IsZero()
}
