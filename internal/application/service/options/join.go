package options

import (
	"math"

	domain "github.com/apurbab29/futu-options/internal/domain/entity/options"
)

// Side names the input a joined column is taken from.
type Side int

const (
	SideContract Side = iota
	SideQuote
)

func (s Side) String() string {
	if s == SideQuote {
		return "quote"
	}
	return "contract"
}

// JoinRules declares, for every column both inputs can carry, which side
// wins. A quote-side rule falls back to the contract value when the quote
// does not carry the column.
type JoinRules struct {
	StrikePrice  Side
	OptionType   Side
	Volume       Side
	OpenInterest Side
}

// DefaultJoinRules keeps the static contract attributes from the chain and
// takes the market counters from the live quote.
func DefaultJoinRules() JoinRules {
	return JoinRules{
		StrikePrice:  SideContract,
		OptionType:   SideContract,
		Volume:       SideQuote,
		OpenInterest: SideQuote,
	}
}

// JoinWithQuotes inner-joins candidates with quotes on Code. Output follows
// candidate order; when a code is quoted twice the first quote is used.
func JoinWithQuotes(candidates []domain.Contract, quotes []domain.Quote, rules JoinRules) []domain.Record {
	byCode := make(map[string]domain.Quote, len(quotes))
	for _, q := range quotes {
		if _, seen := byCode[q.Code]; seen {
			continue
		}
		byCode[q.Code] = q
	}

	merged := make([]domain.Record, 0, min(len(candidates), len(byCode)))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		q, ok := byCode[c.Code]
		if !ok {
			continue
		}
		if _, dup := seen[c.Code]; dup {
			continue
		}
		seen[c.Code] = struct{}{}
		merged = append(merged, mergeRecord(c, q, rules))
	}
	return merged
}

func mergeRecord(c domain.Contract, q domain.Quote, rules JoinRules) domain.Record {
	rec := domain.Record{
		Code:              c.Code,
		Name:              c.Name,
		StrikePrice:       c.StrikePrice,
		StrikeTime:        c.StrikeTime,
		OptionType:        c.OptionType,
		OpenInterest:      c.OpenInterest,
		Volume:            c.Volume,
		LastPrice:         q.LastPrice,
		PrevClosePrice:    q.PrevClosePrice,
		Turnover:          q.Turnover,
		ImpliedVolatility: q.ImpliedVolatility,
		Delta:             q.Delta,
		ContractSize:      q.ContractSize,
		UpdateTime:        q.UpdateTime,
	}

	if rules.StrikePrice == SideQuote && q.StrikePrice > 0 {
		rec.StrikePrice = q.StrikePrice
	}
	if rules.OptionType == SideQuote && q.OptionType.Valid() {
		rec.OptionType = q.OptionType
	}
	if rules.Volume == SideQuote && q.HasVolume {
		rec.Volume = q.Volume
	}
	if rules.OpenInterest == SideQuote && q.HasOpenInterest {
		rec.OpenInterest = q.OpenInterest
	}

	rec.StrikePrice = coerceStrike(rec.StrikePrice)
	return rec
}

// coerceStrike keeps the canonical strike numeric: infinities become NaN
// like any other unusable value.
func coerceStrike(value float64) float64 {
	if math.IsInf(value, 0) {
		return math.NaN()
	}
	return value
}
