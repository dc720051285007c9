package options

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	domain "github.com/apurbab29/futu-options/internal/domain/entity/options"
)

// DefaultCandidateLimit is the number of soonest-expiring contracts kept
// before quotes are requested.
const DefaultCandidateLimit = 300

var strikeTimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"20060102",
}

// ParseStrikePrice returns NaN for anything that is not a finite number.
func ParseStrikePrice(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return math.NaN()
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(parsed, 0) {
		return math.NaN()
	}
	return parsed
}

// ParseStrikeTime returns the zero time when value matches none of the
// accepted layouts. Layouts without a zone are read in loc.
func ParseStrikeTime(value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range strikeTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// ParseCount reads a non-negative integer count. Decimal renderings such as
// "12.0" are accepted; unparseable or negative input yields 0.
func ParseCount(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
		return max(parsed, 0)
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed < 0 {
		return 0
	}
	return int64(parsed)
}

// NormalizeContract coerces one raw row. It never fails.
func NormalizeContract(raw domain.RawContract, loc *time.Location) domain.Contract {
	return domain.Contract{
		Code:         strings.TrimSpace(raw.Code),
		Name:         raw.Name,
		StrikePrice:  ParseStrikePrice(raw.StrikePrice),
		StrikeTime:   ParseStrikeTime(raw.StrikeTime, loc),
		OptionType:   domain.ParseOptionType(raw.OptionType),
		OpenInterest: ParseCount(raw.OpenInterest),
		Volume:       ParseCount(raw.Volume),
		LotSize:      raw.LotSize,
	}
}

// NormalizeAndFilter coerces the raw chain, drops contracts that do not
// expire strictly after today, orders the rest by expiry and keeps the first
// limit rows. Rows with an unparseable expiry are always dropped. Ties keep
// their input order. A non-positive limit means DefaultCandidateLimit.
func NormalizeAndFilter(raw []domain.RawContract, today time.Time, limit int, loc *time.Location) []domain.Contract {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	candidates := make([]domain.Contract, 0, len(raw))
	for _, row := range raw {
		contract := NormalizeContract(row, loc)
		if !contract.HasStrikeTime() || !contract.StrikeTime.After(today) {
			continue
		}
		candidates = append(candidates, contract)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].StrikeTime.Before(candidates[j].StrikeTime)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Codes lists the contract codes in order.
func Codes(contracts []domain.Contract) []string {
	codes := make([]string, 0, len(contracts))
	for _, c := range contracts {
		codes = append(codes, c.Code)
	}
	return codes
}

// FilterOpenInterest keeps records with positive open interest.
func FilterOpenInterest(merged []domain.Record) []domain.Record {
	final := make([]domain.Record, 0, len(merged))
	for _, rec := range merged {
		if rec.OpenInterest > 0 {
			final = append(final, rec)
		}
	}
	return final
}
