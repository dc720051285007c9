package options

import (
	"fmt"
	"math"
	"testing"
	"time"

	domain "github.com/apurbab29/futu-options/internal/domain/entity/options"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func rawContract(i int, expiry time.Time, oi int) domain.RawContract {
	optType := "CALL"
	if i%2 == 1 {
		optType = "PUT"
	}
	return domain.RawContract{
		Code:         fmt.Sprintf("US.TSLA%06d", i),
		StrikePrice:  fmt.Sprintf("%d", 100+i),
		StrikeTime:   expiry.Format("2006-01-02"),
		OptionType:   optType,
		OpenInterest: fmt.Sprintf("%d", oi),
		Volume:       "10",
	}
}

func TestParseStrikePrice(t *testing.T) {
	assert.Equal(t, 250.5, ParseStrikePrice(" 250.5 "))
	assert.True(t, math.IsNaN(ParseStrikePrice("")))
	assert.True(t, math.IsNaN(ParseStrikePrice("n/a")))
	assert.True(t, math.IsNaN(ParseStrikePrice("inf")))
}

func TestParseStrikeTime(t *testing.T) {
	cases := []struct {
		input string
		want  time.Time
	}{
		{"2025-12-19", time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)},
		{"2025-12-19 16:00:00", time.Date(2025, 12, 19, 16, 0, 0, 0, time.UTC)},
		{"2025/12/19", time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)},
		{"20251219", time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)},
		{"bogus", time.Time{}},
		{"", time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			assert.True(t, tc.want.Equal(ParseStrikeTime(tc.input, time.UTC)), "got %v", ParseStrikeTime(tc.input, time.UTC))
		})
	}
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, int64(12), ParseCount("12"))
	assert.Equal(t, int64(12), ParseCount("12.0"))
	assert.Equal(t, int64(0), ParseCount("-4"))
	assert.Equal(t, int64(0), ParseCount("many"))
	assert.Equal(t, int64(0), ParseCount(""))
}

func TestNormalizeAndFilterDropsExpiredAndUnparseable(t *testing.T) {
	raw := []domain.RawContract{
		rawContract(1, today.AddDate(0, 0, 10), 5),
		{Code: "BAD.TIME", StrikePrice: "100", StrikeTime: "soon", OpenInterest: "5"},
		rawContract(2, today.AddDate(0, 0, -1), 5),
		{Code: "BAD.PRICE", StrikePrice: "abc", StrikeTime: today.AddDate(0, 0, 3).Format("2006-01-02"), OpenInterest: "5"},
	}

	got := NormalizeAndFilter(raw, today, 300, time.UTC)

	require.Len(t, got, 2)
	assert.Equal(t, "BAD.PRICE", got[0].Code)
	assert.True(t, math.IsNaN(got[0].StrikePrice))
	assert.Equal(t, raw[0].Code, got[1].Code)
	for _, c := range got {
		assert.True(t, c.StrikeTime.After(today))
	}
}

func TestNormalizeAndFilterExpiryOnQueryDayIsDropped(t *testing.T) {
	raw := []domain.RawContract{rawContract(1, today, 5)}
	assert.Empty(t, NormalizeAndFilter(raw, today, 300, time.UTC))
}

// 500 future contracts with varied expiry plus 50 expired ones.
func TestNormalizeAndFilterCapsToNearestExpiries(t *testing.T) {
	var raw []domain.RawContract
	future := map[string]struct{}{}
	for i := 0; i < 500; i++ {
		expiry := today.AddDate(0, 0, 1+(i*37)%400)
		row := rawContract(i, expiry, 1+i%7)
		raw = append(raw, row)
		future[row.Code] = struct{}{}
	}
	for i := 500; i < 550; i++ {
		raw = append(raw, rawContract(i, today.AddDate(0, 0, -1-i%30), 9))
	}

	got := NormalizeAndFilter(raw, today, 300, time.UTC)

	require.Len(t, got, 300)
	for i, c := range got {
		assert.True(t, c.StrikeTime.After(today))
		_, ok := future[c.Code]
		assert.True(t, ok, "%s is not from the future set", c.Code)
		if i > 0 {
			assert.False(t, c.StrikeTime.Before(got[i-1].StrikeTime), "not sorted at %d", i)
		}
	}

	last := got[len(got)-1].StrikeTime
	kept := map[string]struct{}{}
	for _, c := range got {
		kept[c.Code] = struct{}{}
	}
	for _, row := range raw[:500] {
		if _, ok := kept[row.Code]; ok {
			continue
		}
		assert.False(t, ParseStrikeTime(row.StrikeTime, time.UTC).Before(last), "%s expires before the last kept contract", row.Code)
	}
}

func TestNormalizeAndFilterDefaultLimit(t *testing.T) {
	var raw []domain.RawContract
	for i := 0; i < DefaultCandidateLimit+20; i++ {
		raw = append(raw, rawContract(i, today.AddDate(0, 0, 1+i), 1))
	}
	assert.Len(t, NormalizeAndFilter(raw, today, 0, time.UTC), DefaultCandidateLimit)
}

func TestNormalizeAndFilterStableOnTies(t *testing.T) {
	expiry := today.AddDate(0, 1, 0)
	raw := []domain.RawContract{rawContract(3, expiry, 1), rawContract(1, expiry, 1), rawContract(2, expiry, 1)}

	got := NormalizeAndFilter(raw, today, 300, time.UTC)

	assert.Equal(t, []string{raw[0].Code, raw[1].Code, raw[2].Code}, Codes(got))
}

func TestCapAppliesBeforeOpenInterestFilter(t *testing.T) {
	var raw []domain.RawContract
	for i := 0; i < 4; i++ {
		oi := 5
		if i == 0 {
			oi = 0
		}
		raw = append(raw, rawContract(i, today.AddDate(0, 0, 1+i), oi))
	}

	candidates := NormalizeAndFilter(raw, today, 2, time.UTC)
	require.Len(t, candidates, 2)

	var quotes []domain.Quote
	for _, c := range candidates {
		quotes = append(quotes, domain.Quote{Code: c.Code})
	}
	final := FilterOpenInterest(JoinWithQuotes(candidates, quotes, DefaultJoinRules()))

	require.Len(t, final, 1)
	assert.Equal(t, raw[1].Code, final[0].Code)
}

func TestFilterOpenInterest(t *testing.T) {
	var merged []domain.Record
	for i := 0; i < 200; i++ {
		oi := int64(i%5 + 1)
		if i < 30 {
			oi = 0
		}
		merged = append(merged, domain.Record{Code: fmt.Sprintf("C%d", i), OpenInterest: oi})
	}

	final := FilterOpenInterest(merged)

	assert.Len(t, final, 170)
	for _, rec := range final {
		assert.Greater(t, rec.OpenInterest, int64(0))
	}
}

func TestFilterOpenInterestAllZero(t *testing.T) {
	merged := []domain.Record{{Code: "A"}, {Code: "B"}}
	assert.Empty(t, FilterOpenInterest(merged))
}
