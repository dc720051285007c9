package csvstore

import (
	"math"
	"strconv"
	"strings"
	"time"

	options "github.com/apurbab29/futu-options/internal/domain/entity/options"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// row is the canonical file layout written by Exporter.
type row struct {
	Code              string `csv:"code"`
	Name              string `csv:"name"`
	StrikePrice       string `csv:"strike_price"`
	StrikeTime        string `csv:"strike_time"`
	OptionType        string `csv:"option_type"`
	OpenInterest      string `csv:"open_interest"`
	Volume            string `csv:"volume"`
	LastPrice         string `csv:"last_price"`
	PrevClosePrice    string `csv:"prev_close_price"`
	Turnover          string `csv:"turnover"`
	ImpliedVolatility string `csv:"implied_volatility"`
	Delta             string `csv:"delta"`
	ContractSize      string `csv:"contract_size"`
	UpdateTime        string `csv:"update_time"`
}

// sourceRow also accepts the suffixed columns of files produced by a plain
// two-table merge, where _x is the chain side and _y the quote side.
type sourceRow struct {
	Code              string `csv:"code"`
	Name              string `csv:"name"`
	StrikePrice       string `csv:"strike_price"`
	StrikePriceX      string `csv:"strike_price_x"`
	StrikePriceY      string `csv:"strike_price_y"`
	StrikeTime        string `csv:"strike_time"`
	OptionType        string `csv:"option_type"`
	OptionTypeX       string `csv:"option_type_x"`
	OptionTypeY       string `csv:"option_type_y"`
	OpenInterest      string `csv:"open_interest"`
	Volume            string `csv:"volume"`
	LotSize           string `csv:"lot_size"`
	LastPrice         string `csv:"last_price"`
	PrevClosePrice    string `csv:"prev_close_price"`
	Turnover          string `csv:"turnover"`
	ImpliedVolatility string `csv:"implied_volatility"`
	Delta             string `csv:"delta"`
	ContractSize      string `csv:"contract_size"`
	UpdateTime        string `csv:"update_time"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func fromRecord(r options.Record) row {
	return row{
		Code:              r.Code,
		Name:              r.Name,
		StrikePrice:       formatFloat(r.StrikePrice),
		StrikeTime:        formatTime(r.StrikeTime, dateLayout),
		OptionType:        r.OptionType.String(),
		OpenInterest:      strconv.FormatInt(r.OpenInterest, 10),
		Volume:            strconv.FormatInt(r.Volume, 10),
		LastPrice:         formatFloat(r.LastPrice),
		PrevClosePrice:    formatFloat(r.PrevClosePrice),
		Turnover:          formatFloat(r.Turnover),
		ImpliedVolatility: formatFloat(r.ImpliedVolatility),
		Delta:             formatFloat(r.Delta),
		ContractSize:      formatFloat(r.ContractSize),
		UpdateTime:        formatTime(r.UpdateTime, dateTimeLayout),
	}
}

func (r sourceRow) rawContract() options.RawContract {
	lotSize, _ := strconv.ParseInt(strings.TrimSpace(r.LotSize), 10, 64)
	return options.RawContract{
		Code:         strings.TrimSpace(r.Code),
		Name:         r.Name,
		StrikePrice:  firstNonEmpty(r.StrikePrice, r.StrikePriceX, r.StrikePriceY),
		StrikeTime:   strings.TrimSpace(r.StrikeTime),
		OptionType:   firstNonEmpty(r.OptionType, r.OptionTypeX, r.OptionTypeY),
		OpenInterest: strings.TrimSpace(r.OpenInterest),
		Volume:       strings.TrimSpace(r.Volume),
		LotSize:      lotSize,
	}
}

func (r sourceRow) quote(loc *time.Location) options.Quote {
	q := options.Quote{
		Code:              strings.TrimSpace(r.Code),
		StrikePrice:       parseFloat(firstNonEmpty(r.StrikePriceY, r.StrikePrice, r.StrikePriceX)),
		OptionType:        options.ParseOptionType(firstNonEmpty(r.OptionTypeY, r.OptionType, r.OptionTypeX)),
		LastPrice:         parseFloat(r.LastPrice),
		PrevClosePrice:    parseFloat(r.PrevClosePrice),
		Turnover:          parseFloat(r.Turnover),
		ImpliedVolatility: parseFloat(r.ImpliedVolatility),
		Delta:             parseFloat(r.Delta),
		ContractSize:      parseFloat(r.ContractSize),
	}
	if v, ok := parseCount(r.Volume); ok {
		q.Volume, q.HasVolume = v, true
	}
	if v, ok := parseCount(r.OpenInterest); ok {
		q.OpenInterest, q.HasOpenInterest = v, true
	}
	if ts, err := time.ParseInLocation(dateTimeLayout, strings.TrimSpace(r.UpdateTime), loc); err == nil {
		q.UpdateTime = ts
	}
	return q
}

func parseFloat(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseCount(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(value, 10, 64); err == nil {
		return v, true
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int64(v), true
}
