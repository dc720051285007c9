package futu

import (
	"context"
	"fmt"
	"strconv"
	"time"

	options "github.com/apurbab29/futu-options/internal/domain/entity/options"
)

const (
	// OpenD rejects option chain windows longer than 30 days.
	maxChainWindowDays = 30

	subTypeBasic    int32 = 1
	optionTypeCall  int32 = 1
	optionTypePut   int32 = 2
	chainDateLayout       = "2006-01-02"
	quoteTimeLayout       = "2006-01-02 15:04:05"
)

type optionChainC2S struct {
	Owner     security `json:"owner"`
	BeginTime string   `json:"beginTime"`
	EndTime   string   `json:"endTime"`
}

type optionChainS2C struct {
	OptionChain []struct {
		StrikeTime string `json:"strikeTime"`
		Option     []struct {
			Call *staticInfo `json:"call"`
			Put  *staticInfo `json:"put"`
		} `json:"option"`
	} `json:"optionChain"`
}

type staticInfo struct {
	Basic struct {
		Security security  `json:"security"`
		ID       jsonInt64 `json:"id"`
		LotSize  int32     `json:"lotSize"`
		Name     string    `json:"name"`
	} `json:"basic"`
	OptionExData struct {
		Type        int32   `json:"type"`
		StrikeTime  string  `json:"strikeTime"`
		StrikePrice float64 `json:"strikePrice"`
	} `json:"optionExData"`
}

// ChainWindow is one [Begin, End] request range.
type ChainWindow struct {
	Begin time.Time
	End   time.Time
}

// ChainWindows splits [from, from+days] into ranges OpenD accepts.
func ChainWindows(from time.Time, days int) []ChainWindow {
	if days <= 0 {
		days = maxChainWindowDays
	}
	end := from.AddDate(0, 0, days)
	var windows []ChainWindow
	for begin := from; !begin.After(end); {
		stop := begin.AddDate(0, 0, maxChainWindowDays)
		if stop.After(end) {
			stop = end
		}
		windows = append(windows, ChainWindow{Begin: begin, End: stop})
		begin = stop.AddDate(0, 0, 1)
	}
	return windows
}

// OptionChain returns every call and put of owner expiring inside window.
func (c *Client) OptionChain(ctx context.Context, owner string, window ChainWindow) ([]options.RawContract, error) {
	sec, err := parseSecurity(owner)
	if err != nil {
		return nil, err
	}
	var s2c optionChainS2C
	err = c.call(ctx, protoQotGetOptionChain, optionChainC2S{
		Owner:     sec,
		BeginTime: window.Begin.Format(chainDateLayout),
		EndTime:   window.End.Format(chainDateLayout),
	}, &s2c)
	if err != nil {
		return nil, err
	}

	var out []options.RawContract
	for _, expiry := range s2c.OptionChain {
		for _, item := range expiry.Option {
			for _, info := range []*staticInfo{item.Call, item.Put} {
				if info == nil {
					continue
				}
				out = append(out, info.rawContract(expiry.StrikeTime))
			}
		}
	}
	return out, nil
}

func (s *staticInfo) rawContract(chainStrikeTime string) options.RawContract {
	strikeTime := s.OptionExData.StrikeTime
	if strikeTime == "" {
		strikeTime = chainStrikeTime
	}
	var optionType string
	switch s.OptionExData.Type {
	case optionTypeCall:
		optionType = string(options.OptionTypeCall)
	case optionTypePut:
		optionType = string(options.OptionTypePut)
	}
	return options.RawContract{
		Code:        s.Basic.Security.String(),
		Name:        s.Basic.Name,
		StrikePrice: strconv.FormatFloat(s.OptionExData.StrikePrice, 'f', -1, 64),
		StrikeTime:  strikeTime,
		OptionType:  optionType,
		LotSize:     int64(s.Basic.LotSize),
	}
}

type subC2S struct {
	SecurityList     []security `json:"securityList"`
	SubTypeList      []int32    `json:"subTypeList"`
	IsSubOrUnSub     bool       `json:"isSubOrUnSub"`
	IsRegOrUnRegPush bool       `json:"isRegOrUnRegPush"`
}

// Subscribe registers basic quote subscriptions for codes.
func (c *Client) Subscribe(ctx context.Context, codes []string) error {
	return c.sub(ctx, codes, true)
}

// Unsubscribe releases the subscriptions made by Subscribe.
func (c *Client) Unsubscribe(ctx context.Context, codes []string) error {
	return c.sub(ctx, codes, false)
}

func (c *Client) sub(ctx context.Context, codes []string, subscribe bool) error {
	secs, err := parseSecurities(codes)
	if err != nil {
		return err
	}
	return c.call(ctx, protoQotSub, subC2S{
		SecurityList:     secs,
		SubTypeList:      []int32{subTypeBasic},
		IsSubOrUnSub:     subscribe,
		IsRegOrUnRegPush: false,
	}, nil)
}

type basicQotC2S struct {
	SecurityList []security `json:"securityList"`
}

type basicQotS2C struct {
	BasicQotList []basicQot `json:"basicQotList"`
}

type basicQot struct {
	Security       security  `json:"security"`
	UpdateTime     string    `json:"updateTime"`
	CurPrice       float64   `json:"curPrice"`
	LastClosePrice float64   `json:"lastClosePrice"`
	Volume         jsonInt64 `json:"volume"`
	Turnover       float64   `json:"turnover"`
	OptionExData   *struct {
		StrikePrice       float64   `json:"strikePrice"`
		ContractSize      float64   `json:"contractSize"`
		OpenInterest      jsonInt64 `json:"openInterest"`
		ImpliedVolatility float64   `json:"impliedVolatility"`
		Delta             float64   `json:"delta"`
	} `json:"optionExData"`
}

// BasicQuotes returns the basic quotes of subscribed codes.
func (c *Client) BasicQuotes(ctx context.Context, codes []string, loc *time.Location) ([]options.Quote, error) {
	secs, err := parseSecurities(codes)
	if err != nil {
		return nil, err
	}
	var s2c basicQotS2C
	if err := c.call(ctx, protoQotGetBasicQot, basicQotC2S{SecurityList: secs}, &s2c); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	out := make([]options.Quote, 0, len(s2c.BasicQotList))
	for _, q := range s2c.BasicQotList {
		quote := options.Quote{
			Code:           q.Security.String(),
			Volume:         int64(q.Volume),
			HasVolume:      true,
			LastPrice:      q.CurPrice,
			PrevClosePrice: q.LastClosePrice,
			Turnover:       q.Turnover,
		}
		if ts, err := time.ParseInLocation(quoteTimeLayout, q.UpdateTime, loc); err == nil {
			quote.UpdateTime = ts
		}
		if ex := q.OptionExData; ex != nil {
			quote.StrikePrice = ex.StrikePrice
			quote.ContractSize = ex.ContractSize
			quote.OpenInterest = int64(ex.OpenInterest)
			quote.HasOpenInterest = true
			quote.ImpliedVolatility = ex.ImpliedVolatility
			quote.Delta = ex.Delta
		}
		out = append(out, quote)
	}
	return out, nil
}

func (w ChainWindow) String() string {
	return fmt.Sprintf("%s..%s", w.Begin.Format(chainDateLayout), w.End.Format(chainDateLayout))
}
