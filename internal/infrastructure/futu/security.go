package futu

import (
	"fmt"
	"strings"
)

// Market ids of Qot_Common.QotMarket.
const (
	marketHK int32 = 1
	marketUS int32 = 11
	marketSH int32 = 21
	marketSZ int32 = 22
)

var marketByPrefix = map[string]int32{
	"HK": marketHK,
	"US": marketUS,
	"SH": marketSH,
	"SZ": marketSZ,
}

type security struct {
	Market int32  `json:"market"`
	Code   string `json:"code"`
}

// parseSecurity splits "US.TSLA" into its market id and symbol. Option codes
// such as "US.TSLA250725C300000" parse the same way.
func parseSecurity(code string) (security, error) {
	prefix, symbol, ok := strings.Cut(code, ".")
	if !ok || symbol == "" {
		return security{}, fmt.Errorf("futu: malformed code %q", code)
	}
	market, ok := marketByPrefix[strings.ToUpper(prefix)]
	if !ok {
		return security{}, fmt.Errorf("futu: unsupported market %q", prefix)
	}
	return security{Market: market, Code: symbol}, nil
}

func (s security) String() string {
	for prefix, market := range marketByPrefix {
		if market == s.Market {
			return prefix + "." + s.Code
		}
	}
	return fmt.Sprintf("%d.%s", s.Market, s.Code)
}

func parseSecurities(codes []string) ([]security, error) {
	out := make([]security, 0, len(codes))
	for _, code := range codes {
		sec, err := parseSecurity(code)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, nil
}
