package csvstore

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	options "github.com/apurbab29/futu-options/internal/domain/entity/options"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Source replays a previously saved chain file. Its sessions serve both the
// chain rows and the quotes from the same table.
type Source struct {
	path     string
	cache    *TableCache
	location *time.Location
	logger   *logrus.Entry
}

func NewSource(path string, cache *TableCache, loc *time.Location, logger *logrus.Logger) *Source {
	if cache == nil {
		cache = NewTableCache()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Source{
		path:     path,
		cache:    cache,
		location: loc,
		logger:   logger.WithFields(logrus.Fields{"component": "csv_source", "path": path}),
	}
}

func (s *Source) Name() string {
	return "csv"
}

func (s *Source) Open(ctx context.Context) (interfaces.MarketDataSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.cache.load(s.path)
	if err != nil {
		return nil, err
	}
	return &session{source: s, rows: rows}, nil
}

type session struct {
	source *Source
	rows   []sourceRow
}

func (s *session) FetchChain(ctx context.Context, ticker string) ([]options.RawContract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []options.RawContract
	for _, r := range s.rows {
		if belongsTo(r.Code, ticker) {
			out = append(out, r.rawContract())
		}
	}
	s.source.logger.WithFields(logrus.Fields{
		"ticker": ticker,
		"rows":   len(out),
	}).Debug("chain replayed")
	return out, nil
}

func (s *session) Subscribe(context.Context, []string) error {
	return nil
}

func (s *session) Unsubscribe(context.Context, []string) error {
	return nil
}

func (s *session) FetchQuotes(ctx context.Context, codes []string) ([]options.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}
	var quotes []options.Quote
	for _, r := range s.rows {
		if _, ok := wanted[strings.TrimSpace(r.Code)]; ok {
			quotes = append(quotes, r.quote(s.source.location))
		}
	}
	return quotes, nil
}

func (s *session) Close() error {
	s.rows = nil
	return nil
}

// belongsTo matches option codes such as US.TSLA250725C300000 or
// O:TSLA250725C00300000 against the underlying ticker US.TSLA.
func belongsTo(code, ticker string) bool {
	_, symbol, ok := strings.Cut(strings.ToUpper(ticker), ".")
	if !ok {
		return false
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if i := strings.IndexAny(code, ".:"); i >= 0 {
		code = code[i+1:]
	}
	rest, found := strings.CutPrefix(code, symbol)
	if !found {
		return false
	}
	return rest == "" || unicode.IsDigit(rune(rest[0]))
}

func (s *Source) String() string {
	return fmt.Sprintf("csv(%s)", s.path)
}
