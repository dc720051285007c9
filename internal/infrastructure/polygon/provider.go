package polygon

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	options "github.com/apurbab29/futu-options/internal/domain/entity/options"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"

	polygonrest "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/sirupsen/logrus"
)

// The snapshot endpoint pages at most 250 contracts.
const snapshotPageLimit = 250

var (
	ErrMissingAPIKey     = errors.New("polygon: api key is required")
	ErrUnsupportedMarket = errors.New("polygon: only US tickers are supported")
)

type ProviderConfig struct {
	APIKey    string
	ChainDays int
	Location  *time.Location
	// BaseURL overrides the polygon.io REST endpoint.
	BaseURL string
}

// Provider serves chain rows and quotes from one options chain snapshot.
// Subscriptions are not needed by the REST API and are no-ops.
type Provider struct {
	cfg    ProviderConfig
	client *polygonrest.Client
	logger *logrus.Entry
	now    func() time.Time
}

func NewProvider(cfg ProviderConfig, logger *logrus.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ChainDays <= 0 {
		cfg.ChainDays = 30
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	client := polygonrest.New(cfg.APIKey)
	if cfg.BaseURL != "" {
		client.HTTP.SetBaseURL(cfg.BaseURL)
	}
	return &Provider{
		cfg:    cfg,
		client: client,
		logger: logger.WithField("component", "polygon_provider"),
		now:    time.Now,
	}, nil
}

func (p *Provider) Name() string {
	return "polygon"
}

func (p *Provider) Open(ctx context.Context) (interfaces.MarketDataSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{provider: p, snapshots: make(map[string]models.OptionContractSnapshot)}, nil
}

type session struct {
	provider *Provider

	mu        sync.Mutex
	snapshots map[string]models.OptionContractSnapshot
}

func underlying(ticker string) (string, error) {
	market, symbol, ok := strings.Cut(ticker, ".")
	if !ok || symbol == "" {
		return "", fmt.Errorf("polygon: malformed ticker %q", ticker)
	}
	if !strings.EqualFold(market, "US") {
		return "", ErrUnsupportedMarket
	}
	return strings.ToUpper(symbol), nil
}

func (s *session) FetchChain(ctx context.Context, ticker string) ([]options.RawContract, error) {
	symbol, err := underlying(ticker)
	if err != nil {
		return nil, err
	}

	today := s.provider.now().In(s.provider.cfg.Location)
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	params := models.ListOptionsChainParams{UnderlyingAsset: symbol}.
		WithLimit(snapshotPageLimit).
		WithExpirationDate(models.GTE, models.Date(from)).
		WithExpirationDate(models.LTE, models.Date(from.AddDate(0, 0, s.provider.cfg.ChainDays)))

	iter := s.provider.client.ListOptionsChainSnapshot(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []options.RawContract
	for iter.Next() {
		snap := iter.Item()
		if snap.Details.Ticker == "" {
			continue
		}
		s.snapshots[snap.Details.Ticker] = snap
		out = append(out, rawContract(snap))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("options chain snapshot %s: %w", symbol, err)
	}
	s.provider.logger.WithFields(logrus.Fields{
		"ticker":    ticker,
		"contracts": len(out),
	}).Debug("options chain snapshot fetched")
	return out, nil
}

func rawContract(snap models.OptionContractSnapshot) options.RawContract {
	var expiry string
	if t := time.Time(snap.Details.ExpirationDate); !t.IsZero() {
		expiry = t.Format("2006-01-02")
	}
	return options.RawContract{
		Code:         snap.Details.Ticker,
		StrikePrice:  strconv.FormatFloat(snap.Details.StrikePrice, 'f', -1, 64),
		StrikeTime:   expiry,
		OptionType:   strings.ToUpper(snap.Details.ContractType),
		OpenInterest: strconv.FormatFloat(snap.OpenInterest, 'f', 0, 64),
		Volume:       strconv.FormatFloat(snap.Day.Volume, 'f', 0, 64),
		LotSize:      int64(snap.Details.SharesPerContract),
	}
}

func (s *session) Subscribe(context.Context, []string) error {
	return nil
}

func (s *session) Unsubscribe(context.Context, []string) error {
	return nil
}

// FetchQuotes answers from the snapshot taken by FetchChain.
func (s *session) FetchQuotes(ctx context.Context, codes []string) ([]options.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes := make([]options.Quote, 0, len(codes))
	for _, code := range codes {
		snap, ok := s.snapshots[code]
		if !ok {
			continue
		}
		lastPrice := snap.LastTrade.Price
		if lastPrice == 0 {
			lastPrice = snap.Day.Close
		}
		quotes = append(quotes, options.Quote{
			Code:              code,
			StrikePrice:       snap.Details.StrikePrice,
			OptionType:        options.ParseOptionType(snap.Details.ContractType),
			Volume:            int64(snap.Day.Volume),
			OpenInterest:      int64(snap.OpenInterest),
			HasVolume:         true,
			HasOpenInterest:   true,
			LastPrice:         lastPrice,
			PrevClosePrice:    snap.Day.PreviousClose,
			ImpliedVolatility: snap.ImpliedVolatility,
			Delta:             snap.Greeks.Delta,
			ContractSize:      snap.Details.SharesPerContract,
			UpdateTime:        time.Time(snap.Day.LastUpdated).In(s.provider.cfg.Location),
		})
	}
	return quotes, nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = nil
	return nil
}
