package futu

import (
	"context"
	"fmt"
	"time"

	options "github.com/apurbab29/futu-options/internal/domain/entity/options"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// OpenD allows about ten option chain requests per thirty seconds.
const chainRequestInterval = 3 * time.Second

// ProviderConfig configures sessions against one OpenD gateway.
type ProviderConfig struct {
	Addr      string
	Timeout   time.Duration
	ChainDays int
	Location  *time.Location
}

// Provider opens OpenD sessions. The option chain rate limiter is shared by
// every session it opens.
type Provider struct {
	cfg     ProviderConfig
	logger  *logrus.Logger
	limiter *rate.Limiter
	now     func() time.Time
}

func NewProvider(cfg ProviderConfig, logger *logrus.Logger) *Provider {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ChainDays <= 0 {
		cfg.ChainDays = maxChainWindowDays
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Provider{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(chainRequestInterval), 1),
		now:     time.Now,
	}
}

func (p *Provider) Name() string {
	return "futu"
}

func (p *Provider) Open(ctx context.Context) (interfaces.MarketDataSession, error) {
	client, err := Dial(ctx, p.cfg.Addr, WithTimeout(p.cfg.Timeout), WithLogger(p.logger))
	if err != nil {
		return nil, err
	}
	return &session{
		client:   client,
		provider: p,
		logger: p.logger.WithFields(logrus.Fields{
			"component": "futu_session",
			"conn_id":   client.ConnID(),
		}),
	}, nil
}

type session struct {
	client   *Client
	provider *Provider
	logger   *logrus.Entry
}

func (s *session) FetchChain(ctx context.Context, ticker string) ([]options.RawContract, error) {
	today := s.provider.now().In(s.provider.cfg.Location)
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.provider.cfg.Location)

	var chain []options.RawContract
	for _, window := range ChainWindows(from, s.provider.cfg.ChainDays) {
		if err := s.provider.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		rows, err := s.client.OptionChain(ctx, ticker, window)
		if err != nil {
			return nil, fmt.Errorf("option chain %s %s: %w", ticker, window, err)
		}
		s.logger.WithFields(logrus.Fields{
			"ticker":    ticker,
			"window":    window.String(),
			"contracts": len(rows),
		}).Debug("option chain window fetched")
		chain = append(chain, rows...)
	}
	return chain, nil
}

func (s *session) Subscribe(ctx context.Context, codes []string) error {
	return s.client.Subscribe(ctx, codes)
}

func (s *session) FetchQuotes(ctx context.Context, codes []string) ([]options.Quote, error) {
	return s.client.BasicQuotes(ctx, codes, s.provider.cfg.Location)
}

func (s *session) Unsubscribe(ctx context.Context, codes []string) error {
	return s.client.Unsubscribe(ctx, codes)
}

func (s *session) Close() error {
	return s.client.Close()
}
