package interfaces

import (
	"context"
	"time"

	options "github.com/apurbab29/futu-options/internal/domain/entity/options"

	"github.com/google/uuid"
)

// ChainSource returns the raw option chain of one underlying ticker.
type ChainSource interface {
	FetchChain(ctx context.Context, ticker string) ([]options.RawContract, error)
}

// QuoteSource serves live quotes for contract codes. Codes must be
// subscribed before FetchQuotes is called.
type QuoteSource interface {
	Subscribe(ctx context.Context, codes []string) error
	FetchQuotes(ctx context.Context, codes []string) ([]options.Quote, error)
	Unsubscribe(ctx context.Context, codes []string) error
}

// MarketDataSession is one acquired upstream connection.
type MarketDataSession interface {
	ChainSource
	QuoteSource
	Close() error
}

// MarketDataProvider opens sessions against an upstream.
type MarketDataProvider interface {
	Name() string
	Open(ctx context.Context) (MarketDataSession, error)
}

// ChainExporter persists a final table and returns where it was written.
type ChainExporter interface {
	Export(ctx context.Context, ticker string, records []options.Record) (string, error)
}

// ChainRun describes one completed pipeline run.
type ChainRun struct {
	ID        uuid.UUID `json:"run_id" swaggertype:"string" format:"uuid"`
	Ticker    string    `json:"ticker"`
	Provider  string    `json:"provider"`
	QueriedAt time.Time `json:"queried_at"`
	Outcome   string    `json:"outcome"`
	Records   int       `json:"record_count"`
}

type SnapshotRepository interface {
	SaveRun(ctx context.Context, run ChainRun, records []options.Record) error
	LastRun(ctx context.Context, ticker string) (*ChainRun, []options.Record, error)
	Close()
}

// RunPublisher announces finished runs, empty ones included.
type RunPublisher interface {
	PublishRun(ctx context.Context, run ChainRun, records []options.Record) error
}
