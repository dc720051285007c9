package options

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	domain "github.com/apurbab29/futu-options/internal/domain/entity/options"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var tickerPattern = regexp.MustCompile(`^[A-Z]{2,4}\.[A-Z0-9][A-Z0-9.\-]*$`)

// Outcome classifies a run that reached the end of the pipeline.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeEmpty Outcome = "empty"
)

// Config tunes the pipeline.
type Config struct {
	CandidateLimit int
	// JoinRules defaults to DefaultJoinRules when nil.
	JoinRules      *JoinRules
	Location       *time.Location
}

// Result is the outcome of one run.
type Result struct {
	RunID          uuid.UUID       `json:"run_id"`
	Ticker         string          `json:"ticker"`
	Provider       string          `json:"provider"`
	QueriedAt      time.Time       `json:"queried_at"`
	Outcome        Outcome         `json:"outcome"`
	Message        string          `json:"message,omitempty"`
	RawCount       int             `json:"raw_count"`
	CandidateCount int             `json:"candidate_count"`
	QuoteCount     int             `json:"quote_count"`
	MergedCount    int             `json:"merged_count"`
	FinalCount     int             `json:"final_count"`
	Records        []domain.Record `json:"records"`
	ExportPath     string          `json:"export_path,omitempty"`
}

// Empty reports whether no contract survived the open interest filter.
func (r *Result) Empty() bool {
	return r == nil || r.Outcome == OutcomeEmpty
}

type Service struct {
	provider  interfaces.MarketDataProvider
	exporter  interfaces.ChainExporter
	snapshots interfaces.SnapshotRepository
	publisher interfaces.RunPublisher
	cfg       Config
	logger    *logrus.Entry
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithExporter enables Export and RunAndExport.
func WithExporter(exporter interfaces.ChainExporter) Option {
	return func(s *Service) { s.exporter = exporter }
}

// WithSnapshots stores every non-empty run.
func WithSnapshots(repo interfaces.SnapshotRepository) Option {
	return func(s *Service) { s.snapshots = repo }
}

// WithPublisher announces every finished run.
func WithPublisher(publisher interfaces.RunPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithClock replaces time.Now as the query moment.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(provider interfaces.MarketDataProvider, cfg Config, logger *logrus.Logger, opts ...Option) *Service {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JoinRules == nil {
		rules := DefaultJoinRules()
		cfg.JoinRules = &rules
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		provider: provider,
		cfg:      cfg,
		logger:   logger.WithField("component", "option_chain"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeTicker upper-cases and validates a MARKET.SYMBOL ticker.
func NormalizeTicker(ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(ticker) {
		return "", fmt.Errorf("%w: got %q", ErrInvalidTicker, ticker)
	}
	return ticker, nil
}

// Run executes one pipeline pass for ticker. Stage failures come back as
// *StageError; a run whose open interest filter removes every contract is
// not an error and reports OutcomeEmpty.
func (s *Service) Run(ctx context.Context, ticker string) (result *Result, err error) {
	ticker, err = NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	queriedAt := s.now().In(s.cfg.Location)
	log := s.logger.WithFields(logrus.Fields{
		"run_id":   runID.String(),
		"ticker":   ticker,
		"provider": s.provider.Name(),
	})
	start := time.Now()

	session, err := s.provider.Open(ctx)
	if err != nil {
		return nil, s.fail(log, &StageError{Stage: StageConnect, Kind: ErrConnection, Ticker: ticker, Err: err})
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("close market data session")
		}
	}()

	raw, err := session.FetchChain(ctx, ticker)
	if err != nil {
		return nil, s.fail(log, &StageError{Stage: StageChain, Kind: ErrChainFetch, Ticker: ticker, Err: err})
	}
	if len(raw) == 0 {
		return nil, s.fail(log, &StageError{Stage: StageChain, Kind: ErrChainFetch, Ticker: ticker, Err: errEmptyChain})
	}

	candidates := NormalizeAndFilter(raw, queriedAt, s.cfg.CandidateLimit, s.cfg.Location)
	log.WithFields(logrus.Fields{
		"raw":        len(raw),
		"candidates": len(candidates),
	}).Debug("chain normalized")
	if len(candidates) == 0 {
		return nil, s.fail(log, &StageError{Stage: StageCandidates, Kind: ErrEmptyCandidates, Ticker: ticker, Limit: s.cfg.CandidateLimit})
	}

	codes := Codes(candidates)
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if unsubErr := session.Unsubscribe(releaseCtx, codes); unsubErr != nil {
			log.WithError(unsubErr).Warn("unsubscribe quotes")
		}
	}()

	if err := session.Subscribe(ctx, codes); err != nil {
		return nil, s.fail(log, &StageError{Stage: StageSubscribe, Kind: ErrSubscription, Ticker: ticker, Err: err})
	}

	quotes, err := session.FetchQuotes(ctx, codes)
	if err != nil {
		return nil, s.fail(log, &StageError{Stage: StageQuotes, Kind: ErrQuoteFetch, Ticker: ticker, Err: err})
	}
	if len(quotes) == 0 {
		return nil, s.fail(log, &StageError{Stage: StageQuotes, Kind: ErrQuoteFetch, Ticker: ticker, Err: errEmptyQuotes})
	}

	merged := JoinWithQuotes(candidates, quotes, *s.cfg.JoinRules)
	final := FilterOpenInterest(merged)

	result = &Result{
		RunID:          runID,
		Ticker:         ticker,
		Provider:       s.provider.Name(),
		QueriedAt:      queriedAt,
		Outcome:        OutcomeOK,
		RawCount:       len(raw),
		CandidateCount: len(candidates),
		QuoteCount:     len(quotes),
		MergedCount:    len(merged),
		FinalCount:     len(final),
		Records:        final,
	}
	if len(final) == 0 {
		result.Outcome = OutcomeEmpty
		result.Message = EmptyResultMessage
	}

	log.WithFields(logrus.Fields{
		"stage":   StageOpenInterest,
		"merged":  len(merged),
		"final":   len(final),
		"outcome": result.Outcome,
		"took_ms": time.Since(start).Milliseconds(),
	}).Info("option chain run finished")

	s.saveSnapshot(ctx, log, result)
	s.publishRun(ctx, log, result)
	return result, nil
}

// RunAndExport runs the pipeline and exports the final table when it is not
// empty.
func (s *Service) RunAndExport(ctx context.Context, ticker string) (*Result, error) {
	result, err := s.Run(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return result, nil
	}
	if _, err := s.Export(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// Export writes the final table of result through the configured exporter.
func (s *Service) Export(ctx context.Context, result *Result) (string, error) {
	if s.exporter == nil {
		return "", ErrNoExporter
	}
	if result.Empty() || len(result.Records) == 0 {
		return "", ErrEmptyResult
	}
	path, err := s.exporter.Export(ctx, result.Ticker, result.Records)
	if err != nil {
		return "", &StageError{Stage: StageExport, Kind: errors.New("export failed"), Ticker: result.Ticker, Err: err}
	}
	result.ExportPath = path
	s.logger.WithFields(logrus.Fields{
		"run_id": result.RunID.String(),
		"ticker": result.Ticker,
		"path":   path,
		"rows":   len(result.Records),
	}).Info("option chain exported")
	return path, nil
}

// LastSnapshot returns the most recent stored run for ticker.
func (s *Service) LastSnapshot(ctx context.Context, ticker string) (*interfaces.ChainRun, []domain.Record, error) {
	if s.snapshots == nil {
		return nil, nil, nil
	}
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, nil, err
	}
	return s.snapshots.LastRun(ctx, ticker)
}

// CandidateLimit reports the configured cap.
func (s *Service) CandidateLimit() int {
	return s.cfg.CandidateLimit
}

func (s *Service) fail(log *logrus.Entry, err *StageError) error {
	entry := log.WithField("stage", err.Stage)
	if err.Err != nil {
		entry = entry.WithError(err.Err)
	}
	entry.Warn(err.Reason())
	return err
}

func (s *Service) saveSnapshot(ctx context.Context, log *logrus.Entry, result *Result) {
	if s.snapshots == nil || result.Empty() {
		return
	}
	if err := s.snapshots.SaveRun(ctx, result.chainRun(), result.Records); err != nil {
		log.WithError(err).Warn("save chain snapshot")
	}
}

func (s *Service) publishRun(ctx context.Context, log *logrus.Entry, result *Result) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRun(ctx, result.chainRun(), result.Records); err != nil {
		log.WithError(err).Warn("publish chain run")
	}
}

func (r *Result) chainRun() interfaces.ChainRun {
	return interfaces.ChainRun{
		ID:        r.RunID,
		Ticker:    r.Ticker,
		Provider:  r.Provider,
		QueriedAt: r.QueriedAt,
		Outcome:   string(r.Outcome),
		Records:   len(r.Records),
	}
}
