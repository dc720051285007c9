package options

import (
	"errors"
	"fmt"
)

// Stage names a step of the chain pipeline.
type Stage string

const (
	StageConnect      Stage = "connect"
	StageChain        Stage = "chain"
	StageCandidates   Stage = "candidates"
	StageSubscribe    Stage = "subscribe"
	StageQuotes       Stage = "quotes"
	StageOpenInterest Stage = "open_interest"
	StageExport       Stage = "export"
)

var (
	ErrInvalidTicker   = errors.New("ticker must look like MARKET.SYMBOL, e.g. US.TSLA")
	ErrConnection      = errors.New("market data connection failed")
	ErrChainFetch      = errors.New("option chain unavailable")
	ErrEmptyCandidates = errors.New("no unexpired contracts")
	ErrSubscription    = errors.New("quote subscription rejected")
	ErrQuoteFetch      = errors.New("quote fetch failed")
	ErrNoExporter      = errors.New("no exporter configured")
	ErrEmptyResult     = errors.New("nothing to export")

	errEmptyChain  = errors.New("upstream returned an empty chain")
	errEmptyQuotes = errors.New("upstream returned no quotes")
)

// EmptyResultMessage is shown when every merged contract has zero open
// interest.
const EmptyResultMessage = "No data available with OI > 0 and expiry > today."

// StageError is returned when the pipeline stops early. Kind is one of the
// package sentinels, Err carries the upstream payload.
type StageError struct {
	Stage  Stage
	Kind   error
	Ticker string
	Limit  int
	Err    error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Reason is the short message shown to a user.
func (e *StageError) Reason() string {
	switch {
	case errors.Is(e.Kind, ErrConnection):
		return "Cannot connect to the market data gateway."
	case errors.Is(e.Kind, ErrChainFetch):
		return fmt.Sprintf("Option chain for %s is unavailable.", e.Ticker)
	case errors.Is(e.Kind, ErrEmptyCandidates):
		return fmt.Sprintf("No %s contracts expire after today within the nearest %d.", e.Ticker, e.Limit)
	case errors.Is(e.Kind, ErrSubscription):
		return "Quote subscription was rejected (subscription quota or limit reached)."
	case errors.Is(e.Kind, ErrQuoteFetch):
		return fmt.Sprintf("Live quotes for %s could not be fetched.", e.Ticker)
	default:
		return e.Kind.Error()
	}
}

// Detail is the raw upstream error text, if any.
func (e *StageError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// AsStageError unwraps err into a *StageError.
func AsStageError(err error) (*StageError, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr, true
	}
	return nil, false
}
