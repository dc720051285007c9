package broker

import (
	"time"

	options "github.com/apurbab29/futu-options/internal/domain/entity/options"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"
)

// RunMessage is the JSON body published for every finished run.
type RunMessage struct {
	RunID     string           `json:"run_id"`
	Ticker    string           `json:"ticker"`
	Provider  string           `json:"provider"`
	QueriedAt time.Time        `json:"queried_at"`
	Outcome   string           `json:"outcome"`
	Count     int              `json:"count"`
	Records   []options.Record `json:"records"`
}

func newRunMessage(run interfaces.ChainRun, records []options.Record) RunMessage {
	if records == nil {
		records = []options.Record{}
	}
	return RunMessage{
		RunID:     run.ID.String(),
		Ticker:    run.Ticker,
		Provider:  run.Provider,
		QueriedAt: run.QueriedAt.UTC(),
		Outcome:   run.Outcome,
		Count:     run.Records,
		Records:   records,
	}
}
