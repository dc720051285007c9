package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/apurbab29/futu-options/internal/app"
	appoptions "github.com/apurbab29/futu-options/internal/application/service/options"
	"github.com/apurbab29/futu-options/internal/config"
	domain "github.com/apurbab29/futu-options/internal/domain/entity/options"
	"github.com/apurbab29/futu-options/internal/logging"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// errStageFailed is returned after the stage message has been printed.
var errStageFailed = errors.New("pipeline stage failed")

type fetchFlags struct {
	provider  string
	limit     int
	export    bool
	exportDir string
	csvFile   string
	envFile   string
	verbose   bool
}

func newFetchCommand() *cobra.Command {
	var flags fetchFlags
	cmd := &cobra.Command{
		Use:   "fetch [ticker]",
		Short: "Fetch, filter and print the option chain of a ticker",
		Example: `  chain fetch US.TSLA
  chain fetch US.TSLA --limit 100 --export
  chain fetch US.TSLA --csv-file US_TSLA_filtered_options.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			return runFetch(cmd, cfg, args[0], flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.provider, "provider", "", "market data provider: futu, polygon or csv (default OPTIONS_PROVIDER)")
	f.IntVar(&flags.limit, "limit", 0, "number of nearest contracts to keep (default CANDIDATE_LIMIT)")
	f.BoolVar(&flags.export, "export", false, "write the final table to a CSV file")
	f.StringVar(&flags.exportDir, "export-dir", "", "directory for exported files (default EXPORT_DIR)")
	f.StringVar(&flags.csvFile, "csv-file", "", "replay a previously exported chain file; implies --provider csv")
	f.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "log every pipeline stage")
	return cmd
}

// config reads the environment and applies the command line overrides on
// top of it.
func (f fetchFlags) config() (*config.Config, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}

	if f.csvFile != "" {
		cfg.CSV.SourceFile = f.csvFile
		cfg.Options.Provider = config.ProviderCSV
	}
	if f.provider != "" {
		cfg.Options.Provider = strings.ToLower(f.provider)
	}
	if f.limit < 0 {
		return nil, errors.New("--limit must be positive")
	}
	if f.limit > 0 {
		cfg.Options.CandidateLimit = f.limit
		if os.Getenv("EXPORT_LABEL") == "" {
			cfg.Export.Label = fmt.Sprintf("latest_%d_filtered", f.limit)
		}
	}
	if f.exportDir != "" {
		cfg.Export.Dir = f.exportDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runFetch(cmd *cobra.Command, cfg *config.Config, ticker string, flags fetchFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	logger := logging.NewCLI(flags.verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	run := application.Service.Run
	if flags.export {
		run = application.Service.RunAndExport
	}
	result, err := run(ctx, ticker)
	if stageErr, ok := appoptions.AsStageError(err); ok {
		fmt.Fprintln(out, stageErr.Reason())
		if detail := stageErr.Detail(); detail != "" {
			fmt.Fprintln(out, "detail:", detail)
		}
		return errStageFailed
	}
	if err != nil {
		return err
	}

	if result.Empty() {
		fmt.Fprintln(out, appoptions.EmptyResultMessage)
		return nil
	}

	renderTable(out, result.Records)
	fmt.Fprintf(out, "%s: %d of %d merged contracts with open interest (%d candidates, provider %s)\n",
		result.Ticker, result.FinalCount, result.MergedCount, result.CandidateCount, result.Provider)
	if result.ExportPath != "" {
		fmt.Fprintln(out, "exported to", result.ExportPath)
	}
	return nil
}

func renderTable(w io.Writer, records []domain.Record) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Code", "Type", "Strike", "Expiry", "OI", "Volume", "Last", "IV", "Delta"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range records {
		table.Append([]string{
			r.Code,
			r.OptionType.String(),
			formatFloat(r.StrikePrice, 2),
			r.StrikeTime.Format("2006-01-02"),
			strconv.FormatInt(r.OpenInterest, 10),
			strconv.FormatInt(r.Volume, 10),
			formatFloat(r.LastPrice, 2),
			formatFloat(r.ImpliedVolatility, 2),
			formatFloat(r.Delta, 3),
		})
	}
	table.Render()
}

func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
