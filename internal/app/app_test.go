package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apurbab29/futu-options/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{
		Options: config.OptionsConfig{CandidateLimit: 300, ChainDays: 30, Location: time.UTC},
		Futu:    config.FutuConfig{Addr: "127.0.0.1:11111", Timeout: time.Second},
		Polygon: config.PolygonConfig{APIKey: "key"},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{config.ProviderFutu, "futu"},
		{config.ProviderPolygon, "polygon"},
		{config.ProviderCSV, "csv"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Options.Provider = tt.provider
			cfg.CSV.SourceFile = "chain.csv"
			p, err := NewProvider(cfg, nil, quietLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}

	cfg := baseConfig()
	cfg.Options.Provider = "tiger"
	_, err := NewProvider(cfg, nil, quietLogger())
	assert.Error(t, err)
}

func TestNewRunsCSVReplay(t *testing.T) {
	dir := t.TempDir()
	expiry := time.Now().AddDate(0, 0, 20).Format("2006-01-02")
	chain := "code,strike_price_x,strike_time,option_type,open_interest,volume,strike_price_y\n" +
		"US.TSLA991231C300000,300," + expiry + ",CALL,12,3,300\n" +
		"US.TSLA991231P300000,300," + expiry + ",PUT,0,1,300\n"
	path := filepath.Join(dir, "US_TSLA_filtered_options.csv")
	require.NoError(t, os.WriteFile(path, []byte(chain), 0o644))

	cfg := baseConfig()
	cfg.Options.Provider = config.ProviderCSV
	cfg.CSV.SourceFile = path
	cfg.Export = config.ExportConfig{Dir: filepath.Join(dir, "out"), Label: "latest_300_filtered"}

	a, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	result, err := a.Service.RunAndExport(context.Background(), "US.TSLA")
	require.NoError(t, err)
	assert.Equal(t, 2, result.CandidateCount)
	assert.Equal(t, 1, result.FinalCount)
	assert.Equal(t, filepath.Join(dir, "out", "US_TSLA_latest_300_filtered.csv"), result.ExportPath)
}
