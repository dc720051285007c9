package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/apurbab29/futu-options/docs"
	appoptions "github.com/apurbab29/futu-options/internal/application/service/options"
	domain "github.com/apurbab29/futu-options/internal/domain/entity/options"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"
	"github.com/apurbab29/futu-options/internal/infrastructure/csvstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var today = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type stubProvider struct {
	mu       sync.Mutex
	opens    int
	openErr  error
	chainErr error
	chain    []domain.RawContract
	quotes   []domain.Quote
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Open(context.Context) (interfaces.MarketDataSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opens++
	if p.openErr != nil {
		return nil, p.openErr
	}
	return &stubSession{provider: p}, nil
}

func (p *stubProvider) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

type stubSession struct {
	provider *stubProvider
}

func (s *stubSession) FetchChain(context.Context, string) ([]domain.RawContract, error) {
	return s.provider.chain, s.provider.chainErr
}

func (s *stubSession) Subscribe(context.Context, []string) error { return nil }

func (s *stubSession) FetchQuotes(context.Context, []string) ([]domain.Quote, error) {
	return s.provider.quotes, nil
}

func (s *stubSession) Unsubscribe(context.Context, []string) error { return nil }

func (s *stubSession) Close() error { return nil }

func quote(code string, volume, oi int64) domain.Quote {
	return domain.Quote{Code: code, Volume: volume, OpenInterest: oi, HasVolume: true, HasOpenInterest: true, LastPrice: 1.25}
}

func tslaProvider() *stubProvider {
	return &stubProvider{
		chain: []domain.RawContract{
			{Code: "US.TSLA250620C300000", StrikePrice: "300", StrikeTime: "2025-06-20", OptionType: "CALL"},
			{Code: "US.TSLA250725C300000", StrikePrice: "300", StrikeTime: "2025-07-25", OptionType: "CALL"},
			{Code: "US.TSLA250725P300000", StrikePrice: "300", StrikeTime: "2025-07-25", OptionType: "PUT"},
			{Code: "US.TSLA250725C310000", StrikePrice: "310", StrikeTime: "2025-07-25", OptionType: "CALL"},
		},
		quotes: []domain.Quote{
			quote("US.TSLA250725C300000", 5, 10),
			quote("US.TSLA250725P300000", 2, 4),
			quote("US.TSLA250725C310000", 1, 0),
		},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestHandler(t *testing.T, provider *stubProvider, cache *redis.Client, opts ...HandlerOption) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	svc := appoptions.NewService(provider, appoptions.Config{Location: time.UTC}, quietLogger(),
		appoptions.WithClock(func() time.Time { return today }),
		appoptions.WithExporter(csvstore.NewExporter(dir, "", nil)),
	)
	return NewHandler(svc, cache, time.Minute, quietLogger(), opts...), dir
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandler(t, tslaProvider(), nil)
	rec := do(h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDashboard(t *testing.T) {
	t.Run("form only", func(t *testing.T) {
		provider := tslaProvider()
		h, _ := newTestHandler(t, provider, nil)
		rec := do(h, http.MethodGet, "/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="US.TSLA"`)
		assert.Zero(t, provider.openCount())
	})

	t.Run("table and charts", func(t *testing.T) {
		h, _ := newTestHandler(t, tslaProvider(), nil)
		rec := do(h, http.MethodGet, "/dashboard?ticker=us.tsla")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "echarts.min.js")
		assert.Contains(t, body, volumeChartID)
		assert.Contains(t, body, oiChartID)
		assert.Contains(t, body, "US.TSLA250725C300000")
		assert.Contains(t, body, "US.TSLA250725P300000")
		assert.NotContains(t, body, "US.TSLA250725C310000")
		assert.NotContains(t, body, `class="warning"`)
	})

	t.Run("empty result", func(t *testing.T) {
		provider := tslaProvider()
		provider.quotes = []domain.Quote{quote("US.TSLA250725C300000", 5, 0)}
		h, _ := newTestHandler(t, provider, nil)
		rec := do(h, http.MethodGet, "/dashboard?ticker=US.TSLA")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "No data available with OI &gt; 0 and expiry &gt; today.")
		assert.NotContains(t, rec.Body.String(), volumeChartID)
	})

	t.Run("stage failure", func(t *testing.T) {
		provider := tslaProvider()
		provider.openErr = errors.New("dial tcp 127.0.0.1:11111: connection refused")
		h, _ := newTestHandler(t, provider, nil)
		rec := do(h, http.MethodGet, "/dashboard?ticker=US.TSLA")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Cannot connect to the market data gateway.")
		assert.Contains(t, body, `data-stage="connect"`)
		assert.Contains(t, body, "connection refused")
	})
}

func TestGetChain(t *testing.T) {
	h, _ := newTestHandler(t, tslaProvider(), nil)
	rec := do(h, http.MethodGet, optionsBasePath+"/chain?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Ticker         string `json:"ticker"`
		Outcome        string `json:"outcome"`
		RawCount       int    `json:"raw_count"`
		CandidateCount int    `json:"candidate_count"`
		FinalCount     int    `json:"final_count"`
		Records        []struct {
			Code         string   `json:"code"`
			StrikePrice  *float64 `json:"strike_price"`
			OpenInterest int64    `json:"open_interest"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "US.TSLA", body.Ticker)
	assert.Equal(t, "ok", body.Outcome)
	assert.Equal(t, 4, body.RawCount)
	assert.Equal(t, 3, body.CandidateCount)
	assert.Equal(t, 2, body.FinalCount)
	require.Len(t, body.Records, 2)
	assert.Equal(t, "US.TSLA250725C300000", body.Records[0].Code)
	assert.Equal(t, int64(10), body.Records[0].OpenInterest)
	require.NotNil(t, body.Records[0].StrikePrice)
	assert.Equal(t, 300.0, *body.Records[0].StrikePrice)
}

func TestGetChainOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		target string
		setup  func(p *stubProvider)
		status int
		stage  string
		body   string
	}{
		{
			name:   "missing ticker",
			target: "/chain",
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid ticker",
			target: "/chain?ticker=TSLA",
			status: http.StatusBadRequest,
		},
		{
			name:   "connection failure",
			target: "/chain?ticker=US.TSLA",
			setup:  func(p *stubProvider) { p.openErr = errors.New("refused") },
			status: http.StatusBadGateway,
			stage:  "connect",
		},
		{
			name:   "chain failure",
			target: "/chain?ticker=US.TSLA",
			setup:  func(p *stubProvider) { p.chainErr = errors.New("no permission") },
			status: http.StatusBadGateway,
			stage:  "chain",
		},
		{
			name:   "no unexpired contracts",
			target: "/chain?ticker=US.TSLA",
			setup:  func(p *stubProvider) { p.chain = p.chain[:1] },
			status: http.StatusUnprocessableEntity,
			stage:  "candidates",
		},
		{
			name:   "empty quotes",
			target: "/chain?ticker=US.TSLA",
			setup:  func(p *stubProvider) { p.quotes = nil },
			status: http.StatusBadGateway,
			stage:  "quotes",
		},
		{
			name:   "empty final result",
			target: "/chain?ticker=US.TSLA",
			setup:  func(p *stubProvider) { p.quotes = []domain.Quote{quote("US.TSLA250725C300000", 1, 0)} },
			status: http.StatusOK,
			body:   `"outcome":"empty"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := tslaProvider()
			if tt.setup != nil {
				tt.setup(provider)
			}
			h, _ := newTestHandler(t, provider, nil)
			rec := do(h, http.MethodGet, optionsBasePath+tt.target)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, body["error"])
			}
			if tt.stage != "" {
				assert.Equal(t, tt.stage, body["stage"])
			}
			if tt.body != "" {
				assert.Contains(t, rec.Body.String(), tt.body)
			}
		})
	}
}

func TestExportChain(t *testing.T) {
	h, dir := newTestHandler(t, tslaProvider(), nil)
	rec := do(h, http.MethodPost, optionsBasePath+"/export?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Path       string `json:"path"`
		FinalCount int    `json:"final_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.FinalCount)
	assert.True(t, strings.HasPrefix(body.Path, dir))
	assert.True(t, strings.HasSuffix(body.Path, "US_TSLA_latest_300_filtered.csv"))
	_, err := os.Stat(body.Path)
	assert.NoError(t, err)
}

func TestExportChainSkipsEmptyResult(t *testing.T) {
	provider := tslaProvider()
	provider.quotes = []domain.Quote{quote("US.TSLA250725C300000", 1, 0)}
	h, dir := newTestHandler(t, provider, nil)
	rec := do(h, http.MethodPost, optionsBasePath+"/export?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"empty"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadChain(t *testing.T) {
	h, _ := newTestHandler(t, tslaProvider(), nil)
	rec := do(h, http.MethodGet, optionsBasePath+"/export.csv?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "US_TSLA_latest_300_filtered.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "code,name,strike_price,strike_time,option_type,open_interest,volume"))
	assert.True(t, strings.HasPrefix(lines[1], "US.TSLA250725C300000,,300,2025-07-25,CALL,10,5,"))
}

func TestDownloadChainEmptyResult(t *testing.T) {
	provider := tslaProvider()
	provider.quotes = []domain.Quote{quote("US.TSLA250725C300000", 1, 0)}
	h, dir := newTestHandler(t, provider, nil)

	rec := do(h, http.MethodGet, optionsBasePath+"/export.csv?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"ticker":"US.TSLA","outcome":"empty","message":"`+appoptions.EmptyResultMessage+`"}`, rec.Body.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type stubSnapshots struct {
	run     *interfaces.ChainRun
	records []domain.Record
}

func (s *stubSnapshots) SaveRun(context.Context, interfaces.ChainRun, []domain.Record) error {
	return nil
}

func (s *stubSnapshots) LastRun(context.Context, string) (*interfaces.ChainRun, []domain.Record, error) {
	return s.run, s.records, nil
}

func (s *stubSnapshots) Close() {}

func TestLastSnapshot(t *testing.T) {
	repo := &stubSnapshots{
		run: &interfaces.ChainRun{
			ID:        uuid.MustParse("0b8f3c52-8c67-4a5e-a2a7-3d3c4f0e9d10"),
			Ticker:    "US.TSLA",
			Provider:  "futu",
			QueriedAt: today,
			Outcome:   "ok",
			Records:   1,
		},
		records: []domain.Record{{Code: "US.TSLA250725C300000", StrikePrice: 300, OptionType: domain.OptionTypeCall, OpenInterest: 10}},
	}
	svc := appoptions.NewService(tslaProvider(), appoptions.Config{Location: time.UTC}, quietLogger(), appoptions.WithSnapshots(repo))
	h := NewHandler(svc, nil, time.Minute, quietLogger())

	rec := do(h, http.MethodGet, optionsBasePath+"/snapshot?ticker=us.tsla")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Run     map[string]any   `json:"run"`
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "0b8f3c52-8c67-4a5e-a2a7-3d3c4f0e9d10", body.Run["run_id"])
	assert.Equal(t, "US.TSLA", body.Run["ticker"])
	assert.Equal(t, "2025-07-01T12:00:00Z", body.Run["queried_at"])
	assert.EqualValues(t, 1, body.Run["record_count"])
	assert.NotContains(t, body.Run, "ID")
	require.Len(t, body.Records, 1)
	assert.Equal(t, "US.TSLA250725C300000", body.Records[0]["code"])
}

func TestLastSnapshotWithoutRepository(t *testing.T) {
	h, _ := newTestHandler(t, tslaProvider(), nil)
	rec := do(h, http.MethodGet, optionsBasePath+"/snapshot?ticker=US.TSLA")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChainResponseCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := tslaProvider()
	h, _ := newTestHandler(t, provider, client)

	first := do(h, http.MethodGet, optionsBasePath+"/chain?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get("X-Cache"))
	assert.Equal(t, 1, provider.openCount())

	second := do(h, http.MethodGet, optionsBasePath+"/chain?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, provider.openCount())

	key := "cache:GET:" + optionsBasePath + "/chain?ticker=US.TSLA"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// failures are not cached
	provider.openErr = errors.New("refused")
	rec := do(h, http.MethodGet, optionsBasePath+"/chain?ticker=US.AAPL")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, mr.Exists("cache:GET:"+optionsBasePath+"/chain?ticker=US.AAPL"))
}

func TestChainResponseCacheNormalisesTicker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := tslaProvider()
	h, _ := newTestHandler(t, provider, client)

	first := do(h, http.MethodGet, optionsBasePath+"/chain?ticker=us.tsla")
	require.Equal(t, http.StatusOK, first.Code)
	assert.True(t, mr.Exists("cache:GET:"+optionsBasePath+"/chain?ticker=US.TSLA"))

	second := do(h, http.MethodGet, optionsBasePath+"/chain?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, provider.openCount())
}

func TestExportOnRunBypassesResponseCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := tslaProvider()
	h, dir := newTestHandler(t, provider, client, WithExportOnRun(true))
	exported := dir + string(os.PathSeparator) + "US_TSLA_latest_300_filtered.csv"

	for i := 0; i < 2; i++ {
		require.NoError(t, os.RemoveAll(exported))
		rec := do(h, http.MethodGet, optionsBasePath+"/chain?ticker=US.TSLA")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
		assert.FileExists(t, exported)
	}
	assert.Equal(t, 2, provider.openCount())
	assert.Empty(t, mr.Keys())
}

func TestSwaggerDocs(t *testing.T) {
	h, _ := newTestHandler(t, tslaProvider(), nil)

	rec := do(h, http.MethodGet, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, path := range []string{"/options/chain", "/options/export", "/options/export.csv", "/options/snapshot"} {
		assert.Contains(t, body, `"`+path+`"`)
	}

	rec = do(h, http.MethodGet, "/swagger/index.html")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExportOnRun(t *testing.T) {
	h, dir := newTestHandler(t, tslaProvider(), nil, WithExportOnRun(true))
	exported := dir + string(os.PathSeparator) + "US_TSLA_latest_300_filtered.csv"

	rec := do(h, http.MethodGet, optionsBasePath+"/chain?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"export_path":"`)
	assert.FileExists(t, exported)

	require.NoError(t, os.Remove(exported))
	rec = do(h, http.MethodGet, "/dashboard?ticker=US.TSLA")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.FileExists(t, exported)
}
