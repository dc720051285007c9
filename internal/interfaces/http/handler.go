// @title           Option Chain API
// @version         1.0
// @description     Filtered option chains merged with live quotes, CSV exports and stored runs
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	appoptions "github.com/apurbab29/futu-options/internal/application/service/options"
	domain "github.com/apurbab29/futu-options/internal/domain/entity/options"
	interfaces "github.com/apurbab29/futu-options/internal/domain/interfaces"
	"github.com/apurbab29/futu-options/internal/infrastructure/csvstore"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const optionsBasePath = "/api/v1/options"

var errMissingTicker = errors.New("ticker query param required")

type Handler struct {
	router      *gin.Engine
	chain       *appoptions.Service
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      *logrus.Entry
	exportOnRun bool
}

type stageErrorResponse struct {
	Error  string `json:"error"`
	Stage  string `json:"stage,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type exportResponse struct {
	RunID      uuid.UUID          `json:"run_id" swaggertype:"string" format:"uuid"`
	Ticker     string             `json:"ticker"`
	Outcome    appoptions.Outcome `json:"outcome"`
	Message    string             `json:"message"`
	FinalCount int                `json:"final_count"`
	Path       string             `json:"path"`
}

type emptyResultResponse struct {
	Ticker  string             `json:"ticker"`
	Outcome appoptions.Outcome `json:"outcome"`
	Message string             `json:"message"`
}

type snapshotResponse struct {
	Run     *interfaces.ChainRun `json:"run"`
	Records []domain.Record      `json:"records"`
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithExportOnRun exports every non-empty run served by the dashboard and
// the chain endpoint.
func WithExportOnRun(enabled bool) HandlerOption {
	return func(h *Handler) { h.exportOnRun = enabled }
}

func NewHandler(chain *appoptions.Service, cache *redis.Client, cacheTTL time.Duration, logger *logrus.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(template.Must(template.New("dashboard").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.tmpl")))

	h := &Handler{
		router:   router,
		chain:    chain,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.WithField("component", "http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/healthz", h.healthz)
	h.router.GET("/", h.dashboard)
	h.router.GET("/dashboard", h.dashboard)
	h.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := h.router.Group(optionsBasePath)
	{
		// a cached hit would skip the export
		if h.cache != nil && !h.exportOnRun {
			api.GET("/chain", h.cacheMiddleware(), h.getChain)
		} else {
			api.GET("/chain", h.getChain)
		}
		api.POST("/export", h.exportChain)
		api.GET("/export.csv", h.downloadChain)
		api.GET("/snapshot", h.lastSnapshot)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary      Get option chain
// @Description  Run the pipeline for a ticker and return the contracts with open interest
// @Tags         options
// @Produce      json
// @Param        ticker  query     string  true  "Ticker as MARKET.SYMBOL"  example(US.TSLA)
// @Success      200     {object}  appoptions.Result
// @Failure      400     {object}  stageErrorResponse
// @Failure      422     {object}  stageErrorResponse
// @Failure      502     {object}  stageErrorResponse
// @Failure      500     {object}  stageErrorResponse
// @Router       /options/chain [get]
func (h *Handler) getChain(c *gin.Context) {
	ticker, ok := requireTicker(c)
	if !ok {
		return
	}
	result, err := h.run(c.Request.Context(), ticker)
	if err != nil {
		writeRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary      Export option chain
// @Description  Run the pipeline and write the final table to the export directory. Nothing is written for an empty result.
// @Tags         options
// @Produce      json
// @Param        ticker  query     string  true  "Ticker as MARKET.SYMBOL"  example(US.TSLA)
// @Success      200     {object}  exportResponse
// @Failure      400     {object}  stageErrorResponse
// @Failure      422     {object}  stageErrorResponse
// @Failure      502     {object}  stageErrorResponse
// @Failure      500     {object}  stageErrorResponse
// @Router       /options/export [post]
func (h *Handler) exportChain(c *gin.Context) {
	ticker, ok := requireTicker(c)
	if !ok {
		return
	}
	result, err := h.chain.RunAndExport(c.Request.Context(), ticker)
	if err != nil {
		writeRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, exportResponse{
		RunID:      result.RunID,
		Ticker:     result.Ticker,
		Outcome:    result.Outcome,
		Message:    result.Message,
		FinalCount: result.FinalCount,
		Path:       result.ExportPath,
	})
}

// downloadChain streams the final table without touching the export dir.
//
// @Summary      Download option chain CSV
// @Description  Run the pipeline and stream the final table as a CSV attachment. An empty result is answered with JSON and no file.
// @Tags         options
// @Produce      text/csv
// @Produce      json
// @Param        ticker  query     string  true  "Ticker as MARKET.SYMBOL"  example(US.TSLA)
// @Success      200     {file}    file
// @Failure      400     {object}  stageErrorResponse
// @Failure      422     {object}  stageErrorResponse
// @Failure      502     {object}  stageErrorResponse
// @Router       /options/export.csv [get]
func (h *Handler) downloadChain(c *gin.Context) {
	ticker, ok := requireTicker(c)
	if !ok {
		return
	}
	result, err := h.chain.Run(c.Request.Context(), ticker)
	if err != nil {
		writeRunError(c, err)
		return
	}
	if result.Empty() {
		c.JSON(http.StatusOK, emptyResultResponse{Ticker: result.Ticker, Outcome: result.Outcome, Message: result.Message})
		return
	}
	var buf bytes.Buffer
	if err := csvstore.WriteCSV(&buf, result.Records); err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	name := csvstore.NewExporter("", "", nil).FileName(result.Ticker)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// @Summary      Get last stored run
// @Description  Return the most recent stored run of a ticker with its records
// @Tags         options
// @Produce      json
// @Param        ticker  query     string  true  "Ticker as MARKET.SYMBOL"  example(US.TSLA)
// @Success      200     {object}  snapshotResponse
// @Failure      400     {object}  stageErrorResponse
// @Failure      404     {object}  stageErrorResponse
// @Failure      500     {object}  stageErrorResponse
// @Router       /options/snapshot [get]
func (h *Handler) lastSnapshot(c *gin.Context) {
	ticker, ok := requireTicker(c)
	if !ok {
		return
	}
	run, records, err := h.chain.LastSnapshot(c.Request.Context(), ticker)
	if err != nil {
		writeRunError(c, err)
		return
	}
	if run == nil {
		writeError(c, http.StatusNotFound, fmt.Errorf("no stored run for %s", ticker))
		return
	}
	c.JSON(http.StatusOK, snapshotResponse{Run: run, Records: records})
}

func (h *Handler) run(ctx context.Context, ticker string) (*appoptions.Result, error) {
	if h.exportOnRun {
		return h.chain.RunAndExport(ctx, ticker)
	}
	return h.chain.Run(ctx, ticker)
}

func requireTicker(c *gin.Context) (string, bool) {
	ticker := c.Query("ticker")
	if ticker == "" {
		writeError(c, http.StatusBadRequest, errMissingTicker)
		return "", false
	}
	return ticker, true
}

// stageStatus maps a pipeline failure to an HTTP status.
func stageStatus(err error) int {
	switch {
	case errors.Is(err, appoptions.ErrInvalidTicker):
		return http.StatusBadRequest
	case errors.Is(err, appoptions.ErrEmptyCandidates), errors.Is(err, appoptions.ErrEmptyResult):
		return http.StatusUnprocessableEntity
	case errors.Is(err, appoptions.ErrConnection),
		errors.Is(err, appoptions.ErrChainFetch),
		errors.Is(err, appoptions.ErrSubscription),
		errors.Is(err, appoptions.ErrQuoteFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeRunError(c *gin.Context, err error) {
	status := stageStatus(err)
	if stageErr, ok := appoptions.AsStageError(err); ok {
		c.JSON(status, stageErrorResponse{
			Error:  stageErr.Reason(),
			Stage:  string(stageErr.Stage),
			Detail: stageErr.Detail(),
		})
		return
	}
	writeError(c, status, err)
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, stageErrorResponse{Error: err.Error()})
}

// cacheMiddleware caches successful GET responses in Redis.
func (h *Handler) cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := h.cacheKey(c)
		ctx := c.Request.Context()

		if cached, err := h.cache.Get(ctx, key).Result(); err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			c.Abort()
			return
		} else if !errors.Is(err, redis.Nil) {
			h.logger.WithError(err).Warn("read response cache")
		}

		recorder := &responseRecorder{
			ResponseWriter: c.Writer,
			status:         http.StatusOK,
			body:           &bytes.Buffer{},
		}
		c.Writer = recorder

		c.Next()

		if recorder.status >= 200 && recorder.status < 300 && recorder.body.Len() > 0 {
			if err := h.cache.Set(ctx, key, recorder.body.Bytes(), h.cacheTTL).Err(); err != nil {
				h.logger.WithError(err).Warn("write response cache")
			}
		}
	}
}

type responseRecorder struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if len(data) > 0 {
		r.body.Write(data)
	}
	return r.ResponseWriter.Write(data)
}

// cacheKey uses the normalised ticker so us.tsla and US.TSLA share an entry.
func (h *Handler) cacheKey(c *gin.Context) string {
	query := c.Request.URL.Query()
	if ticker, err := appoptions.NormalizeTicker(query.Get("ticker")); err == nil {
		query.Set("ticker", ticker)
	}
	return fmt.Sprintf("cache:%s:%s?%s", c.Request.Method, c.FullPath(), query.Encode())
}
