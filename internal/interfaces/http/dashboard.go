package http

import (
	"embed"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	appoptions "github.com/apurbab29/futu-options/internal/application/service/options"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const defaultTicker = "US.TSLA"

var templateFuncs = template.FuncMap{
	"strike": func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"price": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 2, 64)
	},
}

type dashboardView struct {
	Ticker       string
	Limit        int
	Result       *appoptions.Result
	Warning      string
	Stage        string
	Detail       string
	VolumeChart  template.HTML
	OpenInterest template.HTML
}

// dashboard renders the ticker form and, when a ticker is given, the final
// table with its charts or the reason the run stopped.
func (h *Handler) dashboard(c *gin.Context) {
	view := dashboardView{Ticker: c.Query("ticker"), Limit: h.chain.CandidateLimit()}
	if view.Ticker == "" {
		view.Ticker = defaultTicker
		c.HTML(http.StatusOK, "dashboard.tmpl", view)
		return
	}

	result, err := h.run(c.Request.Context(), view.Ticker)
	if err != nil {
		view.Warning = err.Error()
		if stageErr, ok := appoptions.AsStageError(err); ok {
			view.Warning = stageErr.Reason()
			view.Stage = string(stageErr.Stage)
			view.Detail = stageErr.Detail()
		}
		c.HTML(stageStatus(err), "dashboard.tmpl", view)
		return
	}

	view.Ticker = result.Ticker
	view.Result = result
	if result.Empty() {
		view.Warning = result.Message
	} else {
		view.VolumeChart, view.OpenInterest = strikeCharts(result.Records)
	}
	c.HTML(http.StatusOK, "dashboard.tmpl", view)
}
