package http

import (
	"html/template"
	"math"
	"sort"
	"strconv"

	domain "github.com/apurbab29/futu-options/internal/domain/entity/options"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	volumeChartID = "volume_by_strike"
	oiChartID     = "oi_by_strike"
)

// strikeGroups holds one bar value per strike and option type. Contracts of
// different expiries sharing a strike are summed.
type strikeGroups struct {
	strikes []float64
	calls   map[float64]int64
	puts    map[float64]int64
}

func groupByStrike(records []domain.Record, value func(domain.Record) int64) strikeGroups {
	g := strikeGroups{calls: make(map[float64]int64), puts: make(map[float64]int64)}
	seen := make(map[float64]struct{})
	for _, r := range records {
		if math.IsNaN(r.StrikePrice) {
			continue
		}
		switch r.OptionType {
		case domain.OptionTypeCall:
			g.calls[r.StrikePrice] += value(r)
		case domain.OptionTypePut:
			g.puts[r.StrikePrice] += value(r)
		default:
			continue
		}
		if _, ok := seen[r.StrikePrice]; !ok {
			seen[r.StrikePrice] = struct{}{}
			g.strikes = append(g.strikes, r.StrikePrice)
		}
	}
	sort.Float64s(g.strikes)
	return g
}

func (g strikeGroups) axis() []string {
	labels := make([]string, 0, len(g.strikes))
	for _, s := range g.strikes {
		labels = append(labels, strconv.FormatFloat(s, 'f', -1, 64))
	}
	return labels
}

func (g strikeGroups) series(values map[float64]int64) []opts.BarData {
	data := make([]opts.BarData, 0, len(g.strikes))
	for _, s := range g.strikes {
		data = append(data, opts.BarData{Value: values[s]})
	}
	return data
}

func groupedBarChart(id, title, yName string, g strikeGroups) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px", ChartID: id}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Strike Price"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	bar.SetXAxis(g.axis()).
		AddSeries(string(domain.OptionTypeCall), g.series(g.calls)).
		AddSeries(string(domain.OptionTypePut), g.series(g.puts))
	return bar
}

func renderChart(bar *charts.Bar) template.HTML {
	snippet := bar.RenderSnippet()
	return template.HTML(snippet.Element + snippet.Script)
}

// strikeCharts renders the volume and open interest bar charts.
func strikeCharts(records []domain.Record) (volume, openInterest template.HTML) {
	volumeGroups := groupByStrike(records, func(r domain.Record) int64 { return r.Volume })
	oiGroups := groupByStrike(records, func(r domain.Record) int64 { return r.OpenInterest })
	volume = renderChart(groupedBarChart(volumeChartID, "Volume by Strike Price (CALL vs PUT)", "Volume", volumeGroups))
	openInterest = renderChart(groupedBarChart(oiChartID, "Open Interest by Strike Price (CALL vs PUT)", "Open Interest", oiGroups))
	return volume, openInterest
}
