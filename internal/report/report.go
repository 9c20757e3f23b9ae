// Package report renders footfall HTML reports with go-echarts.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/LdDl/footfall/internal/store"
)

// Source provides aggregated events
type Source interface {
	Zones(ctx context.Context) ([]string, error)
	HourlySummary(ctx context.Context, zone string) ([]store.HourlyCount, error)
}

// Render writes HTML page with hourly entries, exits and crowd of every store area
func Render(ctx context.Context, src Source, w io.Writer) error {
	zones, err := src.Zones(ctx)
	if err != nil {
		return fmt.Errorf("failed to list zones: %w", err)
	}

	page := components.NewPage()
	page.PageTitle = "Footfall"
	for _, zone := range zones {
		summary, err := src.HourlySummary(ctx, zone)
		if err != nil {
			return fmt.Errorf("failed to summarize zone %q: %w", zone, err)
		}
		if len(summary) == 0 {
			continue
		}
		page.AddCharts(trafficChart(zone, summary), crowdChart(zone, summary))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

// hourLabels returns x-axis labels like "2024-03-15 09:00"
func hourLabels(summary []store.HourlyCount) []string {
	labels := make([]string, len(summary))
	for i, h := range summary {
		labels[i] = fmt.Sprintf("%s %02d:00", h.Date, h.Hour)
	}
	return labels
}

func trafficChart(zone string, summary []store.HourlyCount) *charts.Bar {
	in := make([]opts.BarData, len(summary))
	out := make([]opts.BarData, len(summary))
	for i, h := range summary {
		in[i] = opts.BarData{Value: h.In}
		out[i] = opts.BarData{Value: h.Out}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: zone + ": entries and exits", Subtitle: "per hour, generated " + time.Now().Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(hourLabels(summary)).
		AddSeries("In", in).
		AddSeries("Out", out,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func crowdChart(zone string, summary []store.HourlyCount) *charts.Line {
	crowd := make([]opts.LineData, len(summary))
	for i, h := range summary {
		crowd[i] = opts.LineData{Value: h.Crowd}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: zone + ": crowd", Subtitle: "at the end of each hour"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(hourLabels(summary)).
		AddSeries("Crowd", crowd)
	return line
}
