package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	log "github.com/sirupsen/logrus"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/internal/core/ports"
)

// ReportService renders run history as an HTML chart
type ReportService struct {
	store  ports.AssetStore
	logger log.FieldLogger
}

// NewReportService creates a new report service
func NewReportService(store ports.AssetStore, logger log.FieldLogger) *ReportService {
	return &ReportService{
		store:  store,
		logger: logger,
	}
}

// ReportRequest represents a request to render a report
type ReportRequest struct {
	Destination string
	Limit       int // most recent runs to include; 0 = all
}

// ReportResponse represents the rendered report
type ReportResponse struct {
	Destination string
	Runs        []domain.Run // oldest first, as charted
}

// Execute writes a stacked bar chart of per-run token outcomes
func (s *ReportService) Execute(ctx context.Context, req ReportRequest) (*ReportResponse, error) {
	if req.Destination == "" {
		return nil, &domain.ConfigurationError{Field: "report destination"}
	}

	runs, err := s.store.ListRuns(ctx, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, domain.ErrNoAssets
	}

	// ListRuns is newest first; chart left to right in time order
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}

	bar := buildRunChart(runs)

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(req.Destination)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	if err := bar.Render(f); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	s.logger.WithFields(log.Fields{"path": req.Destination, "runs": len(runs)}).Info("Run report written")

	return &ReportResponse{
		Destination: req.Destination,
		Runs:        runs,
	}, nil
}

func buildRunChart(runs []domain.Run) *charts.Bar {
	labels := make([]string, len(runs))
	fetched := make([]opts.BarData, len(runs))
	notFound := make([]opts.BarData, len(runs))
	failed := make([]opts.BarData, len(runs))
	images := make([]opts.BarData, len(runs))

	for i, r := range runs {
		labels[i] = fmt.Sprintf("%s\n%s", r.Slug, r.StartedAt.Local().Format("01-02 15:04"))
		fetched[i] = opts.BarData{Value: r.Fetched}
		notFound[i] = opts.BarData{Value: r.NotFound}
		failed[i] = opts.BarData{Value: r.Failed}
		images[i] = opts.BarData{Value: r.DownloadFailed}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "nftgrab runs"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Fetch runs",
			Subtitle: "Token outcomes per run",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	bar.SetXAxis(labels).
		AddSeries("Fetched", fetched).
		AddSeries("Not found", notFound).
		AddSeries("Failed", failed).
		AddSeries("Image failed", images)
	bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "outcomes"}))

	return bar
}
