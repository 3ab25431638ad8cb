package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/internal/core/ports"
)

// ExportService writes asset metadata to CSV
type ExportService struct {
	store  ports.AssetStore
	logger log.FieldLogger
}

// NewExportService creates a new export service. store may be nil.
func NewExportService(store ports.AssetStore, logger log.FieldLogger) *ExportService {
	return &ExportService{
		store:  store,
		logger: logger,
	}
}

// ExportRequest represents a request to export records
type ExportRequest struct {
	Records     []domain.Record
	Destination string
}

// ExportResponse represents the result of an export
type ExportResponse struct {
	Destination string
	Columns     []string
	Rows        int
	Run         *domain.Run // set when exporting a stored run
}

// ExportProgress is emitted once per row written
type ExportProgress struct {
	Row   int
	Total int
}

// Execute writes the records to Destination, overwriting any existing file
func (s *ExportService) Execute(ctx context.Context, req ExportRequest, progress chan<- ExportProgress) (*ExportResponse, error) {
	if progress != nil {
		defer close(progress)
	}
	return s.write(ctx, req, progress)
}

// ExportLatest exports the collection of the most recent run in the store
func (s *ExportService) ExportLatest(ctx context.Context, destination string, progress chan<- ExportProgress) (*ExportResponse, error) {
	if progress != nil {
		defer close(progress)
	}
	if s.store == nil {
		return nil, fmt.Errorf("no asset store configured")
	}

	run, err := s.store.LatestRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	if run == nil {
		return nil, domain.ErrNoAssets
	}

	assets, err := s.store.LoadAssets(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	if len(assets) == 0 {
		return nil, domain.ErrNoAssets
	}

	records := make([]domain.Record, len(assets))
	for i, a := range assets {
		records[i] = a.Record
	}

	resp, err := s.write(ctx, ExportRequest{Records: records, Destination: destination}, progress)
	if err != nil {
		return nil, err
	}
	resp.Run = run
	return resp, nil
}

func (s *ExportService) write(ctx context.Context, req ExportRequest, progress chan<- ExportProgress) (*ExportResponse, error) {
	dest := strings.TrimSpace(req.Destination)
	if dest == "" {
		return nil, &domain.ConfigurationError{Field: "export destination"}
	}

	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	columns := Columns(req.Records)

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	total := len(req.Records)
	row := make([]string, len(columns))
	for i, rec := range req.Records {
		for j, col := range columns {
			row[j] = FormatCell(rec[col])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		sendExportProgress(ctx, progress, ExportProgress{Row: i + 1, Total: total})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close export file: %w", err)
	}

	s.logger.WithFields(log.Fields{"path": dest, "rows": total, "columns": len(columns)}).Info("Metadata export complete")

	return &ExportResponse{
		Destination: dest,
		Columns:     columns,
		Rows:        total,
	}, nil
}

// Columns returns the sorted union of keys across all records
func Columns(records []domain.Record) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			seen[k] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

// FormatCell renders one value; nested values become compact JSON
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool, int, int64, float64:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func sendExportProgress(ctx context.Context, ch chan<- ExportProgress, p ExportProgress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	case <-ctx.Done():
	}
}
