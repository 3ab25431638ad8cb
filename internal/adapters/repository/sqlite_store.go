package repository

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"
	// SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const driver = "sqlite"

const timeLayout = time.RFC3339Nano

// SQLiteStore implements the AssetStore port on a single SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path and applies migrations
func OpenSQLiteStore(path string, logger log.FieldLogger) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(driver, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between the fetch loop and readers
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(logger)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	values := url.Values{}
	values.Add("_pragma", "foreign_keys(ON)")
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "busy_timeout(5000)")
	return fmt.Sprintf("file:%s?%s", path, values.Encode())
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts the run and clears the assets of every earlier run
func (s *SQLiteStore) BeginRun(ctx context.Context, run *domain.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM assets`); err != nil {
		return fmt.Errorf("failed to clear assets: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, slug, contract_address, chain, directory, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Slug, run.Address, run.Chain, run.Directory, string(run.Status),
		run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return tx.Commit()
}

// AppendAsset stores the asset record as JSON
func (s *SQLiteStore) AppendAsset(ctx context.Context, runID string, asset domain.Asset) error {
	data, err := json.Marshal(asset.Record)
	if err != nil {
		return fmt.Errorf("failed to encode asset %d: %w", asset.TokenID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO assets (run_id, token_id, record) VALUES (?, ?, ?)`,
		runID, asset.TokenID, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset %d: %w", asset.TokenID, err)
	}
	return nil
}

// FinishRun updates the run's contract, counters and final status
func (s *SQLiteStore) FinishRun(ctx context.Context, run *domain.Run) error {
	var finished sql.NullString
	if !run.FinishedAt.IsZero() {
		finished = sql.NullString{String: run.FinishedAt.UTC().Format(timeLayout), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			contract_address = ?, chain = ?, status = ?, finished_at = ?,
			attempted = ?, fetched = ?, not_found = ?, failed = ?, download_failed = ?,
			last_error = ?
		WHERE id = ?`,
		run.Address, run.Chain, string(run.Status), finished,
		run.Attempted, run.Fetched, run.NotFound, run.Failed, run.DownloadFailed,
		run.LastError, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

const runColumns = `id, slug, contract_address, chain, directory, status, started_at, finished_at,
	attempted, fetched, not_found, failed, download_failed, last_error`

// LatestRun returns the most recently begun run, or nil when there are none
func (s *SQLiteStore) LatestRun(ctx context.Context) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT 1`)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// LoadAssets returns the run's assets in token order
func (s *SQLiteStore) LoadAssets(ctx context.Context, runID string) ([]domain.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token_id, record FROM assets WHERE run_id = ? ORDER BY token_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var (
			tokenID int
			data    string
		)
		if err := rows.Scan(&tokenID, &data); err != nil {
			return nil, err
		}

		record, err := decodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("asset %d: %w", tokenID, err)
		}
		assets = append(assets, domain.Asset{TokenID: tokenID, Record: record})
	}
	return assets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var (
		run      domain.Run
		status   string
		started  string
		finished sql.NullString
	)
	err := row.Scan(
		&run.ID, &run.Slug, &run.Address, &run.Chain, &run.Directory, &status, &started, &finished,
		&run.Attempted, &run.Fetched, &run.NotFound, &run.Failed, &run.DownloadFailed, &run.LastError,
	)
	if err != nil {
		return nil, err
	}

	run.Status = domain.RunStatus(status)
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("invalid started_at for run %s: %w", run.ID, err)
	}
	if finished.Valid {
		if run.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
			return nil, fmt.Errorf("invalid finished_at for run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}

// decodeRecord keeps numbers as json.Number, matching the API decode
func decodeRecord(data string) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var record domain.Record
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return record, nil
}
