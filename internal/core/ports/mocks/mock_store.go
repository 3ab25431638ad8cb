package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
)

// MockAssetStore is an in-memory implementation of the AssetStore port
type MockAssetStore struct {
	mu     sync.RWMutex
	runs   []domain.Run
	assets map[string][]domain.Asset
}

// NewMockAssetStore creates a new mock store
func NewMockAssetStore() *MockAssetStore {
	return &MockAssetStore{
		assets: make(map[string][]domain.Asset),
	}
}

// BeginRun records the run and drops every stored asset
func (m *MockAssetStore) BeginRun(ctx context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, *run)
	m.assets = make(map[string][]domain.Asset)
	return nil
}

// AppendAsset stores an asset under the run
func (m *MockAssetStore) AppendAsset(ctx context.Context, runID string, asset domain.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(runID) < 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	m.assets[runID] = append(m.assets[runID], asset)
	return nil
}

// FinishRun replaces the stored copy of the run
func (m *MockAssetStore) FinishRun(ctx context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(run.ID)
	if i < 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	m.runs[i] = *run
	return nil
}

// LatestRun returns the last run begun
func (m *MockAssetStore) LatestRun(ctx context.Context) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.runs) == 0 {
		return nil, nil
	}
	run := m.runs[len(m.runs)-1]
	return &run, nil
}

// LoadAssets returns a copy of the run's assets
func (m *MockAssetStore) LoadAssets(ctx context.Context, runID string) ([]domain.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]domain.Asset(nil), m.assets[runID]...), nil
}

// ListRuns returns runs newest first
func (m *MockAssetStore) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Run, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *MockAssetStore) indexOf(runID string) int {
	for i, r := range m.runs {
		if r.ID == runID {
			return i
		}
	}
	return -1
}
