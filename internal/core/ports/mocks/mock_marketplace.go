package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
)

// MockMarketplace is a scripted implementation of the Marketplace port.
// Tokens without an entry in Assets or Errors are reported as not found.
type MockMarketplace struct {
	mu sync.Mutex

	Ref        domain.ContractRef
	ResolveErr error
	Assets     map[int]domain.Record
	Errors     map[int]error

	resolveCalls []string
	assetCalls   []int
	assetTimes   []time.Time
}

// NewMockMarketplace creates a marketplace that resolves to the given contract
func NewMockMarketplace(ref domain.ContractRef) *MockMarketplace {
	return &MockMarketplace{
		Ref:    ref,
		Assets: make(map[int]domain.Record),
		Errors: make(map[int]error),
	}
}

// ResolveCollection returns the scripted contract reference
func (m *MockMarketplace) ResolveCollection(ctx context.Context, slug string) (domain.ContractRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolveCalls = append(m.resolveCalls, slug)
	if m.ResolveErr != nil {
		return domain.ContractRef{}, m.ResolveErr
	}
	ref := m.Ref
	ref.Slug = slug
	return ref, nil
}

// GetAsset returns the scripted response for tokenID
func (m *MockMarketplace) GetAsset(ctx context.Context, ref domain.ContractRef, tokenID int) (domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assetCalls = append(m.assetCalls, tokenID)
	m.assetTimes = append(m.assetTimes, time.Now())
	if err, ok := m.Errors[tokenID]; ok {
		return nil, err
	}
	if rec, ok := m.Assets[tokenID]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("token %d: %w", tokenID, domain.ErrAssetNotFound)
}

// ResolveCalls returns the slugs passed to ResolveCollection
func (m *MockMarketplace) ResolveCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resolveCalls...)
}

// AssetCalls returns the token IDs requested, in order
func (m *MockMarketplace) AssetCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.assetCalls...)
}

// AssetCallTimes returns when each GetAsset call arrived
func (m *MockMarketplace) AssetCallTimes() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.assetTimes...)
}

// MockImageFetcher records download calls and can fail selected tokens
type MockImageFetcher struct {
	mu     sync.Mutex
	Errors map[int]error
	calls  []int
}

// NewMockImageFetcher creates a fetcher that succeeds for every token
func NewMockImageFetcher() *MockImageFetcher {
	return &MockImageFetcher{Errors: make(map[int]error)}
}

// Download records the call and returns the scripted error, if any
func (m *MockImageFetcher) Download(ctx context.Context, asset domain.Asset, dir string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, asset.TokenID)
	if err, ok := m.Errors[asset.TokenID]; ok {
		return "", err
	}
	return fmt.Sprintf("%s/%d.png", dir, asset.TokenID), nil
}

// Calls returns the token IDs downloaded, in order
func (m *MockImageFetcher) Calls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.calls...)
}
