package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/internal/core/ports"
	"github.com/kamal-hamza/nftgrab/internal/core/ports/mocks"
	"github.com/kamal-hamza/nftgrab/pkg/logging"
)

var testRef = domain.ContractRef{Address: "0xabc", Chain: "ethereum"}

func newTestFetchService(market *mocks.MockMarketplace, images ports.ImageFetcher, store ports.AssetStore, limit int) *FetchService {
	factory := func(apiKey string) ports.Marketplace { return market }
	return NewFetchService(factory, images, store, logging.Discard(), FetchOptions{TokenLimit: limit})
}

func validRequest(t *testing.T) FetchRequest {
	t.Helper()
	return FetchRequest{
		Slug:      "cool-cats",
		Directory: filepath.Join(t.TempDir(), "images"),
		APIKey:    "secret",
	}
}

func TestFetchService_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		req   FetchRequest
		field string
	}{
		{"missing slug", FetchRequest{Directory: "/tmp/x", APIKey: "k"}, "collection slug"},
		{"blank slug", FetchRequest{Slug: "   ", Directory: "/tmp/x", APIKey: "k"}, "collection slug"},
		{"missing directory", FetchRequest{Slug: "s", APIKey: "k"}, "download directory"},
		{"missing api key", FetchRequest{Slug: "s", Directory: "/tmp/x"}, "api key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market := mocks.NewMockMarketplace(testRef)
			svc := newTestFetchService(market, mocks.NewMockImageFetcher(), nil, 10)

			resp, err := svc.Execute(context.Background(), tt.req)

			var cfgErr *domain.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
			if resp != nil {
				t.Error("expected nil response")
			}
			if len(market.ResolveCalls()) != 0 || len(market.AssetCalls()) != 0 {
				t.Error("expected no network calls before validation passes")
			}
		})
	}
}

func TestFetchService_ResolutionError(t *testing.T) {
	tests := []struct {
		name       string
		ref        domain.ContractRef
		resolveErr error
	}{
		{"request fails", testRef, errors.New("status 500")},
		{"missing address", domain.ContractRef{Chain: "ethereum"}, nil},
		{"missing chain", domain.ContractRef{Address: "0xabc"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market := mocks.NewMockMarketplace(tt.ref)
			market.ResolveErr = tt.resolveErr
			store := mocks.NewMockAssetStore()
			svc := newTestFetchService(market, mocks.NewMockImageFetcher(), store, 10)

			_, err := svc.Execute(context.Background(), validRequest(t))

			if !domain.IsResolutionError(err) {
				t.Fatalf("expected ResolutionError, got %v", err)
			}
			if len(market.AssetCalls()) != 0 {
				t.Errorf("expected no token requests after resolution failure, got %d", len(market.AssetCalls()))
			}

			run, _ := store.LatestRun(context.Background())
			if run == nil || run.Status != domain.RunStatusFailed {
				t.Errorf("expected failed run to be recorded, got %+v", run)
			}
		})
	}
}

func TestFetchService_MixedResponses(t *testing.T) {
	market := mocks.NewMockMarketplace(testRef)
	market.Assets[0] = domain.Record{"identifier": "0", "name": "Zero"}
	market.Errors[1] = errors.New("connection reset")
	// 2 is not found
	market.Assets[3] = domain.Record{"identifier": "3", "name": "Three"}
	market.Errors[4] = errors.New("malformed body")
	market.Assets[6] = domain.Record{"identifier": "6"}

	images := mocks.NewMockImageFetcher()
	store := mocks.NewMockAssetStore()
	svc := newTestFetchService(market, images, store, 8)

	resp, err := svc.Execute(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []int{0, 3, 6}
	ids := resp.Collection.TokenIDs()
	if len(ids) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, ids)
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Errorf("ids[%d]: expected %d, got %d", i, expected[i], ids[i])
		}
	}

	// Every ID is tried exactly once, in order
	calls := market.AssetCalls()
	if len(calls) != 8 {
		t.Fatalf("expected 8 token requests, got %d", len(calls))
	}
	for i, id := range calls {
		if id != i {
			t.Errorf("call %d requested token %d", i, id)
		}
	}

	run := resp.Run
	if run.Attempted != 8 || run.Fetched != 3 || run.NotFound != 3 || run.Failed != 2 {
		t.Errorf("unexpected counters: %+v", run)
	}
	if run.Status != domain.RunStatusCompleted {
		t.Errorf("expected completed status, got %s", run.Status)
	}
	if resp.Empty {
		t.Error("expected non-empty response")
	}

	// Images are downloaded for exactly the fetched tokens, in order
	dl := images.Calls()
	if len(dl) != 3 || dl[0] != 0 || dl[1] != 3 || dl[2] != 6 {
		t.Errorf("unexpected download calls: %v", dl)
	}

	stored, _ := store.LoadAssets(context.Background(), run.ID)
	if len(stored) != 3 {
		t.Errorf("expected 3 stored assets, got %d", len(stored))
	}
}

func TestFetchService_DownloadFailureKeepsAsset(t *testing.T) {
	market := mocks.NewMockMarketplace(testRef)
	market.Assets[0] = domain.Record{"identifier": "0"}
	market.Assets[1] = domain.Record{"identifier": "1"}
	market.Assets[2] = domain.Record{"identifier": "2"}

	images := mocks.NewMockImageFetcher()
	images.Errors[1] = &domain.DownloadError{URL: "http://x", Path: "/tmp/x", Err: errors.New("timeout")}

	svc := newTestFetchService(market, images, nil, 3)

	resp, err := svc.Execute(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Collection.Len() != 3 {
		t.Errorf("expected all 3 assets kept, got %d", resp.Collection.Len())
	}
	if resp.Run.DownloadFailed != 1 {
		t.Errorf("expected 1 download failure, got %d", resp.Run.DownloadFailed)
	}
	if len(images.Calls()) != 3 {
		t.Errorf("expected loop to continue after download failure, got %d downloads", len(images.Calls()))
	}
}

func TestFetchService_EmptyResult(t *testing.T) {
	market := mocks.NewMockMarketplace(testRef)
	store := mocks.NewMockAssetStore()
	svc := newTestFetchService(market, mocks.NewMockImageFetcher(), store, 5)

	resp, err := svc.Execute(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("empty result should not be an error: %v", err)
	}
	if !resp.Empty {
		t.Error("expected Empty to be true")
	}
	if resp.Run.Status != domain.RunStatusEmpty {
		t.Errorf("expected empty status, got %s", resp.Run.Status)
	}
	if resp.Run.Attempted != 5 {
		t.Errorf("expected all 5 ids attempted, got %d", resp.Run.Attempted)
	}
}

func TestFetchService_ProgressPerToken(t *testing.T) {
	market := mocks.NewMockMarketplace(testRef)
	market.Assets[1] = domain.Record{"identifier": "1"}
	svc := newTestFetchService(market, mocks.NewMockImageFetcher(), nil, 4)

	progress := make(chan FetchProgress, 4)
	if _, err := svc.ExecuteWithProgress(context.Background(), validRequest(t), progress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var updates []FetchProgress
	for p := range progress {
		updates = append(updates, p)
	}

	if len(updates) != 4 {
		t.Fatalf("expected 4 progress updates, got %d", len(updates))
	}
	if updates[1].Outcome != OutcomeFetched || updates[1].Fetched != 1 {
		t.Errorf("unexpected update for token 1: %+v", updates[1])
	}
	if updates[3].Current != 4 || updates[3].Total != 4 {
		t.Errorf("unexpected final update: %+v", updates[3])
	}
}

func TestFetchService_CancelStopsLoop(t *testing.T) {
	market := mocks.NewMockMarketplace(testRef)
	svc := newTestFetchService(market, mocks.NewMockImageFetcher(), nil, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	progress := make(chan FetchProgress)

	done := make(chan error, 1)
	go func() {
		_, err := svc.ExecuteWithProgress(ctx, validRequest(t), progress)
		done <- err
	}()

	// Stop after the first few tokens
	for p := range progress {
		if p.Current == 3 {
			cancel()
		}
	}

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if n := len(market.AssetCalls()); n >= 100 {
		t.Errorf("expected loop to stop early, got %d calls", n)
	}
}

func TestNewFetchService_ClampsTokenLimit(t *testing.T) {
	market := mocks.NewMockMarketplace(testRef)

	for _, limit := range []int{0, -5, domain.MaxTokens + 1} {
		svc := newTestFetchService(market, mocks.NewMockImageFetcher(), nil, limit)
		if svc.TokenLimit() != domain.MaxTokens {
			t.Errorf("limit %d: expected %d, got %d", limit, domain.MaxTokens, svc.TokenLimit())
		}
	}

	if opts := DefaultFetchOptions(); opts.RequestDelay != domain.DefaultRequestDelay {
		t.Errorf("expected default delay %v, got %v", domain.DefaultRequestDelay, opts.RequestDelay)
	}
}

func TestFetchService_RequestLimitOnlyLowers(t *testing.T) {
	market := mocks.NewMockMarketplace(testRef)
	svc := newTestFetchService(market, mocks.NewMockImageFetcher(), nil, 5)

	req := validRequest(t)
	req.TokenLimit = 2
	if _, err := svc.Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(market.AssetCalls()); n != 2 {
		t.Errorf("expected 2 requests with lowered limit, got %d", n)
	}

	market = mocks.NewMockMarketplace(testRef)
	svc = newTestFetchService(market, mocks.NewMockImageFetcher(), nil, 5)
	req.TokenLimit = 50
	if _, err := svc.Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(market.AssetCalls()); n != 5 {
		t.Errorf("expected service limit of 5 to hold, got %d", n)
	}
}

func TestFetchService_PacesRequests(t *testing.T) {
	const delay = 40 * time.Millisecond

	market := mocks.NewMockMarketplace(testRef)
	factory := func(apiKey string) ports.Marketplace { return market }
	svc := NewFetchService(factory, mocks.NewMockImageFetcher(), nil, logging.Discard(), FetchOptions{
		TokenLimit:   5,
		RequestDelay: delay,
	})

	start := time.Now()
	if _, err := svc.Execute(context.Background(), validRequest(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 4*delay {
		t.Errorf("expected at least %v for 4 pauses, took %v", 4*delay, elapsed)
	}

	times := market.AssetCallTimes()
	if len(times) != 5 {
		t.Fatalf("expected 5 token requests, got %d", len(times))
	}
	// Token 0 is requested without waiting
	if first := times[0].Sub(start); first >= delay {
		t.Errorf("expected no pause before token 0, first request after %v", first)
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < delay {
			t.Errorf("gap before token %d was %v, want at least %v", i, gap, delay)
		}
	}
}

func TestFetchService_DefaultLimitTriesEveryID(t *testing.T) {
	market := mocks.NewMockMarketplace(testRef)
	factory := func(apiKey string) ports.Marketplace { return market }
	svc := NewFetchService(factory, mocks.NewMockImageFetcher(), nil, logging.Discard(), FetchOptions{})

	resp, err := svc.Execute(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := market.AssetCalls()
	if len(calls) != domain.MaxTokens {
		t.Fatalf("expected %d token requests, got %d", domain.MaxTokens, len(calls))
	}
	if calls[0] != 0 || calls[len(calls)-1] != 7776 {
		t.Errorf("expected IDs 0..7776, got %d..%d", calls[0], calls[len(calls)-1])
	}
	if resp.Run.Attempted != 7777 || resp.Run.NotFound != 7777 {
		t.Errorf("unexpected counters: %+v", resp.Run)
	}
	if !resp.Empty {
		t.Error("expected empty result when every token is missing")
	}
}
