package ports

import (
	"context"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
)

// Marketplace defines the port for the NFT marketplace REST API
type Marketplace interface {
	// ResolveCollection maps a collection slug to its first contract
	ResolveCollection(ctx context.Context, slug string) (domain.ContractRef, error)

	// GetAsset fetches one token's record.
	// Returns domain.ErrAssetNotFound when the token does not exist.
	GetAsset(ctx context.Context, ref domain.ContractRef, tokenID int) (domain.Record, error)
}

// MarketplaceFactory builds a Marketplace bound to an API credential
type MarketplaceFactory func(apiKey string) Marketplace

// ImageFetcher defines the port for downloading an asset's image
type ImageFetcher interface {
	// Download writes the asset image into dir and returns the file path.
	// Returns "" and no error when the asset has no image.
	Download(ctx context.Context, asset domain.Asset, dir string) (string, error)
}

// AssetStore defines the port for run history and the last fetched collection
type AssetStore interface {
	// BeginRun records a new run and clears the previously stored collection
	BeginRun(ctx context.Context, run *domain.Run) error

	// AppendAsset stores one fetched asset for the run
	AppendAsset(ctx context.Context, runID string, asset domain.Asset) error

	// FinishRun stores the final counters and status of a run
	FinishRun(ctx context.Context, run *domain.Run) error

	// LatestRun returns the most recently started run, or nil if none exist
	LatestRun(ctx context.Context) (*domain.Run, error)

	// LoadAssets returns a run's assets in token order
	LoadAssets(ctx context.Context, runID string) ([]domain.Asset, error)

	// ListRuns returns up to limit runs, newest first
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
}
