package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/internal/core/ports"
)

// TokenOutcome is the result of one per-token request
type TokenOutcome string

const (
	OutcomeFetched  TokenOutcome = "fetched"
	OutcomeNotFound TokenOutcome = "not_found"
	OutcomeFailed   TokenOutcome = "failed"
)

// FetchOptions holds the fetch loop policy
type FetchOptions struct {
	TokenLimit   int           // IDs [0, TokenLimit) are attempted; capped at domain.MaxTokens
	RequestDelay time.Duration // flat pause between per-token requests
}

// DefaultFetchOptions returns the standard 7777 IDs at 100ms pacing
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		TokenLimit:   domain.MaxTokens,
		RequestDelay: domain.DefaultRequestDelay,
	}
}

// FetchService walks a collection token by token, downloading each image inline
type FetchService struct {
	newMarket ports.MarketplaceFactory
	images    ports.ImageFetcher
	store     ports.AssetStore
	logger    log.FieldLogger
	opts      FetchOptions
}

// NewFetchService creates a new fetch service. store may be nil.
func NewFetchService(newMarket ports.MarketplaceFactory, images ports.ImageFetcher, store ports.AssetStore, logger log.FieldLogger, opts FetchOptions) *FetchService {
	if opts.TokenLimit <= 0 || opts.TokenLimit > domain.MaxTokens {
		opts.TokenLimit = domain.MaxTokens
	}
	if opts.RequestDelay < 0 {
		opts.RequestDelay = 0
	}
	return &FetchService{
		newMarket: newMarket,
		images:    images,
		store:     store,
		logger:    logger,
		opts:      opts,
	}
}

// FetchRequest represents a request to fetch a collection
type FetchRequest struct {
	Slug       string
	Directory  string
	APIKey     string
	TokenLimit int // optional; can only lower the service limit
}

// FetchResponse represents the result of a completed fetch run
type FetchResponse struct {
	Run        *domain.Run
	Collection *domain.Collection
	Empty      bool // run finished without a single asset
}

// FetchProgress is emitted once per attempted token
type FetchProgress struct {
	Current int // 1-based attempt count
	Total   int
	TokenID int
	Outcome TokenOutcome
	Fetched int
	Err     error
}

// Validate checks the required inputs before any network activity
func (r FetchRequest) Validate() error {
	if strings.TrimSpace(r.Slug) == "" {
		return &domain.ConfigurationError{Field: "collection slug"}
	}
	if strings.TrimSpace(r.Directory) == "" {
		return &domain.ConfigurationError{Field: "download directory"}
	}
	if strings.TrimSpace(r.APIKey) == "" {
		return &domain.ConfigurationError{Field: "api key"}
	}
	return nil
}

// TokenLimit returns the number of IDs a run attempts
func (s *FetchService) TokenLimit() int {
	return s.opts.TokenLimit
}

func (s *FetchService) limitFor(req FetchRequest) int {
	if req.TokenLimit > 0 && req.TokenLimit < s.opts.TokenLimit {
		return req.TokenLimit
	}
	return s.opts.TokenLimit
}

// Execute runs a fetch without progress reporting
func (s *FetchService) Execute(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
	return s.ExecuteWithProgress(ctx, req, nil)
}

// ExecuteWithProgress resolves the collection, then tries every token ID in ascending order.
// The progress channel, if any, is closed when the run ends.
func (s *FetchService) ExecuteWithProgress(ctx context.Context, req FetchRequest, progress chan<- FetchProgress) (*FetchResponse, error) {
	if progress != nil {
		defer close(progress)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(req.Slug)
	dir := strings.TrimSpace(req.Directory)
	logger := s.logger.WithField("slug", slug)
	logger.Info("Starting fetch for collection")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	run := domain.NewRun(slug, dir)
	collection := domain.NewCollection()
	if s.store != nil {
		if err := s.store.BeginRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
	}

	market := s.newMarket(strings.TrimSpace(req.APIKey))

	// Step 1: resolve the slug to a contract
	ref, err := market.ResolveCollection(ctx, slug)
	if err == nil && !ref.Valid() {
		err = errors.New("collection has no usable contract")
	}
	if err != nil {
		resErr := &domain.ResolutionError{Slug: slug, Err: err}
		logger.WithError(err).Error("Failed to get collection info")
		run.LastError = resErr.Error()
		run.Finish(domain.RunStatusFailed)
		s.finishRun(ctx, run)
		return nil, resErr
	}

	run.Address = ref.Address
	run.Chain = ref.Chain
	logger.WithFields(log.Fields{"contract": ref.Address, "chain": ref.Chain}).Info("Resolved collection")

	// Step 2: per-token retrieval
	total := s.limitFor(req)
	for tokenID := 0; tokenID < total; tokenID++ {
		if tokenID > 0 {
			if err := s.pause(ctx); err != nil {
				break
			}
		}

		run.Attempted++
		outcome, tokenErr := s.fetchToken(ctx, market, ref, tokenID, run, collection)
		if tokenErr != nil && ctx.Err() != nil {
			// The process is exiting; the interrupted token is not counted
			run.Attempted--
			break
		}
		s.recordOutcome(run, outcome)

		sendFetchProgress(ctx, progress, FetchProgress{
			Current: tokenID + 1,
			Total:   total,
			TokenID: tokenID,
			Outcome: outcome,
			Fetched: collection.Len(),
			Err:     tokenErr,
		})
	}

	resp := &FetchResponse{
		Run:        run,
		Collection: collection,
		Empty:      collection.IsEmpty(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		run.LastError = ctxErr.Error()
		run.Finish(domain.RunStatusFailed)
		s.finishRun(ctx, run)
		logger.WithError(ctxErr).Warn("Fetch interrupted")
		return resp, fmt.Errorf("fetch interrupted: %w", ctxErr)
	}

	if resp.Empty {
		run.Finish(domain.RunStatusEmpty)
		logger.Warn("No assets found for this collection")
	} else {
		run.Finish(domain.RunStatusCompleted)
	}
	s.finishRun(ctx, run)

	logger.WithFields(log.Fields{
		"fetched":         run.Fetched,
		"not_found":       run.NotFound,
		"failed":          run.Failed,
		"download_failed": run.DownloadFailed,
	}).Infof("Fetch and download completed. Total assets: %d", collection.Len())

	return resp, nil
}

// fetchToken requests one token and, on success, stores and downloads it
func (s *FetchService) fetchToken(ctx context.Context, market ports.Marketplace, ref domain.ContractRef, tokenID int, run *domain.Run, collection *domain.Collection) (TokenOutcome, error) {
	record, err := market.GetAsset(ctx, ref, tokenID)
	if errors.Is(err, domain.ErrAssetNotFound) {
		s.logger.Debugf("Asset %d not found, skipping.", tokenID)
		return OutcomeNotFound, nil
	}
	if err == nil && record == nil {
		err = errors.New("empty asset record")
	}
	if err != nil {
		tokenErr := &domain.TokenError{TokenID: tokenID, Err: err}
		if ctx.Err() == nil {
			s.logger.WithError(err).Errorf("Request error for asset %d", tokenID)
		}
		return OutcomeFailed, tokenErr
	}

	asset := domain.Asset{TokenID: tokenID, Record: record}
	if err := collection.Append(asset); err != nil {
		s.logger.WithError(err).Errorf("Unexpected error for asset %d", tokenID)
		return OutcomeFailed, &domain.TokenError{TokenID: tokenID, Err: err}
	}

	if s.store != nil {
		if err := s.store.AppendAsset(ctx, run.ID, asset); err != nil {
			s.logger.WithError(err).Warnf("Failed to persist asset %d", tokenID)
		}
	}

	// The image is downloaded before the next token is attempted
	if _, err := s.images.Download(ctx, asset, run.Directory); err != nil {
		run.DownloadFailed++
		s.logger.WithError(err).Errorf("Failed to download %s", asset.DisplayName())
	}

	return OutcomeFetched, nil
}

func (s *FetchService) recordOutcome(run *domain.Run, outcome TokenOutcome) {
	switch outcome {
	case OutcomeFetched:
		run.Fetched++
	case OutcomeNotFound:
		run.NotFound++
	case OutcomeFailed:
		run.Failed++
	}
}

// pause waits the flat request delay, returning early if ctx is done
func (s *FetchService) pause(ctx context.Context) error {
	if s.opts.RequestDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.opts.RequestDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *FetchService) finishRun(ctx context.Context, run *domain.Run) {
	if s.store == nil {
		return
	}
	// Record the outcome even when ctx was cancelled by the interrupt
	if err := s.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.WithError(err).Warn("Failed to record run result")
	}
}

func sendFetchProgress(ctx context.Context, ch chan<- FetchProgress, p FetchProgress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	case <-ctx.Done():
	}
}
