package services

import (
	"context"
	"sync"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
)

// Session runs at most one fetch or export at a time.
// The collection of the last successful fetch is kept for export.
type Session struct {
	fetch  *FetchService
	export *ExportService

	mu   sync.Mutex
	busy bool
	last *domain.Collection
}

// NewSession creates a session over the fetch and export services
func NewSession(fetch *FetchService, export *ExportService) *Session {
	return &Session{
		fetch:  fetch,
		export: export,
	}
}

// Busy reports whether a run is in flight
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Fetch starts a fetch run, or returns domain.ErrRunInProgress
func (s *Session) Fetch(ctx context.Context, req FetchRequest, progress chan<- FetchProgress) (*FetchResponse, error) {
	if !s.acquire() {
		if progress != nil {
			close(progress)
		}
		return nil, domain.ErrRunInProgress
	}
	defer s.release()

	resp, err := s.fetch.ExecuteWithProgress(ctx, req, progress)

	s.mu.Lock()
	if resp != nil {
		s.last = resp.Collection
	} else if err != nil && domain.IsResolutionError(err) {
		// The previous collection was reset when the run started
		s.last = domain.NewCollection()
	}
	s.mu.Unlock()

	return resp, err
}

// Export writes the last fetched collection, falling back to the stored one
func (s *Session) Export(ctx context.Context, destination string, progress chan<- ExportProgress) (*ExportResponse, error) {
	if !s.acquire() {
		if progress != nil {
			close(progress)
		}
		return nil, domain.ErrRunInProgress
	}
	defer s.release()

	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil {
		return s.export.ExportLatest(ctx, destination, progress)
	}
	if last.IsEmpty() {
		if progress != nil {
			close(progress)
		}
		return nil, domain.ErrNoAssets
	}
	return s.export.Execute(ctx, ExportRequest{Records: last.Records(), Destination: destination}, progress)
}

func (s *Session) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}
