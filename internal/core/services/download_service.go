package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	log "github.com/sirupsen/logrus"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
)

// DownloadService saves asset images to disk
type DownloadService struct {
	client  *http.Client
	gateway string
	logger  log.FieldLogger
}

// NewDownloadService creates a download service. A zero timeout uses the 30s default;
// an empty gateway uses the public ipfs.io gateway.
func NewDownloadService(timeout time.Duration, gateway string, logger log.FieldLogger) *DownloadService {
	if timeout <= 0 {
		timeout = domain.DefaultDownloadTimeout
	}
	if strings.TrimSpace(gateway) == "" {
		gateway = domain.DefaultIPFSGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return &DownloadService{
		client:  &http.Client{Timeout: timeout},
		gateway: gateway,
		logger:  logger,
	}
}

// WithHTTPClient swaps the HTTP client (used by tests)
func (s *DownloadService) WithHTTPClient(client *http.Client) *DownloadService {
	s.client = client
	return s
}

// Download fetches the asset's image into dir and returns the written path.
// Assets without an image URL are skipped and return "".
func (s *DownloadService) Download(ctx context.Context, asset domain.Asset, dir string) (string, error) {
	rawURL := asset.Record.ImageURL()
	if rawURL == "" {
		return "", nil
	}

	imageURL := ResolveImageURL(rawURL, s.gateway)
	filename := ImageFilename(asset, imageURL)
	dest := filepath.Join(dir, filename)

	if err := s.fetchToFile(ctx, imageURL, dest); err != nil {
		return "", &domain.DownloadError{URL: imageURL, Path: dest, Err: err}
	}

	s.logger.WithFields(log.Fields{"token_id": asset.TokenID, "path": dest}).Debug("Downloaded image")
	return dest, nil
}

// fetchToFile streams the body in fixed-size chunks, truncating any existing file
func (s *DownloadService) fetchToFile(ctx context.Context, imageURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := copyChunks(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func copyChunks(dst io.Writer, src io.Reader) error {
	buf := make([]byte, domain.DownloadChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write chunk: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
	}
}

// ResolveImageURL rewrites ipfs:// URIs to the HTTP gateway form
func ResolveImageURL(rawURL, gateway string) string {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, domain.IPFSScheme) {
		return gateway + strings.TrimPrefix(rawURL, domain.IPFSScheme)
	}
	return rawURL
}

// ImageFilename builds "<sanitized name><extension>" for an asset
func ImageFilename(asset domain.Asset, imageURL string) string {
	return SanitizeFilename(asset.DisplayName()) + ImageExtension(imageURL)
}

// SanitizeFilename replaces every non-alphanumeric rune with an underscore
// Examples:
//   - "Cool #7!" -> "Cool__7_"
//   - "Token_12" -> "Token_12"
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ImageExtension returns the URL path suffix, or .png when it is missing or too long
func ImageExtension(imageURL string) string {
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		p = u.Path
	}

	ext := path.Ext(p)
	if ext == "" || len(ext) > domain.MaxExtensionLength {
		return domain.DefaultImageExtension
	}
	return ext
}
