package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
	"github.com/kamal-hamza/nftgrab/pkg/logging"
)

func TestDownloadService_WritesImage(t *testing.T) {
	body := strings.Repeat("x", domain.DownloadChunkSize*2+17)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	dir := t.TempDir()
	svc := NewDownloadService(0, "", logging.Discard())
	asset := domain.Asset{TokenID: 7, Record: domain.Record{
		"identifier": "7",
		"name":       "Cool #7!",
		"image_url":  server.URL + "/art/7",
	}}

	path, err := svc.Download(context.Background(), asset, dir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	expected := filepath.Join(dir, "Cool__7_.png")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read image: %v", err)
	}
	if string(data) != body {
		t.Errorf("expected %d bytes, got %d", len(body), len(data))
	}
}

func TestDownloadService_RewritesIPFS(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("img"))
	}))
	defer server.Close()

	dir := t.TempDir()
	svc := NewDownloadService(0, server.URL+"/ipfs", logging.Discard())
	asset := domain.Asset{TokenID: 3, Record: domain.Record{
		"identifier": "3",
		"image_url":  "ipfs://QmHash/3.gif",
	}}

	path, err := svc.Download(context.Background(), asset, dir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if gotPath != "/ipfs/QmHash/3.gif" {
		t.Errorf("expected gateway path /ipfs/QmHash/3.gif, got %s", gotPath)
	}
	if filepath.Base(path) != "Token_3.gif" {
		t.Errorf("expected Token_3.gif, got %s", filepath.Base(path))
	}
}

func TestDownloadService_NoImage(t *testing.T) {
	dir := t.TempDir()
	svc := NewDownloadService(0, "", logging.Discard())

	for _, rec := range []domain.Record{
		{"identifier": "1"},
		{"identifier": "1", "image_url": ""},
		{"identifier": "1", "image_url": nil},
	} {
		path, err := svc.Download(context.Background(), domain.Asset{TokenID: 1, Record: rec}, dir)
		if err != nil || path != "" {
			t.Errorf("expected silent skip, got path=%q err=%v", path, err)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files written, got %d", len(entries))
	}
}

func TestDownloadService_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dir := t.TempDir()
	svc := NewDownloadService(0, "", logging.Discard())
	asset := domain.Asset{TokenID: 2, Record: domain.Record{"image_url": server.URL + "/x.png"}}

	_, err := svc.Download(context.Background(), asset, dir)

	var dlErr *domain.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	if _, statErr := os.Stat(dlErr.Path); !os.IsNotExist(statErr) {
		t.Error("expected no file to be left behind")
	}
}

func TestDownloadService_TruncatedBodyRemovesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("x", domain.DownloadChunkSize+100)))
		w.(http.Flusher).Flush()

		// Drop the connection before the declared length is sent
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	dir := t.TempDir()
	svc := NewDownloadService(0, "", logging.Discard())
	asset := domain.Asset{TokenID: 4, Record: domain.Record{"name": "Half", "image_url": server.URL + "/half.png"}}

	_, err := svc.Download(context.Background(), asset, dir)

	var dlErr *domain.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "Half.png")); !os.IsNotExist(statErr) {
		t.Error("expected partially written file to be removed")
	}
}

func TestDownloadService_OverwritesExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new"))
	}))
	defer server.Close()

	dir := t.TempDir()
	existing := filepath.Join(dir, "Ape.jpg")
	if err := os.WriteFile(existing, []byte("old content that is longer"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewDownloadService(0, "", logging.Discard())
	asset := domain.Asset{TokenID: 0, Record: domain.Record{"name": "Ape", "image_url": server.URL + "/a.jpg"}}

	if _, err := svc.Download(context.Background(), asset, dir); err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	data, _ := os.ReadFile(existing)
	if string(data) != "new" {
		t.Errorf("expected file to be overwritten, got %q", data)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Cool #7!", "Cool__7_"},
		{"Token_12", "Token_12"},
		{"a/b\\c", "a_b_c"},
		{"", ""},
		{"Ünïcode 1", "Ünïcode_1"},
		{"½ Ape²", "½_Ape²"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestImageExtension(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://x.io/a/b.jpg", ".jpg"},
		{"https://x.io/a/b.jpeg?w=500", ".jpeg"},
		{"https://x.io/a/b", ".png"},
		{"https://x.io/a/b.toolong", ".png"},
		{"https://x.io/a.b/c", ".png"},
		{"https://ipfs.io/ipfs/Qm/1.webp", ".webp"},
	}

	for _, tt := range tests {
		if got := ImageExtension(tt.url); got != tt.expected {
			t.Errorf("ImageExtension(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}

func TestResolveImageURL(t *testing.T) {
	gw := domain.DefaultIPFSGateway
	if got := ResolveImageURL("ipfs://QmX/1.png", gw); got != "https://ipfs.io/ipfs/QmX/1.png" {
		t.Errorf("unexpected ipfs rewrite: %s", got)
	}
	if got := ResolveImageURL("https://cdn.io/1.png", gw); got != "https://cdn.io/1.png" {
		t.Errorf("http URL should be unchanged, got %s", got)
	}
}
