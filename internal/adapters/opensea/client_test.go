package opensea

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-key", 0), server
}

func TestClient_ResolveCollection(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/collections/cool-cats" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-KEY"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("expected json accept header, got %q", got)
		}
		w.Write([]byte(`{"collection":"cool-cats","contracts":[{"address":"0xabc","chain":"ethereum"},{"address":"0xdef","chain":"base"}]}`))
	})

	ref, err := client.ResolveCollection(context.Background(), "cool-cats")
	if err != nil {
		t.Fatalf("ResolveCollection failed: %v", err)
	}
	if ref.Address != "0xabc" || ref.Chain != "ethereum" || ref.Slug != "cool-cats" {
		t.Errorf("unexpected ref: %+v", ref)
	}
}

func TestClient_ResolveCollectionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"errors":["not found"]}`},
		{"unauthorized", http.StatusUnauthorized, `bad key`},
		{"no contracts", http.StatusOK, `{"contracts":[]}`},
		{"malformed", http.StatusOK, `{"contracts":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			if _, err := client.ResolveCollection(context.Background(), "x"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClient_GetAsset(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/chain/ethereum/contract/0xabc/nfts/42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"nft":{"identifier":"42","name":"Cat 42","image_url":"ipfs://Qm/42.png","rarity":{"rank":1234},"traits":[]}}`))
	})

	rec, err := client.GetAsset(context.Background(), domain.ContractRef{Address: "0xabc", Chain: "ethereum"}, 42)
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if rec.Identifier() != "42" || rec.Name() != "Cat 42" || rec.ImageURL() != "ipfs://Qm/42.png" {
		t.Errorf("unexpected record: %v", rec)
	}

	rarity, ok := rec["rarity"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested rarity object, got %T", rec["rarity"])
	}
	if rank, ok := rarity["rank"].(json.Number); !ok || rank.String() != "1234" {
		t.Errorf("expected json.Number rank, got %#v", rarity["rank"])
	}
}

func TestClient_GetAssetNotFound(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.GetAsset(context.Background(), domain.ContractRef{Address: "0xabc", Chain: "ethereum"}, 9)
	if !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestClient_GetAssetErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("slow down"))
		})

		_, err := client.GetAsset(context.Background(), domain.ContractRef{Address: "a", Chain: "c"}, 1)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Status != http.StatusTooManyRequests || apiErr.Body != "slow down" {
			t.Errorf("unexpected APIError: %+v", apiErr)
		}
		if errors.Is(err, domain.ErrAssetNotFound) {
			t.Error("429 must not be treated as not found")
		}
	})

	t.Run("missing nft field", func(t *testing.T) {
		client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"other":{}}`))
		})

		if _, err := client.GetAsset(context.Background(), domain.ContractRef{Address: "a", Chain: "c"}, 1); err == nil {
			t.Error("expected error for missing nft object")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		})

		if _, err := client.GetAsset(context.Background(), domain.ContractRef{Address: "a", Chain: "c"}, 1); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", "k", 0)
	if c.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %s", c.BaseURL)
	}
	if c.HTTP.Timeout != domain.DefaultDownloadTimeout {
		t.Errorf("expected default timeout, got %v", c.HTTP.Timeout)
	}

	c = NewClient("http://localhost:9000/", "k", 0)
	if c.BaseURL != "http://localhost:9000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.BaseURL)
	}
}
