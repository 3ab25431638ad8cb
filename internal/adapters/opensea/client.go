package opensea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kamal-hamza/nftgrab/internal/core/domain"
)

// DefaultBaseURL is the public OpenSea API host
const DefaultBaseURL = "https://api.opensea.io"

// maxErrorBody bounds how much of a failed response is kept in APIError
const maxErrorBody = 512

// Client implements the Marketplace port against the OpenSea v2 REST API
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient creates a client bound to one API key
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = domain.DefaultDownloadTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// APIError is returned for non-2xx responses other than a token 404
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("opensea api: status %d", e.Status)
	}
	return fmt.Sprintf("opensea api: status %d: %s", e.Status, e.Body)
}

type collectionResponse struct {
	Contracts []struct {
		Address string `json:"address"`
		Chain   string `json:"chain"`
	} `json:"contracts"`
}

// ResolveCollection maps a slug to the first contract listed for it
func (c *Client) ResolveCollection(ctx context.Context, slug string) (domain.ContractRef, error) {
	endpoint := fmt.Sprintf("%s/api/v2/collections/%s", c.BaseURL, url.PathEscape(slug))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return domain.ContractRef{}, err
	}
	if status < 200 || status > 299 {
		return domain.ContractRef{}, newAPIError(status, body)
	}

	var resp collectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ContractRef{}, fmt.Errorf("failed to decode collection: %w", err)
	}
	if len(resp.Contracts) == 0 {
		return domain.ContractRef{}, fmt.Errorf("collection %q lists no contracts", slug)
	}

	first := resp.Contracts[0]
	return domain.ContractRef{
		Slug:    slug,
		Address: strings.TrimSpace(first.Address),
		Chain:   strings.TrimSpace(first.Chain),
	}, nil
}

// GetAsset fetches the "nft" object for one token.
// Numbers are kept as json.Number so identifiers survive unchanged.
func (c *Client) GetAsset(ctx context.Context, ref domain.ContractRef, tokenID int) (domain.Record, error) {
	endpoint := fmt.Sprintf("%s/api/v2/chain/%s/contract/%s/nfts/%s",
		c.BaseURL, url.PathEscape(ref.Chain), url.PathEscape(ref.Address), strconv.Itoa(tokenID))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("token %d: %w", tokenID, domain.ErrAssetNotFound)
	}
	if status < 200 || status > 299 {
		return nil, newAPIError(status, body)
	}

	return decodeAsset(body)
}

func decodeAsset(body []byte) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var envelope struct {
		NFT map[string]any `json:"nft"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode asset: %w", err)
	}
	if envelope.NFT == nil {
		return nil, fmt.Errorf("response has no nft object")
	}
	return domain.Record(envelope.NFT), nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func newAPIError(status int, body []byte) *APIError {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &APIError{Status: status, Body: text}
}
