package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Fetch policy constants
const (
	MaxTokens              = 7777
	DefaultRequestDelay    = 100 * time.Millisecond
	DefaultDownloadTimeout = 30 * time.Second
	DownloadChunkSize      = 8192
)

// Image naming constants
const (
	DefaultImageExtension = ".png"
	MaxExtensionLength    = 5
	IPFSScheme            = "ipfs://"
	DefaultIPFSGateway    = "https://ipfs.io/ipfs/"
)

// Well-known record keys returned by the marketplace
const (
	KeyIdentifier = "identifier"
	KeyName       = "name"
	KeyImageURL   = "image_url"
)

// Record is one NFT's metadata as returned by the marketplace API.
// The key set is provider-defined and differs between records.
type Record map[string]any

// Identifier returns the record's identifier field as a string
func (r Record) Identifier() string {
	return r.stringField(KeyIdentifier)
}

// Name returns the display name, or "" when absent
func (r Record) Name() string {
	return r.stringField(KeyName)
}

// ImageURL returns the image URL, or "" when absent
func (r Record) ImageURL() string {
	return r.stringField(KeyImageURL)
}

func (r Record) stringField(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Keys returns the record's keys in no particular order
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}

// Asset pairs a fetched record with the token ID it was requested under
type Asset struct {
	TokenID int
	Record  Record
}

// DisplayName returns the record name, falling back to Token_<id>
func (a Asset) DisplayName() string {
	if name := a.Record.Name(); name != "" {
		return name
	}
	id := a.Record.Identifier()
	if id == "" {
		id = fmt.Sprintf("%d", a.TokenID)
	}
	return "Token_" + id
}

// ContractRef is the result of resolving a collection slug
type ContractRef struct {
	Slug    string
	Address string
	Chain   string
}

// Valid reports whether both address and chain are present
func (c ContractRef) Valid() bool {
	return strings.TrimSpace(c.Address) != "" && strings.TrimSpace(c.Chain) != ""
}
