package domain

import "fmt"

// Collection is the ordered, append-only list of assets produced by one fetch run.
// Token IDs are strictly increasing and bounded by MaxTokens.
type Collection struct {
	assets []Asset
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{assets: []Asset{}}
}

// Reset empties the collection at the start of a run
func (c *Collection) Reset() {
	c.assets = []Asset{}
}

// Append adds an asset, enforcing the ordering and bound invariants
func (c *Collection) Append(a Asset) error {
	if a.TokenID < 0 || a.TokenID >= MaxTokens {
		return fmt.Errorf("token id %d out of range [0, %d)", a.TokenID, MaxTokens)
	}
	if len(c.assets) >= MaxTokens {
		return fmt.Errorf("collection is full (%d assets)", MaxTokens)
	}
	if n := len(c.assets); n > 0 && c.assets[n-1].TokenID >= a.TokenID {
		return fmt.Errorf("token id %d not after %d", a.TokenID, c.assets[n-1].TokenID)
	}
	c.assets = append(c.assets, a)
	return nil
}

// Len returns the number of assets
func (c *Collection) Len() int {
	return len(c.assets)
}

// IsEmpty reports whether the run produced nothing
func (c *Collection) IsEmpty() bool {
	return len(c.assets) == 0
}

// Assets returns a copy of the assets in token order
func (c *Collection) Assets() []Asset {
	out := make([]Asset, len(c.assets))
	copy(out, c.assets)
	return out
}

// Records returns the raw records in token order
func (c *Collection) Records() []Record {
	out := make([]Record, len(c.assets))
	for i, a := range c.assets {
		out[i] = a.Record
	}
	return out
}

// TokenIDs returns the token IDs in order
func (c *Collection) TokenIDs() []int {
	out := make([]int, len(c.assets))
	for i, a := range c.assets {
		out[i] = a.TokenID
	}
	return out
}
