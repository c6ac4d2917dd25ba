// Package catalog defines the card catalog domain: cards, expansion
// partitions, search filters and the gateway used to fetch pages of cards.
package catalog

import (
	"context"
)

// Card is a single catalog entry.
// Only ID is interpreted by the loader; every other field is display data.
type Card struct {
	// ID uniquely identifies the card across all expansions
	ID string `json:"id"`

	// Code is the printed card code (e.g. "OP01-001")
	Code string `json:"code"`

	Name      string `json:"name"`
	Rarity    string `json:"rarity,omitempty"`
	Color     string `json:"color,omitempty"`
	Type      string `json:"type,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	Family    string `json:"family,omitempty"`
	Effect    string `json:"effect,omitempty"`
	SetName   string `json:"set_name,omitempty"`
	ImageURL  string `json:"image,omitempty"`

	Cost    *int `json:"cost,omitempty"`
	Power   *int `json:"power,omitempty"`
	Counter *int `json:"counter,omitempty"`
}

// Identity returns the stable identifier used for equality.
func (c Card) Identity() string {
	return c.ID
}

// PageResult is the outcome of fetching one page.
type PageResult struct {
	// Items are the cards on this page (possibly empty)
	Items []Card `json:"data"`

	// TotalPages is the number of pages the query has in total
	TotalPages int `json:"totalPages"`
}

// Empty reports whether the page carries no cards.
func (r PageResult) Empty() bool {
	return len(r.Items) == 0
}

// Gateway fetches pages of cards, either by expansion or by filter.
type Gateway interface {
	// FetchByPartition fetches one page of a single expansion
	FetchByPartition(ctx context.Context, partition Partition, page, pageSize int) (PageResult, error)

	// FetchByFilter fetches one page of cards matching the filters
	FetchByFilter(ctx context.Context, filters Filters, page, pageSize int) (PageResult, error)
}
