// Package oracle defines the external-model boundaries of the pipeline.
// Implementations answer semantic questions (what rooms a page shows, which
// items correspond, which rooms pair up) that cannot be derived from geometry
// alone. Callers treat oracle failures as fatal for the operation in
// progress.
package oracle

import "context"

// RoomSection is one room heading detected on a page. IsContinuation marks a
// section that continues a room started on an earlier page.
type RoomSection struct {
	Name           string `json:"name"`
	IsContinuation bool   `json:"is_continuation"`
}

// RawLineItem is a line item as extracted from a page image, before identity
// assignment or geometry resolution. Numeric fields are nil when the page
// does not state them. RoomName names the section the item belongs to; it may
// be a room not listed for the page, which the parser resolves to the first
// known room.
type RawLineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	Unit        string   `json:"unit"`
	UnitPrice   *float64 `json:"unit_price"`
	Total       *float64 `json:"total"`
	RoomName    string   `json:"room_name"`
}

// ItemSummary is the value view of a line item given to the matching oracle:
// a positional index plus the fields relevant for correspondence. No
// geometry, no identity.
type ItemSummary struct {
	Index       int      `json:"index"`
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	Unit        string   `json:"unit"`
	UnitPrice   *float64 `json:"unit_price"`
	Total       *float64 `json:"total"`
}

// IndexPair proposes that source item Source corresponds to target item
// Target, both positional indexes into the slices given to MatchItems.
// Proposals are untrusted: the reconciler validates bounds and rejects
// duplicate claims.
type IndexPair struct {
	Source int `json:"source_index"`
	Target int `json:"target_index"`
}

// RoomGroup pairs one or more source rooms with the target rooms covering the
// same physical space.
type RoomGroup struct {
	SourceRooms []string `json:"source_rooms"`
	TargetRooms []string `json:"target_rooms"`
}

// Extraction reads document structure off rendered page images.
type Extraction interface {
	// RoomSections identifies the room headings visible on a page.
	RoomSections(ctx context.Context, pageImage []byte, pageNumber int) ([]RoomSection, error)

	// LineItems extracts the line items on a page. rooms lists the room names
	// known to appear on the page, in document order.
	LineItems(ctx context.Context, pageImage []byte, rooms []string) ([]RawLineItem, error)
}

// Matching proposes correspondences between two sets of line items.
type Matching interface {
	MatchItems(ctx context.Context, source, target []ItemSummary) ([]IndexPair, error)
}

// RoomPairing groups the rooms of two documents by physical space.
type RoomPairing interface {
	PairRooms(ctx context.Context, sourceRooms, targetRooms []string) ([]RoomGroup, error)
}
