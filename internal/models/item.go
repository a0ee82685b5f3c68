// Package models defines the data model shared by parsing and comparison:
// line items, rooms, parsed documents, and comparison results.
package models

import (
	"strconv"

	"github.com/ciridae/scopematch/internal/geom"
)

// Document sources.
const (
	SourceContractor = "contractor"
	SourceInsurance  = "insurance"
)

// ItemBoxes holds the located bounding box for each field of a line item.
// Any field may be nil: geometry is best-effort and absence is a normal result.
type ItemBoxes struct {
	Description *geom.Bbox `json:"description,omitempty"`
	Quantity    *geom.Bbox `json:"quantity,omitempty"`
	Unit        *geom.Bbox `json:"unit,omitempty"`
	UnitPrice   *geom.Bbox `json:"unit_price,omitempty"`
	Total       *geom.Bbox `json:"total,omitempty"`
}

// LineItem is one extracted line of work from a proposal or estimate.
// ID is assigned once at extraction time and is the only identity used for
// later bookkeeping (cross-room cleanup, re-location passes).
// Contractor-side items carry geometry in Boxes; insurance-side items do not.
type LineItem struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Quantity    *float64  `json:"quantity,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	UnitPrice   *float64  `json:"unit_price,omitempty"`
	Total       *float64  `json:"total,omitempty"`
	Boxes       ItemBoxes `json:"bboxes"`
	PageNumber  int       `json:"page_number"`
}

// Room is a named section of a document with its line items in page order.
type Room struct {
	Name  string      `json:"room_name"`
	Items []*LineItem `json:"line_items"`
}

// ParsedDocument is the fully extracted form of one input document.
type ParsedDocument struct {
	Source string  `json:"source"`
	Rooms  []*Room `json:"rooms"`
}

// ItemCount returns the total number of line items across all rooms.
func (d *ParsedDocument) ItemCount() int {
	n := 0
	for _, r := range d.Rooms {
		n += len(r.Items)
	}
	return n
}

// RoomNames returns the room names in document order.
func (d *ParsedDocument) RoomNames() []string {
	names := make([]string, 0, len(d.Rooms))
	for _, r := range d.Rooms {
		names = append(names, r.Name)
	}
	return names
}

// FormatValue renders an optional numeric field for diff notes and reports.
// Nil renders as the empty string.
func FormatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Float returns a pointer to v, for building optional numeric fields.
func Float(v float64) *float64 { return &v }
