// Package geom provides axis-aligned bounding boxes in page coordinate space.
package geom

import (
	"encoding/json"
	"fmt"
	"math"
)

// Bbox is an axis-aligned rectangle in a page's native floating-point
// coordinate space: (left, top, right, bottom). Top and Bottom name the two
// y-edges of the box; geometry code treats them as an unordered interval so
// the same box works in top-down and bottom-up page spaces.
type Bbox struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Union returns the smallest box containing both b and other.
func (b Bbox) Union(other Bbox) Bbox {
	return Bbox{
		Left:   math.Min(b.Left, other.Left),
		Top:    math.Min(math.Min(b.Top, b.Bottom), math.Min(other.Top, other.Bottom)),
		Right:  math.Max(b.Right, other.Right),
		Bottom: math.Max(math.Max(b.Top, b.Bottom), math.Max(other.Top, other.Bottom)),
	}
}

// Width returns the horizontal extent of the box.
func (b Bbox) Width() float64 {
	return math.Abs(b.Right - b.Left)
}

// Height returns the vertical extent of the box.
func (b Bbox) Height() float64 {
	return math.Abs(b.Bottom - b.Top)
}

// VerticalCenter returns the midpoint of the box's y-interval.
func (b Bbox) VerticalCenter() float64 {
	return (b.Top + b.Bottom) / 2
}

// VerticalOverlaps reports whether the y-intervals of b and other intersect.
func (b Bbox) VerticalOverlaps(other Bbox) bool {
	lo1, hi1 := math.Min(b.Top, b.Bottom), math.Max(b.Top, b.Bottom)
	lo2, hi2 := math.Min(other.Top, other.Bottom), math.Max(other.Top, other.Bottom)
	return lo1 <= hi2 && lo2 <= hi1
}

// Intersects reports whether b and other overlap in both axes.
func (b Bbox) Intersects(other Bbox) bool {
	if b.Right < other.Left || other.Right < b.Left {
		return false
	}
	return b.VerticalOverlaps(other)
}

// VerticalGap returns the distance between the vertical centers of b and other.
func (b Bbox) VerticalGap(other Bbox) float64 {
	return math.Abs(b.VerticalCenter() - other.VerticalCenter())
}

// IsEmpty reports whether the box has no area.
func (b Bbox) IsEmpty() bool {
	return b.Width() == 0 || b.Height() == 0
}

// MarshalJSON encodes the box as a 4-element array [left, top, right, bottom].
func (b Bbox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.Left, b.Top, b.Right, b.Bottom})
}

// UnmarshalJSON decodes a 4-element array [left, top, right, bottom].
func (b *Bbox) UnmarshalJSON(data []byte) error {
	var arr [4]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("bbox must be a 4-element array: %w", err)
	}
	b.Left, b.Top, b.Right, b.Bottom = arr[0], arr[1], arr[2], arr[3]
	return nil
}

// UnionAll returns the union of all boxes, or the zero box for an empty slice.
func UnionAll(boxes []Bbox) Bbox {
	if len(boxes) == 0 {
		return Bbox{}
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out = out.Union(b)
	}
	return out
}
