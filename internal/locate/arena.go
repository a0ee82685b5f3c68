package locate

import "github.com/ciridae/scopematch/internal/geom"

// Arena tracks the page regions already handed out to line items so that
// repeated descriptions on one page resolve to distinct boxes. One Arena
// covers one document and is not safe for concurrent use; bbox resolution is
// applied sequentially in page order.
type Arena struct {
	claimed map[int][]geom.Bbox
}

// NewArena returns an empty claim arena.
func NewArena() *Arena {
	return &Arena{claimed: make(map[int][]geom.Bbox)}
}

// Claimed returns the boxes claimed so far on the given page.
func (a *Arena) Claimed(page int) []geom.Bbox {
	return a.claimed[page]
}

// Claim records box as taken on the given page.
func (a *Arena) Claim(page int, box geom.Bbox) {
	a.claimed[page] = append(a.claimed[page], box)
}
