package locate

import (
	"math"
	"strconv"
	"strings"

	"github.com/ciridae/scopematch/internal/geom"
	"github.com/ciridae/scopematch/internal/models"
	"github.com/ciridae/scopematch/internal/pagetext"
)

// rowTolerance is the maximum vertical-center distance between a field box
// and the item's description box for the field to belong to the same row.
const rowTolerance = 15.0

// Number finds the box of a numeric field on the same row as descBox. It
// tries the renderings estimate software actually prints, most specific
// first: thousands-separated and plain two-decimal forms, then integer forms
// when the value is whole.
func Number(page *pagetext.Page, value float64, descBox geom.Bbox) *geom.Bbox {
	renderings := []string{
		commaFormat(value, 2),
		strconv.FormatFloat(value, 'f', 2, 64),
	}
	if value == math.Trunc(value) {
		renderings = append(renderings,
			commaFormat(value, 0),
			strconv.FormatFloat(value, 'f', 0, 64),
		)
	}
	for _, r := range renderings {
		if box := onRow(page, r, descBox); box != nil {
			return box
		}
	}
	return nil
}

// Unit finds the box of a unit-of-measure string on the same row as descBox.
func Unit(page *pagetext.Page, unit string, descBox geom.Bbox) *geom.Bbox {
	if strings.TrimSpace(unit) == "" {
		return nil
	}
	return onRow(page, strings.ToLower(unit), descBox)
}

// onRow returns the first occurrence of query whose vertical center lies
// within rowTolerance of descBox.
func onRow(page *pagetext.Page, query string, descBox geom.Bbox) *geom.Bbox {
	lower, offsets := page.SearchText()
	for _, box := range findOccurrences(page, lower, offsets, strings.ToLower(query)) {
		if box.VerticalGap(descBox) <= rowTolerance {
			b := box
			return &b
		}
	}
	return nil
}

// Locate resolves all field boxes for one line item on a page. The
// description is located first, honoring claimed regions; numeric and unit
// fields are then searched on the description's row. Any or all boxes may be
// nil.
func Locate(page *pagetext.Page, item *models.LineItem, claimed []geom.Bbox) models.ItemBoxes {
	boxes := models.ItemBoxes{
		Description: Region(page, item.Description, claimed),
	}
	if boxes.Description == nil {
		return boxes
	}
	desc := *boxes.Description
	if item.Quantity != nil {
		boxes.Quantity = Number(page, *item.Quantity, desc)
	}
	if item.UnitPrice != nil {
		boxes.UnitPrice = Number(page, *item.UnitPrice, desc)
	}
	if item.Total != nil {
		boxes.Total = Number(page, *item.Total, desc)
	}
	boxes.Unit = Unit(page, item.Unit, desc)
	return boxes
}

// commaFormat renders value with prec decimal places and comma thousands
// separators, e.g. 1734.959 with prec 2 becomes "1,734.96".
func commaFormat(value float64, prec int) string {
	s := strconv.FormatFloat(value, 'f', prec, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(frac)
	return b.String()
}
