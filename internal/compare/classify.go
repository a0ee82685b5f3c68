// Package compare reconciles two parsed documents: room pairing, item
// matching through the matching oracle, and field-level classification of
// each matched pair.
package compare

import (
	"math"
	"strings"

	"github.com/ciridae/scopematch/internal/models"
)

// tolerance is the relative difference, against the contractor value, under
// which two numeric fields count as agreeing. The bound is inclusive: a
// difference of exactly 2% still agrees.
const tolerance = 0.02

// withinTolerance compares two optional values. Both absent agrees, one
// absent disagrees, both zero agrees, one zero disagrees; otherwise the
// relative difference against a decides.
func withinTolerance(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if *a == 0 && *b == 0 {
		return true
	}
	if *a == 0 || *b == 0 {
		return false
	}
	return math.Abs((*a-*b) / *a) <= tolerance
}

// Classify grades a matched pair. When units agree, quantity and unit price
// are compared. When units differ the two sides measure in incompatible
// systems, so the unit difference is flagged and totals are compared instead.
// Green means no differences.
func Classify(source, target *models.LineItem) (models.MatchColor, []models.DiffNote) {
	var diffs []models.DiffNote

	unitsMatch := normalizeUnit(source.Unit) == normalizeUnit(target.Unit)
	if !unitsMatch {
		diffs = append(diffs, models.DiffNote{
			Field:       "unit",
			SourceValue: source.Unit,
			TargetValue: target.Unit,
		})
		if !withinTolerance(source.Total, target.Total) {
			diffs = append(diffs, models.DiffNote{
				Field:       "total",
				SourceValue: models.FormatValue(source.Total),
				TargetValue: models.FormatValue(target.Total),
			})
		}
	} else {
		if !withinTolerance(source.Quantity, target.Quantity) {
			diffs = append(diffs, models.DiffNote{
				Field:       "quantity",
				SourceValue: models.FormatValue(source.Quantity),
				TargetValue: models.FormatValue(target.Quantity),
			})
		}
		if !withinTolerance(source.UnitPrice, target.UnitPrice) {
			diffs = append(diffs, models.DiffNote{
				Field:       "unit_price",
				SourceValue: models.FormatValue(source.UnitPrice),
				TargetValue: models.FormatValue(target.UnitPrice),
			})
		}
	}

	if len(diffs) == 0 {
		return models.ColorGreen, nil
	}
	return models.ColorOrange, diffs
}

func normalizeUnit(u string) string {
	return strings.ToUpper(strings.TrimSpace(u))
}
