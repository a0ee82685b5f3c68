package locate

import (
	"regexp"
	"strings"

	"github.com/ciridae/scopematch/internal/geom"
	"github.com/ciridae/scopematch/internal/pagetext"
)

const (
	// lineGap is the maximum vertical distance between consecutive matched
	// words before the match is considered to have run off the item's lines.
	lineGap = 20.0

	// maxSkips is how many non-matching page words a growing match may step
	// over in total.
	maxSkips = 3

	// minLiteralQuery is the shortest prefix worth searching literally.
	minLiteralQuery = 5
)

// ordinalPrefix strips leading list numbering such as "12. " from extracted
// descriptions before matching, since the numbering often lives in a separate
// column on the page.
var ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)

// literalPrefixes are the description prefix lengths tried, longest first,
// when fuzzy word matching fails.
var literalPrefixes = []int{60, 40, 25}

// Region finds the bounding box of description's text on the page, skipping
// any candidate that overlaps an already claimed box. It returns nil when the
// text cannot be located; absence is a normal outcome, not an error.
func Region(page *pagetext.Page, description string, claimed []geom.Bbox) *geom.Bbox {
	stripped := ordinalPrefix.ReplaceAllString(strings.TrimSpace(description), "")
	if box := fuzzyRegion(page, strings.Fields(stripped), claimed); box != nil {
		return box
	}
	return literalRegion(page, stripped, claimed)
}

// fuzzyRegion grows a word-by-word match from every page word equivalent to
// the first description word and keeps the longest unclaimed candidate that
// covers at least half the description (and no fewer than two words).
func fuzzyRegion(page *pagetext.Page, targets []string, claimed []geom.Bbox) *geom.Bbox {
	if len(targets) == 0 {
		return nil
	}
	minWords := (len(targets) + 1) / 2
	if minWords < 2 {
		minWords = 2
	}

	var best geom.Bbox
	bestLen := 0
	for i := range page.Words {
		if !MatchWords(page.Words[i].Text, targets[0]) {
			continue
		}
		matched := growMatch(page.Words, i, targets)
		if len(matched) < minWords || len(matched) <= bestLen {
			continue
		}
		box := matchedBox(matched)
		if overlapsAny(box, claimed) {
			continue
		}
		best, bestLen = box, len(matched)
	}
	if bestLen == 0 {
		return nil
	}
	return &best
}

// growMatch extends a match anchored at page word start through the remaining
// target words, stepping over at most maxSkips non-matching page words and
// aborting when the next matched word sits more than lineGap below the
// previous one.
func growMatch(words []pagetext.Word, start int, targets []string) []pagetext.Word {
	matched := []pagetext.Word{words[start]}
	last := words[start]
	skips := 0
	ti := 1
	for j := start + 1; j < len(words) && ti < len(targets); j++ {
		if !MatchWords(words[j].Text, targets[ti]) {
			skips++
			if skips > maxSkips {
				break
			}
			continue
		}
		if words[j].Box.VerticalGap(last.Box) > lineGap {
			break
		}
		matched = append(matched, words[j])
		last = words[j]
		ti++
	}
	return matched
}

// literalRegion falls back to case-insensitive substring search over the
// space-joined page text, trying progressively shorter description prefixes.
func literalRegion(page *pagetext.Page, description string, claimed []geom.Bbox) *geom.Bbox {
	lower, offsets := page.SearchText()
	for _, n := range literalPrefixes {
		query := strings.ToLower(strings.TrimSpace(truncate(description, n)))
		if len(query) < minLiteralQuery {
			continue
		}
		for _, box := range findOccurrences(page, lower, offsets, query) {
			if !overlapsAny(box, claimed) {
				return &box
			}
		}
	}
	return nil
}

// findOccurrences returns the union box of the words covered by each
// occurrence of query in the lowercased joined page text.
func findOccurrences(page *pagetext.Page, lower string, offsets []int, query string) []geom.Bbox {
	var boxes []geom.Bbox
	for from := 0; ; {
		idx := strings.Index(lower[from:], query)
		if idx < 0 {
			break
		}
		start := from + idx
		end := start + len(query)
		boxes = append(boxes, spanBox(page, offsets, len(lower), start, end))
		from = start + 1
	}
	return boxes
}

// spanBox unions the boxes of every word whose byte range in the searched
// text intersects [start, end). Word ends come from the offsets so ranges
// agree with the searched string rather than the words' original bytes.
func spanBox(page *pagetext.Page, offsets []int, textLen, start, end int) geom.Bbox {
	var box geom.Bbox
	found := false
	for i, w := range page.Words {
		wStart := offsets[i]
		wEnd := textLen
		if i+1 < len(offsets) {
			wEnd = offsets[i+1] - 1
		}
		if wEnd <= start || wStart >= end {
			continue
		}
		if !found {
			box = w.Box
			found = true
		} else {
			box = box.Union(w.Box)
		}
	}
	return box
}

func matchedBox(matched []pagetext.Word) geom.Bbox {
	box := matched[0].Box
	for _, w := range matched[1:] {
		box = box.Union(w.Box)
	}
	return box
}

// overlapsAny reports whether box shares a y-interval with any claimed box.
// Claims block the whole row: a duplicate description elsewhere on the same
// line must not resolve to an already claimed item's row.
func overlapsAny(box geom.Bbox, claimed []geom.Bbox) bool {
	for _, c := range claimed {
		if box.VerticalOverlaps(c) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
