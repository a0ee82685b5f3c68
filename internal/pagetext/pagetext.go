// Package pagetext builds a per-page word index from a PDF: ordered text
// tokens with bounding boxes in the page's native coordinate space.
package pagetext

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ciridae/scopematch/internal/geom"
)

// Word is one text token on a page with its box and reading-order position.
type Word struct {
	Text string
	Box  geom.Bbox
	Ord  int
}

// Page is the word index for a single page. Words are in reading order.
type Page struct {
	Number int
	Words  []Word
}

// Document provides word indexes for each page of a PDF. A Document is not
// safe for concurrent use; callers access pages sequentially.
type Document struct {
	file  *os.File
	r     *pdf.Reader
	pages map[int]*Page
}

// Open opens the PDF at path and prepares lazy per-page word indexing.
func Open(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	return &Document{file: f, r: r, pages: make(map[int]*Page)}, nil
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.r.NumPage()
}

// Page returns the word index for the 1-based page number, building and
// caching it on first access.
func (d *Document) Page(n int) (*Page, error) {
	if p, ok := d.pages[n]; ok {
		return p, nil
	}
	if n < 1 || n > d.r.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1..%d)", n, d.r.NumPage())
	}
	page := d.r.Page(n)
	if page.V.IsNull() {
		p := &Page{Number: n}
		d.pages[n] = p
		return p, nil
	}
	p := &Page{Number: n, Words: groupWords(page.Content().Text)}
	d.pages[n] = p
	return p, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.file.Close()
}

// rowTolerance is the maximum baseline difference for two glyph runs to be
// considered part of the same text row.
const rowTolerance = 2.0

// groupWords merges the reader's glyph runs into whole words in reading
// order: rows top to bottom, words left to right within a row. A new word
// starts at whitespace or when the horizontal gap between runs exceeds a
// quarter of the font size.
func groupWords(texts []pdf.Text) []Word {
	runs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		runs = append(runs, t)
	}
	if len(runs) == 0 {
		return nil
	}

	// PDF y grows upward, so higher Y comes first in reading order.
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var rows [][]pdf.Text
	var row []pdf.Text
	rowY := runs[0].Y
	for _, t := range runs {
		if len(row) > 0 && rowY-t.Y > rowTolerance {
			rows = append(rows, row)
			row = nil
		}
		if len(row) == 0 {
			rowY = t.Y
		}
		row = append(row, t)
	}
	rows = append(rows, row)

	var words []Word
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		words = appendRowWords(words, row)
	}
	for i := range words {
		words[i].Ord = i
	}
	return words
}

func appendRowWords(words []Word, row []pdf.Text) []Word {
	var (
		text  strings.Builder
		box   geom.Bbox
		open  bool
		prevX float64
	)
	flush := func() {
		if open && text.Len() > 0 {
			words = append(words, Word{Text: text.String(), Box: box})
		}
		text.Reset()
		open = false
	}
	for _, t := range row {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}
		gap := t.X - prevX
		gapLimit := t.FontSize * 0.25
		if gapLimit < 1.0 {
			gapLimit = 1.0
		}
		if open && gap > gapLimit {
			flush()
		}
		runBox := geom.Bbox{Left: t.X, Top: t.Y, Right: t.X + t.W, Bottom: t.Y + t.FontSize}
		if !open {
			box = runBox
			open = true
		} else {
			box = box.Union(runBox)
		}
		text.WriteString(t.S)
		prevX = t.X + t.W
	}
	flush()
	return words
}

// SearchText returns the page's words lowercased and joined by single spaces,
// along with the starting byte offset of each word in the joined string. Used
// for case-insensitive literal search that must map back to word geometry.
// Words are lowercased before joining so offsets stay aligned with the
// searched string even when lowercasing changes a character's byte length.
func (p *Page) SearchText() (string, []int) {
	var b strings.Builder
	offsets := make([]int, len(p.Words))
	for i, w := range p.Words {
		if i > 0 {
			b.WriteByte(' ')
		}
		offsets[i] = b.Len()
		b.WriteString(strings.ToLower(w.Text))
	}
	return b.String(), offsets
}
