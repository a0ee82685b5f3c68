package pagetext

import (
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
)

func run(s string, x, y, w float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: 10}
}

func texts(words []Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text
	}
	return out
}

func TestGroupWords_mergesAdjacentRuns(t *testing.T) {
	// "Dry" + "wall" rendered as two touching glyph runs.
	words := groupWords([]pdf.Text{
		run("Dry", 10, 700, 15),
		run("wall", 25, 700, 20),
	})
	if len(words) != 1 || words[0].Text != "Drywall" {
		t.Fatalf("words = %v, want [Drywall]", texts(words))
	}
	box := words[0].Box
	if box.Left != 10 || box.Right != 45 {
		t.Errorf("merged box = %+v", box)
	}
}

func TestGroupWords_breaksOnGapAndWhitespace(t *testing.T) {
	words := groupWords([]pdf.Text{
		run("Remove", 10, 700, 30),
		run(" ", 40, 700, 3),
		run("drywall", 43, 700, 35),
		// Wide gap to a column further right.
		run("120.00", 200, 700, 30),
	})
	got := texts(words)
	want := []string{"Remove", "drywall", "120.00"}
	if len(got) != len(want) {
		t.Fatalf("words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGroupWords_readingOrder(t *testing.T) {
	// Runs arrive out of order; higher Y is earlier on the page.
	words := groupWords([]pdf.Text{
		run("second", 10, 650, 30),
		run("first", 10, 700, 25),
		run("row", 100, 700, 18),
	})
	got := texts(words)
	want := []string{"first", "row", "second"}
	if len(got) != len(want) {
		t.Fatalf("words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, got[i], want[i])
		}
	}
	for i, w := range words {
		if w.Ord != i {
			t.Errorf("word %d Ord = %d", i, w.Ord)
		}
	}
}

func TestGroupWords_rowTolerance(t *testing.T) {
	// Slight baseline jitter within tolerance stays on one row.
	words := groupWords([]pdf.Text{
		run("a", 10, 700, 5),
		run("b", 100, 699, 5),
	})
	if len(words) != 2 {
		t.Fatalf("words = %v", texts(words))
	}
	if words[0].Text != "a" || words[1].Text != "b" {
		t.Errorf("row order: %v", texts(words))
	}
}

func TestGroupWords_empty(t *testing.T) {
	if got := groupWords(nil); got != nil {
		t.Errorf("groupWords(nil) = %v", got)
	}
	if got := groupWords([]pdf.Text{{S: ""}}); got != nil {
		t.Errorf("groupWords(empty runs) = %v", got)
	}
}

func TestSearchText(t *testing.T) {
	p := &Page{Words: []Word{
		{Text: "Remove"},
		{Text: "&"},
		{Text: "Replace"},
	}}
	joined, offsets := p.SearchText()
	if joined != "remove & replace" {
		t.Errorf("joined = %q", joined)
	}
	want := []int{0, 7, 9}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("offset %d = %d, want %d", i, offsets[i], want[i])
		}
	}
}

func TestSearchText_lowercaseChangesByteLength(t *testing.T) {
	// Dotted capital I lowercases to a two-rune sequence one byte longer.
	p := &Page{Words: []Word{
		{Text: "İtem"},
		{Text: "Drywall"},
	}}
	joined, offsets := p.SearchText()
	first := strings.ToLower("İtem")
	if joined != first+" drywall" {
		t.Errorf("joined = %q", joined)
	}
	if offsets[1] != len(first)+1 {
		t.Errorf("offset 1 = %d, want %d", offsets[1], len(first)+1)
	}
}
