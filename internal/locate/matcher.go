// Package locate re-derives bounding boxes for extracted text inside a page's
// word index, tolerating OCR and tokenization noise and avoiding duplicate
// claims on the same region.
package locate

import "strings"

// quoteNormalizer maps typographic quote variants to their ASCII forms so
// extracted text matches page tokens regardless of which style the PDF uses.
var quoteNormalizer = strings.NewReplacer(
	"‘", "'", "’", "'", "`", "'",
	"“", `"`, "”", `"`,
)

const edgePunctuation = ".,;:!?'\"()[]{}"

func normalizeWord(w string) string {
	w = strings.ToLower(w)
	w = quoteNormalizer.Replace(w)
	return strings.Trim(w, edgePunctuation)
}

// MatchWords reports whether two words are equivalent under punctuation,
// quote, and truncation noise: equal after normalization, or one a prefix of
// the other when both normalized forms are at least 3 characters. The prefix
// rule tolerates tokens the text layer split or merged differently than the
// extraction did.
func MatchWords(a, b string) bool {
	na, nb := normalizeWord(a), normalizeWord(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if len(na) >= 3 && len(nb) >= 3 {
		return strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na)
	}
	return false
}
