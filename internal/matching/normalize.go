package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips diacritics: decompose, drop combining marks,
// recompose. "Pëtrov" and "Petrov" normalize to the same string.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold normalizes a name for comparison: diacritics removed, case folded,
// punctuation collapsed to spaces.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the normalized name tokens. Order is preserved but callers
// treat the result as a set.
func Tokens(s string) []string {
	folded := Fold(s)
	if folded == "" {
		return nil
	}
	return strings.Fields(folded)
}

// Similarity compares two names as token sets, returning a score in [0,1].
// Comparison is order-insensitive ("Petrov, Vladimir" matches "Vladimir
// Petrov") and initial-aware ("V. Petrov" matches "Vladimir Petrov"): a
// single-letter token pairs with an unmatched token sharing its first rune.
func Similarity(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	matchedA := make([]bool, len(ta))
	matchedB := make([]bool, len(tb))
	matches := 0

	// Exact token matches first.
	for i, t := range ta {
		for j, u := range tb {
			if !matchedB[j] && t == u {
				matchedA[i], matchedB[j] = true, true
				matches++
				break
			}
		}
	}

	// Then initials against remaining tokens, in either direction.
	for i, t := range ta {
		if matchedA[i] || !isInitialCandidate(t) {
			continue
		}
		for j, u := range tb {
			if !matchedB[j] && strings.HasPrefix(u, t) {
				matchedA[i], matchedB[j] = true, true
				matches++
				break
			}
		}
	}
	for j, u := range tb {
		if matchedB[j] || !isInitialCandidate(u) {
			continue
		}
		for i, t := range ta {
			if !matchedA[i] && strings.HasPrefix(t, u) {
				matchedA[i], matchedB[j] = true, true
				matches++
				break
			}
		}
	}

	// Dice coefficient over token counts keeps subset names ("John Smith"
	// inside "John Adam Smith") above the floor without treating them as
	// perfect matches.
	return 2 * float64(matches) / float64(len(ta)+len(tb))
}

// isInitialCandidate reports whether a token is short enough to be treated
// as an abbreviated given name.
func isInitialCandidate(t string) bool {
	return len(t) == 1
}
