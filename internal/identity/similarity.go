package identity

import "regexp"

// tokenRegex splits normalized titles on anything that is not a letter or
// digit. Hyphens split too, so "usb-c" and "usb c" tokenize identically.
var tokenRegex = regexp.MustCompile(`[^a-z0-9]+`)

// stopWords are listing filler that carries no product signal and would
// inflate similarity between unrelated items.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {},
	"for": {}, "with": {}, "new": {}, "of": {}, "in": {},
	"free": {}, "shipping": {}, "lot": {}, "pcs": {}, "pack": {},
}

// tokenize breaks a normalized title into a set of significant tokens.
func tokenize(title string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range tokenRegex.Split(title, -1) {
		if tok == "" {
			continue
		}
		if _, skip := stopWords[tok]; skip {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

// jaccard computes |A∩B| / |A∪B| over two token sets. Two empty sets are
// treated as dissimilar, not identical.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Similarity scores two normalized titles in [0, 1]. Exact matches
// short-circuit to 1 without tokenizing.
func Similarity(titleA, titleB string) float64 {
	if titleA == titleB && titleA != "" {
		return 1
	}
	return jaccard(tokenize(titleA), tokenize(titleB))
}
