package board

import (
	"strings"
	"unicode"
)

// overlapRatio measures how much of the smaller answer's vocabulary is
// shared with the other answer: |A ∩ B| / min(|A|, |B|) over normalized
// word tokens. The overlap coefficient (rather than Jaccard) is used so
// that resubmitting an answer with trivial punctuation or casing changes
// always measures 1.0.
func overlapRatio(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	smaller, larger := ta, tb
	if len(tb) < len(ta) {
		smaller, larger = tb, ta
	}

	shared := 0
	for tok := range smaller {
		if _, ok := larger[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(smaller))
}

// tokenize splits text into a set of lowercased word tokens, stripping
// punctuation. Token identity, not frequency, drives the overlap measure.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		tokens[strings.ToLower(field)] = struct{}{}
	}
	return tokens
}

// maxOverlap returns the highest overlap ratio between content and any of
// the given answers, along with the label of the closest answer.
func maxOverlap(content string, answers []Answer) (float64, string) {
	var (
		highest float64
		closest string
	)
	for _, a := range answers {
		if r := overlapRatio(content, a.Content); r > highest {
			highest = r
			closest = a.Label
		}
	}
	return highest, closest
}
