package analyzer

import (
	"strings"
	"unicode"
)

// minTermLength drops initials and stray digits such as the "U" and "K" of
// "U.K." or the pieces of "3.2%".
const minTermLength = 2

// Tokenizer reduces headlines and article bodies to comparable terms.
type Tokenizer struct {
	stopwords map[string]struct{}
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopwords: newsStopwords}
}

// Tokenize returns the lower-cased terms of text in order, dropping
// stopwords, short terms and possessive suffixes.
func (t *Tokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, isSeparator)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if term, ok := t.term(f); ok {
			terms = append(terms, term)
		}
	}
	return terms
}

// Terms returns the distinct terms of text.
func (t *Tokenizer) Terms(text string) TermSet {
	set := make(TermSet)
	for _, term := range t.Tokenize(text) {
		set[term] = struct{}{}
	}
	return set
}

func (t *Tokenizer) term(field string) (string, bool) {
	field = strings.ToLower(field)
	field = strings.TrimSuffix(strings.TrimSuffix(field, "'s"), "’s")
	field = strings.Trim(field, "'’")
	if strings.ContainsAny(field, "'’") {
		// contractions such as "don't" are stopword material
		return "", false
	}
	if len([]rune(field)) < minTermLength {
		return "", false
	}
	if _, stop := t.stopwords[field]; stop {
		return "", false
	}
	return field, true
}

// isSeparator splits on anything but letters, digits and apostrophes, so
// "Bank-of-England" yields three fields and "Britain's" one.
func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
}

// TermSet is a set of distinct terms.
type TermSet map[string]struct{}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets are identical.
func (a TermSet) Jaccard(b TermSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for term := range small {
		if _, ok := large[term]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// newsStopwords are function words plus the reporting verbs that every wire
// story repeats.
var newsStopwords = toSet(
	"a", "an", "and", "are", "as", "at", "be", "by", "for",
	"from", "has", "he", "in", "is", "it", "its", "of", "on",
	"that", "the", "to", "was", "were", "will", "with", "this",
	"have", "had", "but", "not", "you", "your", "we", "our",
	"they", "their", "she", "her", "his", "if", "or", "so",
	"no", "can", "do", "does", "did", "been", "being", "would",
	"could", "should", "may", "might", "must", "which",
	"who", "what", "when", "where", "why", "how", "all",
	"more", "most", "other", "some", "such", "than", "too",
	"very", "just", "also", "said", "says", "told", "according",
	"after", "over", "into", "about", "up", "out", "new",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
