package retriever

import (
	"newsrag/internal/adapter/analyzer"
	"newsrag/internal/domain"
	"newsrag/internal/port"
)

var _ port.Deduplicator = (*Deduplicator)(nil)

// Deduplicator drops results whose title and content overlap too much with
// a better-ranked result, which happens when several feeds syndicate the
// same wire story.
type Deduplicator struct {
	threshold float64
	tokenizer *analyzer.Tokenizer
}

// NewDeduplicator creates a Deduplicator. A result is dropped when the
// Jaccard similarity of its terms to an already kept result exceeds
// threshold; a threshold <= 0 disables deduplication.
func NewDeduplicator(threshold float64) *Deduplicator {
	return &Deduplicator{
		threshold: threshold,
		tokenizer: analyzer.NewTokenizer(),
	}
}

// Dedup keeps the input order.
func (d *Deduplicator) Dedup(articles []domain.ScoredArticle) []domain.ScoredArticle {
	if d.threshold <= 0 || len(articles) < 2 {
		return articles
	}

	kept := make([]domain.ScoredArticle, 0, len(articles))
	keptTerms := make([]analyzer.TermSet, 0, len(articles))

	for _, candidate := range articles {
		terms := d.tokenizer.Terms(candidate.Article.Title + " " + candidate.Article.Content)
		if d.duplicate(terms, keptTerms) {
			continue
		}
		kept = append(kept, candidate)
		keptTerms = append(keptTerms, terms)
	}
	return kept
}

func (d *Deduplicator) duplicate(terms analyzer.TermSet, kept []analyzer.TermSet) bool {
	for _, k := range kept {
		if terms.Jaccard(k) > d.threshold {
			return true
		}
	}
	return false
}
