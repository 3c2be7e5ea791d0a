package port

import (
	"context"

	"newsrag/internal/domain"
)

// FeedFetcher downloads and parses a news feed into articles without
// embeddings.
type FeedFetcher interface {
	Fetch(ctx context.Context, source domain.FeedSource) ([]domain.Article, error)
}
