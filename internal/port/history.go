package port

import (
	"context"

	"newsrag/internal/domain"
)

// HistoryStore keeps the chat log of each session.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, msg domain.Message) (domain.Message, error)

	// Read never fails; missing, expired or unreadable histories are empty.
	Read(ctx context.Context, sessionID string) []domain.Message

	Clear(ctx context.Context, sessionID string) error
}

// Synthesizer answers a question from retrieved articles. It never fails.
type Synthesizer interface {
	Answer(ctx context.Context, question string, articles []domain.ScoredArticle) string
}

// Deduplicator drops near-duplicate results while keeping their order.
type Deduplicator interface {
	Dedup(articles []domain.ScoredArticle) []domain.ScoredArticle
}
