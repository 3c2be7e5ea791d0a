package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newsrag/internal/domain"
	"newsrag/internal/port"
)

const errorReply = "I encountered an error while processing your request. Please try again."

// Pipeline stages reported in domain.PipelineError.
const (
	StageRecordUser = "record_user"
	StageEmbed      = "embed"
	StageRetrieve   = "retrieve"
	StageRecordBot  = "record_bot"
)

// ChatUseCase runs one chat turn: record the question, retrieve related
// articles, answer from them and record the answer.
type ChatUseCase struct {
	history   port.HistoryStore
	embedder  port.EmbeddingProvider
	index     port.VectorIndex
	answerer  port.Synthesizer
	dedup     port.Deduplicator
	topK      int
	threshold float64
	log       *slog.Logger
}

// ChatOptions tunes retrieval for a ChatUseCase.
type ChatOptions struct {
	TopK      int
	Threshold float64
	// Dedup is optional.
	Dedup  port.Deduplicator
	Logger *slog.Logger
}

func NewChatUseCase(
	history port.HistoryStore,
	embedder port.EmbeddingProvider,
	index port.VectorIndex,
	answerer port.Synthesizer,
	opts ChatOptions,
) *ChatUseCase {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ChatUseCase{
		history:   history,
		embedder:  embedder,
		index:     index,
		answerer:  answerer,
		dedup:     opts.Dedup,
		topK:      opts.TopK,
		threshold: opts.Threshold,
		log:       opts.Logger,
	}
}

// ProcessMessage answers message within sessionID. Failures after the
// question has been validated are reported as *domain.PipelineError and
// leave an apology in the session history.
func (u *ChatUseCase) ProcessMessage(ctx context.Context, sessionID, message string) (*domain.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &domain.ValidationError{Field: "message", Message: "Message must be a non-empty string"}
	}

	if _, err := u.history.Append(ctx, sessionID, domain.Message{Text: message, Sender: domain.SenderUser}); err != nil {
		return nil, u.fail(ctx, sessionID, StageRecordUser, err)
	}

	emb, err := u.embedder.Embed(ctx, message)
	if err != nil {
		return nil, u.fail(ctx, sessionID, StageEmbed, err)
	}
	if emb.IsFallback() {
		u.log.Info("answering with fallback query embedding", "session", sessionID)
	}

	results, err := u.index.Search(ctx, emb.Vector, u.topK, u.threshold)
	if err != nil {
		return nil, u.fail(ctx, sessionID, StageRetrieve, err)
	}

	if len(results) == 0 {
		return u.noMatch(ctx, sessionID, message)
	}

	if u.dedup != nil {
		results = u.dedup.Dedup(results)
	}

	answer := u.answerer.Answer(ctx, message, results)

	titles := make([]string, len(results))
	sources := make([]domain.SourceRef, len(results))
	for i, r := range results {
		titles[i] = r.Article.Title
		sources[i] = domain.SourceRef{
			Title:          r.Article.Title,
			URL:            r.Article.URL,
			RelevanceScore: r.Score,
		}
	}

	_, err = u.history.Append(ctx, sessionID, domain.Message{
		Text:      answer,
		Sender:    domain.SenderBot,
		Sources:   titles,
		Relevance: domain.RelevanceHigh,
	})
	if err != nil {
		return nil, u.fail(ctx, sessionID, StageRecordBot, err)
	}

	return &domain.ChatResponse{
		Message:   answer,
		Sources:   sources,
		Relevance: domain.RelevanceHigh,
	}, nil
}

func (u *ChatUseCase) noMatch(ctx context.Context, sessionID, message string) (*domain.ChatResponse, error) {
	reply := noMatchReply(message, u.index.Len())

	_, err := u.history.Append(ctx, sessionID, domain.Message{
		Text:      reply,
		Sender:    domain.SenderBot,
		Relevance: domain.RelevanceLow,
	})
	if err != nil {
		return nil, u.fail(ctx, sessionID, StageRecordBot, err)
	}

	return &domain.ChatResponse{
		Message:   reply,
		Sources:   []domain.SourceRef{},
		Relevance: domain.RelevanceLow,
	}, nil
}

func noMatchReply(message string, articles int) string {
	return fmt.Sprintf(`I don't have specific information about "%s" in my current news database.

My database currently contains %d articles, but none are closely related to your query.

To get better results, try asking about:
• Recent political developments
• International news and conflicts
• Technology and business news
• Breaking news stories

You can also try rephrasing your question or asking about broader topics that might be covered in general news.`, message, articles)
}

// fail records the apology when it can and wraps cause.
func (u *ChatUseCase) fail(ctx context.Context, sessionID, stage string, cause error) error {
	u.log.Error("chat turn failed", "session", sessionID, "stage", stage, "error", cause)

	_, err := u.history.Append(ctx, sessionID, domain.Message{
		Text:    errorReply,
		Sender:  domain.SenderBot,
		IsError: true,
	})
	if err != nil {
		u.log.Warn("failed to record error reply", "session", sessionID, "error", err)
	}

	return &domain.PipelineError{SessionID: sessionID, Stage: stage, Err: cause}
}
